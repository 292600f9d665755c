package main

import "github.com/nikogura/penalty-matrix/cmd"

func main() {
	cmd.Execute()
}
