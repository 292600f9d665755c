// Package export serializes a penalty matrix for downstream tooling: the
// nested JSON document, the flat CSV table, and a Markdown summary.
package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/nikogura/penalty-matrix/pkg/penalty"
	"github.com/pkg/errors"
)

// Supported output formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

// MatrixSuffix is the file suffix of the nested JSON export.
const MatrixSuffix = ".matrix.json"

// Formats lists every supported format in write order.
func Formats() (formats []string) {
	formats = []string{FormatJSON, FormatCSV, FormatMarkdown}
	return formats
}

// FileName returns the output file name for base and format.
func FileName(base, format string) (name string, err error) {
	switch format {
	case FormatJSON:
		name = base + MatrixSuffix
	case FormatCSV:
		name = base + ".matrix.csv"
	case FormatMarkdown:
		name = base + ".matrix.md"
	default:
		err = errors.Errorf("unsupported export format: %s", format)
	}

	return name, err
}

// Write renders one format to w.
func Write(w io.Writer, matrix *penalty.Matrix, format string) (err error) {
	if matrix == nil {
		err = errors.New("no matrix to export")
		return err
	}

	switch format {
	case FormatJSON:
		err = WriteJSON(w, matrix)
	case FormatCSV:
		err = WriteCSV(w, matrix)
	case FormatMarkdown:
		err = WriteMarkdown(w, matrix)
	default:
		err = errors.Errorf("unsupported export format: %s", format)
	}

	return err
}

// WriteFiles writes each requested format into dir and returns the paths in
// the order written. Each file is replaced atomically.
func WriteFiles(dir, base string, matrix *penalty.Matrix, formats []string) (paths []string, err error) {
	err = os.MkdirAll(dir, 0750)
	if err != nil {
		err = errors.Wrapf(err, "failed to create output directory: %s", dir)
		return paths, err
	}

	for _, format := range formats {
		var name string
		name, err = FileName(base, format)
		if err != nil {
			return paths, err
		}

		var buf bytes.Buffer
		err = Write(&buf, matrix, format)
		if err != nil {
			err = errors.Wrapf(err, "failed to render %s export", format)
			return paths, err
		}

		path := filepath.Join(dir, name)
		err = WriteFileAtomic(path, buf.Bytes())
		if err != nil {
			return paths, err
		}

		paths = append(paths, path)
	}

	return paths, err
}

// WriteFileAtomic writes data to a temp file in the target directory, syncs
// it, and renames it into place.
func WriteFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0750)
	if err != nil {
		err = errors.Wrapf(err, "failed to create output directory: %s", dir)
		return err
	}

	tmp := fmt.Sprintf("%s.tmp.%d", path, os.Getpid())
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		err = errors.Wrapf(err, "failed to create temp file: %s", tmp)
		return err
	}

	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		err = errors.Wrapf(err, "failed to write %s", path)
		return err
	}

	err = os.Rename(tmp, path)
	if err != nil {
		_ = os.Remove(tmp)
		err = errors.Wrapf(err, "failed to move %s into place", path)
		return err
	}

	syncDir(dir)

	return err
}

func syncDir(dir string) {
	if runtime.GOOS == "windows" {
		return
	}

	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()

	_ = d.Sync()
}
