package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/nikogura/penalty-matrix/pkg/penalty"
	"github.com/pkg/errors"
)

// WriteJSON writes the nested matrix document, indented. Map keys are sorted
// by encoding/json so identical matrices produce identical bytes.
func WriteJSON(w io.Writer, matrix *penalty.Matrix) (err error) {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	err = encoder.Encode(matrix)
	if err != nil {
		err = errors.Wrap(err, "failed to encode matrix")
		return err
	}

	return err
}

// ReadJSON loads a matrix previously written by WriteJSON.
func ReadJSON(path string) (matrix *penalty.Matrix, err error) {
	var data []byte
	data, err = os.ReadFile(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to read matrix: %s", path)
		return matrix, err
	}

	matrix = &penalty.Matrix{}
	err = json.Unmarshal(data, matrix)
	if err != nil {
		err = errors.Wrapf(err, "failed to parse matrix: %s", path)
		matrix = nil
		return matrix, err
	}

	return matrix, err
}
