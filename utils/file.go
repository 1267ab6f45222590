package utils

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ReadJSONFile decodes the JSON document at path into out.
func ReadJSONFile(path string, out interface{}) error {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(f.Close)
	data, err := io.ReadAll(f)
	if err != nil {
		return errors.Wrap(err, "error reading JSON data")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "error parsing JSON from %q", path)
	}
	return nil
}

// WriteJSONFile writes v as indented JSON to path.
func WriteJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "error encoding JSON")
	}
	//nolint:gosec
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "error writing %q", path)
}
