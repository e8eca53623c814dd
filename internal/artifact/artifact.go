// Package artifact reads and writes the files pipeline steps exchange: an
// artifact describing a produced table, and plain output parameters.
package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"

	"mlprep/internal/common"
	"mlprep/pkg/errors"
)

// OutputsFile collects every output parameter of a step in one JSON file.
const OutputsFile = "outputs.json"

// Artifact is a reference to a produced object plus free-form metadata.
type Artifact struct {
	URI      string                 `json:"uri"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// New creates an artifact for uri.
func New(uri string) *Artifact {
	return &Artifact{URI: uri, Metadata: make(map[string]interface{})}
}

// With sets a metadata entry.
func (a *Artifact) With(key string, value interface{}) *Artifact {
	if a.Metadata == nil {
		a.Metadata = make(map[string]interface{})
	}
	a.Metadata[key] = value
	return a
}

// Write stores the artifact as JSON at path, creating parent directories.
func (a *Artifact) Write(path string) error {
	return writeJSON(path, a)
}

// Read loads an artifact written by Write.
func Read(path string) (*Artifact, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is supplied by the pipeline
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.ErrCodeFileNotFound, "Artifact file not found").
				WithContext("path", path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to read artifact").
			WithContext("path", path)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeResultParsing, "Failed to parse artifact").
			WithContext("path", path)
	}
	if a.URI == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "Artifact has no uri").
			WithContext("path", path)
	}
	return &a, nil
}

// WriteParameter writes a single output parameter as a plain text file
// named name under dir.
func WriteParameter(dir, name, value string) error {
	if err := os.MkdirAll(dir, common.DirPermissionNormal); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to create output directory").
			WithContext("dir", dir)
	}
	path, err := common.JoinPath(dir, name)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "Invalid output parameter name").
			WithContext("name", name)
	}
	if err := os.WriteFile(path, []byte(value), common.FilePermissionNormal); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to write output parameter").
			WithContext("path", path)
	}
	return nil
}

// WriteOutputs writes one parameter file per entry and OutputsFile with all
// of them.
func WriteOutputs(dir string, outputs map[string]string) error {
	for name, value := range outputs {
		if err := WriteParameter(dir, name, value); err != nil {
			return err
		}
	}
	return writeJSON(filepath.Join(dir, OutputsFile), outputs)
}

func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), common.DirPermissionNormal); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to create artifact directory").
			WithContext("path", path)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "Failed to encode artifact")
	}
	if err := os.WriteFile(path, append(data, '\n'), common.FilePermissionNormal); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to write artifact").
			WithContext("path", path)
	}
	return nil
}
