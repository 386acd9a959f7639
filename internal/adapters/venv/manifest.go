package venv

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
)

// Manifest records what a provisioned environment directory contains, so a
// later run can decide whether the installation is still valid.
type Manifest struct {
	EnvName string `json:"env_name"`
	EnvID   string `json:"env_id"`
}

// LoadManifest reads a manifest file. A missing or corrupt file is an error;
// callers treat any error as "rebuild".
func LoadManifest(path string) (Manifest, error) {
	//nolint:gosec // Path is constructed from the trusted work directory
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, zerr.Wrap(err, "failed to read environment manifest")
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, zerr.Wrap(err, "failed to unmarshal environment manifest")
	}
	return m, nil
}

// SaveManifest writes a manifest file, creating its directory if needed.
func SaveManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal environment manifest")
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return zerr.Wrap(err, "failed to create environment directory")
	}

	if err := os.WriteFile(path, data, filePerm); err != nil {
		return zerr.Wrap(err, "failed to write environment manifest")
	}
	return nil
}
