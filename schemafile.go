package apidec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zoobzio/capitan"
)

// encodeSchemaFile renders the document in the on-disk format: 4-space
// indented JSON with a trailing newline.
func encodeSchemaFile(routes *Routes, cfg *Config) ([]byte, error) {
	doc, err := GenerateSpec(routes, cfg)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteSchemaFile generates the document and writes it to cfg.SchemaPath,
// creating parent directories as needed.
func WriteSchemaFile(routes *Routes, cfg *Config) error {
	if cfg.SchemaPath == "" {
		return fmt.Errorf("no schema path configured")
	}

	data, err := encodeSchemaFile(routes, cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SchemaPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}
	if err := os.WriteFile(cfg.SchemaPath, data, 0o644); err != nil {
		return fmt.Errorf("write schema file: %w", err)
	}

	capitan.Emit(context.Background(), SchemaFileWritten,
		SchemaPathKey.Field(cfg.SchemaPath),
	)
	return nil
}

// CheckSchemaFile regenerates the document and byte-compares it against
// the file at cfg.SchemaPath. A mismatch means the committed schema has
// drifted from the code; meant to run in CI.
func CheckSchemaFile(routes *Routes, cfg *Config) error {
	if cfg.SchemaPath == "" {
		return fmt.Errorf("no schema path configured")
	}

	want, err := encodeSchemaFile(routes, cfg)
	if err != nil {
		return err
	}
	got, err := os.ReadFile(cfg.SchemaPath)
	if err != nil {
		return fmt.Errorf("read schema file: %w", err)
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("schema file %s is out of date, regenerate it", cfg.SchemaPath)
	}
	return nil
}
