package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/suntan/internal/domain"
	"github.com/kailas-cloud/suntan/internal/domain/schema/field"
)

// description is the on-disk schema format. JSON descriptions parse too,
// since JSON is a subset of YAML.
type description struct {
	IDField string             `yaml:"id_field"`
	Fields  []fieldDescription `yaml:"fields"`
}

type fieldDescription struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Indexed   bool   `yaml:"indexed"`
	Stored    bool   `yaml:"stored"`
	RawSource bool   `yaml:"raw_source"`
}

// LoadFile reads and parses a schema description file.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	return Load(bytes.NewReader(data))
}

// Load parses a schema description. Every failure wraps domain.ErrInvalidSchema.
func Load(r io.Reader) (*Schema, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var desc description
	if err := dec.Decode(&desc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty description", domain.ErrInvalidSchema)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidSchema, err)
	}

	fields := make([]field.Field, 0, len(desc.Fields))
	rawSource := ""
	for i, fd := range desc.Fields {
		ft, err := field.ParseType(fd.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: fields[%d]: %w", domain.ErrInvalidSchema, i, err)
		}
		f, err := field.New(fd.Name, ft, fd.Indexed, fd.Stored)
		if err != nil {
			return nil, fmt.Errorf("%w: fields[%d]: %w", domain.ErrInvalidSchema, i, err)
		}
		if fd.RawSource {
			if rawSource != "" {
				return nil, fmt.Errorf("%w: at most one raw source field allowed, got %q and %q",
					domain.ErrInvalidSchema, rawSource, fd.Name)
			}
			rawSource = fd.Name
		}
		fields = append(fields, f)
	}

	return New(fields, rawSource, desc.IDField)
}
