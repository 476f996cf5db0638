package model

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// FormSpec is the ordered list of fields a view renders.
type FormSpec struct {
	Title  string      `json:"title,omitempty" yaml:"title,omitempty"`
	Action string      `json:"action,omitempty" yaml:"action,omitempty"`
	Fields []FieldSpec `json:"fields" yaml:"fields"`
}

// Field returns the spec registered under name.
func (f FormSpec) Field(name string) (FieldSpec, bool) {
	for _, spec := range f.Fields {
		if spec.Name == name {
			return spec.Clone(), true
		}
	}
	return FieldSpec{}, false
}

// Validate checks every field and rejects duplicate names.
func (f FormSpec) Validate() error {
	seen := make(map[string]struct{}, len(f.Fields))
	for idx, spec := range f.Fields {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("model: fields[%d]: %w", idx, err)
		}
		if spec.Name == "" {
			continue
		}
		if _, dup := seen[spec.Name]; dup {
			return fmt.Errorf("model: duplicate field %q", spec.Name)
		}
		seen[spec.Name] = struct{}{}
	}
	return nil
}

// ParseFormSpec decodes a YAML form spec and validates it.
func ParseFormSpec(data []byte) (FormSpec, error) {
	return DecodeFormSpec(bytes.NewReader(data))
}

// DecodeFormSpec reads a YAML form spec from r.
func DecodeFormSpec(r io.Reader) (FormSpec, error) {
	if r == nil {
		return FormSpec{}, errors.New("model: form spec reader is nil")
	}
	var spec FormSpec
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		if errors.Is(err, io.EOF) {
			return FormSpec{}, errors.New("model: form spec is empty")
		}
		return FormSpec{}, fmt.Errorf("model: decode form spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return FormSpec{}, err
	}
	return spec, nil
}

// LoadFormSpec reads a YAML form spec from disk.
func LoadFormSpec(path string) (FormSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FormSpec{}, fmt.Errorf("model: read form spec: %w", err)
	}
	return ParseFormSpec(data)
}
