package config

import (
	"errors"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile decodes the YAML document at path into v. Environment variable
// references of the form ${NAME} are expanded before decoding. Unknown
// fields are rejected.
func LoadFile[T any](path string, v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Join(ErrReadingFile, err)
	}
	return DecodeYAML(raw, v)
}

// DecodeYAML decodes a YAML document into v with environment expansion.
func DecodeYAML[T any](raw []byte, v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	dec := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(raw))))
	dec.KnownFields(true)
	var parsed T
	if err := dec.Decode(&parsed); err != nil && !errors.Is(err, io.EOF) {
		return errors.Join(ErrParsingFile, err)
	}
	*v = parsed
	return nil
}
