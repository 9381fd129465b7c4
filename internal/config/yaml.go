package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLConfigParser parses YAML configuration files.
type YAMLConfigParser struct{}

// NewYAMLConfigParser creates a YAMLConfigParser.
func NewYAMLConfigParser() *YAMLConfigParser {
	return &YAMLConfigParser{}
}

// Parse parses a YAML configuration. Unknown keys are rejected.
func (p *YAMLConfigParser) Parse(content []byte) (*Config, error) {
	doc, err := decodeDocument(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	doc.expandEnv()
	return doc.build()
}

// decodeDocument decodes a single YAML document. An empty input yields an
// empty document.
func decodeDocument(r io.Reader) (*document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}
	return &doc, nil
}
