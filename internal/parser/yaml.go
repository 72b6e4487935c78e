package parser

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/microres/internal/models"
)

func ParseYAMLCase(reader io.Reader) (*models.CaseFile, error) {
	var data models.CaseFile
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML case: %w", err)
	}

	return &data, nil
}
