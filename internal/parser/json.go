package parser

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/miradorstack/microres/internal/models"
)

func ParseJSONCase(reader io.Reader) (*models.CaseFile, error) {
	var data models.CaseFile
	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON case: %w", err)
	}

	return &data, nil
}
