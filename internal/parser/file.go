package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/miradorstack/microres/internal/models"
)

// ParseCaseFile reads a case from disk, choosing the decoder by extension, and checks it.
func ParseCaseFile(path string) (*models.CaseFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open case file: %w", err)
	}
	defer file.Close()

	var c *models.CaseFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		c, err = ParseJSONCase(file)
	case ".yaml", ".yml":
		c, err = ParseYAMLCase(file)
	default:
		return nil, fmt.Errorf("unsupported case file format: %s", ext)
	}
	if err != nil {
		return nil, err
	}
	if err := c.Check(); err != nil {
		return nil, err
	}
	return c, nil
}
