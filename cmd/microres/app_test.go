package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/microres/internal/config"
)

func TestLoadRulesMissingFile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "categories.yaml")

	rules, err := loadRules(config.RulesConfig{Path: path}, logger)
	require.NoError(t, err)
	assert.Nil(t, rules)

	rules, err = loadRules(config.RulesConfig{Path: path, Watch: true}, logger)
	require.NoError(t, err)
	require.NotNil(t, rules)
	assert.Equal(t, 0, rules.Len())

	rules, err = loadRules(config.RulesConfig{Watch: true}, logger)
	require.NoError(t, err)
	assert.Nil(t, rules)
}

func TestLoadRulesShippedFile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rules, err := loadRules(config.RulesConfig{Path: "../../configs/rules/categories.yaml", Watch: true}, logger)
	require.NoError(t, err)
	assert.Greater(t, rules.Len(), 0)
}
