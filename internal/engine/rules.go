package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/microres/internal/models"
)

// ErrNoCategoryRule is returned when no rule classifies a metric.
var ErrNoCategoryRule = errors.New("no category rule matches metric")

// CategoryRules classifies metric names into categories when metadata is not given explicitly.
type CategoryRules struct {
	mu     sync.RWMutex
	rules  []CategoryRule
	logger *slog.Logger
}

// CategoryRule maps matching metric names to a category.
type CategoryRule struct {
	ID       string          `yaml:"id"`
	Match    CategoryMatch   `yaml:"match"`
	Category models.Category `yaml:"category"`
}

// CategoryMatch defines optional attributes for rule matching. All set attributes must match.
type CategoryMatch struct {
	Name     string   `yaml:"name"`
	Prefix   string   `yaml:"prefix"`
	Contains []string `yaml:"contains"`
}

// CategoryRuleFile is the YAML root structure.
type CategoryRuleFile struct {
	Rules []CategoryRule `yaml:"rules"`
}

// NewCategoryRules loads rules from the provided path. If path is empty or missing, returns nil rules.
func NewCategoryRules(path string, logger *slog.Logger) (*CategoryRules, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var file CategoryRuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return ParseCategoryRules(file.Rules, logger)
}

// ParseCategoryRules validates rules and builds a classifier.
func ParseCategoryRules(rules []CategoryRule, logger *slog.Logger) (*CategoryRules, error) {
	for i, rule := range rules {
		category, err := models.ParseCategory(string(rule.Category))
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.ID, err)
		}
		rules[i].Category = category
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryRules{rules: rules, logger: logger}, nil
}

// Len returns the number of loaded rules.
func (r *CategoryRules) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// Replace swaps in the rules of next. A nil next leaves r unchanged.
func (r *CategoryRules) Replace(next *CategoryRules) {
	if r == nil || next == nil {
		return
	}
	next.mu.RLock()
	rules := next.rules
	next.mu.RUnlock()

	r.mu.Lock()
	r.rules = rules
	r.mu.Unlock()
}

// Classify returns the category of the first rule matching name.
func (r *CategoryRules) Classify(name string) (models.Category, error) {
	if r != nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		for _, rule := range r.rules {
			if rule.Match.matches(name) {
				r.logger.Debug("classified metric", slog.String("metric", name), slog.String("rule", rule.ID), slog.String("category", string(rule.Category)))
				return rule.Category, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNoCategoryRule, name)
}

// Metadata classifies names in order.
func (r *CategoryRules) Metadata(names []string) (models.Metadata, error) {
	out := make(models.Metadata, 0, len(names))
	for _, name := range names {
		category, err := r.Classify(name)
		if err != nil {
			return nil, err
		}
		out = append(out, models.MetricDescriptor{Name: name, Category: category})
	}
	return out, nil
}

func (m CategoryMatch) matches(name string) bool {
	if m.Name == "" && m.Prefix == "" && len(m.Contains) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	if m.Name != "" && !strings.EqualFold(m.Name, name) {
		return false
	}
	if m.Prefix != "" && !strings.HasPrefix(lower, strings.ToLower(m.Prefix)) {
		return false
	}
	if len(m.Contains) > 0 && !containsAny(lower, m.Contains) {
		return false
	}
	return true
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
