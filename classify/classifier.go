package classify

import (
	"log/slog"
	"strings"
)

// Intent is the classifier output for a query.
// An empty Category means "no filter" and is a valid result, not an error.
type Intent struct {
	Category    string
	PrimaryOnly bool
}

// Classifier detects an optional category filter and a primary-only flag
// from raw query text. It has no side effects and is deterministic: the same
// text always yields the same Intent, since the output feeds cache keys.
type Classifier struct {
	config     *Config
	categories []string // sorted once so matching order is deterministic
	logger     *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// New creates a Classifier from the given config.
// A nil config uses DefaultConfig. The config is normalized once here and
// must not be mutated afterwards.
func New(config *Config, opts ...Option) (*Classifier, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if len(config.Vocabulary) == 0 {
		return nil, ErrEmptyVocabulary
	}
	config.normalize()

	c := &Classifier{
		config:     config,
		categories: config.Categories(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Config returns the classifier's vocabulary config.
// Callers must treat it as read-only.
func (c *Classifier) Config() *Config {
	return c.config
}

// Classify determines the category filter and primary-only flag for a query.
// Categories are checked in sorted order; the first category with a keyword
// contained in the query wins. Absence of a match yields an empty category.
func (c *Classifier) Classify(text string) Intent {
	lowered := strings.ToLower(text)

	intent := Intent{}
	for _, category := range c.categories {
		if c.matchCategory(lowered, category) {
			intent.Category = category
			break
		}
	}

	for _, trigger := range c.config.PrimaryTriggers {
		if strings.Contains(lowered, trigger) {
			intent.PrimaryOnly = true
			break
		}
	}

	c.logger.Debug("classified query",
		"category", intent.Category, "primaryOnly", intent.PrimaryOnly)
	return intent
}

func (c *Classifier) matchCategory(lowered, category string) bool {
	for _, keyword := range c.config.Vocabulary[category] {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
