package match

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds every empirically chosen threshold the matcher uses. All
// lengths count runes of normalized text.
type Tuning struct {
	// MinQuoteChars is the floor below which a quote is not matched at all.
	MinQuoteChars int `yaml:"min_quote_chars"`
	// MinPhraseChars is the floor below which only the per-word fallback
	// runs; short quotes make phrase tiers fire on noise.
	MinPhraseChars int `yaml:"min_phrase_chars"`

	// Word-window tier.
	FuzzyWordMinLen      int     `yaml:"fuzzy_word_min_len"`
	FuzzyPartialWeight   float64 `yaml:"fuzzy_partial_weight"`
	FuzzyWindowThreshold float64 `yaml:"fuzzy_window_threshold"`

	// Sentence-prefix tier.
	SentenceTierMinChars int `yaml:"sentence_tier_min_chars"`
	SentenceMinChars     int `yaml:"sentence_min_chars"`
	SentencesTried       int `yaml:"sentences_tried"`
	SentencePrefixWords  int `yaml:"sentence_prefix_words"`
	SentenceWordMinLen   int `yaml:"sentence_word_min_len"`

	// Per-word fallback tier.
	FallbackMaxWords   int `yaml:"fallback_max_words"`
	FallbackWordMinLen int `yaml:"fallback_word_min_len"`
}

// DefaultTuning returns the thresholds the matcher ships with.
func DefaultTuning() Tuning {
	return Tuning{
		MinQuoteChars:        3,
		MinPhraseChars:       10,
		FuzzyWordMinLen:      2,
		FuzzyPartialWeight:   0.7,
		FuzzyWindowThreshold: 0.8,
		SentenceTierMinChars: 100,
		SentenceMinChars:     20,
		SentencesTried:       2,
		SentencePrefixWords:  8,
		SentenceWordMinLen:   3,
		FallbackMaxWords:     15,
		FallbackWordMinLen:   3,
	}
}

// LoadTuning reads a YAML file and overlays it on the defaults, so a tuning
// file only needs the values it changes.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse tuning file: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning file %s: %w", path, err)
	}
	return t, nil
}

// Validate reports the first nonsensical threshold.
func (t Tuning) Validate() error {
	if t.MinQuoteChars < 1 {
		return fmt.Errorf("min_quote_chars must be at least 1, got %d", t.MinQuoteChars)
	}
	if t.MinPhraseChars < t.MinQuoteChars {
		return fmt.Errorf("min_phrase_chars (%d) must not be below min_quote_chars (%d)",
			t.MinPhraseChars, t.MinQuoteChars)
	}
	if t.FuzzyWindowThreshold <= 0 || t.FuzzyWindowThreshold > 1 {
		return fmt.Errorf("fuzzy_window_threshold must be in (0, 1], got %g", t.FuzzyWindowThreshold)
	}
	if t.FuzzyPartialWeight < 0 || t.FuzzyPartialWeight > 1 {
		return fmt.Errorf("fuzzy_partial_weight must be in [0, 1], got %g", t.FuzzyPartialWeight)
	}
	if t.SentencesTried < 1 {
		return fmt.Errorf("sentences_tried must be at least 1, got %d", t.SentencesTried)
	}
	if t.SentencePrefixWords < 2 {
		return fmt.Errorf("sentence_prefix_words must be at least 2, got %d", t.SentencePrefixWords)
	}
	if t.FallbackMaxWords < 1 {
		return fmt.Errorf("fallback_max_words must be at least 1, got %d", t.FallbackMaxWords)
	}
	return nil
}
