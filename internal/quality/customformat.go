package quality

import (
	"fmt"
	"regexp"
	"strings"
)

// SpecKind identifies what a format specification inspects.
type SpecKind string

const (
	SpecReleaseTitle SpecKind = "releaseTitle"
	SpecIndexerFlag  SpecKind = "indexerFlag"
)

// Specification is a single condition inside a custom format.
// Negate inverts the raw match; Required makes the (possibly negated)
// condition mandatory for the whole format.
type Specification struct {
	Name     string   `json:"name"`
	Kind     SpecKind `json:"kind"`
	Required bool     `json:"required"`
	Negate   bool     `json:"negate"`

	// Pattern is a case-insensitive regular expression for releaseTitle
	// specifications. Flag names the indexer flag for indexerFlag ones.
	Pattern string `json:"pattern,omitempty"`
	Flag    string `json:"flag,omitempty"`

	compiled *regexp.Regexp
}

// Compile validates and caches the title pattern. It must be called once
// before Satisfied; NewCustomFormat does this for every specification.
func (s *Specification) Compile() error {
	if s.Kind != SpecReleaseTitle {
		return nil
	}
	re, err := regexp.Compile("(?i)" + s.Pattern)
	if err != nil {
		return fmt.Errorf("specification %q: %w", s.Name, err)
	}
	s.compiled = re
	return nil
}

// FormatInput is the release material a custom format is matched against.
type FormatInput struct {
	Title        string
	IndexerFlags []string
}

// Satisfied evaluates the specification against the input, negation applied.
func (s *Specification) Satisfied(input FormatInput) bool {
	var raw bool
	switch s.Kind {
	case SpecReleaseTitle:
		raw = s.compiled != nil && s.compiled.MatchString(input.Title)
	case SpecIndexerFlag:
		for _, flag := range input.IndexerFlags {
			if strings.EqualFold(flag, s.Flag) {
				raw = true
				break
			}
		}
	}
	if s.Negate {
		return !raw
	}
	return raw
}

// CustomFormat is a named group of specifications that grants a
// profile-defined score when it matches a release.
type CustomFormat struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Specs []Specification `json:"specifications"`
}

// NewCustomFormat builds a custom format, compiling every specification.
func NewCustomFormat(id int64, name string, specs ...Specification) (*CustomFormat, error) {
	cf := &CustomFormat{ID: id, Name: name, Specs: specs}
	for i := range cf.Specs {
		if err := cf.Specs[i].Compile(); err != nil {
			return nil, fmt.Errorf("custom format %q: %w", name, err)
		}
	}
	return cf, nil
}

// Matches reports whether the format applies to a release: every required
// specification must be satisfied, and at least one specification overall.
func (cf *CustomFormat) Matches(input FormatInput) bool {
	if len(cf.Specs) == 0 {
		return false
	}
	anySatisfied := false
	for i := range cf.Specs {
		spec := &cf.Specs[i]
		satisfied := spec.Satisfied(input)
		if spec.Required && !satisfied {
			return false
		}
		if satisfied {
			anySatisfied = true
		}
	}
	return anySatisfied
}
