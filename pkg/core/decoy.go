package core

import "strings"

// DecoyClassifier decides whether a protein is a decoy.
type DecoyClassifier interface {
	IsDecoy(p *ProteinRecord) bool
}

// DefaultDecoyPrefixes are the accession prefixes produced by common
// decoy database generators.
var DefaultDecoyPrefixes = []string{"DECOY_", "REV_", "rev_", "XXX_"}

// AffixDecoyClassifier marks a protein as decoy when its record says so or when
// the accession carries one of the configured prefixes or suffixes.
type AffixDecoyClassifier struct {
	Prefixes []string
	Suffixes []string
}

// NewAffixDecoyClassifier returns a classifier using DefaultDecoyPrefixes when
// no affixes are given.
func NewAffixDecoyClassifier(prefixes, suffixes []string) *AffixDecoyClassifier {
	if len(prefixes) == 0 && len(suffixes) == 0 {
		prefixes = DefaultDecoyPrefixes
	}
	return &AffixDecoyClassifier{Prefixes: prefixes, Suffixes: suffixes}
}

// IsDecoy implements DecoyClassifier.
func (c *AffixDecoyClassifier) IsDecoy(p *ProteinRecord) bool {
	if p == nil {
		return false
	}
	if p.Decoy {
		return true
	}
	for _, prefix := range c.Prefixes {
		if strings.HasPrefix(p.Accession, prefix) {
			return true
		}
	}
	for _, suffix := range c.Suffixes {
		if strings.HasSuffix(p.Accession, suffix) {
			return true
		}
	}
	return false
}
