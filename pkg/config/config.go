// Package config loads resolution settings from YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ChrisMcGann/ProtResolve/pkg/core"
	"github.com/ChrisMcGann/ProtResolve/pkg/digest"
	"github.com/ChrisMcGann/ProtResolve/pkg/filter"
)

// Config holds every setting of a resolution run.
type Config struct {
	Digestion       Digestion `yaml:"digestion"`
	Decoy           Decoy     `yaml:"decoy"`
	Filter          Filter    `yaml:"filter"`
	Workers         int       `yaml:"workers" validate:"gte=0,lte=1024"`
	MatchUndigested bool      `yaml:"match_undigested"`
	LogLevel        string    `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// Digestion configures the in-silico digest.
type Digestion struct {
	Enzyme          string `yaml:"enzyme" validate:"required,enzyme"`
	MissedCleavages int    `yaml:"missed_cleavages" validate:"gte=0,lte=10"`
	MinLength       int    `yaml:"min_length" validate:"gte=1"`
	MaxLength       int    `yaml:"max_length" validate:"omitempty,gtefield=MinLength"`
}

// Decoy configures target/decoy classification by accession affixes.
type Decoy struct {
	Prefixes []string `yaml:"prefixes" validate:"dive,required"`
	Suffixes []string `yaml:"suffixes" validate:"dive,required"`
}

// Filter configures evidence filtering before resolution.
type Filter struct {
	ScoreThreshold    *float64 `yaml:"score_threshold"`
	HigherScoreBetter bool     `yaml:"higher_score_better"`
	BestHitOnly       bool     `yaml:"best_hit_only"`
	MinPeptideLength  int      `yaml:"min_peptide_length" validate:"gte=0"`
	MinIntensity      float64  `yaml:"min_intensity" validate:"gte=0"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("enzyme", func(fl validator.FieldLevel) bool {
		_, err := digest.LookupEnzyme(fl.Field().String())
		return err == nil
	})
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Digestion: Digestion{
			Enzyme:          digest.Trypsin.Name,
			MissedCleavages: 1,
			MinLength:       6,
			MaxLength:       40,
		},
		Decoy: Decoy{
			Prefixes: append([]string(nil), core.DefaultDecoyPrefixes...),
		},
		MatchUndigested: true,
		LogLevel:        "info",
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags of every section.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails '%s' (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Digester builds the configured protease.
func (c *Config) Digester() (*digest.Protease, error) {
	d := c.Digestion
	return digest.New(d.Enzyme, d.MissedCleavages, d.MinLength, d.MaxLength)
}

// DecoyClassifier builds the configured accession classifier.
func (c *Config) DecoyClassifier() *core.AffixDecoyClassifier {
	return core.NewAffixDecoyClassifier(c.Decoy.Prefixes, c.Decoy.Suffixes)
}

// EvidenceFilter returns the filter settings.
func (c *Config) EvidenceFilter() *filter.Config {
	f := c.Filter
	return &filter.Config{
		ScoreThreshold:    f.ScoreThreshold,
		HigherScoreBetter: f.HigherScoreBetter,
		BestHitOnly:       f.BestHitOnly,
		MinPeptideLength:  f.MinPeptideLength,
		MinIntensity:      f.MinIntensity,
	}
}
