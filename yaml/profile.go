// Package yaml loads extraction profiles from YAML documents.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/fwojciec/sift"
	"gopkg.in/yaml.v3"
)

// Defaults applied to loaded profiles.
const (
	DefaultLocale   = "en-US"
	DefaultMaxPages = 1
)

// profileConfig is the on-disk form of a sift.Profile.
type profileConfig struct {
	Name      string   `yaml:"name"`
	SearchURL string   `yaml:"search_url"`
	BaseURL   string   `yaml:"base_url"`
	Locale    string   `yaml:"locale"`
	Currency  string   `yaml:"currency"`
	Ready     string   `yaml:"ready"`
	Item      string   `yaml:"item"`
	Dismiss   []string `yaml:"dismiss"`
	MaxPages  int      `yaml:"max_pages"`

	Fields struct {
		Title       []strategyConfig `yaml:"title"`
		Price       []strategyConfig `yaml:"price"`
		Rating      []strategyConfig `yaml:"rating"`
		ReviewCount []strategyConfig `yaml:"review_count"`
		URL         []strategyConfig `yaml:"url"`
		Image       []strategyConfig `yaml:"image"`
		NextPage    []strategyConfig `yaml:"next_page"`
	} `yaml:"fields"`

	Detail struct {
		Ready    string     `yaml:"ready"`
		Features listConfig `yaml:"features"`
		Reviews  listConfig `yaml:"reviews"`
	} `yaml:"detail"`
}

type listConfig struct {
	Limit      int              `yaml:"limit"`
	Strategies []strategyConfig `yaml:"strategies"`
}

type strategyConfig struct {
	Selector  string   `yaml:"selector"`
	Attribute string   `yaml:"attribute"`
	Pattern   string   `yaml:"pattern"`
	MinLength int      `yaml:"min_length"`
	Contains  []string `yaml:"contains"`
	Exclude   []string `yaml:"exclude"`
	Lines     bool     `yaml:"lines"`
}

// UnmarshalYAML accepts a bare selector string as shorthand.
func (s *strategyConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*s = strategyConfig{Selector: node.Value}
		return nil
	}
	type plain strategyConfig
	return node.Decode((*plain)(s))
}

// LoadProfile decodes one profile from r, applies defaults and validates it.
// Unknown keys and invalid patterns are EINVALID.
func LoadProfile(r io.Reader) (*sift.Profile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var cfg profileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, sift.Errorf(sift.EINVALID, "empty profile")
		}
		return nil, sift.Errorf(sift.EINVALID, "failed to parse YAML: %v", err)
	}

	setDefaults(&cfg)
	p, err := cfg.profile()
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// setDefaults applies default values to a decoded profile.
func setDefaults(cfg *profileConfig) {
	if cfg.Locale == "" {
		cfg.Locale = DefaultLocale
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = DefaultMaxPages
	}
}

func (cfg *profileConfig) profile() (*sift.Profile, error) {
	p := &sift.Profile{
		Name:      cfg.Name,
		SearchURL: cfg.SearchURL,
		BaseURL:   cfg.BaseURL,
		Ready:     cfg.Ready,
		Item:      cfg.Item,
		Dismiss:   cfg.Dismiss,
		MaxPages:  cfg.MaxPages,
		Locale:    cfg.Locale,
		Currency:  cfg.Currency,
	}

	fields := []struct {
		name string
		in   []strategyConfig
		out  *sift.FieldSpec
	}{
		{"title", cfg.Fields.Title, &p.Title},
		{"price", cfg.Fields.Price, &p.Price},
		{"rating", cfg.Fields.Rating, &p.Rating},
		{"review_count", cfg.Fields.ReviewCount, &p.ReviewCount},
		{"url", cfg.Fields.URL, &p.URL},
		{"image", cfg.Fields.Image, &p.Image},
		{"next_page", cfg.Fields.NextPage, &p.NextPage},
		{"features", cfg.Detail.Features.Strategies, &p.Detail.Features.FieldSpec},
		{"reviews", cfg.Detail.Reviews.Strategies, &p.Detail.Reviews.FieldSpec},
	}
	for _, f := range fields {
		spec, err := fieldSpec(cfg.Name, f.name, f.in)
		if err != nil {
			return nil, err
		}
		*f.out = spec
	}

	p.Detail.Ready = cfg.Detail.Ready
	p.Detail.Features.Limit = cfg.Detail.Features.Limit
	p.Detail.Reviews.Limit = cfg.Detail.Reviews.Limit
	return p, nil
}

func fieldSpec(profile, name string, in []strategyConfig) (sift.FieldSpec, error) {
	spec := sift.FieldSpec{Name: name}
	for i, sc := range in {
		st := sift.Strategy{
			Selector:  sc.Selector,
			Attribute: sc.Attribute,
			MinLength: sc.MinLength,
			Contains:  sc.Contains,
			Exclude:   sc.Exclude,
			Lines:     sc.Lines,
		}
		if sc.Pattern != "" {
			re, err := regexp.Compile(sc.Pattern)
			if err != nil {
				return sift.FieldSpec{}, sift.Errorf(sift.EINVALID, "profile %q: %s strategy %d: invalid pattern: %v", profile, name, i+1, err)
			}
			st.Pattern = re
		}
		if sc.MinLength < 0 {
			return sift.FieldSpec{}, sift.Errorf(sift.EINVALID, "profile %q: %s strategy %d: min_length must be non-negative", profile, name, i+1)
		}
		spec.Strategies = append(spec.Strategies, st)
	}
	return spec, nil
}
