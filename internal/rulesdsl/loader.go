// Package rulesdsl loads YAML rule packs on top of the builtin pattern
// library.
package rulesdsl

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/patterns"
)

//go:embed schema.json
var schemaJSON string

var packSchema = gojsonschema.NewStringLoader(schemaJSON)

type pack struct {
	Version string     `yaml:"version"`
	Rules   []packRule `yaml:"rules"`
}

type packRule struct {
	ID       string  `yaml:"id"`
	Concern  string  `yaml:"concern"`
	Kind     string  `yaml:"kind"`
	Summary  string  `yaml:"summary"`
	Message  string  `yaml:"message"`
	Severity string  `yaml:"severity"`
	Weight   float64 `yaml:"weight"`
	Match    struct {
		Regex string `yaml:"regex"`
		Scope string `yaml:"scope"` // code|comment|any
	} `yaml:"match"`
	SuppressIn []string `yaml:"suppress_in"`
}

// Load reads the pack at path and returns base extended with its rules.
// base itself is never modified.
func Load(path string, base *patterns.Library) (*patterns.Library, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules pack: %w", err)
	}
	lib, err := Parse(b, base)
	if err != nil {
		return nil, fmt.Errorf("rules pack %s: %w", path, err)
	}
	return lib, nil
}

// Parse validates a YAML pack against the embedded schema and compiles it
// over base. Every failure is an *ir.ConfigurationError.
func Parse(data []byte, base *patterns.Library) (*patterns.Library, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ir.ConfigurationError{Reason: "parse yaml", Err: err}
	}
	if err := validate(doc); err != nil {
		return nil, err
	}

	var p pack
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, &ir.ConfigurationError{Reason: "decode pack", Err: err}
	}

	lib := base.Extend(base.Version() + "+" + p.Version)
	for _, r := range p.Rules {
		rule := patterns.Rule{
			ID:       r.ID,
			Concern:  r.Concern,
			Kind:     patterns.Kind(r.Kind),
			Summary:  r.Summary,
			Message:  r.Message,
			Severity: ir.Severity(r.Severity),
			Weight:   r.Weight,
			Match:    patterns.Match{Regex: r.Match.Regex, Scope: patterns.Scope(r.Match.Scope)},
		}
		for _, t := range r.SuppressIn {
			rule.SuppressIn = append(rule.SuppressIn, ir.ContextTag(t))
		}
		if err := lib.Register(rule); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

func validate(doc any) error {
	if doc == nil {
		return &ir.ConfigurationError{Reason: "empty rules pack"}
	}
	res, err := gojsonschema.Validate(packSchema, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return &ir.ConfigurationError{Reason: "schema validation", Err: err}
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return &ir.ConfigurationError{Reason: "schema: " + strings.Join(msgs, "; ")}
}
