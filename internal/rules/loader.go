package rules

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// PackRule is the YAML shape of one rule in a pack. Predicates, extractors
// and validators are names resolved against the built-in catalog.
type PackRule struct {
	Name        string   `yaml:"name"`
	Stage       string   `yaml:"stage"`
	Priority    int      `yaml:"priority"`
	URLPatterns []string `yaml:"url_patterns"`
	Methods     []string `yaml:"methods"`
	Predicates  []string `yaml:"predicates"`
	Extractors  []string `yaml:"extractors"`
	Validators  []string `yaml:"validators"`
}

// PackFile is the YAML root structure of a rule pack.
type PackFile struct {
	Rules []PackRule `yaml:"rules"`
}

// LoadPack reads a YAML rule pack. An empty path or a missing file yields
// (nil, nil): packs are optional tuning, not required configuration.
func LoadPack(path string) ([]Rule, error) {
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
	var file PackFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	cat := Catalog()
	out := make([]Rule, 0, len(file.Rules))
	for _, pr := range file.Rules {
		rule, err := pr.resolve(cat)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}

// ApplyPack loads the pack at path and registers every rule, returning the
// number registered. Pack rules may override builtins by reusing a name.
func ApplyPack(reg *Registry, path string) (int, error) {
	loaded, err := LoadPack(path)
	if err != nil {
		return 0, err
	}
	for n, rule := range loaded {
		if err := reg.Register(rule); err != nil {
			return n, err
		}
	}
	return len(loaded), nil
}

func (pr PackRule) resolve(cat FunctionCatalog) (Rule, error) {
	rule := Rule{
		Name:        pr.Name,
		StageLabel:  pr.Stage,
		Priority:    pr.Priority,
		URLPatterns: pr.URLPatterns,
		Methods:     pr.Methods,
	}
	for _, name := range pr.Predicates {
		fn, ok := cat.Predicates[name]
		if !ok {
			return Rule{}, &ConfigurationError{Rule: pr.Name, Reason: "unknown predicate " + name}
		}
		rule.Predicates = append(rule.Predicates, Predicate{Name: name, Match: fn})
	}
	for _, name := range pr.Extractors {
		fn, ok := cat.Extractors[name]
		if !ok {
			return Rule{}, &ConfigurationError{Rule: pr.Name, Reason: "unknown extractor " + name}
		}
		rule.Extractors = append(rule.Extractors, Extractor{Name: name, Extract: fn})
	}
	for _, name := range pr.Validators {
		fn, ok := cat.Validators[name]
		if !ok {
			return Rule{}, &ConfigurationError{Rule: pr.Name, Reason: "unknown validator " + name}
		}
		rule.Validators = append(rule.Validators, Validator{Name: name, Validate: fn})
	}
	return rule, nil
}
