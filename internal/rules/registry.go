package rules

import (
	"fmt"
	"strings"

	"github.com/checkoutlens/checkout-lens/internal/models"
)

// Predicate is a named payload test. Named so rule packs can reference it
// and the API can report which tests a rule applies.
type Predicate struct {
	Name  string
	Match func(models.Interaction) bool
}

// Extractor pulls one named field out of a matched interaction. A false
// second return means the field is absent; the classifier records nothing.
type Extractor struct {
	Name    string
	Extract func(models.Interaction) (any, bool)
}

// Validator is a named expectation checked against a matched interaction.
type Validator struct {
	Name     string
	Validate func(models.Interaction) bool
}

// Rule classifies interactions into a checkout stage. URLPatterns are
// case-insensitive substrings; Methods are compared after upper-casing.
// A rule matches when its URL patterns and methods and predicates agree,
// or when it carries predicates and those plus the method agree.
type Rule struct {
	Name        string
	StageLabel  string
	Priority    int
	URLPatterns []string
	Methods     []string
	Predicates  []Predicate
	Extractors  []Extractor
	Validators  []Validator
}

// ConfigurationError reports a rule that cannot be registered. It is fatal
// to that rule only; the registry keeps its previous state.
type ConfigurationError struct {
	Rule   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("rule %q: %s", e.Rule, e.Reason)
}

// Registry holds classification rules in registration order. That order is
// the tie-break between equal priorities: the earlier registration wins.
// Populate the registry during startup; it is not safe for concurrent
// mutation once serving begins.
type Registry struct {
	rules []Rule
	index map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register validates and stores a rule. Re-registering an existing name
// replaces the rule in place, keeping its original position so priority
// tie-breaks are unaffected.
func (r *Registry) Register(rule Rule) error {
	rule.Methods = normalizeMethods(rule.Methods)
	if err := validateRule(rule); err != nil {
		return err
	}
	if idx, ok := r.index[rule.Name]; ok {
		r.rules[idx] = rule
		return nil
	}
	r.index[rule.Name] = len(r.rules)
	r.rules = append(r.rules, rule)
	return nil
}

// All returns the rules in registration order. The slice is a copy; callers
// may reorder it freely.
func (r *Registry) All() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Len reports the number of registered rules.
func (r *Registry) Len() int {
	return len(r.rules)
}

// Rule returns the registered rule with the given name.
func (r *Registry) Rule(name string) (Rule, bool) {
	idx, ok := r.index[name]
	if !ok {
		return Rule{}, false
	}
	return r.rules[idx], true
}

func validateRule(rule Rule) error {
	if strings.TrimSpace(rule.Name) == "" {
		return &ConfigurationError{Rule: rule.Name, Reason: "name is empty"}
	}
	if strings.TrimSpace(rule.StageLabel) == "" {
		return &ConfigurationError{Rule: rule.Name, Reason: "stage label is empty"}
	}
	if len(rule.Methods) == 0 {
		return &ConfigurationError{Rule: rule.Name, Reason: "no methods"}
	}
	if len(rule.URLPatterns) == 0 && len(rule.Predicates) == 0 {
		return &ConfigurationError{Rule: rule.Name, Reason: "neither url patterns nor predicates"}
	}
	for _, p := range rule.Predicates {
		if p.Name == "" || p.Match == nil {
			return &ConfigurationError{Rule: rule.Name, Reason: "predicate with empty name or nil func"}
		}
	}
	for _, e := range rule.Extractors {
		if e.Name == "" || e.Extract == nil {
			return &ConfigurationError{Rule: rule.Name, Reason: "extractor with empty name or nil func"}
		}
	}
	for _, v := range rule.Validators {
		if v.Name == "" || v.Validate == nil {
			return &ConfigurationError{Rule: rule.Name, Reason: "validator with empty name or nil func"}
		}
	}
	return nil
}

func normalizeMethods(methods []string) []string {
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}
