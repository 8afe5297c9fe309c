package diagnosis

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Category groups safety rules. Categories are checked in rank order.
type Category string

const (
	CategoryBanned     Category = "banned-substance"
	CategorySpecies    Category = "pest-species"
	CategoryFertilizer Category = "fertilizer"
	CategorySafe       Category = "safe-substance"
)

var categoryRank = map[Category]int{
	CategoryBanned:     0,
	CategorySpecies:    1,
	CategoryFertilizer: 2,
	CategorySafe:       3,
}

// Action is what a matching rule does to the model text.
type Action string

const (
	// ActionFallback discards the text in favour of the fallback diagnosis.
	ActionFallback Action = "fallback"
	// ActionAllow marks a substance as safe. In allowlist mode at least one
	// allowed term must be present.
	ActionAllow Action = "allow"
)

// Mode selects how the rule table is applied.
type Mode string

const (
	// ModeDenylist passes any text that no fallback rule matches.
	ModeDenylist Mode = "denylist"
	// ModeAllowlist additionally requires an allowed substance.
	ModeAllowlist Mode = "allowlist"
)

// Rule is one row of the safety policy table.
type Rule struct {
	Term     string   `yaml:"term"`
	Category Category `yaml:"category"`
	Action   Action   `yaml:"action"`

	// Compact rules also match with spaces and punctuation removed, so
	// "mono-croto phos" hits "monocrotophos".
	Compact bool `yaml:"compact,omitempty"`
}

// Policy is the full safety rule table.
type Policy struct {
	Mode  Mode   `yaml:"mode"`
	Rules []Rule `yaml:"rules"`
}

// DefaultPolicy returns the built-in denylist policy.
func DefaultPolicy() Policy {
	var rules []Rule

	for _, t := range []string{
		"monocrotophos", "endosulfan", "phorate", "carbofuran",
		"methyl parathion", "chlorpyrifos", "dichlorvos", "triazophos",
		"lindane", "paraquat", "methomyl",
	} {
		rules = append(rules, Rule{Term: t, Category: CategoryBanned, Action: ActionFallback, Compact: true})
	}
	// Short names would hit unrelated words once separators are removed.
	for _, t := range []string{"ddt", "aldrin", "dieldrin"} {
		rules = append(rules, Rule{Term: t, Category: CategoryBanned, Action: ActionFallback})
	}

	for _, t := range []string{
		"helicoverpa", "spodoptera", "leucinodes", "earias", "plutella",
		"scirpophaga", "chilo", "stem borer", "fruit borer", "leaf miner",
		"shoot borer",
	} {
		rules = append(rules, Rule{Term: t, Category: CategorySpecies, Action: ActionFallback, Compact: strings.Contains(t, " ")})
	}

	for _, t := range []string{"urea", "dap", "npk", "g/l"} {
		rules = append(rules, Rule{Term: t, Category: CategoryFertilizer, Action: ActionFallback})
	}

	for _, t := range []string{
		"neem oil", "spinosad", "bacillus thuringiensis", "trichoderma",
		"beauveria bassiana", "pseudomonas fluorescens",
	} {
		rules = append(rules, Rule{Term: t, Category: CategorySafe, Action: ActionAllow})
	}

	return Policy{Mode: ModeDenylist, Rules: rules}
}

// LoadPolicy reads a YAML policy file. A file that sets only the mode keeps
// the built-in rules.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy document.
func ParsePolicy(data []byte) (Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parse policy: %w", err)
	}
	if p.Mode == "" {
		p.Mode = ModeDenylist
	}
	if len(p.Rules) == 0 {
		p.Rules = DefaultPolicy().Rules
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate checks the mode and every rule.
func (p Policy) Validate() error {
	switch p.Mode {
	case ModeDenylist, ModeAllowlist:
	default:
		return fmt.Errorf("policy: unknown mode %q", p.Mode)
	}

	hasAllow := false
	for i, r := range p.Rules {
		if normalize(r.Term) == "" {
			return fmt.Errorf("policy: rule %d has an empty term", i)
		}
		if _, ok := categoryRank[r.Category]; !ok {
			return fmt.Errorf("policy: rule %q has unknown category %q", r.Term, r.Category)
		}
		switch r.Action {
		case ActionFallback:
		case ActionAllow:
			hasAllow = true
		default:
			return fmt.Errorf("policy: rule %q has unknown action %q", r.Term, r.Action)
		}
	}
	if p.Mode == ModeAllowlist && !hasAllow {
		return fmt.Errorf("policy: allowlist mode needs at least one allow rule")
	}
	return nil
}

// orderedRules returns the rules sorted by category rank, keeping table
// order within a category.
func (p Policy) orderedRules() []Rule {
	rules := make([]Rule, len(p.Rules))
	copy(rules, p.Rules)
	sort.SliceStable(rules, func(i, j int) bool {
		return categoryRank[rules[i].Category] < categoryRank[rules[j].Category]
	})
	return rules
}

// normalize folds text for matching: NFKC, lower case, hyphens and
// underscores as spaces, runs of whitespace collapsed to one space.
func normalize(s string) string {
	s = strings.ToLower(norm.NFKC.String(s))
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == '_':
			return ' '
		case unicode.IsSpace(r):
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// compact drops everything except letters and digits.
func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
