package suggest

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/droidsweep/backend/internal/shared/types"
)

// Rule maps trigger keywords to candidate follow-up prompts
type Rule struct {
	Keywords []string `yaml:"keywords"`
	Prompts  []string `yaml:"prompts"`
}

// Generator produces suggestions from the last assistant reply
type Generator struct {
	rules    []Rule
	defaults []string
}

// NewGenerator creates a generator with the built-in rule table
func NewGenerator() *Generator {
	return &Generator{
		rules:    builtinRules(),
		defaults: builtinDefaults(),
	}
}

// NewGeneratorWithRules creates a generator with a custom table
func NewGeneratorWithRules(rules []Rule, defaults []string) *Generator {
	return &Generator{
		rules:    rules,
		defaults: defaults,
	}
}

// LoadRulesFile creates a generator from a YAML rule file
func LoadRulesFile(path string) (*Generator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var doc struct {
		Rules    []Rule   `yaml:"rules"`
		Defaults []string `yaml:"defaults"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("rules file %s defines no rules", path)
	}
	if len(doc.Defaults) == 0 {
		doc.Defaults = builtinDefaults()
	}

	return NewGeneratorWithRules(doc.Rules, doc.Defaults), nil
}

// Generate returns follow-up prompts for the given assistant reply.
// First matching rule wins; no match yields the default set. The result
// preserves rule order and holds at most types.MaxSuggestions entries.
func (g *Generator) Generate(lastAssistantText string) types.SuggestionSet {
	text := strings.ToLower(lastAssistantText)

	for _, rule := range g.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				return types.SuggestionSet(rule.Prompts).Truncate()
			}
		}
	}

	return types.SuggestionSet(g.defaults).Truncate()
}

// builtinRules is the fixed table for the debloating domain.
// Order matters: more specific topics come before generic safety talk.
func builtinRules() []Rule {
	return []Rule{
		{
			Keywords: []string{"battery", "drain"},
			Prompts: []string{
				"Which packages drain the most battery?",
				"Should I disable or uninstall battery drainers?",
				"How much battery life can debloating save?",
			},
		},
		{
			Keywords: []string{"brick", "bootloop", "critical"},
			Prompts: []string{
				"How do I recover from a bootloop?",
				"Which packages must never be removed?",
				"How do I make a full backup first?",
			},
		},
		{
			Keywords: []string{"backup", "restore"},
			Prompts: []string{
				"How do I create an ADB backup?",
				"Can I restore a removed package later?",
				"Where are my backups stored?",
			},
		},
		{
			Keywords: []string{"safe", "remove", "uninstall"},
			Prompts: []string{
				"What happens if I remove it anyway?",
				"Can I reinstall it later?",
				"Show me other safe-to-remove packages",
			},
		},
		{
			Keywords: []string{"bloatware", "preinstalled"},
			Prompts: []string{
				"What bloatware ships on my device?",
				"Which bloatware is safe to remove?",
				"Does removing bloatware speed up my phone?",
			},
		},
		{
			Keywords: []string{"disable"},
			Prompts: []string{
				"What is the difference between disable and uninstall?",
				"Can a disabled package still run?",
				"How do I re-enable a disabled package?",
			},
		},
	}
}

// builtinDefaults is returned when no rule matches
func builtinDefaults() []string {
	return []string{
		"Is this package safe to remove?",
		"What bloatware can I remove on my device?",
		"How do I back up before debloating?",
	}
}
