package classify

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Kre8ivTech/client-portal-sub002/internal/models"
)

// Category is one row of the keyword table. Keywords are matched as
// lower-case substrings of subject+description.
type Category struct {
	Name            string   `yaml:"name" json:"name"`
	Aliases         []string `yaml:"aliases" json:"aliases,omitempty"`
	Keywords        []string `yaml:"keywords" json:"keywords"`
	DefaultPriority string   `yaml:"default_priority" json:"default_priority"`
	DefaultHours    float64  `yaml:"default_hours" json:"default_hours"`
}

// RuleSet is the configured category table plus the escalation triggers.
// Category order matters: ties and unknown values resolve to earlier rows.
type RuleSet struct {
	Categories         []Category `yaml:"categories" json:"categories"`
	EscalationTriggers []string   `yaml:"escalation_triggers" json:"escalation_triggers"`
}

var defaultEscalationTriggers = []string{
	"security",
	"breach",
	"hacked",
	"outage",
	"data loss",
	"site down",
	"production down",
	"ransomware",
	"vulnerability",
	"malware",
	"urgent legal",
}

var defaultCategories = []Category{
	{
		Name:            "general",
		Aliases:         []string{"other", "question", "inquiry"},
		Keywords:        []string{"question", "help", "information", "inquiry", "how do i", "request"},
		DefaultPriority: models.PriorityLow,
		DefaultHours:    1,
	},
	{
		Name:            "bug",
		Aliases:         []string{"defect", "error", "technical", "technical_support", "incident"},
		Keywords:        []string{"bug", "error", "broken", "not working", "crash", "exception", "fails", "glitch"},
		DefaultPriority: models.PriorityHigh,
		DefaultHours:    3,
	},
	{
		Name:            "feature_request",
		Aliases:         []string{"feature", "enhancement", "improvement", "new_feature"},
		Keywords:        []string{"feature", "enhancement", "would like", "add a", "new page", "improve", "suggestion"},
		DefaultPriority: models.PriorityLow,
		DefaultHours:    8,
	},
	{
		Name:            "billing",
		Aliases:         []string{"invoice", "payment", "finance", "accounting"},
		Keywords:        []string{"invoice", "billing", "payment", "charge", "refund", "subscription", "receipt"},
		DefaultPriority: models.PriorityMedium,
		DefaultHours:    1,
	},
	{
		Name:            "account",
		Aliases:         []string{"access", "login", "user_management"},
		Keywords:        []string{"login", "password", "account", "locked out", "permission", "two-factor", "sign in"},
		DefaultPriority: models.PriorityMedium,
		DefaultHours:    1,
	},
	{
		Name:            "website",
		Aliases:         []string{"web", "content", "design", "site"},
		Keywords:        []string{"website", "homepage", "layout", "content", "image", "css", "menu", "plugin"},
		DefaultPriority: models.PriorityMedium,
		DefaultHours:    2,
	},
	{
		Name:            "hosting",
		Aliases:         []string{"server", "infrastructure", "dns", "domain"},
		Keywords:        []string{"server", "hosting", "dns", "domain", "ssl", "certificate", "deploy", "backup"},
		DefaultPriority: models.PriorityHigh,
		DefaultHours:    3,
	},
	{
		Name:            "email",
		Aliases:         []string{"mail", "mailbox"},
		Keywords:        []string{"email", "inbox", "smtp", "mailbox", "spam", "outlook", "bounce"},
		DefaultPriority: models.PriorityMedium,
		DefaultHours:    2,
	},
}

// DefaultRules returns a fresh copy of the built-in table.
func DefaultRules() RuleSet {
	cats := make([]Category, len(defaultCategories))
	copy(cats, defaultCategories)
	triggers := make([]string, len(defaultEscalationTriggers))
	copy(triggers, defaultEscalationTriggers)
	return RuleSet{Categories: cats, EscalationTriggers: triggers}
}

// LoadRules reads a YAML rule file. An empty path yields DefaultRules.
// Missing escalation triggers keep the built-in list.
func LoadRules(path string) (RuleSet, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultRules(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(b)
}

func ParseRules(b []byte) (RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(b, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("parse rules: %w", err)
	}
	if len(rs.Categories) == 0 {
		return RuleSet{}, fmt.Errorf("rules: at least one category is required")
	}
	seen := map[string]struct{}{}
	for i := range rs.Categories {
		c := &rs.Categories[i]
		c.Name = normalizeName(c.Name)
		if c.Name == "" {
			return RuleSet{}, fmt.Errorf("rules: category %d has no name", i)
		}
		if _, dup := seen[c.Name]; dup {
			return RuleSet{}, fmt.Errorf("rules: duplicate category %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		if len(c.Keywords) == 0 {
			return RuleSet{}, fmt.Errorf("rules: category %q has no keywords", c.Name)
		}
		for k, kw := range c.Keywords {
			c.Keywords[k] = strings.ToLower(strings.TrimSpace(kw))
		}
		c.DefaultPriority = strings.ToLower(strings.TrimSpace(c.DefaultPriority))
		if !models.ValidPriority(c.DefaultPriority) {
			c.DefaultPriority = models.PriorityMedium
		}
		if c.DefaultHours < 0 {
			c.DefaultHours = 0
		}
	}
	if len(rs.EscalationTriggers) == 0 {
		rs.EscalationTriggers = DefaultRules().EscalationTriggers
	}
	for i, t := range rs.EscalationTriggers {
		rs.EscalationTriggers[i] = strings.ToLower(strings.TrimSpace(t))
	}
	return rs, nil
}

// Lookup finds a category by exact name.
func (r RuleSet) Lookup(name string) (Category, bool) {
	name = normalizeName(name)
	for _, c := range r.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// DefaultHours is the configured baseline for a category, if any.
func (r RuleSet) DefaultHours(category string) (float64, bool) {
	c, ok := r.Lookup(category)
	if !ok || c.DefaultHours <= 0 {
		return 0, false
	}
	return c.DefaultHours, true
}

func (r RuleSet) CategoryNames() []string {
	names := make([]string, 0, len(r.Categories))
	for _, c := range r.Categories {
		names = append(names, c.Name)
	}
	return names
}

// NormalizeCategory maps any collaborator-supplied category onto the table:
// exact name, then alias, then the closest name by containment, else the
// first category.
func (r RuleSet) NormalizeCategory(raw string) string {
	if len(r.Categories) == 0 {
		return ""
	}
	v := normalizeName(raw)
	if v == "" {
		return r.Categories[0].Name
	}
	for _, c := range r.Categories {
		if c.Name == v {
			return c.Name
		}
	}
	for _, c := range r.Categories {
		for _, a := range c.Aliases {
			if normalizeName(a) == v {
				return c.Name
			}
		}
	}
	for _, c := range r.Categories {
		if strings.Contains(v, c.Name) || strings.Contains(c.Name, v) {
			return c.Name
		}
	}
	return r.Categories[0].Name
}

func NormalizePriority(raw string) string {
	p := strings.ToLower(strings.TrimSpace(raw))
	switch p {
	case "urgent", "emergency":
		return models.PriorityCritical
	case "normal":
		return models.PriorityMedium
	}
	if models.ValidPriority(p) {
		return p
	}
	return models.PriorityMedium
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return s
}
