package llm

import (
	"fmt"
	"sort"
	"strings"

	"commentator/internal/services"
)

// Tier describes one selectable language-model tier.
type Tier struct {
	Name   string
	Model  string
	Vision bool
}

var tiers = []Tier{
	{Name: "gpt-3.5-turbo", Model: "gpt-3.5-turbo"},
	{Name: "gpt-4-turbo", Model: "gpt-4-1106-preview"},
	{Name: "gpt-4-turbo-vision", Model: "gpt-4-vision-preview", Vision: true},
}

// Display names accepted for settings written by older tooling.
var tierAliases = map[string]string{
	"gpt-3.5 turbo":           "gpt-3.5-turbo",
	"gpt-4 turbo":             "gpt-4-turbo",
	"gpt-4 turbo with vision": "gpt-4-turbo-vision",
	"gpt-4-turbo-with-vision": "gpt-4-turbo-vision",
	"gpt-4-vision":            "gpt-4-turbo-vision",
	"gpt-4-1106-preview":      "gpt-4-turbo",
	"gpt-4-vision-preview":    "gpt-4-turbo-vision",
}

// ResolveTier maps a configured tier name onto its backend model.
func ResolveTier(name string) (Tier, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := tierAliases[key]; ok {
		key = alias
	}
	for _, tier := range tiers {
		if tier.Name == key {
			return tier, nil
		}
	}
	return Tier{}, services.Wrap(services.ErrConfiguration, "llm", "resolve tier",
		fmt.Sprintf("unknown model tier %q (known: %s)", name, strings.Join(TierNames(), ", ")), nil)
}

// TierNames lists the canonical tier names.
func TierNames() []string {
	names := make([]string, 0, len(tiers))
	for _, tier := range tiers {
		names = append(names, tier.Name)
	}
	sort.Strings(names)
	return names
}
