package pipeline

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// FrameworkInfo describes the recommended framework family for one
// case-study category.
type FrameworkInfo struct {
	Category     string   `json:"category"     mapstructure:"category"`
	Primary      string   `json:"primary"      mapstructure:"primary"`
	Alternatives []string `json:"alternatives" mapstructure:"alternatives"`
	Description  string   `json:"description"  mapstructure:"description"`
}

// Catalog is the read-only category → framework mapping used by the
// case-study pipeline. Built once at startup.
type Catalog struct {
	order   []string
	entries map[string]FrameworkInfo
}

// defaultCatalog is the built-in framework catalog, used unless the
// configuration supplies its own.
var defaultCatalog = []FrameworkInfo{
	{
		Category:     "Product Improvement",
		Primary:      "CIRCLES Method",
		Alternatives: []string{"Jobs-to-be-Done", "SWOT Analysis"},
		Description:  "Comprehend, Identify, Report, Cut, List, Evaluate, Summarize",
	},
	{
		Category:     "Product Design",
		Primary:      "Design Thinking",
		Alternatives: []string{"CIRCLES Method", "Working Backwards"},
		Description:  "Empathize, Define, Ideate, Prototype, Test",
	},
	{
		Category:     "Metrics and Analytics",
		Primary:      "AARRR Pirate Metrics",
		Alternatives: []string{"HEART Framework", "North Star Metric"},
		Description:  "Acquisition, Activation, Retention, Revenue, Referral",
	},
	{
		Category:     "Prioritization",
		Primary:      "RICE Framework",
		Alternatives: []string{"Kano Model", "Value vs Effort"},
		Description:  "Reach, Impact, Confidence, Effort scoring",
	},
	{
		Category:     "Product Strategy",
		Primary:      "Porter's Five Forces",
		Alternatives: []string{"SWOT Analysis", "Ansoff Matrix"},
		Description:  "Competitive forces shaping strategy",
	},
	{
		Category:     "Root Cause Analysis",
		Primary:      "Five Whys",
		Alternatives: []string{"Fishbone Diagram", "Hypothesis Tree"},
		Description:  "Iterative questioning to isolate the underlying cause",
	},
}

// NewCatalog builds the default framework catalog.
func NewCatalog() *Catalog {
	catalog, _ := newCatalog(defaultCatalog)
	return catalog
}

// CatalogFromConfig decodes a catalog from loosely typed configuration data
// (e.g. a viper `frameworks` section). An empty or missing section yields the
// default catalog.
func CatalogFromConfig(raw any) (*Catalog, error) {
	if raw == nil {
		return NewCatalog(), nil
	}

	var infos []FrameworkInfo
	if err := mapstructure.Decode(raw, &infos); err != nil {
		return nil, fmt.Errorf("decoding framework catalog: %w", err)
	}
	if len(infos) == 0 {
		return NewCatalog(), nil
	}

	return newCatalog(infos)
}

func newCatalog(infos []FrameworkInfo) (*Catalog, error) {
	catalog := &Catalog{entries: make(map[string]FrameworkInfo, len(infos))}
	for _, info := range infos {
		category := strings.TrimSpace(info.Category)
		if category == "" || strings.TrimSpace(info.Primary) == "" {
			return nil, fmt.Errorf("framework catalog entry requires category and primary: %+v", info)
		}
		if _, exists := catalog.entries[category]; exists {
			return nil, fmt.Errorf("duplicate framework category %q", category)
		}
		info.Category = category
		catalog.order = append(catalog.order, category)
		catalog.entries[category] = info
	}
	return catalog, nil
}

// Categories returns the category names in catalog order.
func (c *Catalog) Categories() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Get returns the framework info for the exact category name.
func (c *Catalog) Get(category string) (FrameworkInfo, bool) {
	info, ok := c.entries[category]
	return info, ok
}

// Resolve maps a model-reported category onto a catalog entry: exact match
// first, then case-insensitive substring, then the first category.
func (c *Catalog) Resolve(category string) FrameworkInfo {
	if info, ok := c.entries[category]; ok {
		return info
	}

	lower := strings.ToLower(category)
	for _, name := range c.order {
		if strings.Contains(lower, strings.ToLower(name)) {
			return c.entries[name]
		}
	}

	return c.entries[c.order[0]]
}

// First returns the first catalog entry, used as the classification fallback.
func (c *Catalog) First() FrameworkInfo {
	return c.entries[c.order[0]]
}

// Len returns the number of categories.
func (c *Catalog) Len() int {
	return len(c.order)
}
