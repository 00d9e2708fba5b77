package catalog

import "strings"

// Catalog is a read-only snapshot of every rule set, indexed by product type and table code
type Catalog struct {
	byType  map[string]*RuleSet
	byTable map[string]string
}

// NewCatalog indexes the given rule sets. Later entries win on duplicate table codes.
func NewCatalog(rules []RuleSet) *Catalog {
	c := &Catalog{
		byType:  make(map[string]*RuleSet, len(rules)),
		byTable: make(map[string]string, len(rules)),
	}
	for i := range rules {
		r := rules[i]
		c.byType[r.ProductType] = &r
		if code := NormalizeTableCode(r.TableCode); code != "" {
			c.byTable[code] = r.ProductType
		}
	}
	return c
}

// Len returns the number of rule sets
func (c *Catalog) Len() int {
	return len(c.byType)
}

// Get returns the rule set for a product type
func (c *Catalog) Get(productType string) (*RuleSet, bool) {
	r, ok := c.byType[strings.TrimSpace(productType)]
	return r, ok
}

// Resolve finds a rule set by product type first and by internal table code second
func (c *Catalog) Resolve(productType, tableCode string) (*RuleSet, bool) {
	if productType != "" {
		if r, ok := c.Get(productType); ok {
			return r, true
		}
	}
	if tableCode != "" {
		if pt, ok := c.byTable[NormalizeTableCode(tableCode)]; ok {
			return c.Get(pt)
		}
	}
	return nil, false
}
