package services

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ersonp/roster-core/internal/domain/entities"
)

// IDOrder selects how group identifiers are assigned.
type IDOrder string

const (
	// IDOrderFirstSeen numbers groups in the order their names first appear.
	IDOrderFirstSeen IDOrder = "first_seen"
	// IDOrderSorted numbers groups by name, independent of row order.
	IDOrderSorted IDOrder = "sorted"
)

// Classifier assigns a category to a group name by prefix.
type Classifier struct {
	rules []entities.CategoryRule
}

// NewClassifier creates a classifier. Rules are tested in order and the first
// matching prefix wins; nil rules mean the built-in defaults.
func NewClassifier(rules []entities.CategoryRule) *Classifier {
	if rules == nil {
		rules = entities.DefaultCategoryRules
	}

	upper := make([]entities.CategoryRule, len(rules))
	for i, r := range rules {
		prefixes := make([]string, len(r.Prefixes))
		for j, p := range r.Prefixes {
			prefixes[j] = strings.ToUpper(strings.TrimSpace(p))
		}
		upper[i] = entities.CategoryRule{Category: r.Category, Prefixes: prefixes, Description: r.Description}
	}
	return &Classifier{rules: upper}
}

// Classify returns the category of name, or UNCATEGORIZED.
func (c *Classifier) Classify(name string) entities.Category {
	upper := strings.ToUpper(name)
	for _, r := range c.rules {
		for _, p := range r.Prefixes {
			if p != "" && strings.HasPrefix(upper, p) {
				return r.Category
			}
		}
	}
	return entities.CategoryUncategorized
}

// Rules returns the classifier's rules in priority order.
func (c *Classifier) Rules() []entities.CategoryRule {
	return c.rules
}

// Catalog is the deduplicated set of groups derived from one entity collection.
type Catalog struct {
	Groups []entities.Group
	// NoiseTokens counts year annotations removed while building the catalog.
	NoiseTokens int

	byName map[string]int64
}

// Lookup returns the identifier of the group with the given canonical name.
func (c *Catalog) Lookup(name string) (int64, bool) {
	id, ok := c.byName[name]
	return id, ok
}

// Len returns the number of groups.
func (c *Catalog) Len() int {
	return len(c.Groups)
}

// GroupExtractor derives the group catalog from entities' raw group text.
type GroupExtractor struct {
	normalizer *Normalizer
	classifier *Classifier
	order      IDOrder
}

// NewGroupExtractor creates a new GroupExtractor.
func NewGroupExtractor(normalizer *Normalizer, classifier *Classifier, order IDOrder) *GroupExtractor {
	if order == "" {
		order = IDOrderFirstSeen
	}
	return &GroupExtractor{
		normalizer: normalizer,
		classifier: classifier,
		order:      order,
	}
}

// Extract builds the catalog. It never fails: entities without group text
// contribute nothing and unusable tokens are discarded.
func (x *GroupExtractor) Extract(ents []entities.Entity) *Catalog {
	var names []string
	years := make(map[string]string)
	seen := make(map[string]bool)
	noise := 0

	for i := range ents {
		tokens, stripped := x.normalizer.splitGroupTokens(ents[i].RawGroupText)
		noise += stripped
		for _, tok := range tokens {
			// The first mention that carries a year decides the group's year.
			if years[tok.Name] == "" {
				years[tok.Name] = tok.Year
			}
			if seen[tok.Name] {
				continue
			}
			seen[tok.Name] = true
			names = append(names, tok.Name)
		}
	}

	if x.order == IDOrderSorted {
		sortNames(names)
	}

	catalog := &Catalog{
		Groups:      make([]entities.Group, 0, len(names)),
		NoiseTokens: noise,
		byName:      make(map[string]int64, len(names)),
	}
	for i, name := range names {
		id := int64(i + 1)
		catalog.byName[name] = id
		catalog.Groups = append(catalog.Groups, entities.Group{
			ID:       id,
			Name:     name,
			Category: x.classifier.Classify(name),
			Year:     years[name],
		})
	}
	return catalog
}

// sortNames orders names by Czech collation, falling back to byte order for
// names the collator ranks equal.
func sortNames(names []string) {
	col := collate.New(language.Czech)
	sort.SliceStable(names, func(i, j int) bool {
		if c := col.CompareString(names[i], names[j]); c != 0 {
			return c < 0
		}
		return names[i] < names[j]
	})
}
