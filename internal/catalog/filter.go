package catalog

import (
	"strings"

	"mattress-store/internal/domain"
)

// AllCategories is the category value that disables category filtering
const AllCategories = "all"

// Query is the immutable search state applied to a catalog.
// Build it with NewQuery; the zero value is not normalised.
type Query struct {
	search   string
	category string
}

// NewQuery normalises a raw search text and selected category.
// A blank category selects AllCategories.
func NewQuery(search, category string) Query {
	category = strings.TrimSpace(category)
	if category == "" {
		category = AllCategories
	}
	return Query{
		search:   strings.ToLower(strings.TrimSpace(search)),
		category: category,
	}
}

// Search returns the trimmed, case-folded search text
func (q Query) Search() string { return q.search }

// Category returns the selected category name or AllCategories
func (q Query) Category() string { return q.category }

// HasSearch reports whether a non-blank search text was given
func (q Query) HasSearch() bool { return q.search != "" }

// FiltersCategory reports whether a concrete category is selected
func (q Query) FiltersCategory() bool {
	return !strings.EqualFold(q.category, AllCategories)
}

// DeriveVisible returns the items matching q, in their original order.
// The search stage keeps items whose name, description or category name
// contains the search text; the category stage then keeps items whose
// category name equals the selected category. Both comparisons ignore case.
func DeriveVisible(items []domain.Item, q Query) []domain.Item {
	visible := make([]domain.Item, 0, len(items))

	for _, item := range items {
		if q.HasSearch() && !matchesSearch(item, q.search) {
			continue
		}
		if q.FiltersCategory() && !matchesCategory(item, q.category) {
			continue
		}
		visible = append(visible, item)
	}

	return visible
}

// EmptyMessage is shown when DeriveVisible yields nothing for q
func EmptyMessage(q Query) string {
	if q.HasSearch() {
		return "no products found for your search"
	}
	if q.FiltersCategory() {
		return "no products found in this category"
	}
	return "no products found"
}

func matchesSearch(item domain.Item, search string) bool {
	if strings.Contains(strings.ToLower(item.Name), search) {
		return true
	}
	if item.Description != nil && strings.Contains(strings.ToLower(*item.Description), search) {
		return true
	}
	return item.CategoryName != nil && strings.Contains(strings.ToLower(*item.CategoryName), search)
}

func matchesCategory(item domain.Item, category string) bool {
	return item.CategoryName != nil && strings.ToLower(*item.CategoryName) == strings.ToLower(category)
}
