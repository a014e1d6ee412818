package entities

// CategoryRule maps a set of name prefixes to a category.
type CategoryRule struct {
	Category    Category `yaml:"category" json:"category"`
	Prefixes    []string `yaml:"prefixes" json:"prefixes"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
}

// DefaultCategoryRules are tested in order; the first matching prefix wins.
var DefaultCategoryRules = []CategoryRule{
	{
		Category:    CategoryStudium,
		Prefixes:    []string{"STUDIUM"},
		Description: "Long-running study programmes",
	},
	{
		Category:    CategorySeminar,
		Prefixes:    []string{"SEMINÁŘ"},
		Description: "One-off seminars and workshops",
	},
	{
		Category:    CategoryLecturers,
		Prefixes:    []string{"LEKTOŘI", "LEKTOR"},
		Description: "Teaching staff",
	},
	{
		Category:    CategoryCourse,
		Prefixes:    []string{"KURZ"},
		Description: "Courses",
	},
	{
		Category:    CategoryMembers,
		Prefixes:    []string{"ČLENOVÉ", "ČLEN"},
		Description: "Association membership",
	},
	{
		Category:    CategoryAdmin,
		Prefixes:    []string{"ADMIN"},
		Description: "Administrative groups",
	},
}

// IsDefaultCategory checks if a category is one of the built-ins.
func IsDefaultCategory(c Category) bool {
	if c == CategoryUncategorized {
		return true
	}
	for _, r := range DefaultCategoryRules {
		if r.Category == c {
			return true
		}
	}
	return false
}
