package entities

import "time"

// Category is a coarse classification of a group derived from its name prefix.
type Category string

// Built-in categories. Rules mapping name prefixes to categories are configurable.
const (
	CategoryStudium       Category = "STUDIUM"
	CategorySeminar       Category = "SEMINÁŘ"
	CategoryLecturers     Category = "LEKTOŘI"
	CategoryCourse        Category = "KURZ"
	CategoryMembers       Category = "ČLENOVÉ"
	CategoryAdmin         Category = "ADMIN"
	CategoryUncategorized Category = "UNCATEGORIZED"
)

// Group is a named course, cohort or role. Groups are created by the extractor
// and never modified afterwards.
type Group struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	Description string   `json:"description"`

	// Year is the year or year range ("2019", "2019-2020") the group was
	// annotated with in the source, if any.
	Year string `json:"year,omitempty"`
}

// Membership links one entity to one group.
type Membership struct {
	EntityID   string    `json:"entity_id"`
	GroupID    int64     `json:"group_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Dataset is the complete output of one import run.
type Dataset struct {
	RunID       string       `json:"run_id"`
	RunAt       time.Time    `json:"run_at"`
	Entities    []Entity     `json:"entities"`
	Groups      []Group      `json:"groups"`
	Memberships []Membership `json:"memberships"`
}
