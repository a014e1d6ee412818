// Package entities contains core domain data structures.
package entities

import (
	"strings"
	"time"
)

// Address is the structured postal address of a person. Every field is optional.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// IsZero reports whether no address field is set.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Merge fills the empty fields of a from other. Fields already set on a are kept verbatim.
func (a Address) Merge(other Address) Address {
	if a.Street == "" {
		a.Street = other.Street
	}
	if a.City == "" {
		a.City = other.City
	}
	if a.PostalCode == "" {
		a.PostalCode = other.PostalCode
	}
	if a.Country == "" {
		a.Country = other.Country
	}
	return a
}

// Entity is one person from the roster. One source row produces exactly one entity;
// entities are never merged, even when names or e-mails collide.
//
// An empty string means the value was absent in the source.
type Entity struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Title     string `json:"title,omitempty"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`

	// Address and AddressRaw are both kept as supplied. They are never reconciled.
	Address    Address `json:"address_structured"`
	AddressRaw string  `json:"address_raw"`

	// RawGroupText is the trimmed, not yet split group-membership cell.
	RawGroupText string `json:"raw_group_text"`

	Active     bool   `json:"active"`
	Newsletter bool   `json:"newsletter"`
	Note       string `json:"note,omitempty"`

	// AssignedAt is the per-row membership date, when the source carries one.
	AssignedAt *time.Time `json:"-"`
	// SourceRow is the 1-indexed row number in the persons sheet.
	SourceRow int `json:"-"`
}

// FullName joins title, first and last name with single spaces.
func (e *Entity) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{e.Title, e.FirstName, e.LastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// HasName reports whether the entity carries a first or last name.
func (e *Entity) HasName() bool {
	return e.FirstName != "" || e.LastName != ""
}
