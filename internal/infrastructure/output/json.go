package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/ersonp/roster-core/internal/domain/entities"
)

type exportAddress struct {
	Street     *string `json:"street"`
	City       *string `json:"city"`
	PostalCode *string `json:"postal_code"`
	Country    *string `json:"country"`
}

type exportEntity struct {
	ID                string        `json:"id"`
	FirstName         *string       `json:"first_name"`
	LastName          *string       `json:"last_name"`
	Email             *string       `json:"email"`
	Phone             *string       `json:"phone"`
	AddressStructured exportAddress `json:"address_structured"`
	AddressRaw        *string       `json:"address_raw"`
	RawGroupText      *string       `json:"raw_group_text"`
}

type exportGroup struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description *string `json:"description"`
}

type exportMembership struct {
	EntityID   string `json:"entity_id"`
	GroupID    int64  `json:"group_id"`
	AssignedAt string `json:"assigned_at"`
}

// FormatEntitiesJSON writes entities as a JSON array. Absent values are null.
func FormatEntitiesJSON(w io.Writer, ents []entities.Entity) error {
	out := make([]exportEntity, 0, len(ents))
	for i := range ents {
		e := &ents[i]
		out = append(out, exportEntity{
			ID:        e.ID,
			FirstName: optional(e.FirstName),
			LastName:  optional(e.LastName),
			Email:     optional(e.Email),
			Phone:     optional(e.Phone),
			AddressStructured: exportAddress{
				Street:     optional(e.Address.Street),
				City:       optional(e.Address.City),
				PostalCode: optional(e.Address.PostalCode),
				Country:    optional(e.Address.Country),
			},
			AddressRaw:   optional(e.AddressRaw),
			RawGroupText: optional(e.RawGroupText),
		})
	}
	return encodeJSON(w, out)
}

// FormatGroupsJSON writes groups as a JSON array.
func FormatGroupsJSON(w io.Writer, groups []entities.Group) error {
	out := make([]exportGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, exportGroup{
			ID:          g.ID,
			Name:        g.Name,
			Category:    string(g.Category),
			Description: optional(g.Description),
		})
	}
	return encodeJSON(w, out)
}

// FormatMembershipsJSON writes memberships as a JSON array with RFC 3339 dates.
func FormatMembershipsJSON(w io.Writer, memberships []entities.Membership) error {
	out := make([]exportMembership, 0, len(memberships))
	for _, m := range memberships {
		out = append(out, exportMembership{
			EntityID:   m.EntityID,
			GroupID:    m.GroupID,
			AssignedAt: formatTime(m.AssignedAt),
		})
	}
	return encodeJSON(w, out)
}

func encodeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
