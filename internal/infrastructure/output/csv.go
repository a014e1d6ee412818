package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/ersonp/roster-core/internal/domain/entities"
)

var (
	entitiesHeader = []string{
		"id", "first_name", "last_name", "email", "phone",
		"address_structured_street", "address_structured_city",
		"address_structured_postal_code", "address_structured_country",
		"address_raw", "raw_group_text",
	}
	groupsHeader      = []string{"id", "name", "category", "description"}
	membershipsHeader = []string{"entity_id", "group_id", "assigned_at"}
)

// FormatEntitiesCSV writes entities as a flat table. The structured address is
// spread over address_structured_* columns.
func FormatEntitiesCSV(w io.Writer, ents []entities.Entity) error {
	rows := make([][]string, 0, len(ents))
	for i := range ents {
		e := &ents[i]
		rows = append(rows, []string{
			e.ID,
			e.FirstName,
			e.LastName,
			e.Email,
			e.Phone,
			e.Address.Street,
			e.Address.City,
			e.Address.PostalCode,
			e.Address.Country,
			e.AddressRaw,
			e.RawGroupText,
		})
	}
	return writeCSV(w, entitiesHeader, rows)
}

// FormatGroupsCSV writes groups as a flat table.
func FormatGroupsCSV(w io.Writer, groups []entities.Group) error {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{
			strconv.FormatInt(g.ID, 10),
			g.Name,
			string(g.Category),
			g.Description,
		})
	}
	return writeCSV(w, groupsHeader, rows)
}

// FormatMembershipsCSV writes memberships as a flat table.
func FormatMembershipsCSV(w io.Writer, memberships []entities.Membership) error {
	rows := make([][]string, 0, len(memberships))
	for _, m := range memberships {
		rows = append(rows, []string{
			m.EntityID,
			strconv.FormatInt(m.GroupID, 10),
			formatTime(m.AssignedAt),
		})
	}
	return writeCSV(w, membershipsHeader, rows)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
