package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ersonp/roster-core/internal/domain/entities"
	"github.com/ersonp/roster-core/internal/infrastructure/parsers"
)

// Entity fields that can be fed from source columns.
const (
	FieldID         = "id"
	FieldFirstName  = "first_name"
	FieldLastName   = "last_name"
	FieldFullName   = "full_name"
	FieldTitle      = "title"
	FieldEmail      = "email"
	FieldPhone      = "phone"
	FieldStreet     = "street"
	FieldCity       = "city"
	FieldPostalCode = "postal_code"
	FieldCountry    = "country"
	FieldAddressRaw = "address_raw"
	FieldGroups     = "groups"
	FieldActive     = "active"
	FieldNewsletter = "newsletter"
	FieldNote       = "note"
	FieldAssignedAt = "assigned_at"
)

// ColumnAliases maps an entity field to the source columns that may carry it.
// The first non-empty column wins.
type ColumnAliases map[string][]string

// DefaultColumnAliases returns the column names found in roster exports.
func DefaultColumnAliases() ColumnAliases {
	return ColumnAliases{
		FieldID:         {"id", "user_id"},
		FieldFirstName:  {"first_name", "name"},
		FieldLastName:   {"last_name", "surname"},
		FieldFullName:   {"full_name"},
		FieldTitle:      {"title"},
		FieldEmail:      {"email"},
		FieldPhone:      {"phone", "address_phone"},
		FieldStreet:     {"address_street", "street"},
		FieldCity:       {"address_city", "city"},
		FieldPostalCode: {"address_zip", "zip", "postal_code"},
		FieldCountry:    {"address_country", "country"},
		FieldAddressRaw: {"address"},
		FieldGroups:     {"groups"},
		FieldActive:     {"active"},
		FieldNewsletter: {"newsletter"},
		FieldNote:       {"internal_note", "note"},
		FieldAssignedAt: {"assigned_at", "enrolled_at"},
	}
}

// With returns a copy of the aliases with the given fields replaced. Override
// column names are normalized the same way source headers are.
func (c ColumnAliases) With(overrides map[string][]string) ColumnAliases {
	merged := make(ColumnAliases, len(c))
	for field, cols := range c {
		merged[field] = cols
	}
	for field, cols := range overrides {
		normalized := make([]string, 0, len(cols))
		for _, col := range cols {
			if h := parsers.NormalizeHeader(col); h != "" {
				normalized = append(normalized, h)
			}
		}
		if len(normalized) > 0 {
			merged[field] = normalized
		}
	}
	return merged
}

// addressRecord is one row of the addresses sheet after cleaning.
type addressRecord struct {
	Address entities.Address
	Raw     string
	Phone   string
}

// BuildResult contains the entities built from one pair of sheets.
type BuildResult struct {
	Entities []entities.Entity
	Errors   []*RowValidationError
	// BlankRows counts fully empty person rows, which are ignored silently.
	BlankRows int
	// DiscardedAddresses counts address rows that conflicted with an earlier
	// address for the same person.
	DiscardedAddresses int
	// OrphanAddresses counts address rows whose identifier matches no person.
	OrphanAddresses int
}

// EntityBuilder converts cleaned person rows into entities. A builder carries the
// identifier state of one run; create a new one per run.
type EntityBuilder struct {
	normalizer *Normalizer
	columns    ColumnAliases

	sourceIDs map[string]bool
	seenIDs   map[string]int
	nextAuto  int
}

// NewEntityBuilder creates a new EntityBuilder.
func NewEntityBuilder(normalizer *Normalizer, columns ColumnAliases) *EntityBuilder {
	if columns == nil {
		columns = DefaultColumnAliases()
	}
	return &EntityBuilder{
		normalizer: normalizer,
		columns:    columns,
		sourceIDs:  make(map[string]bool),
		seenIDs:    make(map[string]int),
	}
}

// BuildAll builds one entity per non-blank person row, joining address rows by
// the shared identifier.
func (b *EntityBuilder) BuildAll(sheets *parsers.Sheets) *BuildResult {
	result := &BuildResult{}

	// Synthetic identifiers must not collide with any identifier in the source.
	for _, row := range sheets.Persons {
		if id, ok := b.text(row, FieldID); ok {
			b.sourceIDs[id] = true
		}
	}

	addresses, addrErrs, discarded := b.indexAddresses(sheets.Addresses)
	result.Errors = append(result.Errors, addrErrs...)
	result.DiscardedAddresses = discarded

	used := make(map[string]bool, len(addresses))
	result.Entities = make([]entities.Entity, 0, len(sheets.Persons))
	for _, row := range sheets.Persons {
		if row.IsBlank() {
			result.BlankRows++
			continue
		}

		var joined *addressRecord
		if id, ok := b.text(row, FieldID); ok {
			if rec, found := addresses[id]; found {
				joined = &rec
				used[id] = true
			}
		}

		entity, err := b.build(row, joined)
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Entities = append(result.Entities, *entity)
	}

	for id := range addresses {
		if !used[id] {
			result.OrphanAddresses++
		}
	}

	return result
}

// Build converts one person row into an entity, or reports why the row is unusable.
func (b *EntityBuilder) Build(row parsers.RawRow) (*entities.Entity, *RowValidationError) {
	return b.build(row, nil)
}

// build is Build with an optional joined address that fills sub-fields the
// person row leaves absent.
func (b *EntityBuilder) build(row parsers.RawRow, joined *addressRecord) (*entities.Entity, *RowValidationError) {
	sourceID, hasID := b.text(row, FieldID)

	entity := &entities.Entity{SourceRow: row.Line}
	entity.FirstName, _ = b.display(row, FieldFirstName)
	entity.LastName, _ = b.display(row, FieldLastName)
	if !entity.HasName() {
		if full, ok := b.display(row, FieldFullName); ok {
			entity.FirstName, entity.LastName = splitFullName(full)
		}
	}
	if email, ok := b.text(row, FieldEmail); ok {
		entity.Email = strings.ToLower(email)
	}

	if !entity.HasName() && entity.Email == "" {
		return nil, &RowValidationError{
			Sheet:   parsers.SheetPersons,
			Row:     row.Line,
			ID:      sourceID,
			Field:   "name",
			Message: "missing required field: name or email",
		}
	}

	if hasID {
		if first, dup := b.seenIDs[sourceID]; dup {
			return nil, &RowValidationError{
				Sheet:   parsers.SheetPersons,
				Row:     row.Line,
				ID:      sourceID,
				Field:   FieldID,
				Message: fmt.Sprintf("duplicate identifier (first used on row %d)", first),
			}
		}
	}

	if v := row.Get(b.columns[FieldAssignedAt]...); v != nil {
		at, ok, err := b.normalizer.Date(v)
		if err != nil {
			return nil, &RowValidationError{
				Sheet:   parsers.SheetPersons,
				Row:     row.Line,
				ID:      sourceID,
				Field:   FieldAssignedAt,
				Message: err.Error(),
			}
		}
		if ok {
			entity.AssignedAt = &at
		}
	}

	if hasID {
		entity.ID = sourceID
	} else {
		entity.ID = b.syntheticID()
	}
	b.seenIDs[entity.ID] = row.Line

	entity.Title, _ = b.display(row, FieldTitle)
	entity.Phone, _ = b.text(row, FieldPhone)
	entity.Address = b.address(row)
	entity.AddressRaw, _ = b.text(row, FieldAddressRaw)
	entity.RawGroupText, _ = b.text(row, FieldGroups)
	entity.Active = b.normalizer.Bool(row.Get(b.columns[FieldActive]...), true)
	entity.Newsletter = b.normalizer.Bool(row.Get(b.columns[FieldNewsletter]...), false)
	entity.Note, _ = b.text(row, FieldNote)

	if joined != nil {
		entity.Address = entity.Address.Merge(joined.Address)
		if entity.AddressRaw == "" {
			entity.AddressRaw = joined.Raw
		}
		if entity.Phone == "" {
			entity.Phone = joined.Phone
		}
	}

	return entity, nil
}

// indexAddresses groups address rows by identifier. Identical rows collapse; the
// first distinct address of a person wins.
func (b *EntityBuilder) indexAddresses(rows []parsers.RawRow) (map[string]addressRecord, []*RowValidationError, int) {
	index := make(map[string]addressRecord)
	var errs []*RowValidationError
	discarded := 0

	for _, row := range rows {
		if row.IsBlank() {
			continue
		}
		id, ok := b.text(row, FieldID)
		if !ok {
			errs = append(errs, &RowValidationError{
				Sheet:   parsers.SheetAddresses,
				Row:     row.Line,
				Field:   FieldID,
				Message: "missing identifier to join on",
			})
			continue
		}

		rec := addressRecord{Address: b.address(row)}
		rec.Raw, _ = b.text(row, FieldAddressRaw)
		rec.Phone, _ = b.text(row, FieldPhone)

		existing, seen := index[id]
		switch {
		case !seen:
			index[id] = rec
		case existing != rec:
			discarded++
		}
	}
	return index, errs, discarded
}

func (b *EntityBuilder) address(row parsers.RawRow) entities.Address {
	var a entities.Address
	a.Street, _ = b.text(row, FieldStreet)
	a.City, _ = b.text(row, FieldCity)
	a.PostalCode, _ = b.text(row, FieldPostalCode)
	a.Country, _ = b.text(row, FieldCountry)
	return a
}

func (b *EntityBuilder) syntheticID() string {
	for {
		b.nextAuto++
		id := "auto-" + strconv.Itoa(b.nextAuto)
		if !b.sourceIDs[id] {
			return id
		}
	}
}

func (b *EntityBuilder) text(row parsers.RawRow, field string) (string, bool) {
	return b.normalizer.Text(row.Get(b.columns[field]...))
}

func (b *EntityBuilder) display(row parsers.RawRow, field string) (string, bool) {
	return b.normalizer.Display(row.Get(b.columns[field]...))
}

// splitFullName splits on the last space: "Jan van Novák" -> ("Jan van", "Novák").
func splitFullName(full string) (first, last string) {
	i := strings.LastIndex(full, " ")
	if i < 0 {
		return "", full
	}
	return full[:i], full[i+1:]
}
