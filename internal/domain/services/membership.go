package services

import (
	"time"

	"github.com/ersonp/roster-core/internal/domain/entities"
)

// MembershipLinker resolves each entity's group names against the catalog.
type MembershipLinker struct {
	normalizer *Normalizer
}

// NewMembershipLinker creates a linker. It must share the normalizer (or its
// options) with the extractor that built the catalog.
func NewMembershipLinker(normalizer *Normalizer) *MembershipLinker {
	return &MembershipLinker{normalizer: normalizer}
}

type membershipKey struct {
	entityID string
	groupID  int64
}

// Link emits one membership per distinct (entity, group) pair. The assignment
// time is the entity's own date when it has one, runAt otherwise.
//
// The catalog must have been extracted from exactly ents. A name missing from
// the catalog returns an InternalConsistencyError.
func (l *MembershipLinker) Link(ents []entities.Entity, catalog *Catalog, runAt time.Time) ([]entities.Membership, error) {
	memberships := make([]entities.Membership, 0, len(ents))
	seen := make(map[membershipKey]bool)

	for i := range ents {
		entity := &ents[i]
		assignedAt := runAt
		if entity.AssignedAt != nil {
			assignedAt = *entity.AssignedAt
		}

		for _, name := range l.normalizer.SplitGroups(entity.RawGroupText) {
			groupID, ok := catalog.Lookup(name)
			if !ok {
				return nil, newInternalConsistencyError(entity.ID, name)
			}

			key := membershipKey{entityID: entity.ID, groupID: groupID}
			if seen[key] {
				continue
			}
			seen[key] = true

			memberships = append(memberships, entities.Membership{
				EntityID:   entity.ID,
				GroupID:    groupID,
				AssignedAt: assignedAt,
			})
		}
	}

	return memberships, nil
}
