package services

import (
	"math"
	"sort"

	"github.com/ersonp/roster-core/internal/domain/entities"
)

// largestGroupsLimit is the number of groups listed in Statistics.LargestGroups.
const largestGroupsLimit = 10

// GroupSize is a group with its member count.
type GroupSize struct {
	ID       int64             `json:"id"`
	Name     string            `json:"name"`
	Category entities.Category `json:"category"`
	Members  int               `json:"members"`
}

// Statistics summarises one import run.
type Statistics struct {
	RunID                  string                    `json:"run_id"`
	TotalEntities          int                       `json:"total_entities"`
	TotalGroups            int                       `json:"total_groups"`
	TotalMemberships       int                       `json:"total_memberships"`
	EntitiesWithGroups     int                       `json:"entities_with_groups"`
	EntitiesWithoutGroups  int                       `json:"entities_without_groups"`
	GroupsByCategory       map[entities.Category]int `json:"groups_by_category"`
	LargestGroups          []GroupSize               `json:"largest_groups"`
	AverageMembersPerGroup float64                   `json:"average_members_per_group"`
	// DuplicateEmails maps an e-mail shared by several entities to their identifiers.
	DuplicateEmails     map[string][]string `json:"duplicate_emails"`
	RowsSkipped         int                 `json:"rows_skipped"`
	BlankRows           int                 `json:"blank_rows"`
	NoiseTokensStripped int                 `json:"noise_tokens_stripped"`
	DiscardedAddresses  int                 `json:"discarded_addresses"`
}

// ComputeStatistics derives the statistics of a dataset. Counters that only the
// pipeline knows (skipped rows, noise) are filled in by the caller.
func ComputeStatistics(ds *entities.Dataset) *Statistics {
	stats := &Statistics{
		RunID:            ds.RunID,
		TotalEntities:    len(ds.Entities),
		TotalGroups:      len(ds.Groups),
		TotalMemberships: len(ds.Memberships),
		GroupsByCategory: make(map[entities.Category]int),
		LargestGroups:    []GroupSize{},
		DuplicateEmails:  make(map[string][]string),
	}

	members := make(map[int64]int, len(ds.Groups))
	withGroups := make(map[string]bool, len(ds.Entities))
	for _, m := range ds.Memberships {
		members[m.GroupID]++
		withGroups[m.EntityID] = true
	}
	stats.EntitiesWithGroups = len(withGroups)
	stats.EntitiesWithoutGroups = len(ds.Entities) - len(withGroups)

	sizes := make([]GroupSize, 0, len(ds.Groups))
	for _, g := range ds.Groups {
		stats.GroupsByCategory[g.Category]++
		sizes = append(sizes, GroupSize{ID: g.ID, Name: g.Name, Category: g.Category, Members: members[g.ID]})
	}
	sort.SliceStable(sizes, func(i, j int) bool {
		if sizes[i].Members != sizes[j].Members {
			return sizes[i].Members > sizes[j].Members
		}
		return sizes[i].ID < sizes[j].ID
	})
	if len(sizes) > largestGroupsLimit {
		sizes = sizes[:largestGroupsLimit]
	}
	stats.LargestGroups = append(stats.LargestGroups, sizes...)

	if len(ds.Groups) > 0 {
		avg := float64(len(ds.Memberships)) / float64(len(ds.Groups))
		stats.AverageMembersPerGroup = math.Round(avg*100) / 100
	}

	byEmail := make(map[string][]string)
	for _, e := range ds.Entities {
		if e.Email != "" {
			byEmail[e.Email] = append(byEmail[e.Email], e.ID)
		}
	}
	for email, ids := range byEmail {
		if len(ids) > 1 {
			stats.DuplicateEmails[email] = ids
		}
	}

	return stats
}
