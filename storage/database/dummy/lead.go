package dummydb

import (
	"sort"
	"strings"

	"github.com/cadenza-app/cadenza/core"
	"github.com/cadenza-app/cadenza/core/lead"
)

type leadRepository struct {
	db *leadTable
}

var _ lead.Repository = (*leadRepository)(nil) // interface compliance check

func NewLeadRepository(db *DB) lead.Repository {
	return &leadRepository{db: db.lead}
}

func (repo *leadRepository) query() []lead.Lead {
	leads := make([]lead.Lead, 0, len(repo.db.table))
	for _, ld := range repo.db.table {
		leads = append(leads, *ld)
	}
	return leads
}

func sortLeads(leads []lead.Lead, orderings []core.DBOrdering) {
	ord := core.DBOrdering{Field: "created_at", Ascending: true}
	if len(orderings) > 0 {
		ord = orderings[0]
	}
	sort.SliceStable(leads, func(i, j int) bool {
		var less bool
		switch ord.Field {
		case "parent_name":
			less = leads[i].ParentName < leads[j].ParentName
		case "status":
			less = leads[i].Status < leads[j].Status
		default:
			less = leads[i].CreatedAt.Before(leads[j].CreatedAt)
		}
		if !ord.Ascending {
			return !less
		}
		return less
	})
}

func (repo *leadRepository) CreateLead(ld lead.Lead) (lead.Lead, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[ld.ID] = &ld
	return ld, nil
}

func (repo *leadRepository) QueryAllLeads(orderings ...core.DBOrdering) ([]lead.Lead, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	leads := repo.query()
	sortLeads(leads, orderings)
	return leads, nil
}

func (repo *leadRepository) GetLeadByID(id string) (lead.Lead, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ld, ok := repo.db.table[id]; ok {
		return *ld, nil
	}
	return lead.Lead{}, lead.ErrNotFound
}

func (repo *leadRepository) FilterLeads(filter lead.QueryFilter, orderings ...core.DBOrdering) ([]lead.Lead, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	leads := repo.query()

	if filter.Search != "" {
		var filtered []lead.Lead
		search := strings.ToLower(filter.Search)
		for _, ld := range leads {
			if strings.Contains(strings.ToLower(ld.ParentName), search) ||
				strings.Contains(strings.ToLower(ld.ChildName), search) ||
				strings.Contains(strings.ToLower(ld.Email), search) {
				filtered = append(filtered, ld)
			}
		}
		leads = filtered
	}
	if leads != nil && len(filter.Statuses) > 0 {
		var filtered []lead.Lead
		for _, ld := range leads {
			for _, status := range filter.Statuses {
				if ld.Status == status {
					filtered = append(filtered, ld)
					break
				}
			}
		}
		leads = filtered
	}
	if leads != nil && filter.AssigneeID != "" {
		var filtered []lead.Lead
		for _, ld := range leads {
			if ld.AssigneeID.Valid && ld.AssigneeID.String == filter.AssigneeID {
				filtered = append(filtered, ld)
			}
		}
		leads = filtered
	}
	if leads != nil && !filter.CreatedFrom.IsZero() {
		var filtered []lead.Lead
		timeUTC := filter.CreatedFrom.UTC()
		for _, ld := range leads {
			if ld.CreatedAt.Equal(timeUTC) || ld.CreatedAt.After(timeUTC) {
				filtered = append(filtered, ld)
			}
		}
		leads = filtered
	}
	if leads != nil && !filter.CreatedTo.IsZero() {
		var filtered []lead.Lead
		timeUTC := filter.CreatedTo.UTC()
		for _, ld := range leads {
			if ld.CreatedAt.Before(timeUTC) || ld.CreatedAt.Equal(timeUTC) {
				filtered = append(filtered, ld)
			}
		}
		leads = filtered
	}

	sortLeads(leads, orderings)
	return leads, nil
}

func (repo *leadRepository) UpdateLead(ld lead.Lead) (lead.Lead, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[ld.ID]; !ok {
		return lead.Lead{}, lead.ErrNotFound
	}
	repo.db.table[ld.ID] = &ld
	return ld, nil
}

func (repo *leadRepository) DeleteLeadsByID(ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
