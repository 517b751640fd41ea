package dummydb

import (
	"sort"

	"github.com/cadenza-app/cadenza/core"
	"github.com/cadenza-app/cadenza/core/resource"
)

type resourceRepository struct {
	db *resourceTable
}

var _ resource.Repository = (*resourceRepository)(nil) // interface compliance check

func NewResourceRepository(db *DB) resource.Repository {
	return &resourceRepository{db: db.resource}
}

func (repo *resourceRepository) CreateResource(res resource.Resource) (resource.Resource, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[res.ID] = &res
	return res, nil
}

func (repo *resourceRepository) GetResourceByID(id string) (resource.Resource, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if res, ok := repo.db.table[id]; ok {
		return *res, nil
	}
	return resource.Resource{}, resource.ErrNotFound
}

func (repo *resourceRepository) QueryAllResources(orderings ...core.DBOrdering) ([]resource.Resource, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	resources := make([]resource.Resource, 0, len(repo.db.table))
	for _, res := range repo.db.table {
		resources = append(resources, *res)
	}

	ord := core.DBOrdering{Field: "created_at", Ascending: true}
	if len(orderings) > 0 {
		ord = orderings[0]
	}
	sort.SliceStable(resources, func(i, j int) bool {
		var less bool
		switch ord.Field {
		case "title":
			less = resources[i].Title < resources[j].Title
		default:
			less = resources[i].CreatedAt.Before(resources[j].CreatedAt)
		}
		if !ord.Ascending {
			return !less
		}
		return less
	})
	return resources, nil
}

func (repo *resourceRepository) UpdateResource(res resource.Resource) (resource.Resource, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[res.ID]; !ok {
		return resource.Resource{}, resource.ErrNotFound
	}
	repo.db.table[res.ID] = &res
	return res, nil
}

func (repo *resourceRepository) DeleteResourcesByID(ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
