package dummydb

import (
	"sort"

	"github.com/cadenza-app/cadenza/core"
	"github.com/cadenza-app/cadenza/core/order"
)

type orderRepository struct {
	db *orderTable
}

var _ order.Repository = (*orderRepository)(nil) // interface compliance check

func NewOrderRepository(db *DB) order.Repository {
	return &orderRepository{db: db.order}
}

func (repo *orderRepository) queryOrders() []order.Order {
	orders := make([]order.Order, 0, len(repo.db.orders))
	for _, ord := range repo.db.orders {
		orders = append(orders, *ord)
	}
	return orders
}

func sortOrders(orders []order.Order, orderings []core.DBOrdering) {
	ord := core.DBOrdering{Field: "created_at", Ascending: true}
	if len(orderings) > 0 {
		ord = orderings[0]
	}
	sort.SliceStable(orders, func(i, j int) bool {
		var less bool
		switch ord.Field {
		case "student_name":
			less = orders[i].StudentName < orders[j].StudentName
		default:
			less = orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		if !ord.Ascending {
			return !less
		}
		return less
	})
}

func (repo *orderRepository) CreateOrder(ord order.Order) (order.Order, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.orders[ord.ID] = &ord
	return ord, nil
}

func (repo *orderRepository) GetOrderByID(id string) (order.Order, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ord, ok := repo.db.orders[id]; ok {
		return *ord, nil
	}
	return order.Order{}, order.ErrNotFound
}

func (repo *orderRepository) QueryAllOrders(orderings ...core.DBOrdering) ([]order.Order, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	orders := repo.queryOrders()
	sortOrders(orders, orderings)
	return orders, nil
}

func (repo *orderRepository) FilterOrders(filter order.QueryFilter, orderings ...core.DBOrdering) ([]order.Order, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	orders := repo.queryOrders()

	if filter.TeacherID != "" {
		var filtered []order.Order
		for _, ord := range orders {
			if ord.TeacherID == filter.TeacherID {
				filtered = append(filtered, ord)
			}
		}
		orders = filtered
	}
	if orders != nil && filter.ClassID != "" {
		var filtered []order.Order
		for _, ord := range orders {
			if ord.ClassID == filter.ClassID {
				filtered = append(filtered, ord)
			}
		}
		orders = filtered
	}
	if orders != nil && len(filter.Statuses) > 0 {
		var filtered []order.Order
		for _, ord := range orders {
			for _, status := range filter.Statuses {
				if ord.Status == status {
					filtered = append(filtered, ord)
					break
				}
			}
		}
		orders = filtered
	}
	if orders != nil && filter.BatchID != "" {
		var filtered []order.Order
		for _, ord := range orders {
			if ord.BatchID.Valid && ord.BatchID.String == filter.BatchID {
				filtered = append(filtered, ord)
			}
		}
		orders = filtered
	}
	if orders != nil && !filter.CreatedFrom.IsZero() {
		var filtered []order.Order
		timeUTC := filter.CreatedFrom.UTC()
		for _, ord := range orders {
			if ord.CreatedAt.Equal(timeUTC) || ord.CreatedAt.After(timeUTC) {
				filtered = append(filtered, ord)
			}
		}
		orders = filtered
	}
	// CreatedTo is exclusive
	if orders != nil && !filter.CreatedTo.IsZero() {
		var filtered []order.Order
		timeUTC := filter.CreatedTo.UTC()
		for _, ord := range orders {
			if ord.CreatedAt.Before(timeUTC) {
				filtered = append(filtered, ord)
			}
		}
		orders = filtered
	}

	sortOrders(orders, orderings)
	return orders, nil
}

func (repo *orderRepository) UpdateOrder(ord order.Order) (order.Order, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.orders[ord.ID]; !ok {
		return order.Order{}, order.ErrNotFound
	}
	repo.db.orders[ord.ID] = &ord
	return ord, nil
}

func (repo *orderRepository) DeleteOrdersByID(ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.orders, id)
	}
	return nil
}

// Batches

func (repo *orderRepository) CreateBatch(b order.Batch) (order.Batch, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.batches[b.ID] = &b
	if b.Number > repo.db.lastBatch {
		repo.db.lastBatch = b.Number
	}
	return b, nil
}

func (repo *orderRepository) GetBatchByID(id string) (order.Batch, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if b, ok := repo.db.batches[id]; ok {
		return *b, nil
	}
	return order.Batch{}, order.ErrBatchNotFound
}

func (repo *orderRepository) QueryAllBatches(orderings ...core.DBOrdering) ([]order.Batch, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	batches := make([]order.Batch, 0, len(repo.db.batches))
	for _, b := range repo.db.batches {
		batches = append(batches, *b)
	}

	ord := core.DBOrdering{Field: "number", Ascending: true}
	if len(orderings) > 0 {
		ord = orderings[0]
	}
	sort.SliceStable(batches, func(i, j int) bool {
		less := batches[i].Number < batches[j].Number
		if !ord.Ascending {
			return !less
		}
		return less
	})
	return batches, nil
}

func (repo *orderRepository) UpdateBatch(b order.Batch) (order.Batch, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.batches[b.ID]; !ok {
		return order.Batch{}, order.ErrBatchNotFound
	}
	repo.db.batches[b.ID] = &b
	return b, nil
}

func (repo *orderRepository) NextBatchNumber() (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.lastBatch + 1, nil
}
