package order

import (
	"sort"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadenza-app/cadenza/core"
)

type memRepo struct {
	orders    map[string]*Order
	batches   map[string]*Batch
	lastBatch int
}

func newMemRepo() *memRepo {
	return &memRepo{orders: make(map[string]*Order), batches: make(map[string]*Batch)}
}

func (m *memRepo) CreateOrder(ord Order) (Order, error) {
	m.orders[ord.ID] = &ord
	return ord, nil
}

func (m *memRepo) GetOrderByID(id string) (Order, error) {
	if ord, ok := m.orders[id]; ok {
		return *ord, nil
	}
	return Order{}, ErrNotFound
}

func (m *memRepo) QueryAllOrders(orderings ...core.DBOrdering) ([]Order, error) {
	orders := make([]Order, 0, len(m.orders))
	for _, ord := range m.orders {
		orders = append(orders, *ord)
	}
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.Before(orders[j].CreatedAt) })
	return orders, nil
}

func (m *memRepo) FilterOrders(filter QueryFilter, orderings ...core.DBOrdering) ([]Order, error) {
	all, _ := m.QueryAllOrders()
	var matched []Order
	for _, ord := range all {
		if filter.TeacherID != "" && ord.TeacherID != filter.TeacherID {
			continue
		}
		if filter.BatchID != "" && (!ord.BatchID.Valid || ord.BatchID.String != filter.BatchID) {
			continue
		}
		if len(filter.Statuses) > 0 {
			var ok bool
			for _, status := range filter.Statuses {
				if ord.Status == status {
					ok = true
					break
				}
			}
			if !ok {
				continue
			}
		}
		if !filter.CreatedTo.IsZero() && !ord.CreatedAt.Before(filter.CreatedTo) {
			continue
		}
		matched = append(matched, ord)
	}
	return matched, nil
}

func (m *memRepo) UpdateOrder(ord Order) (Order, error) {
	if _, ok := m.orders[ord.ID]; !ok {
		return Order{}, ErrNotFound
	}
	m.orders[ord.ID] = &ord
	return ord, nil
}

func (m *memRepo) DeleteOrdersByID(ids ...string) error {
	for _, id := range ids {
		delete(m.orders, id)
	}
	return nil
}

func (m *memRepo) CreateBatch(b Batch) (Batch, error) {
	m.batches[b.ID] = &b
	if b.Number > m.lastBatch {
		m.lastBatch = b.Number
	}
	return b, nil
}

func (m *memRepo) GetBatchByID(id string) (Batch, error) {
	if b, ok := m.batches[id]; ok {
		return *b, nil
	}
	return Batch{}, ErrBatchNotFound
}

func (m *memRepo) QueryAllBatches(orderings ...core.DBOrdering) ([]Batch, error) {
	batches := make([]Batch, 0, len(m.batches))
	for _, b := range m.batches {
		batches = append(batches, *b)
	}
	sort.SliceStable(batches, func(i, j int) bool { return batches[i].Number < batches[j].Number })
	return batches, nil
}

func (m *memRepo) UpdateBatch(b Batch) (Batch, error) {
	if _, ok := m.batches[b.ID]; !ok {
		return Batch{}, ErrBatchNotFound
	}
	m.batches[b.ID] = &b
	return b, nil
}

func (m *memRepo) NextBatchNumber() (int, error) { return m.lastBatch + 1, nil }

func mockNow(t *testing.T, at time.Time) {
	t.Helper()
	orig := nowFunc
	nowFunc = func() time.Time { return at }
	t.Cleanup(func() { nowFunc = orig })
}

func TestBuildBatch(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	base := time.Date(2021, 9, 1, 8, 0, 0, 0, time.UTC)

	newOrd := func(student string, at time.Time) Order {
		mockNow(t, at)
		ord, err := svc.Create("t1", NewOrder{
			ClassID: "c1", StudentName: student, Garment: "polo", Size: "M", Quantity: 1,
		})
		require.NoError(t, err)
		return ord
	}

	before1 := newOrd("Ana", base)
	before2 := newOrd("Ben", base.Add(time.Hour))
	atCutoff := newOrd("Cleo", base.Add(2*time.Hour))
	after := newOrd("Dan", base.Add(3*time.Hour))

	cutoff := base.Add(2 * time.Hour)
	mockNow(t, base.Add(4*time.Hour))
	b, err := svc.BuildBatch(cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Number)
	assert.Equal(t, BatchDraft, b.Status)
	assert.ElementsMatch(t, []string{before1.ID, before2.ID}, b.OrderIDs)

	t.Run("orders at or after the cutoff stay open", func(t *testing.T) {
		for _, id := range []string{atCutoff.ID, after.ID} {
			ord, err := repo.GetOrderByID(id)
			require.NoError(t, err)
			assert.Equal(t, StatusOpen, ord.Status)
			assert.False(t, ord.BatchID.Valid)
		}
	})

	t.Run("batched orders carry the batch id", func(t *testing.T) {
		for _, id := range b.OrderIDs {
			ord, err := repo.GetOrderByID(id)
			require.NoError(t, err)
			assert.Equal(t, StatusBatched, ord.Status)
			assert.Equal(t, b.ID, ord.BatchID.String)
		}
	})

	t.Run("rebuilding at the same cutoff finds nothing", func(t *testing.T) {
		_, err := svc.BuildBatch(cutoff)
		require.Error(t, err)
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
	})

	t.Run("batch numbers keep increasing", func(t *testing.T) {
		b2, err := svc.BuildBatch(base.Add(5 * time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 2, b2.Number)
		assert.ElementsMatch(t, []string{atCutoff.ID, after.ID}, b2.OrderIDs)
	})
}

func TestBatchedOrderIsFrozen(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	base := time.Date(2021, 9, 1, 8, 0, 0, 0, time.UTC)

	mockNow(t, base)
	ord, err := svc.Create("t1", NewOrder{ClassID: "c1", StudentName: "Ana", Garment: "hoodie", Size: "S", Quantity: 2})
	require.NoError(t, err)

	qty := 3
	_, err = svc.Update(ord.ID, UpdateOrder{Quantity: &qty})
	require.NoError(t, err)

	mockNow(t, base.Add(time.Hour))
	_, err = svc.BuildBatch(base.Add(time.Hour))
	require.NoError(t, err)

	_, err = svc.Update(ord.ID, UpdateOrder{Quantity: &qty})
	assert.Error(t, err)
	assert.Error(t, svc.Delete(ord.ID))
}

func TestBatchLifecycle(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	base := time.Date(2021, 9, 1, 8, 0, 0, 0, time.UTC)

	mockNow(t, base)
	ord, err := svc.Create("t1", NewOrder{ClassID: "c1", StudentName: "Ana", Garment: "polo", Size: "M", Quantity: 1})
	require.NoError(t, err)

	mockNow(t, base.Add(time.Hour))
	b, err := svc.BuildBatch(base.Add(time.Hour))
	require.NoError(t, err)

	// cannot fulfill a draft
	_, err = svc.FulfillBatch(b.ID)
	assert.Error(t, err)

	b, err = svc.SubmitBatch(b.ID)
	require.NoError(t, err)
	assert.Equal(t, BatchSubmitted, b.Status)
	assert.True(t, b.SubmittedAt.Valid)

	// cannot submit twice
	_, err = svc.SubmitBatch(b.ID)
	assert.Error(t, err)

	b, err = svc.FulfillBatch(b.ID)
	require.NoError(t, err)
	assert.Equal(t, BatchFulfilled, b.Status)
	assert.True(t, b.FulfilledAt.Valid)

	got, err := repo.GetOrderByID(ord.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFulfilled, got.Status)
}

func TestSummarize(t *testing.T) {
	orders := []Order{
		{Garment: "tshirt", Size: "M", Quantity: 2},
		{Garment: "polo", Size: "XL", Quantity: 1},
		{Garment: "polo", Size: "S", Quantity: 3},
		{Garment: "polo", Size: "S", Quantity: 1},
	}
	want := []SummaryLine{
		{Garment: "polo", Size: "S", Quantity: 4},
		{Garment: "polo", Size: "XL", Quantity: 1},
		{Garment: "tshirt", Size: "M", Quantity: 2},
	}
	assert.Equal(t, want, Summarize(orders))

	assert.Empty(t, Summarize(nil))
}
