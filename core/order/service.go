package order

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/cadenza-app/cadenza/core"
)

var (
	// errors
	ErrNotFound      = errors.New("order not found")
	ErrBatchNotFound = errors.New("batch not found")
	ErrNotEditable   = errors.New("order is already part of a batch")
	ErrNoOpenOrders  = errors.New("no open orders before cutoff")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateOrder(ord Order) (Order, error)
		GetOrderByID(id string) (Order, error)
		QueryAllOrders(orderings ...core.DBOrdering) ([]Order, error)
		// FilterOrders applies AND operation on available QueryFilter fields.
		FilterOrders(filter QueryFilter, orderings ...core.DBOrdering) ([]Order, error)
		UpdateOrder(ord Order) (Order, error)
		DeleteOrdersByID(ids ...string) error

		CreateBatch(b Batch) (Batch, error)
		GetBatchByID(id string) (Batch, error)
		QueryAllBatches(orderings ...core.DBOrdering) ([]Batch, error)
		UpdateBatch(b Batch) (Batch, error)
		// NextBatchNumber returns the number the next created batch should carry.
		// Numbers are strictly increasing, starting at 1.
		NextBatchNumber() (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Orders

func (svc *Service) Create(teacherID string, no NewOrder) (Order, error) {
	now := nowFunc().UTC()
	ord := Order{
		ID:          uuid.New().String(),
		TeacherID:   teacherID,
		ClassID:     no.ClassID,
		StudentName: no.StudentName,
		Garment:     no.Garment,
		Size:        no.Size,
		Quantity:    no.Quantity,
		Note:        no.Note,
		Status:      StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateOrder(ord)
}

func (svc *Service) Query(filter *QueryFilter, orderings ...core.DBOrdering) ([]Order, error) {
	if filter == nil || filter.IsEmpty() {
		return svc.repo.QueryAllOrders(orderings...)
	}
	return svc.repo.FilterOrders(*filter, orderings...)
}

func (svc *Service) GetByID(id string) (Order, error) {
	return svc.repo.GetOrderByID(id)
}

func (svc *Service) QueryByTeacher(teacherID string) ([]Order, error) {
	return svc.repo.FilterOrders(QueryFilter{TeacherID: teacherID})
}

// Update modifies an order that has not been picked up by a batch yet.
func (svc *Service) Update(id string, uo UpdateOrder) (Order, error) {
	ord, err := svc.repo.GetOrderByID(id)
	if err != nil {
		return Order{}, err
	}
	if !ord.Editable() {
		return Order{}, core.NewValidationError(ErrNotEditable)
	}
	if uo.StudentName != "" {
		ord.StudentName = uo.StudentName
	}
	if uo.Garment != "" {
		ord.Garment = uo.Garment
	}
	if uo.Size != "" {
		ord.Size = uo.Size
	}
	if uo.Quantity != nil {
		ord.Quantity = *uo.Quantity
	}
	if uo.Note != nil {
		ord.Note = core.CleanString(*uo.Note)
	}
	ord.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateOrder(ord)
}

// Delete removes orders that are still open. Batched orders stay for the record.
func (svc *Service) Delete(ids ...string) error {
	for _, id := range ids {
		ord, err := svc.repo.GetOrderByID(id)
		if err != nil {
			return err
		}
		if !ord.Editable() {
			return core.NewValidationError(ErrNotEditable)
		}
	}
	return svc.repo.DeleteOrdersByID(ids...)
}

// Batches

// BuildBatch collects every order still open before the cutoff into a new
// draft batch. Orders created at or after the cutoff stay open for the next
// run, which makes building idempotent at a given cutoff.
func (svc *Service) BuildBatch(cutoff time.Time) (Batch, error) {
	cutoff = cutoff.UTC()
	open, err := svc.repo.FilterOrders(QueryFilter{Statuses: []string{StatusOpen}, CreatedTo: cutoff})
	if err != nil {
		return Batch{}, errors.Wrap(err, "querying open orders")
	}
	if len(open) == 0 {
		return Batch{}, core.NewValidationError(ErrNoOpenOrders)
	}

	number, err := svc.repo.NextBatchNumber()
	if err != nil {
		return Batch{}, errors.Wrap(err, "getting next batch number")
	}

	now := nowFunc().UTC()
	b := Batch{
		ID:        uuid.New().String(),
		Number:    number,
		Status:    BatchDraft,
		Cutoff:    cutoff,
		OrderIDs:  make([]string, 0, len(open)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, ord := range open {
		b.OrderIDs = append(b.OrderIDs, ord.ID)
	}
	b, err = svc.repo.CreateBatch(b)
	if err != nil {
		return Batch{}, errors.Wrap(err, "creating batch")
	}

	for _, ord := range open {
		ord.Status = StatusBatched
		ord.BatchID = null.StringFrom(b.ID)
		ord.UpdatedAt = now
		if _, err := svc.repo.UpdateOrder(ord); err != nil {
			return Batch{}, errors.Wrap(err, "marking order batched")
		}
	}
	return b, nil
}

func (svc *Service) QueryBatches(orderings ...core.DBOrdering) ([]Batch, error) {
	return svc.repo.QueryAllBatches(orderings...)
}

func (svc *Service) GetBatchByID(id string) (Batch, error) {
	return svc.repo.GetBatchByID(id)
}

// SubmitBatch sends a draft batch to the supplier.
func (svc *Service) SubmitBatch(id string) (Batch, error) {
	b, err := svc.repo.GetBatchByID(id)
	if err != nil {
		return Batch{}, err
	}
	if b.Status != BatchDraft {
		return Batch{}, core.NewValidationError(nil, core.FieldError{
			Field: "status", Error: "only draft batches can be submitted",
		})
	}
	now := nowFunc().UTC()
	b.Status = BatchSubmitted
	b.SubmittedAt = null.TimeFrom(now)
	b.UpdatedAt = now
	return svc.repo.UpdateBatch(b)
}

// FulfillBatch closes a submitted batch and marks its member orders fulfilled.
func (svc *Service) FulfillBatch(id string) (Batch, error) {
	b, err := svc.repo.GetBatchByID(id)
	if err != nil {
		return Batch{}, err
	}
	if b.Status != BatchSubmitted {
		return Batch{}, core.NewValidationError(nil, core.FieldError{
			Field: "status", Error: "only submitted batches can be fulfilled",
		})
	}
	now := nowFunc().UTC()
	b.Status = BatchFulfilled
	b.FulfilledAt = null.TimeFrom(now)
	b.UpdatedAt = now
	b, err = svc.repo.UpdateBatch(b)
	if err != nil {
		return Batch{}, err
	}

	orders, err := svc.repo.FilterOrders(QueryFilter{BatchID: b.ID})
	if err != nil {
		return Batch{}, errors.Wrap(err, "querying batch orders")
	}
	for _, ord := range orders {
		ord.Status = StatusFulfilled
		ord.UpdatedAt = now
		if _, err := svc.repo.UpdateOrder(ord); err != nil {
			return Batch{}, errors.Wrap(err, "marking order fulfilled")
		}
	}
	return b, nil
}

// BatchOrders returns the member orders of a batch.
func (svc *Service) BatchOrders(batchID string) ([]Order, error) {
	return svc.repo.FilterOrders(QueryFilter{BatchID: batchID})
}

// Summarize totals quantities per garment and size; the packing list.
func Summarize(orders []Order) []SummaryLine {
	totals := make(map[[2]string]int, len(orders))
	for _, ord := range orders {
		totals[[2]string{ord.Garment, ord.Size}] += ord.Quantity
	}

	lines := make([]SummaryLine, 0, len(totals))
	for key, qty := range totals {
		lines = append(lines, SummaryLine{Garment: key[0], Size: key[1], Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Garment != lines[j].Garment {
			return lines[i].Garment < lines[j].Garment
		}
		return sizeRank(lines[i].Size) < sizeRank(lines[j].Size)
	})
	return lines
}

func sizeRank(size string) int {
	for i, s := range Sizes {
		if s == size {
			return i
		}
	}
	return len(Sizes)
}
