package order

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/cadenza-app/cadenza/core"
)

// Order statuses. An order leaves `open` the moment a batch picks it up and
// can never be edited again.
const (
	StatusOpen      = "open"
	StatusBatched   = "batched"
	StatusFulfilled = "fulfilled"
)

// Batch statuses.
const (
	BatchDraft     = "draft"
	BatchSubmitted = "submitted"
	BatchFulfilled = "fulfilled"
)

// Garments and sizes offered on the order form.
var (
	Garments = []string{"polo", "tshirt", "hoodie", "blazer"}
	Sizes    = []string{"XS", "S", "M", "L", "XL", "XXL"}
)

// Order is a teacher-submitted clothing order for one of their students.
type Order struct {
	ID          string      `json:"id"`
	TeacherID   string      `json:"teacher_id"`
	ClassID     string      `json:"class_id"`
	StudentName string      `json:"student_name"`
	Garment     string      `json:"garment"`
	Size        string      `json:"size"`
	Quantity    int         `json:"quantity"`
	Note        string      `json:"note"`
	Status      string      `json:"status"`
	BatchID     null.String `json:"batch_id"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
	UpdatedAt   time.Time   `json:"updated_at"` // UTC
}

// Editable reports whether the order may still be changed by its teacher.
func (o *Order) Editable() bool { return o.Status == StatusOpen }

// Batch groups the orders that were open at its cutoff into one supplier run.
type Batch struct {
	ID          string    `json:"id"`
	Number      int       `json:"number"`
	Status      string    `json:"status"`
	Cutoff      time.Time `json:"cutoff"` // UTC; only orders created before it are included
	OrderIDs    []string  `json:"order_ids"`
	SubmittedAt null.Time `json:"submitted_at"`
	FulfilledAt null.Time `json:"fulfilled_at"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// SummaryLine is one row of a batch packing list: total quantity per
// garment and size.
type SummaryLine struct {
	Garment  string `json:"garment"`
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

// NewOrder contains information needed to create a new Order.
type NewOrder struct {
	ClassID     string `json:"class_id" validate:"required"`
	StudentName string `json:"student_name" validate:"required"`
	Garment     string `json:"garment" validate:"required,oneof=polo tshirt hoodie blazer"`
	Size        string `json:"size" validate:"required,oneof=XS S M L XL XXL"`
	Quantity    int    `json:"quantity" validate:"required,min=1,max=10"`
	Note        string `json:"note"`
}

func (no *NewOrder) Validate() error {
	no.StudentName = core.CleanString(no.StudentName)
	no.Note = core.CleanString(no.Note)
	return core.Validate.Struct(no)
}

// UpdateOrder defines what a teacher may modify on an order that is still open.
type UpdateOrder struct {
	StudentName string `json:"student_name"`
	Garment     string `json:"garment" validate:"omitempty,oneof=polo tshirt hoodie blazer"`
	Size        string `json:"size" validate:"omitempty,oneof=XS S M L XL XXL"`
	Quantity    *int   `json:"quantity" validate:"omitempty,min=1,max=10"`
	Note        *string `json:"note"`
}

func (uo *UpdateOrder) Validate() error {
	uo.StudentName = core.CleanString(uo.StudentName)
	return core.Validate.Struct(uo)
}

// QueryFilter fields combine with AND. CreatedTo is exclusive: only orders
// created strictly before it match, so a batch cutoff never swallows orders
// placed at the cutoff instant.
type QueryFilter struct {
	TeacherID   string    `query:"teacher_id"`
	ClassID     string    `query:"class_id"`
	Statuses    []string  `query:"status"`
	BatchID     string    `query:"batch_id"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.TeacherID == "" && qf.ClassID == "" && qf.Statuses == nil && qf.BatchID == "" &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}
