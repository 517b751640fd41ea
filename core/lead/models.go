package lead

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/cadenza-app/cadenza/core"
)

// Statuses a Lead moves through. Once a lead is enrolled or closed it can
// never return to StatusNew.
const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusEnrolled  = "enrolled"
	StatusClosed    = "closed"
)

var (
	AllStatuses = []string{StatusNew, StatusContacted, StatusEnrolled, StatusClosed}

	statusTransitions = map[string][]string{
		StatusNew:       {StatusContacted, StatusClosed},
		StatusContacted: {StatusEnrolled, StatusClosed},
		StatusEnrolled:  {StatusClosed},
		StatusClosed:    {StatusContacted}, // reopen
	}
)

// CanTransition reports whether a lead may move from one status to another.
// A no-op transition is always allowed.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Lead is a prospective family enquiring about music events and classes.
type Lead struct {
	ID         string      `json:"id"`
	ParentName string      `json:"parent_name"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone"`
	ChildName  string      `json:"child_name"`
	Instrument string      `json:"instrument"`
	Note       string      `json:"note"`
	Status     string      `json:"status"`
	AssigneeID null.String `json:"assignee_id"`
	CreatedAt  time.Time   `json:"created_at"` // UTC
	UpdatedAt  time.Time   `json:"updated_at"` // UTC
}

// NewLead contains the information a family submits through the public enquiry form.
type NewLead struct {
	ParentName string `json:"parent_name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone"`
	ChildName  string `json:"child_name" validate:"required"`
	Instrument string `json:"instrument"`
	Note       string `json:"note"`
}

func (nl *NewLead) Validate() error {
	nl.ParentName = core.CleanString(nl.ParentName)
	nl.Email = core.CleanString(nl.Email, true /* lower */)
	nl.Phone = core.CleanString(nl.Phone)
	nl.ChildName = core.CleanString(nl.ChildName)
	nl.Instrument = core.CleanString(nl.Instrument)
	nl.Note = core.CleanString(nl.Note)
	return core.Validate.Struct(nl)
}

// UpdateLead defines what staff may modify on an existing Lead.
type UpdateLead struct {
	Status     string  `json:"status" validate:"omitempty,leadstatus"`
	AssigneeID *string `json:"assignee_id"`
	Note       string  `json:"note"`
}

func (ul *UpdateLead) Validate(orig Lead) error {
	ul.Note = core.CleanString(ul.Note)
	if err := core.Validate.Struct(ul); err != nil {
		return err
	}
	if ul.Status != "" && !CanTransition(orig.Status, ul.Status) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "status",
			Error: "cannot move lead from " + orig.Status + " to " + ul.Status,
		})
	}
	return nil
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Statuses    []string  `query:"status"`
	AssigneeID  string    `query:"assignee_id"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Statuses == nil && qf.AssigneeID == "" &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
