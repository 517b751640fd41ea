package event

import (
	"time"

	"github.com/cadenza-app/cadenza/core"
)

// Event is a school music event (concert, recital, workshop).
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Venue     string    `json:"venue"`
	StartsAt  time.Time `json:"starts_at"` // UTC
	EndsAt    time.Time `json:"ends_at"`   // UTC
	Capacity  int       `json:"capacity"`
	Published bool      `json:"published"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Class is a rehearsal/performance group within an Event, led by one teacher.
type Class struct {
	ID         string        `json:"id"`
	EventID    string        `json:"event_id"`
	Name       string        `json:"name"`
	TeacherID  string        `json:"teacher_id"`
	Instrument string        `json:"instrument"`
	Slots      int           `json:"slots"`
	Roster     []RosterEntry `json:"roster"`
	CreatedAt  time.Time     `json:"created_at"` // UTC
	UpdatedAt  time.Time     `json:"updated_at"` // UTC
}

// RosterEntry is one child signed up for a Class by their parent.
type RosterEntry struct {
	StudentName string    `json:"student_name"`
	ParentID    string    `json:"parent_id"`
	AddedAt     time.Time `json:"added_at"` // UTC
}

// HasStudent reports whether the roster already holds this parent's child.
func (c *Class) HasStudent(studentName, parentID string) bool {
	for _, entry := range c.Roster {
		if entry.StudentName == studentName && entry.ParentID == parentID {
			return true
		}
	}
	return false
}

// NewEvent contains information needed to create a new Event.
type NewEvent struct {
	Name     string    `json:"name" validate:"required"`
	Venue    string    `json:"venue" validate:"required"`
	StartsAt time.Time `json:"starts_at" validate:"required"`
	EndsAt   time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Capacity int       `json:"capacity" validate:"required,min=1"`
	Notes    string    `json:"notes"`
}

func (ne *NewEvent) Validate() error {
	ne.Name = core.CleanString(ne.Name)
	ne.Venue = core.CleanString(ne.Venue)
	ne.Notes = core.CleanString(ne.Notes)
	return core.Validate.Struct(ne)
}

// UpdateEvent defines what information may be provided to modify an existing Event.
type UpdateEvent struct {
	Name      string     `json:"name"`
	Venue     string     `json:"venue"`
	StartsAt  *time.Time `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at"`
	Capacity  *int       `json:"capacity" validate:"omitempty,min=1"`
	Published *bool      `json:"published"`
	Notes     *string    `json:"notes"`
}

func (ue *UpdateEvent) Validate(orig Event) error {
	ue.Name = core.CleanString(ue.Name)
	ue.Venue = core.CleanString(ue.Venue)
	if err := core.Validate.Struct(ue); err != nil {
		return err
	}

	starts, ends := orig.StartsAt, orig.EndsAt
	if ue.StartsAt != nil {
		starts = *ue.StartsAt
	}
	if ue.EndsAt != nil {
		ends = *ue.EndsAt
	}
	if !ends.After(starts) {
		return core.NewValidationError(nil, core.FieldError{Field: "ends_at", Error: "must be after starts_at"})
	}
	return nil
}

// NewClass contains information needed to create a new Class within an Event.
type NewClass struct {
	Name       string `json:"name" validate:"required"`
	TeacherID  string `json:"teacher_id" validate:"required"`
	Instrument string `json:"instrument"`
	Slots      int    `json:"slots" validate:"required,min=1"`
}

func (nc *NewClass) Validate(evt Event) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Instrument = core.CleanString(nc.Instrument)
	if err := core.Validate.Struct(nc); err != nil {
		return err
	}
	if nc.Slots > evt.Capacity {
		return core.NewValidationError(nil, core.FieldError{Field: "slots", Error: "cannot exceed event capacity"})
	}
	return nil
}

// UpdateClass defines what information may be provided to modify an existing Class.
type UpdateClass struct {
	Name       string `json:"name"`
	TeacherID  string `json:"teacher_id"`
	Instrument string `json:"instrument"`
	Slots      *int   `json:"slots" validate:"omitempty,min=1"`
}

func (uc *UpdateClass) Validate(orig Class, evt Event) error {
	uc.Name = core.CleanString(uc.Name)
	uc.Instrument = core.CleanString(uc.Instrument)
	if err := core.Validate.Struct(uc); err != nil {
		return err
	}
	if uc.Slots != nil {
		if *uc.Slots > evt.Capacity {
			return core.NewValidationError(nil, core.FieldError{Field: "slots", Error: "cannot exceed event capacity"})
		}
		if *uc.Slots < len(orig.Roster) {
			return core.NewValidationError(nil, core.FieldError{Field: "slots", Error: "cannot shrink below current roster size"})
		}
	}
	return nil
}

// NewRosterEntry contains information needed to sign a child up for a Class.
type NewRosterEntry struct {
	StudentName string `json:"student_name" validate:"required"`
	ParentID    string `json:"parent_id" validate:"required"`
}

func (nr *NewRosterEntry) Validate() error {
	nr.StudentName = core.CleanString(nr.StudentName)
	return core.Validate.Struct(nr)
}

type QueryFilter struct {
	Search    string    `query:"search"`
	Published *bool     `query:"published"`
	StartFrom time.Time `query:"start_from"`
	StartTo   time.Time `query:"start_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Published == nil && qf.StartFrom.IsZero() && qf.StartTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
