package task

import (
	"strings"
	"time"

	"github.com/cadenza-app/cadenza/core"
)

// Task is a unit of admin-assigned work shown on the portals during its
// visibility window.
type Task struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Body        string               `json:"body"`
	Audience    []string             `json:"audience"`     // role prefixes, e.g. "teacher:"
	VisibleFrom time.Time            `json:"visible_from"` // UTC
	DueAt       time.Time            `json:"due_at"`       // UTC
	Grace       time.Duration        `json:"grace"`        // stays visible for this long past DueAt
	DoneBy      map[string]time.Time `json:"done_by"`      // user ID -> completed at (UTC)
	CreatedBy   string               `json:"created_by"`
	CreatedAt   time.Time            `json:"created_at"` // UTC
	UpdatedAt   time.Time            `json:"updated_at"` // UTC
}

// AudienceMatches reports whether any of the user's roles falls under any of
// the task's audience role prefixes.
func (t *Task) AudienceMatches(roles []string) bool {
	if len(t.Audience) == 0 {
		return true
	}
	for _, aud := range t.Audience {
		for _, role := range roles {
			if strings.HasPrefix(role, aud) {
				return true
			}
		}
	}
	return false
}

// VisibleAt reports whether the task is inside its visibility window for a
// user holding the given roles. Visibility is a pure function of
// (task, roles, now): VisibleFrom <= now < DueAt+Grace.
func (t *Task) VisibleAt(now time.Time, roles []string) bool {
	if !t.AudienceMatches(roles) {
		return false
	}
	if now.Before(t.VisibleFrom) {
		return false
	}
	return now.Before(t.DueAt.Add(t.Grace))
}

// DoneByUser reports whether the user has completed the task.
func (t *Task) DoneByUser(userID string) bool {
	_, ok := t.DoneBy[userID]
	return ok
}

// PendingFor reports whether the task is visible to the user and not yet
// completed by them.
func (t *Task) PendingFor(now time.Time, userID string, roles []string) bool {
	return t.VisibleAt(now, roles) && !t.DoneByUser(userID)
}

// OverdueFor reports whether the task is past due but still inside its grace
// window, and not completed by the user.
func (t *Task) OverdueFor(now time.Time, userID string) bool {
	if t.DoneByUser(userID) {
		return false
	}
	return now.After(t.DueAt) && now.Before(t.DueAt.Add(t.Grace))
}

// NewTask contains information needed to create a new Task.
type NewTask struct {
	Title        string    `json:"title" validate:"required"`
	Body         string    `json:"body"`
	Audience     []string  `json:"audience" validate:"omitempty,allroles"`
	VisibleFrom  time.Time `json:"visible_from" validate:"required"`
	DueAt        time.Time `json:"due_at" validate:"required,gtfield=VisibleFrom"`
	GraceMinutes int       `json:"grace_minutes" validate:"omitempty,min=0"`
}

func (nt *NewTask) Validate() error {
	nt.Title = core.CleanString(nt.Title)
	nt.Body = core.CleanString(nt.Body)
	return core.Validate.Struct(nt)
}

// UpdateTask defines what information may be provided to modify an existing Task.
type UpdateTask struct {
	Title        string     `json:"title"`
	Body         *string    `json:"body"`
	Audience     []string   `json:"audience" validate:"omitempty,allroles"`
	VisibleFrom  *time.Time `json:"visible_from"`
	DueAt        *time.Time `json:"due_at"`
	GraceMinutes *int       `json:"grace_minutes" validate:"omitempty,min=0"`
}

func (ut *UpdateTask) Validate(orig Task) error {
	ut.Title = core.CleanString(ut.Title)
	if err := core.Validate.Struct(ut); err != nil {
		return err
	}

	visibleFrom, dueAt := orig.VisibleFrom, orig.DueAt
	if ut.VisibleFrom != nil {
		visibleFrom = *ut.VisibleFrom
	}
	if ut.DueAt != nil {
		dueAt = *ut.DueAt
	}
	if !dueAt.After(visibleFrom) {
		return core.NewValidationError(nil, core.FieldError{Field: "due_at", Error: "must be after visible_from"})
	}
	return nil
}

// Counts summarizes a user's task lists for the portal badges.
type Counts struct {
	Visible int `json:"visible"`
	Pending int `json:"pending"`
	Overdue int `json:"overdue"`
}
