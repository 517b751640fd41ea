package task

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/cadenza-app/cadenza/core"
	"github.com/cadenza-app/cadenza/core/user"
)

var (
	// errors
	ErrNotFound   = errors.New("task not found")
	ErrNotVisible = errors.New("task is not visible to you")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateTask(t Task) (Task, error)
		GetTaskByID(id string) (Task, error)
		QueryAllTasks(orderings ...core.DBOrdering) ([]Task, error)
		UpdateTask(t Task) (Task, error)
		DeleteTasksByID(ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(createdBy string, nt NewTask) (Task, error) {
	now := nowFunc().UTC()
	t := Task{
		ID:          uuid.New().String(),
		Title:       nt.Title,
		Body:        nt.Body,
		Audience:    nt.Audience,
		VisibleFrom: nt.VisibleFrom.UTC(),
		DueAt:       nt.DueAt.UTC(),
		Grace:       time.Duration(nt.GraceMinutes) * time.Minute,
		DoneBy:      make(map[string]time.Time),
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateTask(t)
}

func (svc *Service) Query(orderings ...core.DBOrdering) ([]Task, error) {
	return svc.repo.QueryAllTasks(orderings...)
}

func (svc *Service) GetByID(id string) (Task, error) {
	return svc.repo.GetTaskByID(id)
}

func (svc *Service) Update(id string, ut UpdateTask) (Task, error) {
	t, err := svc.repo.GetTaskByID(id)
	if err != nil {
		return Task{}, err
	}
	if ut.Title != "" {
		t.Title = ut.Title
	}
	if ut.Body != nil {
		t.Body = core.CleanString(*ut.Body)
	}
	if ut.Audience != nil {
		t.Audience = ut.Audience
	}
	if ut.VisibleFrom != nil {
		t.VisibleFrom = ut.VisibleFrom.UTC()
	}
	if ut.DueAt != nil {
		t.DueAt = ut.DueAt.UTC()
	}
	if ut.GraceMinutes != nil {
		t.Grace = time.Duration(*ut.GraceMinutes) * time.Minute
	}
	t.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateTask(t)
}

func (svc *Service) Delete(ids ...string) error {
	return svc.repo.DeleteTasksByID(ids...)
}

// VisibleForUser returns the tasks currently inside their visibility window
// for the user, completed or not.
func (svc *Service) VisibleForUser(usr user.User) ([]Task, error) {
	all, err := svc.repo.QueryAllTasks(core.DBOrdering{Field: "due_at", Ascending: true})
	if err != nil {
		return nil, err
	}
	now := nowFunc().UTC()
	visible := make([]Task, 0, len(all))
	for _, t := range all {
		if t.VisibleAt(now, usr.Roles) {
			visible = append(visible, t)
		}
	}
	return visible, nil
}

// PendingForUser returns the visible tasks the user has not completed yet.
func (svc *Service) PendingForUser(usr user.User) ([]Task, error) {
	visible, err := svc.VisibleForUser(usr)
	if err != nil {
		return nil, err
	}
	pending := make([]Task, 0, len(visible))
	for _, t := range visible {
		if !t.DoneByUser(usr.ID) {
			pending = append(pending, t)
		}
	}
	return pending, nil
}

// CountsForUser returns the badge counts for the user's portal.
func (svc *Service) CountsForUser(usr user.User) (Counts, error) {
	visible, err := svc.VisibleForUser(usr)
	if err != nil {
		return Counts{}, err
	}
	now := nowFunc().UTC()
	counts := Counts{Visible: len(visible)}
	for _, t := range visible {
		if !t.DoneByUser(usr.ID) {
			counts.Pending++
		}
		if t.OverdueFor(now, usr.ID) {
			counts.Overdue++
		}
	}
	return counts, nil
}

// Complete marks the task done for the user. The task must be visible to them.
func (svc *Service) Complete(id string, usr user.User) (Task, error) {
	t, err := svc.repo.GetTaskByID(id)
	if err != nil {
		return Task{}, err
	}
	now := nowFunc().UTC()
	if !t.VisibleAt(now, usr.Roles) {
		return Task{}, core.NewValidationError(ErrNotVisible)
	}
	if t.DoneByUser(usr.ID) {
		return t, nil
	}
	if t.DoneBy == nil {
		t.DoneBy = make(map[string]time.Time)
	}
	t.DoneBy[usr.ID] = now
	t.UpdatedAt = now
	return svc.repo.UpdateTask(t)
}

// Uncomplete clears the user's completion mark on the task.
func (svc *Service) Uncomplete(id string, usr user.User) (Task, error) {
	t, err := svc.repo.GetTaskByID(id)
	if err != nil {
		return Task{}, err
	}
	if !t.DoneByUser(usr.ID) {
		return t, nil
	}
	delete(t.DoneBy, usr.ID)
	t.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateTask(t)
}
