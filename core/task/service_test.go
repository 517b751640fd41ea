package task

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadenza-app/cadenza/core"
	"github.com/cadenza-app/cadenza/core/user"
)

type memRepo struct {
	table map[string]*Task
}

func newMemRepo() *memRepo { return &memRepo{table: make(map[string]*Task)} }

func (m *memRepo) CreateTask(t Task) (Task, error) {
	m.table[t.ID] = &t
	return t, nil
}

func (m *memRepo) GetTaskByID(id string) (Task, error) {
	if t, ok := m.table[id]; ok {
		return *t, nil
	}
	return Task{}, ErrNotFound
}

func (m *memRepo) QueryAllTasks(orderings ...core.DBOrdering) ([]Task, error) {
	tasks := make([]Task, 0, len(m.table))
	for _, t := range m.table {
		tasks = append(tasks, *t)
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].DueAt.Before(tasks[j].DueAt) })
	return tasks, nil
}

func (m *memRepo) UpdateTask(t Task) (Task, error) {
	if _, ok := m.table[t.ID]; !ok {
		return Task{}, ErrNotFound
	}
	m.table[t.ID] = &t
	return t, nil
}

func (m *memRepo) DeleteTasksByID(ids ...string) error {
	for _, id := range ids {
		delete(m.table, id)
	}
	return nil
}

func mockNow(t *testing.T, at time.Time) {
	t.Helper()
	orig := nowFunc
	nowFunc = func() time.Time { return at }
	t.Cleanup(func() { nowFunc = orig })
}

func TestServiceVisibilityLists(t *testing.T) {
	svc := NewService(newMemRepo())
	base := time.Date(2021, 5, 10, 9, 0, 0, 0, time.UTC)
	mockNow(t, base)

	mkTask := func(title string, audience []string, visibleFrom, dueAt time.Time, grace int) Task {
		tsk, err := svc.Create("admin1", NewTask{
			Title:        title,
			Audience:     audience,
			VisibleFrom:  visibleFrom,
			DueAt:        dueAt,
			GraceMinutes: grace,
		})
		require.NoError(t, err)
		return tsk
	}

	teachers := []string{user.RoleTeacher}
	current := mkTask("Hand in programmes", teachers, base.Add(-time.Hour), base.Add(24*time.Hour), 0)
	mkTask("Not yet visible", teachers, base.Add(time.Hour), base.Add(48*time.Hour), 0)
	mkTask("Long gone", teachers, base.Add(-72*time.Hour), base.Add(-48*time.Hour), 0)
	mkTask("Parents only", []string{user.RoleParent}, base.Add(-time.Hour), base.Add(24*time.Hour), 0)

	teacher := user.User{ID: "u1", Roles: teachers}

	visible, err := svc.VisibleForUser(teacher)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, current.ID, visible[0].ID)

	pending, err := svc.PendingForUser(teacher)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	t.Run("completing removes from pending but not visible", func(t *testing.T) {
		_, err := svc.Complete(current.ID, teacher)
		require.NoError(t, err)

		pending, err := svc.PendingForUser(teacher)
		require.NoError(t, err)
		assert.Empty(t, pending)

		visible, err := svc.VisibleForUser(teacher)
		require.NoError(t, err)
		assert.Len(t, visible, 1)
	})

	t.Run("uncomplete restores pending", func(t *testing.T) {
		_, err := svc.Uncomplete(current.ID, teacher)
		require.NoError(t, err)

		pending, err := svc.PendingForUser(teacher)
		require.NoError(t, err)
		assert.Len(t, pending, 1)
	})
}

func TestServiceComplete(t *testing.T) {
	svc := NewService(newMemRepo())
	base := time.Date(2021, 5, 10, 9, 0, 0, 0, time.UTC)
	mockNow(t, base)

	tsk, err := svc.Create("admin1", NewTask{
		Title:       "Collect order forms",
		Audience:    []string{user.RoleTeacher},
		VisibleFrom: base.Add(-time.Hour),
		DueAt:       base.Add(time.Hour),
	})
	require.NoError(t, err)

	teacher := user.User{ID: "u1", Roles: []string{user.RoleTeacher}}
	parent := user.User{ID: "u2", Roles: []string{user.RoleParent}}

	t.Run("invisible task cannot be completed", func(t *testing.T) {
		_, err := svc.Complete(tsk.ID, parent)
		assert.Error(t, err)
	})

	t.Run("completion is per user and idempotent", func(t *testing.T) {
		done, err := svc.Complete(tsk.ID, teacher)
		require.NoError(t, err)
		firstAt := done.DoneBy[teacher.ID]

		mockNow(t, base.Add(time.Minute))
		done, err = svc.Complete(tsk.ID, teacher)
		require.NoError(t, err)
		assert.Equal(t, firstAt, done.DoneBy[teacher.ID])
	})
}

func TestServiceCounts(t *testing.T) {
	svc := NewService(newMemRepo())
	base := time.Date(2021, 5, 10, 9, 0, 0, 0, time.UTC)
	mockNow(t, base)

	// due in an hour
	_, err := svc.Create("admin1", NewTask{
		Title:       "Due soon",
		VisibleFrom: base.Add(-time.Hour),
		DueAt:       base.Add(time.Hour),
	})
	require.NoError(t, err)

	// past due, inside its grace window
	overdue, err := svc.Create("admin1", NewTask{
		Title:        "Past due",
		VisibleFrom:  base.Add(-48 * time.Hour),
		DueAt:        base.Add(-time.Hour),
		GraceMinutes: 120,
	})
	require.NoError(t, err)

	teacher := user.User{ID: "u1", Roles: []string{user.RoleTeacher}}

	counts, err := svc.CountsForUser(teacher)
	require.NoError(t, err)
	assert.Equal(t, Counts{Visible: 2, Pending: 2, Overdue: 1}, counts)

	_, err = svc.Complete(overdue.ID, teacher)
	require.NoError(t, err)

	counts, err = svc.CountsForUser(teacher)
	require.NoError(t, err)
	assert.Equal(t, Counts{Visible: 2, Pending: 1, Overdue: 0}, counts)
}
