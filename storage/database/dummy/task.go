package dummydb

import (
	"sort"
	"time"

	"github.com/cadenza-app/cadenza/core"
	"github.com/cadenza-app/cadenza/core/task"
)

type taskRepository struct {
	db *taskTable
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *DB) task.Repository {
	return &taskRepository{db: db.task}
}

// copyTask deep-copies the DoneBy map so callers never share it with the table.
func copyTask(t *task.Task) task.Task {
	cp := *t
	cp.DoneBy = make(map[string]time.Time, len(t.DoneBy))
	for id, at := range t.DoneBy {
		cp.DoneBy[id] = at
	}
	return cp
}

func (repo *taskRepository) CreateTask(t task.Task) (task.Task, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored := copyTask(&t)
	repo.db.table[t.ID] = &stored
	return t, nil
}

func (repo *taskRepository) GetTaskByID(id string) (task.Task, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.table[id]; ok {
		return copyTask(t), nil
	}
	return task.Task{}, task.ErrNotFound
}

func (repo *taskRepository) QueryAllTasks(orderings ...core.DBOrdering) ([]task.Task, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tasks := make([]task.Task, 0, len(repo.db.table))
	for _, t := range repo.db.table {
		tasks = append(tasks, copyTask(t))
	}

	ord := core.DBOrdering{Field: "created_at", Ascending: true}
	if len(orderings) > 0 {
		ord = orderings[0]
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		var less bool
		switch ord.Field {
		case "due_at":
			less = tasks[i].DueAt.Before(tasks[j].DueAt)
		case "visible_from":
			less = tasks[i].VisibleFrom.Before(tasks[j].VisibleFrom)
		default:
			less = tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		if !ord.Ascending {
			return !less
		}
		return less
	})
	return tasks, nil
}

func (repo *taskRepository) UpdateTask(t task.Task) (task.Task, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[t.ID]; !ok {
		return task.Task{}, task.ErrNotFound
	}
	stored := copyTask(&t)
	repo.db.table[t.ID] = &stored
	return t, nil
}

func (repo *taskRepository) DeleteTasksByID(ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
