package database

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/cadenza-app/cadenza/core"
	"github.com/cadenza-app/cadenza/core/task"
)

// doneByJSON maps the per-user completion map onto a jsonb column.
type doneByJSON map[string]time.Time

func (d doneByJSON) Value() (driver.Value, error) {
	if d == nil {
		d = doneByJSON{}
	}
	return json.Marshal(d)
}

func (d *doneByJSON) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return errors.Errorf("unexpected done_by type %T", src)
	}
	return json.Unmarshal(b, d)
}

type taskRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Body        string         `db:"body"`
	Audience    pq.StringArray `db:"audience"`
	VisibleFrom time.Time      `db:"visible_from"`
	DueAt       time.Time      `db:"due_at"`
	Grace       int64          `db:"grace"` // nanoseconds
	DoneBy      doneByJSON     `db:"done_by"`
	CreatedBy   string         `db:"created_by"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (row taskRow) toCore() task.Task {
	return task.Task{
		ID:          row.ID,
		Title:       row.Title,
		Body:        row.Body,
		Audience:    row.Audience,
		VisibleFrom: row.VisibleFrom,
		DueAt:       row.DueAt,
		Grace:       time.Duration(row.Grace),
		DoneBy:      row.DoneBy,
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

var taskColumns = `id, title, body, audience, visible_from, due_at, grace, done_by, created_by, created_at, updated_at`

var taskOrderFields = map[string]bool{"due_at": true, "visible_from": true, "created_at": true}

type taskRepository struct {
	db *sqlx.DB
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *sqlx.DB) task.Repository {
	return &taskRepository{db: db}
}

func (repo *taskRepository) CreateTask(t task.Task) (task.Task, error) {
	_, err := repo.db.Exec(
		`INSERT INTO task (`+taskColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.Title, t.Body, pq.Array(t.Audience), t.VisibleFrom, t.DueAt,
		int64(t.Grace), doneByJSON(t.DoneBy), t.CreatedBy, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return task.Task{}, errors.Wrap(err, "inserting task")
	}
	return t, nil
}

func (repo *taskRepository) GetTaskByID(id string) (task.Task, error) {
	var row taskRow
	if err := repo.db.Get(&row, `SELECT `+taskColumns+` FROM task WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, errors.Wrap(err, "querying task")
	}
	return row.toCore(), nil
}

func (repo *taskRepository) QueryAllTasks(orderings ...core.DBOrdering) ([]task.Task, error) {
	var rows []taskRow
	q := `SELECT ` + taskColumns + ` FROM task` + orderByClause(taskOrderFields, "created_at ASC", orderings)
	if err := repo.db.Select(&rows, q); err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	tasks := make([]task.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toCore())
	}
	return tasks, nil
}

func (repo *taskRepository) UpdateTask(t task.Task) (task.Task, error) {
	res, err := repo.db.Exec(
		`UPDATE task SET title = $2, body = $3, audience = $4, visible_from = $5, due_at = $6,
			grace = $7, done_by = $8, updated_at = $9 WHERE id = $1`,
		t.ID, t.Title, t.Body, pq.Array(t.Audience), t.VisibleFrom, t.DueAt,
		int64(t.Grace), doneByJSON(t.DoneBy), t.UpdatedAt,
	)
	if err != nil {
		return task.Task{}, errors.Wrap(err, "updating task")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return task.Task{}, task.ErrNotFound
	}
	return t, nil
}

func (repo *taskRepository) DeleteTasksByID(ids ...string) error {
	_, err := repo.db.Exec(`DELETE FROM task WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting tasks")
}
