package database

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/cadenza-app/cadenza/core"
	"github.com/cadenza-app/cadenza/core/event"
)

type eventRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Venue     string    `db:"venue"`
	StartsAt  time.Time `db:"starts_at"`
	EndsAt    time.Time `db:"ends_at"`
	Capacity  int       `db:"capacity"`
	Published bool      `db:"published"`
	Notes     string    `db:"notes"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// rosterJSON maps []event.RosterEntry onto a jsonb column.
type rosterJSON []event.RosterEntry

func (r rosterJSON) Value() (driver.Value, error) {
	if r == nil {
		r = rosterJSON{}
	}
	return json.Marshal(r)
}

func (r *rosterJSON) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return errors.Errorf("unexpected roster type %T", src)
	}
	return json.Unmarshal(b, r)
}

type classRow struct {
	ID         string     `db:"id"`
	EventID    string     `db:"event_id"`
	Name       string     `db:"name"`
	TeacherID  string     `db:"teacher_id"`
	Instrument string     `db:"instrument"`
	Slots      int        `db:"slots"`
	Roster     rosterJSON `db:"roster"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

func (row classRow) toCore() event.Class {
	return event.Class{
		ID:         row.ID,
		EventID:    row.EventID,
		Name:       row.Name,
		TeacherID:  row.TeacherID,
		Instrument: row.Instrument,
		Slots:      row.Slots,
		Roster:     row.Roster,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

var (
	eventColumns = `id, name, venue, starts_at, ends_at, capacity, published, notes, created_at, updated_at`
	classColumns = `id, event_id, name, teacher_id, instrument, slots, roster, created_at, updated_at`

	eventOrderFields = map[string]bool{"name": true, "starts_at": true, "created_at": true}
)

type eventRepository struct {
	db *sqlx.DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *sqlx.DB) event.Repository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(evt event.Event) (event.Event, error) {
	_, err := repo.db.Exec(
		`INSERT INTO event (`+eventColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		evt.ID, evt.Name, evt.Venue, evt.StartsAt, evt.EndsAt, evt.Capacity,
		evt.Published, evt.Notes, evt.CreatedAt, evt.UpdatedAt,
	)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return evt, nil
}

func (repo *eventRepository) queryEvents(q string, args ...interface{}) ([]event.Event, error) {
	var rows []eventRow
	if err := repo.db.Select(&rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, event.Event(row))
	}
	return events, nil
}

func (repo *eventRepository) QueryAllEvents(orderings ...core.DBOrdering) ([]event.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM event` + orderByClause(eventOrderFields, "starts_at ASC", orderings)
	return repo.queryEvents(q)
}

func (repo *eventRepository) GetEventByID(id string) (event.Event, error) {
	var row eventRow
	if err := repo.db.Get(&row, `SELECT `+eventColumns+` FROM event WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, errors.Wrap(err, "querying event")
	}
	return event.Event(row), nil
}

func (repo *eventRepository) FilterEvents(filter event.QueryFilter, orderings ...core.DBOrdering) ([]event.Event, error) {
	where := "TRUE"
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where += fmt.Sprintf(" AND (name ILIKE %[1]s OR venue ILIKE %[1]s)", p)
	}
	if filter.Published != nil {
		where += fmt.Sprintf(" AND published = %s", arg(*filter.Published))
	}
	if !filter.StartFrom.IsZero() {
		where += fmt.Sprintf(" AND starts_at >= %s", arg(filter.StartFrom.UTC()))
	}
	if !filter.StartTo.IsZero() {
		where += fmt.Sprintf(" AND starts_at <= %s", arg(filter.StartTo.UTC()))
	}

	q := `SELECT ` + eventColumns + ` FROM event WHERE ` + where +
		orderByClause(eventOrderFields, "starts_at ASC", orderings)
	return repo.queryEvents(q, args...)
}

func (repo *eventRepository) UpdateEvent(evt event.Event) (event.Event, error) {
	res, err := repo.db.Exec(
		`UPDATE event SET name = $2, venue = $3, starts_at = $4, ends_at = $5, capacity = $6,
			published = $7, notes = $8, updated_at = $9 WHERE id = $1`,
		evt.ID, evt.Name, evt.Venue, evt.StartsAt, evt.EndsAt, evt.Capacity,
		evt.Published, evt.Notes, evt.UpdatedAt,
	)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.Event{}, event.ErrNotFound
	}
	return evt, nil
}

func (repo *eventRepository) DeleteEventsByID(ids ...string) error {
	// classes cascade
	_, err := repo.db.Exec(`DELETE FROM event WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting events")
}

// Classes

func (repo *eventRepository) CreateClass(cls event.Class) (event.Class, error) {
	_, err := repo.db.Exec(
		`INSERT INTO class (`+classColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		cls.ID, cls.EventID, cls.Name, cls.TeacherID, cls.Instrument, cls.Slots,
		rosterJSON(cls.Roster), cls.CreatedAt, cls.UpdatedAt,
	)
	if err != nil {
		return event.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo *eventRepository) GetClassByID(id string) (event.Class, error) {
	var row classRow
	if err := repo.db.Get(&row, `SELECT `+classColumns+` FROM class WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return event.Class{}, event.ErrClassNotFound
		}
		return event.Class{}, errors.Wrap(err, "querying class")
	}
	return row.toCore(), nil
}

func (repo *eventRepository) queryClasses(q string, args ...interface{}) ([]event.Class, error) {
	var rows []classRow
	if err := repo.db.Select(&rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]event.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.toCore())
	}
	return classes, nil
}

func (repo *eventRepository) QueryClassesByEventID(eventID string) ([]event.Class, error) {
	return repo.queryClasses(`SELECT `+classColumns+` FROM class WHERE event_id = $1 ORDER BY created_at ASC`, eventID)
}

func (repo *eventRepository) QueryClassesByTeacherID(teacherID string) ([]event.Class, error) {
	return repo.queryClasses(`SELECT `+classColumns+` FROM class WHERE teacher_id = $1 ORDER BY created_at ASC`, teacherID)
}

func (repo *eventRepository) QueryClassesByParentID(parentID string) ([]event.Class, error) {
	return repo.queryClasses(
		`SELECT `+classColumns+` FROM class
		 WHERE roster @> $1::jsonb ORDER BY created_at ASC`,
		fmt.Sprintf(`[{"parent_id": %q}]`, parentID),
	)
}

func (repo *eventRepository) UpdateClass(cls event.Class) (event.Class, error) {
	res, err := repo.db.Exec(
		`UPDATE class SET name = $2, teacher_id = $3, instrument = $4, slots = $5, roster = $6,
			updated_at = $7 WHERE id = $1`,
		cls.ID, cls.Name, cls.TeacherID, cls.Instrument, cls.Slots,
		rosterJSON(cls.Roster), cls.UpdatedAt,
	)
	if err != nil {
		return event.Class{}, errors.Wrap(err, "updating class")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.Class{}, event.ErrClassNotFound
	}
	return cls, nil
}

func (repo *eventRepository) DeleteClassesByID(ids ...string) error {
	_, err := repo.db.Exec(`DELETE FROM class WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting classes")
}
