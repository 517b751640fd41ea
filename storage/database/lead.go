package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/cadenza-app/cadenza/core"
	"github.com/cadenza-app/cadenza/core/lead"
)

type leadRow struct {
	ID         string      `db:"id"`
	ParentName string      `db:"parent_name"`
	Email      string      `db:"email"`
	Phone      string      `db:"phone"`
	ChildName  string      `db:"child_name"`
	Instrument string      `db:"instrument"`
	Note       string      `db:"note"`
	Status     string      `db:"status"`
	AssigneeID null.String `db:"assignee_id"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func (row leadRow) toCore() lead.Lead {
	return lead.Lead(row)
}

var leadColumns = `id, parent_name, email, phone, child_name, instrument, note, status, assignee_id, created_at, updated_at`

var leadOrderFields = map[string]bool{"parent_name": true, "status": true, "created_at": true}

type leadRepository struct {
	db *sqlx.DB
}

var _ lead.Repository = (*leadRepository)(nil) // interface compliance check

func NewLeadRepository(db *sqlx.DB) lead.Repository {
	return &leadRepository{db: db}
}

func (repo *leadRepository) CreateLead(ld lead.Lead) (lead.Lead, error) {
	_, err := repo.db.Exec(
		`INSERT INTO lead (`+leadColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		ld.ID, ld.ParentName, ld.Email, ld.Phone, ld.ChildName, ld.Instrument, ld.Note,
		ld.Status, ld.AssigneeID, ld.CreatedAt, ld.UpdatedAt,
	)
	if err != nil {
		return lead.Lead{}, errors.Wrap(err, "inserting lead")
	}
	return ld, nil
}

func (repo *leadRepository) queryRows(q string, args ...interface{}) ([]lead.Lead, error) {
	var rows []leadRow
	if err := repo.db.Select(&rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying leads")
	}
	leads := make([]lead.Lead, 0, len(rows))
	for _, row := range rows {
		leads = append(leads, row.toCore())
	}
	return leads, nil
}

func (repo *leadRepository) QueryAllLeads(orderings ...core.DBOrdering) ([]lead.Lead, error) {
	q := `SELECT ` + leadColumns + ` FROM lead` + orderByClause(leadOrderFields, "created_at ASC", orderings)
	return repo.queryRows(q)
}

func (repo *leadRepository) GetLeadByID(id string) (lead.Lead, error) {
	var row leadRow
	if err := repo.db.Get(&row, `SELECT `+leadColumns+` FROM lead WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return lead.Lead{}, lead.ErrNotFound
		}
		return lead.Lead{}, errors.Wrap(err, "querying lead")
	}
	return row.toCore(), nil
}

func (repo *leadRepository) FilterLeads(filter lead.QueryFilter, orderings ...core.DBOrdering) ([]lead.Lead, error) {
	where := "TRUE"
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where += fmt.Sprintf(" AND (parent_name ILIKE %[1]s OR child_name ILIKE %[1]s OR email ILIKE %[1]s)", p)
	}
	if len(filter.Statuses) > 0 {
		where += fmt.Sprintf(" AND status = ANY(%s)", arg(pq.Array(filter.Statuses)))
	}
	if filter.AssigneeID != "" {
		where += fmt.Sprintf(" AND assignee_id = %s", arg(filter.AssigneeID))
	}
	if !filter.CreatedFrom.IsZero() {
		where += fmt.Sprintf(" AND created_at >= %s", arg(filter.CreatedFrom.UTC()))
	}
	if !filter.CreatedTo.IsZero() {
		where += fmt.Sprintf(" AND created_at <= %s", arg(filter.CreatedTo.UTC()))
	}

	q := `SELECT ` + leadColumns + ` FROM lead WHERE ` + where +
		orderByClause(leadOrderFields, "created_at ASC", orderings)
	return repo.queryRows(q, args...)
}

func (repo *leadRepository) UpdateLead(ld lead.Lead) (lead.Lead, error) {
	res, err := repo.db.Exec(
		`UPDATE lead SET parent_name = $2, email = $3, phone = $4, child_name = $5, instrument = $6,
			note = $7, status = $8, assignee_id = $9, updated_at = $10 WHERE id = $1`,
		ld.ID, ld.ParentName, ld.Email, ld.Phone, ld.ChildName, ld.Instrument,
		ld.Note, ld.Status, ld.AssigneeID, ld.UpdatedAt,
	)
	if err != nil {
		return lead.Lead{}, errors.Wrap(err, "updating lead")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return lead.Lead{}, lead.ErrNotFound
	}
	return ld, nil
}

func (repo *leadRepository) DeleteLeadsByID(ids ...string) error {
	_, err := repo.db.Exec(`DELETE FROM lead WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting leads")
}
