package database

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/cadenza-app/cadenza/core"
	"github.com/cadenza-app/cadenza/core/resource"
)

type resourceRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Filename    string    `db:"filename"`
	Path        string    `db:"path"`
	ContentType string    `db:"content_type"`
	Size        int64     `db:"size"`
	UploadedBy  string    `db:"uploaded_by"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

var resourceColumns = `id, title, description, filename, path, content_type, size, uploaded_by, created_at, updated_at`

var resourceOrderFields = map[string]bool{"title": true, "created_at": true}

type resourceRepository struct {
	db *sqlx.DB
}

var _ resource.Repository = (*resourceRepository)(nil) // interface compliance check

func NewResourceRepository(db *sqlx.DB) resource.Repository {
	return &resourceRepository{db: db}
}

func (repo *resourceRepository) CreateResource(res resource.Resource) (resource.Resource, error) {
	_, err := repo.db.Exec(
		`INSERT INTO resource (`+resourceColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		res.ID, res.Title, res.Description, res.Filename, res.Path, res.ContentType,
		res.Size, res.UploadedBy, res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return resource.Resource{}, errors.Wrap(err, "inserting resource")
	}
	return res, nil
}

func (repo *resourceRepository) GetResourceByID(id string) (resource.Resource, error) {
	var row resourceRow
	if err := repo.db.Get(&row, `SELECT `+resourceColumns+` FROM resource WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return resource.Resource{}, resource.ErrNotFound
		}
		return resource.Resource{}, errors.Wrap(err, "querying resource")
	}
	return resource.Resource(row), nil
}

func (repo *resourceRepository) QueryAllResources(orderings ...core.DBOrdering) ([]resource.Resource, error) {
	var rows []resourceRow
	q := `SELECT ` + resourceColumns + ` FROM resource` + orderByClause(resourceOrderFields, "created_at ASC", orderings)
	if err := repo.db.Select(&rows, q); err != nil {
		return nil, errors.Wrap(err, "querying resources")
	}
	resources := make([]resource.Resource, 0, len(rows))
	for _, row := range rows {
		resources = append(resources, resource.Resource(row))
	}
	return resources, nil
}

func (repo *resourceRepository) UpdateResource(res resource.Resource) (resource.Resource, error) {
	r, err := repo.db.Exec(
		`UPDATE resource SET title = $2, description = $3, updated_at = $4 WHERE id = $1`,
		res.ID, res.Title, res.Description, res.UpdatedAt,
	)
	if err != nil {
		return resource.Resource{}, errors.Wrap(err, "updating resource")
	}
	if n, err := r.RowsAffected(); err == nil && n == 0 {
		return resource.Resource{}, resource.ErrNotFound
	}
	return res, nil
}

func (repo *resourceRepository) DeleteResourcesByID(ids ...string) error {
	_, err := repo.db.Exec(`DELETE FROM resource WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting resources")
}
