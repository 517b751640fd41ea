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
	"github.com/cadenza-app/cadenza/core/order"
)

type orderRow struct {
	ID          string      `db:"id"`
	TeacherID   string      `db:"teacher_id"`
	ClassID     string      `db:"class_id"`
	StudentName string      `db:"student_name"`
	Garment     string      `db:"garment"`
	Size        string      `db:"size"`
	Quantity    int         `db:"quantity"`
	Note        string      `db:"note"`
	Status      string      `db:"status"`
	BatchID     null.String `db:"batch_id"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

type batchRow struct {
	ID          string         `db:"id"`
	Number      int            `db:"number"`
	Status      string         `db:"status"`
	Cutoff      time.Time      `db:"cutoff"`
	OrderIDs    pq.StringArray `db:"order_ids"`
	SubmittedAt null.Time      `db:"submitted_at"`
	FulfilledAt null.Time      `db:"fulfilled_at"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (row batchRow) toCore() order.Batch {
	return order.Batch{
		ID:          row.ID,
		Number:      row.Number,
		Status:      row.Status,
		Cutoff:      row.Cutoff,
		OrderIDs:    row.OrderIDs,
		SubmittedAt: row.SubmittedAt,
		FulfilledAt: row.FulfilledAt,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

var (
	orderColumns = `id, teacher_id, class_id, student_name, garment, size, quantity, note, status, batch_id, created_at, updated_at`
	batchColumns = `id, number, status, cutoff, order_ids, submitted_at, fulfilled_at, created_at, updated_at`

	orderOrderFields = map[string]bool{"student_name": true, "created_at": true}
	batchOrderFields = map[string]bool{"number": true, "created_at": true}
)

type orderRepository struct {
	db *sqlx.DB
}

var _ order.Repository = (*orderRepository)(nil) // interface compliance check

func NewOrderRepository(db *sqlx.DB) order.Repository {
	return &orderRepository{db: db}
}

func (repo *orderRepository) CreateOrder(ord order.Order) (order.Order, error) {
	_, err := repo.db.Exec(
		`INSERT INTO "order" (`+orderColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		ord.ID, ord.TeacherID, ord.ClassID, ord.StudentName, ord.Garment, ord.Size,
		ord.Quantity, ord.Note, ord.Status, ord.BatchID, ord.CreatedAt, ord.UpdatedAt,
	)
	if err != nil {
		return order.Order{}, errors.Wrap(err, "inserting order")
	}
	return ord, nil
}

func (repo *orderRepository) GetOrderByID(id string) (order.Order, error) {
	var row orderRow
	if err := repo.db.Get(&row, `SELECT `+orderColumns+` FROM "order" WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return order.Order{}, order.ErrNotFound
		}
		return order.Order{}, errors.Wrap(err, "querying order")
	}
	return order.Order(row), nil
}

func (repo *orderRepository) queryOrders(q string, args ...interface{}) ([]order.Order, error) {
	var rows []orderRow
	if err := repo.db.Select(&rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying orders")
	}
	orders := make([]order.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, order.Order(row))
	}
	return orders, nil
}

func (repo *orderRepository) QueryAllOrders(orderings ...core.DBOrdering) ([]order.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM "order"` + orderByClause(orderOrderFields, "created_at ASC", orderings)
	return repo.queryOrders(q)
}

func (repo *orderRepository) FilterOrders(filter order.QueryFilter, orderings ...core.DBOrdering) ([]order.Order, error) {
	where := "TRUE"
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.TeacherID != "" {
		where += fmt.Sprintf(" AND teacher_id = %s", arg(filter.TeacherID))
	}
	if filter.ClassID != "" {
		where += fmt.Sprintf(" AND class_id = %s", arg(filter.ClassID))
	}
	if len(filter.Statuses) > 0 {
		where += fmt.Sprintf(" AND status = ANY(%s)", arg(pq.Array(filter.Statuses)))
	}
	if filter.BatchID != "" {
		where += fmt.Sprintf(" AND batch_id = %s", arg(filter.BatchID))
	}
	if !filter.CreatedFrom.IsZero() {
		where += fmt.Sprintf(" AND created_at >= %s", arg(filter.CreatedFrom.UTC()))
	}
	// CreatedTo is exclusive
	if !filter.CreatedTo.IsZero() {
		where += fmt.Sprintf(" AND created_at < %s", arg(filter.CreatedTo.UTC()))
	}

	q := `SELECT ` + orderColumns + ` FROM "order" WHERE ` + where +
		orderByClause(orderOrderFields, "created_at ASC", orderings)
	return repo.queryOrders(q, args...)
}

func (repo *orderRepository) UpdateOrder(ord order.Order) (order.Order, error) {
	res, err := repo.db.Exec(
		`UPDATE "order" SET student_name = $2, garment = $3, size = $4, quantity = $5, note = $6,
			status = $7, batch_id = $8, updated_at = $9 WHERE id = $1`,
		ord.ID, ord.StudentName, ord.Garment, ord.Size, ord.Quantity, ord.Note,
		ord.Status, ord.BatchID, ord.UpdatedAt,
	)
	if err != nil {
		return order.Order{}, errors.Wrap(err, "updating order")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return order.Order{}, order.ErrNotFound
	}
	return ord, nil
}

func (repo *orderRepository) DeleteOrdersByID(ids ...string) error {
	_, err := repo.db.Exec(`DELETE FROM "order" WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting orders")
}

// Batches

func (repo *orderRepository) CreateBatch(b order.Batch) (order.Batch, error) {
	_, err := repo.db.Exec(
		`INSERT INTO batch (`+batchColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.Number, b.Status, b.Cutoff, pq.Array(b.OrderIDs),
		b.SubmittedAt, b.FulfilledAt, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return order.Batch{}, errors.Wrap(err, "inserting batch")
	}
	return b, nil
}

func (repo *orderRepository) GetBatchByID(id string) (order.Batch, error) {
	var row batchRow
	if err := repo.db.Get(&row, `SELECT `+batchColumns+` FROM batch WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return order.Batch{}, order.ErrBatchNotFound
		}
		return order.Batch{}, errors.Wrap(err, "querying batch")
	}
	return row.toCore(), nil
}

func (repo *orderRepository) QueryAllBatches(orderings ...core.DBOrdering) ([]order.Batch, error) {
	var rows []batchRow
	q := `SELECT ` + batchColumns + ` FROM batch` + orderByClause(batchOrderFields, "number ASC", orderings)
	if err := repo.db.Select(&rows, q); err != nil {
		return nil, errors.Wrap(err, "querying batches")
	}
	batches := make([]order.Batch, 0, len(rows))
	for _, row := range rows {
		batches = append(batches, row.toCore())
	}
	return batches, nil
}

func (repo *orderRepository) UpdateBatch(b order.Batch) (order.Batch, error) {
	res, err := repo.db.Exec(
		`UPDATE batch SET status = $2, order_ids = $3, submitted_at = $4, fulfilled_at = $5,
			updated_at = $6 WHERE id = $1`,
		b.ID, b.Status, pq.Array(b.OrderIDs), b.SubmittedAt, b.FulfilledAt, b.UpdatedAt,
	)
	if err != nil {
		return order.Batch{}, errors.Wrap(err, "updating batch")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return order.Batch{}, order.ErrBatchNotFound
	}
	return b, nil
}

func (repo *orderRepository) NextBatchNumber() (int, error) {
	var number int
	if err := repo.db.Get(&number, `SELECT COALESCE(MAX(number), 0) + 1 FROM batch`); err != nil {
		return 0, errors.Wrap(err, "querying next batch number")
	}
	return number, nil
}
