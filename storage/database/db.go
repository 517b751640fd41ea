package database

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/cadenza-app/cadenza/core"
)

// Open connects to the application database described by the config.
func Open(conf *core.Config) (*sqlx.DB, error) {
	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     url.UserPassword(conf.Database.User, conf.Database.Password),
		Host:     conf.Database.Host + ":" + conf.Database.Port,
		Path:     conf.Database.Name,
		RawQuery: q.Encode(),
	}

	db, err := sqlx.Open(conf.Database.Engine, u.String())
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(db); err != nil {
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// Migrate applies the schema. Statements are idempotent.
func Migrate(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

// orderByClause builds a safe ORDER BY from the requested orderings; only
// columns present in `allowed` make it into SQL.
func orderByClause(allowed map[string]bool, dflt string, orderings []core.DBOrdering) string {
	exprs := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		if !allowed[ord.Field] {
			continue
		}
		dir := "DESC"
		if ord.Ascending {
			dir = "ASC"
		}
		exprs = append(exprs, fmt.Sprintf("%s %s", ord.Field, dir))
	}
	if len(exprs) == 0 {
		return " ORDER BY " + dflt
	}
	return " ORDER BY " + strings.Join(exprs, ", ")
}
