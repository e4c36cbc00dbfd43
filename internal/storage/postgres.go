package storage

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const postgresConnectTimeout = 5 * time.Second

// NewPostgresStore opens a PostgreSQL store and applies migrations.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), postgresConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLStore{db: db, path: dsn, rebind: rebindDollar}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// rebindDollar rewrites ? placeholders to $1, $2, ...
// Queries in this package never contain a literal question mark.
func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
