package repository

import (
	"strconv"
	"strings"
)

// Dialect captures the few places where MySQL and Postgres SQL differ for
// the queries in this package.  Queries are written once with `?`
// placeholders and rebound per dialect.
type Dialect int

const (
	DialectMySQL Dialect = iota
	DialectPostgres
)

// DialectFor maps a database/sql driver name to its Dialect.
func DialectFor(driver string) Dialect {
	switch strings.ToLower(driver) {
	case "pgx", "postgres", "postgresql":
		return DialectPostgres
	default:
		return DialectMySQL
	}
}

// Rebind rewrites `?` placeholders into `$1..$n` for Postgres and returns
// the query untouched for MySQL.  None of the queries here contain a
// literal question mark, so no quoting awareness is needed.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
