package sqldb

import (
	"strconv"
	"strings"
	"time"
)

// textTimeLayout is fixed-width so that stored timestamps compare lexicographically.
const textTimeLayout = "2006-01-02 15:04:05.000000"

// Dialect adapts portable queries to a driver.
// Queries are written with '?' placeholders and rebound for postgres.
type Dialect struct {
	driver Driver
}

// NewDialect returns the dialect for driver.
func NewDialect(driver Driver) Dialect {
	return Dialect{driver: driver}
}

// Driver returns the dialect's driver.
func (d Dialect) Driver() Driver { return d.driver }

// Rebind converts '?' placeholders to $1..$N for postgres. Other drivers get the query unchanged.
func (d Dialect) Rebind(query string) string {
	if d.driver != DriverPostgres {
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

// JSONArrayContains returns a predicate true when the JSON array in column contains
// the string bound to the predicate's single placeholder.
func (d Dialect) JSONArrayContains(column string) string {
	if d.driver == DriverPostgres {
		return column + " @> jsonb_build_array(?::text)"
	}
	return "EXISTS (SELECT 1 FROM json_each(" + column + ") WHERE json_each.value = ?)"
}

// Time converts t to the driver's parameter representation, always in UTC.
func (d Dialect) Time(t time.Time) any {
	t = t.UTC().Truncate(time.Microsecond)
	if d.driver == DriverSQLite {
		return t.Format(textTimeLayout)
	}
	return t
}
