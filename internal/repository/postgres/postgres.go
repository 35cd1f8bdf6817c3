// Package postgres implements the service repositories against PostgreSQL
// using database/sql and lib/pq.
package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Unique constraint names from migrations/001_newsletter.sql.
const (
	subscriberEmailKey = "newsletter_subscribers_scope_email_key"
	subscriberTokenKey = "newsletter_subscribers_unsubscribe_token_key"
	resubscribeKey     = "newsletter_unsubscriptions_resubscribe_token_key"
)

// uniqueViolation returns the constraint name when err is a unique
// violation (SQLSTATE 23505).
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr.Constraint, true
	}
	return "", false
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// conds accumulates AND-ed WHERE clauses. Each expression carries one %d
// verb (or %[1]d repeated) for its placeholder number.
type conds struct {
	clauses []string
	args    []interface{}
}

func (c *conds) add(expr string, val interface{}) {
	c.args = append(c.args, val)
	c.clauses = append(c.clauses, fmt.Sprintf(expr, len(c.args)))
}

func (c *conds) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// page returns the LIMIT/OFFSET suffix. A non-positive limit means all rows.
func (c *conds) page(limit, offset int) (string, []interface{}) {
	args := append([]interface{}{}, c.args...)
	if limit <= 0 {
		if offset <= 0 {
			return "", args
		}
		args = append(args, offset)
		return fmt.Sprintf(" OFFSET $%d", len(args)), args
	}
	args = append(args, limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// jsonArg encodes v for a JSONB parameter. lib/pq sends []byte as bytea,
// so the document goes over the wire as text.
func jsonArg(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeJSON(raw []byte, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}
