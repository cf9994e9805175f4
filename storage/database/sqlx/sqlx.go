// Package sqlxrepos implements the domain repositories on postgres through sqlx.
package sqlxrepos

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/darien/gradebook/core"
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a postgres unique constraint violation.
func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

// wrapErr annotates err with msg. A connection the pool can no longer use becomes a shutdown error.
func wrapErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	switch errors.Cause(err) {
	case driver.ErrBadConn, sql.ErrConnDone:
		return core.NewShutdownError(fmt.Sprintf("%s: database connection lost: %v", msg, err))
	}
	return errors.Wrap(err, msg)
}

// notFound maps sql.ErrNoRows to notFoundErr and wraps anything else.
func notFound(err error, notFoundErr error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFoundErr
	}
	return wrapErr(err, msg)
}

// affected returns notFoundErr when res touched no row.
func affected(res sql.Result, err error, notFoundErr error, msg string) error {
	if err != nil {
		return wrapErr(err, msg)
	}
	if n, err := res.RowsAffected(); err != nil {
		return wrapErr(err, msg)
	} else if n == 0 {
		return notFoundErr
	}
	return nil
}

// conditions accumulates AND-ed predicates with numbered placeholders.
type conditions struct {
	clauses []string
	args    []interface{}
}

// add appends clause, whose single "?" is replaced by the next placeholder bound to arg.
func (c *conditions) add(clause string, arg interface{}) {
	c.args = append(c.args, arg)
	c.clauses = append(c.clauses, strings.Replace(clause, "?", "$"+strconv.Itoa(len(c.args)), 1))
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// limit appends a LIMIT clause when n > 0.
func (c *conditions) limit(n int) string {
	if n <= 0 {
		return ""
	}
	c.args = append(c.args, n)
	return " LIMIT $" + strconv.Itoa(len(c.args))
}

// Repositories bundles every repository of a database.
type Repositories struct {
	Centers  *CenterRepository
	Accounts *AccountRepository
	Academic *AcademicRepository
	Grading  *GradingRepository
}

func NewRepositories(db core.DB) *Repositories {
	return &Repositories{
		Centers:  NewCenterRepository(db),
		Accounts: NewAccountRepository(db),
		Academic: NewAcademicRepository(db),
		Grading:  NewGradingRepository(db),
	}
}
