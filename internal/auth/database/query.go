package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// conditions accumulates AND-ed WHERE clauses with their arguments.
type conditions struct {
	clauses []string
	args    []any
}

func (c *conditions) add(clause string, args ...any) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, args...)
}

func (c conditions) sql() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

func (q *Queries) count(ctx context.Context, table string, where conditions) (int, error) {
	var total int
	err := q.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+where.sql(), where.args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return total, nil
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
