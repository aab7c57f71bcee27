package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"scholarstream/internal/common"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// assignment is one "column = $n" pair of a dynamic UPDATE.
type assignment struct {
	column string
	value  interface{}
}

// setClause renders assignments starting at placeholder $argID and always
// bumps updated_at. It returns the clause, its args and the next free placeholder.
func setClause(assignments []assignment, argID int) (string, []interface{}, int) {
	parts := make([]string, 0, len(assignments)+1)
	args := make([]interface{}, 0, len(assignments))
	for _, a := range assignments {
		parts = append(parts, fmt.Sprintf("%s = $%d", a.column, argID))
		args = append(args, a.value)
		argID++
	}
	parts = append(parts, "updated_at = CURRENT_TIMESTAMP")
	return strings.Join(parts, ", "), args, argID
}

func addString(out []assignment, column string, v *string) []assignment {
	if v != nil {
		out = append(out, assignment{column, *v})
	}
	return out
}

func addFloat(out []assignment, column string, v *float64) []assignment {
	if v != nil {
		out = append(out, assignment{column, *v})
	}
	return out
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return common.StorageError(op, err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
