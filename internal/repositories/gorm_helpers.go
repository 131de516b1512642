package repositories

import (
	"errors"
	"fmt"
	"strings"

	appErr "skillswap/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormError maps driver errors onto the application taxonomy. It relies on the
// dialector being opened with TranslateError so unique violations surface as
// gorm.ErrDuplicatedKey.
func gormError(err error, entity, key, action string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound(entity, key)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return appErr.Wrap(err, appErr.CodeConflict, fmt.Sprintf("%s already exists", entity))
	default:
		return fmt.Errorf("failed to %s %s: %w", action, entity, err)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// whereContains adds a case-insensitive substring match on column.
func whereContains(q *gorm.DB, column, sub string) *gorm.DB {
	if sub == "" {
		return q
	}
	pattern := "%" + likeEscaper.Replace(strings.ToLower(sub)) + "%"
	return q.Where(fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, column), pattern)
}

func whereBool(q *gorm.DB, column string, v *bool) *gorm.DB {
	if v == nil {
		return q
	}
	return q.Where(column+" = ?", *v)
}

func whereEq(q *gorm.DB, column, v string) *gorm.DB {
	if v == "" {
		return q
	}
	return q.Where(column+" = ?", v)
}

// updateColumns writes cols and updated_at from row, leaving every other
// column as the database has it.
func updateColumns(tx *gorm.DB, row any, cols []string) error {
	return tx.Model(row).Select(append(cols, "updated_at")).Updates(row).Error
}

// patchColumns lists the column for every set field, in order.
func patchColumns(fields ...patchField) []string {
	var cols []string
	for _, f := range fields {
		if f.set {
			cols = append(cols, f.cols...)
		}
	}
	return cols
}

type patchField struct {
	set  bool
	cols []string
}

func field(set bool, cols ...string) patchField {
	return patchField{set: set, cols: cols}
}

func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

const creationOrder = "created_at ASC, id ASC"
