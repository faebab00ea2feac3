package option

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption mutates a gorm query before it is executed by a repository.
type QueryOption func(*gorm.DB) *gorm.DB

// Apply folds all options over the query.
func Apply(tx *gorm.DB, opts ...QueryOption) *gorm.DB {
	for _, opt := range opts {
		tx = opt(tx)
	}
	return tx
}

type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
}

// WithSortBy orders the result set. Columns not present in Allow fall back
// to created_at so callers can never inject arbitrary order expressions.
func WithSortBy(sort QuerySortBy) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		column := sort.SortBy
		if column == "" || (sort.Allow != nil && !sort.Allow[column]) {
			column = "created_at"
		}

		direction := strings.ToUpper(sort.OrderBy)
		if direction != "DESC" {
			direction = "ASC"
		}

		return tx.Order(column + " " + direction)
	}
}

// WithLockingUpdate acquires a row-level lock (SELECT ... FOR UPDATE) on the
// rows matched by the query. SQLite has no locking clause; its single-writer
// model already serializes the transaction, so the option is a no-op there.
func WithLockingUpdate() QueryOption {
	return LockingUpdate
}

// LockingUpdate is the scope form of WithLockingUpdate, usable with tx.Scopes.
func LockingUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector != nil && tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

type Operator string

const (
	EQ  Operator = "="
	NE  Operator = "<>"
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// ApplyOperator adds a comparison condition that cannot be expressed through
// a struct query (struct queries only support equality).
func ApplyOperator(cond Condition) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where(cond.Field+" "+string(cond.Operator)+" ?", cond.Value)
	}
}
