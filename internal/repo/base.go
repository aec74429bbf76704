// Package repo is the embeddable core of the gorm repositories.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dekorekillian57-star/spendo/pkg/db"
)

// Base carries the connection, or the transaction, a repository runs on.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB scopes the handle to ctx. A nil ctx returns it unscoped.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}

// Rebind returns a Base running on tx, or b unchanged when tx is nil.
func (b Base) Rebind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{conn: tx}
}

func (b Base) Postgres() bool {
	return db.IsPostgres(b.conn)
}

// ForUpdate adds a row lock on postgres. sqlite serializes writers already.
func (b Base) ForUpdate(q *gorm.DB) *gorm.DB {
	if !b.Postgres() {
		return q
	}
	return q.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}
