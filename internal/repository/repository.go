package repository

import (
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/jengzang/dispatch-backend-go/internal/database"
)

// base carries what every repository needs: something to run queries on
// and a builder producing placeholders for the active dialect
type base struct {
	q  database.Querier
	sb squirrel.StatementBuilderType
}

func newBase(db *database.DB) base {
	return base{q: db, sb: db.Builder}
}

func (b base) withTx(tx *sql.Tx) base {
	return base{q: tx, sb: b.sb}
}

// Timestamps are persisted as Unix milliseconds

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}

// Repositories groups the repositories the location pipeline works with so
// they can be bound to one transaction together
type Repositories struct {
	Agents    *AgentRepository
	Tasks     *TaskRepository
	Locations *LocationRepository
	Archives  *ArchiveRepository
}

// NewRepositories creates every repository on db
func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Agents:    NewAgentRepository(db),
		Tasks:     NewTaskRepository(db),
		Locations: NewLocationRepository(db),
		Archives:  NewArchiveRepository(db),
	}
}

// WithTx returns copies of every repository bound to tx
func (r *Repositories) WithTx(tx *sql.Tx) *Repositories {
	return &Repositories{
		Agents:    r.Agents.WithTx(tx),
		Tasks:     r.Tasks.WithTx(tx),
		Locations: r.Locations.WithTx(tx),
		Archives:  r.Archives.WithTx(tx),
	}
}
