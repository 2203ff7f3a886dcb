package archive

import (
	"context"
	"database/sql"
	"strings"

	"github.com/AdamHev/Object-Detection-Bakery/internal/domain"
	"github.com/AdamHev/Object-Detection-Bakery/internal/ports"
)

// PostgresArchive mirrors confirmations into a Postgres table. Rows are never
// read back by the relay.
type PostgresArchive struct {
	db    *sql.DB
	query string
}

func NewPostgresArchive(db *sql.DB, table string) *PostgresArchive {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (product, quantity, time, initials, submitted_at) VALUES ($1,$2,$3,$4,$5)")
	return &PostgresArchive{db: db, query: b.String()}
}

func (p *PostgresArchive) Name() string { return "postgres" }

func (p *PostgresArchive) Archive(ctx context.Context, rec domain.ConfirmationRecord) error {
	_, err := p.db.ExecContext(ctx, p.query,
		rec.Product,
		rec.Quantity,
		rec.Time,
		rec.Initials,
		rec.SubmittedAt,
	)
	return err
}

var _ ports.Archiver = (*PostgresArchive)(nil)
