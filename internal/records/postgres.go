package records

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"dashboard-gateway/internal/common/logger"
	"dashboard-gateway/internal/models"
)

// PostgresSource reads one JSON document per row from the payload column.
type PostgresSource struct {
	db       *sql.DB
	table    string
	maxItems int
	logger   logger.Logger
}

func NewPostgresSource(db *sql.DB, table string, maxItems int, log logger.Logger) *PostgresSource {
	return &PostgresSource{db: db, table: table, maxItems: maxItems, logger: log}
}

func (s *PostgresSource) query() string {
	q := fmt.Sprintf(`SELECT payload FROM %s ORDER BY id`, pq.QuoteIdentifier(s.table))
	if s.maxItems > 0 {
		q += fmt.Sprintf(` LIMIT %d`, s.maxItems)
	}
	return q
}

func (s *PostgresSource) LoadAllRecords(ctx context.Context) ([]models.Proposal, error) {
	start := time.Now()

	rows, err := s.db.QueryContext(ctx, s.query())
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	records := []models.Proposal{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}

		p, err := decodeRecord(payload, fmt.Sprintf("row %d", len(records)+1))
		if err != nil {
			return nil, err
		}
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.table, err)
	}

	s.logger.Info("Loaded proposals from postgres", map[string]interface{}{
		"table":      s.table,
		"records":    len(records),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return records, nil
}
