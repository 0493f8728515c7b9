// Package records loads the proposal collection the local filter route
// serves. The collection is loaded once at startup and never mutated.
package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	"dashboard-gateway/internal/common/config"
	"dashboard-gateway/internal/common/logger"
	"dashboard-gateway/internal/common/validation"
	"dashboard-gateway/internal/models"
)

const (
	SourceFile          = "file"
	SourcePostgres      = "postgres"
	SourceRedis         = "redis"
	SourceElasticsearch = "elasticsearch"
	SourceNone          = "none"
)

var (
	ErrSnapshotNotFound = errors.New("SNAPSHOT_NOT_FOUND")
	ErrInvalidSnapshot  = errors.New("INVALID_SNAPSHOT")
	ErrUnknownSource    = errors.New("UNKNOWN_RECORD_SOURCE")
	ErrMissingClient    = errors.New("MISSING_CLIENT")
)

// Source loads every record, in source order.
type Source interface {
	LoadAllRecords(ctx context.Context) ([]models.Proposal, error)
}

// Clients are the connections a source may need; only the one matching the
// configured source has to be set.
type Clients struct {
	Postgres      *sql.DB
	Redis         *redis.Client
	Elasticsearch *elasticsearch.Client
}

func New(cfg config.RecordsConfig, clients Clients, log logger.Logger) (Source, error) {
	log = log.WithFields(map[string]interface{}{"recordSource": cfg.Source})

	switch cfg.Source {
	case SourceFile:
		return NewFileSource(cfg.Path, cfg.MaxItems, log), nil
	case SourcePostgres:
		if clients.Postgres == nil {
			return nil, fmt.Errorf("%w: postgres", ErrMissingClient)
		}
		return NewPostgresSource(clients.Postgres, cfg.Table, cfg.MaxItems, log), nil
	case SourceRedis:
		if clients.Redis == nil {
			return nil, fmt.Errorf("%w: redis", ErrMissingClient)
		}
		return NewRedisSource(clients.Redis, cfg.RedisKey, cfg.MaxItems, log), nil
	case SourceElasticsearch:
		if clients.Elasticsearch == nil {
			return nil, fmt.Errorf("%w: elasticsearch", ErrMissingClient)
		}
		return NewElasticsearchSource(clients.Elasticsearch, cfg.Index, cfg.MaxItems, log), nil
	case SourceNone:
		return EmptySource{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Source)
	}
}

// EmptySource serves an empty collection.
type EmptySource struct{}

func (EmptySource) LoadAllRecords(context.Context) ([]models.Proposal, error) {
	return []models.Proposal{}, nil
}

// decodeSnapshot validates a {"propostas": [...]} document and decodes it.
func decodeSnapshot(doc []byte) ([]models.Proposal, error) {
	if err := validation.ValidateRecordSnapshot(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	var snapshot models.ProposalSnapshot
	if err := json.Unmarshal(doc, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if snapshot.Propostas == nil {
		snapshot.Propostas = []models.Proposal{}
	}
	return snapshot.Propostas, nil
}

// decodeRecord validates and decodes one stored proposal. position names it
// in errors.
func decodeRecord(doc []byte, position string) (models.Proposal, error) {
	var p models.Proposal
	if err := validation.ValidateRecord(doc); err != nil {
		return p, fmt.Errorf("%w: %s: %v", ErrInvalidSnapshot, position, err)
	}
	if err := json.Unmarshal(doc, &p); err != nil {
		return p, fmt.Errorf("%w: %s: %v", ErrInvalidSnapshot, position, err)
	}
	return p, nil
}

func capRecords(records []models.Proposal, maxItems int, log logger.Logger) []models.Proposal {
	if maxItems > 0 && len(records) > maxItems {
		log.Warn("Record collection truncated", map[string]interface{}{
			"loaded":   len(records),
			"maxItems": maxItems,
		})
		return records[:maxItems]
	}
	return records
}
