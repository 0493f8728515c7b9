package records

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"dashboard-gateway/internal/common/logger"
	"dashboard-gateway/internal/models"
)

// FileSource reads a JSON snapshot from disk.
type FileSource struct {
	path     string
	maxItems int
	logger   logger.Logger
}

func NewFileSource(path string, maxItems int, log logger.Logger) *FileSource {
	return &FileSource{path: path, maxItems: maxItems, logger: log}
}

func (s *FileSource) LoadAllRecords(ctx context.Context) ([]models.Proposal, error) {
	doc, err := os.ReadFile(filepath.Clean(s.path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, s.path)
		}
		return nil, fmt.Errorf("read snapshot %s: %w", s.path, err)
	}

	records, err := decodeSnapshot(doc)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Loaded proposal snapshot", map[string]interface{}{
		"path":    s.path,
		"records": len(records),
	})
	return capRecords(records, s.maxItems, s.logger), nil
}
