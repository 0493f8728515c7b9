package records

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"dashboard-gateway/internal/common/logger"
	"dashboard-gateway/internal/models"
)

const defaultSearchSize = 10000

// ElasticsearchSource reads every document of an index, ordered by proposal
// number.
type ElasticsearchSource struct {
	client   *elasticsearch.Client
	index    string
	maxItems int
	logger   logger.Logger
}

func NewElasticsearchSource(client *elasticsearch.Client, index string, maxItems int, log logger.Logger) *ElasticsearchSource {
	return &ElasticsearchSource{client: client, index: index, maxItems: maxItems, logger: log}
}

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticsearchSource) LoadAllRecords(ctx context.Context) ([]models.Proposal, error) {
	size := defaultSearchSize
	if s.maxItems > 0 && s.maxItems < size {
		size = s.maxItems
	}

	body := `{"query":{"match_all":{}},"sort":[{"nuPropostaSeguridade":"asc"}]}`
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(body),
		Size:  &size,
	}

	start := time.Now()
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode == 404 {
			return nil, fmt.Errorf("%w: index %s", ErrSnapshotNotFound, s.index)
		}
		return nil, fmt.Errorf("search %s: %s", s.index, res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	records := make([]models.Proposal, 0, len(parsed.Hits.Hits))
	for i, hit := range parsed.Hits.Hits {
		p, err := decodeRecord(hit.Source, fmt.Sprintf("hit %d", i))
		if err != nil {
			return nil, err
		}
		records = append(records, p)
	}

	s.logger.Info("Loaded proposals from elasticsearch", map[string]interface{}{
		"index":      s.index,
		"records":    len(records),
		"took":       parsed.Took,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return records, nil
}
