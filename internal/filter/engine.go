// Package filter narrows, counts and paginates the proposal collection.
package filter

import (
	"time"

	"dashboard-gateway/internal/common/errors"
	"dashboard-gateway/internal/common/logger"
	"dashboard-gateway/internal/common/metrics"
	"dashboard-gateway/internal/models"
)

var recordDateLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Engine is stateless; one instance serves every request.
type Engine struct {
	logger logger.Logger
	now    func() time.Time
	loc    *time.Location
}

func NewEngine(log logger.Logger, now func() time.Time, loc *time.Location) *Engine {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{logger: log, now: now, loc: loc}
}

// Filter applies id, status and date bounds in that order, counts the
// matches, then slices [offset, offset+limit) in source order. records is
// not modified.
func (e *Engine) Filter(records []models.Proposal, spec Spec) models.PageEnvelope {
	matched := make([]models.Proposal, 0, len(records))
	for _, r := range records {
		if spec.ProposalID != nil && r.NuPropostaSeguridade != *spec.ProposalID {
			continue
		}
		if spec.Status != nil && r.CurrentStatus() != *spec.Status {
			continue
		}
		if spec.hasDateRange() && !e.inRange(r, spec) {
			continue
		}
		matched = append(matched, r)
	}

	total := len(matched)
	items := []models.Proposal{}
	if spec.Offset < total {
		end := total
		if spec.Limit < total-spec.Offset {
			end = spec.Offset + spec.Limit
		}
		items = matched[spec.Offset:end]
	}

	return models.PageEnvelope{
		Pagination: models.Pagination{
			Offset:     spec.Offset,
			Limit:      spec.Limit,
			TotalCount: total,
		},
		FiltersApplied: models.FiltersApplied{
			ProposalID: spec.echo(ParamProposalID),
			Status:     spec.echo(ParamStatus),
			DateFrom:   spec.echo(ParamDateFrom),
			DateTo:     spec.echo(ParamDateTo),
		},
		GeneratedAt: e.now().In(e.loc),
		Items:       items,
	}
}

// inRange compares calendar days: dateFrom is inclusive from the start of
// its day and dateTo through the end of its day.
func (e *Engine) inRange(r models.Proposal, spec Spec) bool {
	raw := r.EventDate()
	day, ok := parseRecordDay(raw)
	if !ok {
		stdErr := errors.NewMalformedRecordError(r.NuPropostaSeguridade, "dataEvolucao", raw)
		e.logger.Warn("Excluding record with unparseable date", map[string]interface{}{
			"recordId":  r.NuPropostaSeguridade,
			"errorCode": string(stdErr.Code),
			"details":   stdErr.Details,
		})
		metrics.MalformedRecords.Inc()
		return false
	}

	if spec.DateFrom != nil && day.Before(*spec.DateFrom) {
		return false
	}
	if spec.DateTo != nil && day.After(*spec.DateTo) {
		return false
	}
	return true
}

// parseRecordDay keeps only the calendar date of the record's wall time.
func parseRecordDay(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range recordDateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
