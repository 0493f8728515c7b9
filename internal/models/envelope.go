// internal/models/envelope.go
package models

import "time"

type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	// TotalCount is the number of matches before pagination.
	TotalCount int `json:"count"`
}

// FiltersApplied echoes the request's filter values; unset filters are null.
type FiltersApplied struct {
	ProposalID *string `json:"nuPropostaSeguridade"`
	Status     *string `json:"sgSituacaoProposta"`
	DateFrom   *string `json:"dataInicio"`
	DateTo     *string `json:"dataFim"`
}

// PageEnvelope is the response shape of every locally filtered query.
type PageEnvelope struct {
	Pagination     Pagination     `json:"paginacao"`
	FiltersApplied FiltersApplied `json:"filtros"`
	GeneratedAt    time.Time      `json:"timestamp"`
	Items          []Proposal     `json:"propostas"`
}
