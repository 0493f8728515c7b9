package filter

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"dashboard-gateway/internal/common/errors"
)

const (
	ParamProposalID = "nuPropostaSeguridade"
	ParamStatus     = "sgSituacaoProposta"
	ParamDateFrom   = "dataInicio"
	ParamDateTo     = "dataFim"
	ParamOffset     = "offset"
	ParamLimit      = "limit"

	// DefaultLimit applies to the local filter route.
	DefaultLimit = 10

	dateParamLayout = "2006-01-02"
)

// Spec is a parsed filter request. Nil fields do not filter. Dates are
// calendar days in UTC.
type Spec struct {
	ProposalID *int64
	Status     *string
	DateFrom   *time.Time
	DateTo     *time.Time
	Offset     int
	Limit      int

	// raw holds the values as received, for the filtros echo.
	raw map[string]string
}

// ParseSpec reads filter parameters. Empty values count as absent; malformed
// ones are InvalidParameter errors.
func ParseSpec(q url.Values, defaultLimit int) (Spec, error) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	spec := Spec{Limit: defaultLimit, raw: map[string]string{}}

	if v := strings.TrimSpace(q.Get(ParamProposalID)); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Spec{}, errors.NewInvalidParameterError(ParamProposalID, "must be an integer")
		}
		spec.ProposalID = &id
		spec.raw[ParamProposalID] = v
	}

	if v := strings.TrimSpace(q.Get(ParamStatus)); v != "" {
		spec.Status = &v
		spec.raw[ParamStatus] = v
	}

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{ParamDateFrom, &spec.DateFrom},
		{ParamDateTo, &spec.DateTo},
	} {
		v := strings.TrimSpace(q.Get(p.name))
		if v == "" {
			continue
		}
		day, err := time.Parse(dateParamLayout, v)
		if err != nil {
			return Spec{}, errors.NewInvalidParameterError(p.name, "must be a date in YYYY-MM-DD format")
		}
		*p.dst = &day
		spec.raw[p.name] = v
	}

	if v := strings.TrimSpace(q.Get(ParamOffset)); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return Spec{}, errors.NewInvalidParameterError(ParamOffset, "must be a non-negative integer")
		}
		spec.Offset = offset
	}

	if v := strings.TrimSpace(q.Get(ParamLimit)); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return Spec{}, errors.NewInvalidParameterError(ParamLimit, "must be a positive integer")
		}
		spec.Limit = limit
	}

	return spec, nil
}

func (s Spec) echo(name string) *string {
	v, ok := s.raw[name]
	if !ok {
		return nil
	}
	return &v
}

func (s Spec) hasDateRange() bool {
	return s.DateFrom != nil || s.DateTo != nil
}
