package aggregation

import (
	"fmt"
	"math"
	"net/url"

	"dashboard-gateway/internal/models"
)

const proposalsFilterPath = "/backend/monitoracao/v1/propostas/filtros"

// KPISpec counts proposals through the filter endpoint: the total, the
// active ones (ATV) and the GER backlog, then derives the conversion rate.
func KPISpec() CompositeSpec {
	count := func(status string) url.Values {
		v := url.Values{"offset": {"0"}, "limit": {"1"}}
		if status != "" {
			v.Set("sgSituacaoProposta", status)
		}
		return v
	}

	return CompositeSpec{
		Name: models.QueryKPIs,
		Parts: []Part{
			{Key: "totalPropostas", Path: proposalsFilterPath, Params: count(""), Extract: "paginacao.count"},
			{Key: "propostasAtivas", Path: proposalsFilterPath, Params: count("ATV"), Extract: "paginacao.count"},
			{Key: "propostasGER2h", Path: proposalsFilterPath, Params: count("GER"), Extract: "paginacao.count"},
		},
		ForwardParams: []string{"dataInicio", "dataFim"},
		Derive:        deriveConversionRate,
	}
}

func deriveConversionRate(values map[string]interface{}) error {
	total, ok := values["totalPropostas"].(float64)
	if !ok {
		return fmt.Errorf("totalPropostas is %T, want a number", values["totalPropostas"])
	}
	active, ok := values["propostasAtivas"].(float64)
	if !ok {
		return fmt.Errorf("propostasAtivas is %T, want a number", values["propostasAtivas"])
	}

	rate := 0.0
	if total > 0 {
		rate = math.Round(active/total*1000) / 10
	}
	values["taxaConversao"] = rate
	return nil
}
