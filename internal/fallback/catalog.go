// Package fallback provides the static substitute payloads served when an
// upstream dependency is unavailable.
package fallback

import (
	"sort"
	"time"

	"dashboard-gateway/internal/models"
)

const (
	seriesDays      = 31
	timestampLayout = "02/01/2006 15:04:05"
)

// Catalog maps logical queries to deterministic substitute payloads. Date
// series are anchored on the construction time so a given catalog always
// returns the same values for the same query.
type Catalog struct {
	anchor  time.Time
	entries map[models.LogicalQuery]func(anchor time.Time) interface{}
}

func NewCatalog(anchor time.Time) *Catalog {
	return &Catalog{
		anchor: anchor,
		entries: map[models.LogicalQuery]func(time.Time) interface{}{
			models.QueryKPIs:                   kpis,
			models.QuerySituationDistribution:  situationDistribution,
			models.QueryGEROver2h:              gerOver2h,
			models.QueryProposalEvolution:      proposalEvolution,
			models.QueryAverageTimeBySituation: averageTimeBySituation,
			models.QueryStageConversion:        stageConversion,
			models.QueryRejectionReasons:       rejectionReasons,
			models.QueryChannelPerformance:     channelPerformance,
			models.QueryMonitoringVolume:       monitoringVolume,
			models.QueryProposalHistory:        proposalHistory,
			models.QueryProposalsFilter:        proposalsFilter,
		},
	}
}

// Fallback builds a fresh payload for name on every call.
func (c *Catalog) Fallback(name models.LogicalQuery) (interface{}, bool) {
	build, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	return build(c.anchor), true
}

func (c *Catalog) Has(name models.LogicalQuery) bool {
	_, ok := c.entries[name]
	return ok
}

func (c *Catalog) Names() []models.LogicalQuery {
	names := make([]models.LogicalQuery, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func kpis(time.Time) interface{} {
	return KPIs{
		TotalPropostas:  1234,
		PropostasAtivas: 789,
		PropostasGER2h:  15,
		TaxaConversao:   64.0,
	}
}

func situationDistribution(anchor time.Time) interface{} {
	return SituationReport{
		Timestamp: anchor.Format(timestampLayout),
		Paginacao: Page{Offset: 0, Limit: 100, Count: 7},
		SituacaoRelatorio: []SituationCount{
			{SgSituacaoProposta: "EMT", DeSituacaoProposta: "DOCUMENTO EMITIDO", Quantidade: 146},
			{SgSituacaoProposta: "ENV", DeSituacaoProposta: "PROPOSTA VENDIDA", Quantidade: 97},
			{SgSituacaoProposta: "REJ", DeSituacaoProposta: "REJEITADA", Quantidade: 54},
			{SgSituacaoProposta: "CAN", DeSituacaoProposta: "CANCELADA", Quantidade: 15},
			{SgSituacaoProposta: "MAN", DeSituacaoProposta: "PROP. RECEBIDA DA EMPRESA,AGUARDANDO EMISSAO", Quantidade: 6},
			{SgSituacaoProposta: "EXC", DeSituacaoProposta: "REGISTRO EXCLUIDO", Quantidade: 3},
			{SgSituacaoProposta: "GER", DeSituacaoProposta: "PROPOSTA GERADA", Quantidade: 1},
		},
	}
}

func gerOver2h(time.Time) interface{} {
	at := func(hour, minute int) time.Time {
		return time.Date(2025, time.April, 18, hour, minute, 0, 0, time.UTC)
	}
	return []GERAlert{
		{NuProposta: 12345, NuDvProposta: 6, HorasEmGER: 8.5, StatusAlerta: "Bloqueado", UltimaAtualizacao: at(14, 30), NuCanalSeguridade: 1, NuEmpresaSeguridade: 2},
		{NuProposta: 23456, NuDvProposta: 7, HorasEmGER: 5.2, StatusAlerta: "Crítico", UltimaAtualizacao: at(15, 45), NuCanalSeguridade: 3, NuEmpresaSeguridade: 1},
		{NuProposta: 78901, NuDvProposta: 2, HorasEmGER: 4.8, StatusAlerta: "Crítico", UltimaAtualizacao: at(16, 0), NuCanalSeguridade: 2, NuEmpresaSeguridade: 3},
		{NuProposta: 34567, NuDvProposta: 8, HorasEmGER: 3.7, StatusAlerta: "Atenção", UltimaAtualizacao: at(16, 20), NuCanalSeguridade: 2, NuEmpresaSeguridade: 1},
		{NuProposta: 45678, NuDvProposta: 9, HorasEmGER: 2.8, StatusAlerta: "Atenção", UltimaAtualizacao: at(17, 10), NuCanalSeguridade: 1, NuEmpresaSeguridade: 3},
	}
}

// Daily series cover the 31 days ending on the anchor day, oldest first.
func proposalEvolution(anchor time.Time) interface{} {
	out := make([]DailyProposals, 0, seriesDays)
	for i := seriesDays - 1; i >= 0; i-- {
		out = append(out, DailyProposals{
			Data:         anchor.AddDate(0, 0, -i),
			QtdPropostas: 20 + (i*7)%41,
		})
	}
	return out
}

func monitoringVolume(anchor time.Time) interface{} {
	out := make([]DailyRecords, 0, seriesDays)
	for i := seriesDays - 1; i >= 0; i-- {
		out = append(out, DailyRecords{
			Data:         anchor.AddDate(0, 0, -i),
			QtdRegistros: 50 + (i*13)%101,
		})
	}
	return out
}

func averageTimeBySituation(time.Time) interface{} {
	return []SituationTime{
		{SgSituacaoProposta: "GER", DeSituacaoProposta: "PROPOSTA GERADA", TempoMedioMinutos: 720.45, TempoMedioHoras: 12.01, TempoMedioDias: 0.50, QtdPropostas: 245},
		{SgSituacaoProposta: "PAE", DeSituacaoProposta: "PROPOSTA AGUARDANDO EMISSAO", TempoMedioMinutos: 1440.30, TempoMedioHoras: 24.00, TempoMedioDias: 1.00, QtdPropostas: 187},
		{SgSituacaoProposta: "EMT", DeSituacaoProposta: "DOCUMENTO EMITIDO", TempoMedioMinutos: 2880.15, TempoMedioHoras: 48.00, TempoMedioDias: 2.00, QtdPropostas: 156},
		{SgSituacaoProposta: "ATV", DeSituacaoProposta: "TITULO ATIVADO", TempoMedioMinutos: 4320.75, TempoMedioHoras: 72.01, TempoMedioDias: 3.00, QtdPropostas: 132},
		{SgSituacaoProposta: "CAN", DeSituacaoProposta: "PROPOSTA CANCELADA", TempoMedioMinutos: 1152.60, TempoMedioHoras: 19.21, TempoMedioDias: 0.80, QtdPropostas: 89},
		{SgSituacaoProposta: "REJ", DeSituacaoProposta: "PROPOSTA REJEITADA", TempoMedioMinutos: 864.45, TempoMedioHoras: 14.41, TempoMedioDias: 0.60, QtdPropostas: 58},
	}
}

func stageConversion(time.Time) interface{} {
	return []StageConversion{
		{Ordem: 1, Etapa: "GER", Descricao: "PROPOSTA GERADA", QtdPropostas: 245, TaxaConversao: 100.00},
		{Ordem: 2, Etapa: "ENV", Descricao: "PROPOSTA AGUARDANDO EMISSAO", QtdPropostas: 187, TaxaConversao: 76.33},
		{Ordem: 3, Etapa: "EMT", Descricao: "DOCUMENTO EMITIDO", QtdPropostas: 156, TaxaConversao: 63.67},
		{Ordem: 4, Etapa: "EMT AUTO", Descricao: "DOCUMENTO EMITIDO AUTO", QtdPropostas: 132, TaxaConversao: 53.88},
	}
}

func rejectionReasons(time.Time) interface{} {
	return []RejectionReason{
		{NuMotivoSistema: 1, DeMotivoSistema: "DADOS INCONSISTENTES", QtdPropostas: 42, Percentual: 28.57},
		{NuMotivoSistema: 2, DeMotivoSistema: "DUPLICIDADE DE PROPOSTA", QtdPropostas: 35, Percentual: 23.81},
		{NuMotivoSistema: 3, DeMotivoSistema: "ERRO DE PROCESSAMENTO", QtdPropostas: 28, Percentual: 19.05},
		{NuMotivoSistema: 4, DeMotivoSistema: "SOLICITAÇÃO DO CLIENTE", QtdPropostas: 22, Percentual: 14.97},
		{NuMotivoSistema: 5, DeMotivoSistema: "FALHA NA INTEGRAÇÃO", QtdPropostas: 12, Percentual: 8.16},
		{NuMotivoSistema: 6, DeMotivoSistema: "OUTROS", QtdPropostas: 8, Percentual: 5.44},
	}
}

func channelPerformance(time.Time) interface{} {
	return []ChannelPerformance{
		{NuCanalSeguridade: 1, TotalPropostas: 450, PropostasAtivadas: 315, PropostasCanceladas: 45, TaxaAtivacao: 70.00, TaxaCancelamento: 10.00},
		{NuCanalSeguridade: 2, TotalPropostas: 350, PropostasAtivadas: 210, PropostasCanceladas: 70, TaxaAtivacao: 60.00, TaxaCancelamento: 20.00},
		{NuCanalSeguridade: 3, TotalPropostas: 250, PropostasAtivadas: 175, PropostasCanceladas: 25, TaxaAtivacao: 70.00, TaxaCancelamento: 10.00},
		{NuCanalSeguridade: 4, TotalPropostas: 184, PropostasAtivadas: 92, PropostasCanceladas: 55, TaxaAtivacao: 50.00, TaxaCancelamento: 29.89},
	}
}

func proposalHistory(time.Time) interface{} {
	return ProposalHistory{
		Paginacao: Page{Offset: 0, Limit: 100, Count: 0},
		Historico: []interface{}{},
	}
}

func proposalsFilter(anchor time.Time) interface{} {
	return models.PageEnvelope{
		Pagination:  models.Pagination{Offset: 0, Limit: 100, TotalCount: 0},
		GeneratedAt: anchor,
		Items:       []models.Proposal{},
	}
}
