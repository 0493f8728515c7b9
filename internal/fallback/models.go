package fallback

import "time"

type KPIs struct {
	TotalPropostas  int     `json:"totalPropostas"`
	PropostasAtivas int     `json:"propostasAtivas"`
	PropostasGER2h  int     `json:"propostasGER2h"`
	TaxaConversao   float64 `json:"taxaConversao"`
}

type Page struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Count  int `json:"count"`
}

type SituationCount struct {
	SgSituacaoProposta string `json:"sgSituacaoProposta"`
	DeSituacaoProposta string `json:"deSituacaoProposta"`
	Quantidade         int    `json:"quantidade"`
}

type SituationReport struct {
	Timestamp         string           `json:"timestamp"`
	Paginacao         Page             `json:"paginacao"`
	SituacaoRelatorio []SituationCount `json:"situacaoRelatorio"`
}

type GERAlert struct {
	NuProposta          int64     `json:"NU_PROPOSTA"`
	NuDvProposta        int       `json:"NU_DV_PROPOSTA"`
	HorasEmGER          float64   `json:"HORAS_EM_GER"`
	StatusAlerta        string    `json:"STATUS_ALERTA"`
	UltimaAtualizacao   time.Time `json:"ULTIMA_ATUALIZACAO"`
	NuCanalSeguridade   int       `json:"NU_CANAL_SEGURIDADE"`
	NuEmpresaSeguridade int       `json:"NU_EMPRESA_SEGURIDADE"`
}

type DailyProposals struct {
	Data         time.Time `json:"DATA"`
	QtdPropostas int       `json:"QTD_PROPOSTAS"`
}

type DailyRecords struct {
	Data         time.Time `json:"DATA"`
	QtdRegistros int       `json:"QTD_REGISTROS"`
}

type SituationTime struct {
	SgSituacaoProposta string  `json:"SG_SITUACAO_PROPOSTA"`
	DeSituacaoProposta string  `json:"DE_SITUACAO_PROPOSTA"`
	TempoMedioMinutos  float64 `json:"TEMPO_MEDIO_MINUTOS"`
	TempoMedioHoras    float64 `json:"TEMPO_MEDIO_HORAS"`
	TempoMedioDias     float64 `json:"TEMPO_MEDIO_DIAS"`
	QtdPropostas       int     `json:"QTD_PROPOSTAS"`
}

type StageConversion struct {
	Ordem         int     `json:"ORDEM"`
	Etapa         string  `json:"ETAPA"`
	Descricao     string  `json:"DESCRICAO"`
	QtdPropostas  int     `json:"QTD_PROPOSTAS"`
	TaxaConversao float64 `json:"TAXA_CONVERSAO"`
}

type RejectionReason struct {
	NuMotivoSistema int     `json:"NU_MOTIVO_SISTEMA"`
	DeMotivoSistema string  `json:"DE_MOTIVO_SISTEMA"`
	QtdPropostas    int     `json:"QTD_PROPOSTAS"`
	Percentual      float64 `json:"PERCENTUAL"`
}

type ChannelPerformance struct {
	NuCanalSeguridade   int     `json:"NU_CANAL_SEGURIDADE"`
	TotalPropostas      int     `json:"TOTAL_PROPOSTAS"`
	PropostasAtivadas   int     `json:"PROPOSTAS_ATIVADAS"`
	PropostasCanceladas int     `json:"PROPOSTAS_CANCELADAS"`
	TaxaAtivacao        float64 `json:"TAXA_ATIVACAO"`
	TaxaCancelamento    float64 `json:"TAXA_CANCELAMENTO"`
}

type ProposalHistory struct {
	Paginacao Page          `json:"paginacao"`
	Historico []interface{} `json:"historico"`
}
