// internal/models/proposal.go
package models

import (
	"encoding/json"
	"fmt"
)

// StatusEvent is one dated status transition in a proposal's history.
type StatusEvent struct {
	SgSituacaoProposta string `json:"sgSituacaoProposta"`
	DeSituacaoProposta string `json:"deSituacaoProposta,omitempty"`
	DataEvolucao       string `json:"dataEvolucao"`
}

// Proposal is one record of the proposal collection. The typed fields are the
// ones the filter engine needs; Raw keeps the stored document so items are
// returned exactly as loaded.
type Proposal struct {
	NuPropostaSeguridade int64
	SgSituacaoProposta   string
	DeSituacaoProposta   string
	DataEvolucao         string
	Historico            []StatusEvent

	Raw json.RawMessage
}

type proposalFields struct {
	NuPropostaSeguridade json.Number   `json:"nuPropostaSeguridade"`
	SgSituacaoProposta   string        `json:"sgSituacaoProposta,omitempty"`
	DeSituacaoProposta   string        `json:"deSituacaoProposta,omitempty"`
	DataEvolucao         string        `json:"dataEvolucao,omitempty"`
	Historico            []StatusEvent `json:"historico,omitempty"`
}

func (p *Proposal) UnmarshalJSON(data []byte) error {
	var f proposalFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}

	id, err := f.NuPropostaSeguridade.Int64()
	if err != nil {
		return fmt.Errorf("nuPropostaSeguridade %q is not an integer: %w", f.NuPropostaSeguridade, err)
	}

	p.NuPropostaSeguridade = id
	p.SgSituacaoProposta = f.SgSituacaoProposta
	p.DeSituacaoProposta = f.DeSituacaoProposta
	p.DataEvolucao = f.DataEvolucao
	p.Historico = f.Historico
	p.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func (p Proposal) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	return json.Marshal(proposalFields{
		NuPropostaSeguridade: json.Number(fmt.Sprintf("%d", p.NuPropostaSeguridade)),
		SgSituacaoProposta:   p.SgSituacaoProposta,
		DeSituacaoProposta:   p.DeSituacaoProposta,
		DataEvolucao:         p.DataEvolucao,
		Historico:            p.Historico,
	})
}

// CurrentStatus is the record's own status code, or the status of its most
// recent history event when the record carries none.
func (p Proposal) CurrentStatus() string {
	if p.SgSituacaoProposta != "" {
		return p.SgSituacaoProposta
	}
	if n := len(p.Historico); n > 0 {
		return p.Historico[n-1].SgSituacaoProposta
	}
	return ""
}

// EventDate is the raw date used for date filtering.
func (p Proposal) EventDate() string {
	if p.DataEvolucao != "" {
		return p.DataEvolucao
	}
	if n := len(p.Historico); n > 0 {
		return p.Historico[n-1].DataEvolucao
	}
	return ""
}

// ProposalSnapshot is the stored document shape: {"propostas": [...]}.
type ProposalSnapshot struct {
	Propostas []Proposal `json:"propostas"`
}
