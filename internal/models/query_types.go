// internal/models/query_types.go
package models

// LogicalQuery names one dashboard endpoint independently of how it is served.
type LogicalQuery string

const (
	QueryToken                  LogicalQuery = "token"
	QueryKPIs                   LogicalQuery = "kpis"
	QuerySituationDistribution  LogicalQuery = "situationDistribution"
	QueryGEROver2h              LogicalQuery = "gerOver2h"
	QueryProposalEvolution      LogicalQuery = "proposalEvolution"
	QueryAverageTimeBySituation LogicalQuery = "averageTimeBySituation"
	QueryStageConversion        LogicalQuery = "stageConversion"
	QueryRejectionReasons       LogicalQuery = "rejectionReasons"
	QueryChannelPerformance     LogicalQuery = "channelPerformance"
	QueryMonitoringVolume       LogicalQuery = "monitoringVolume"
	QueryProposalHistory        LogicalQuery = "proposalHistory"
	QueryProposalsFilter        LogicalQuery = "proposalsFilter"
	QueryProposalsFilterLocal   LogicalQuery = "proposalsFilterLocal"
	QuerySituationDistMock      LogicalQuery = "situationDistributionMock"
)

// Strategy is how the gateway answers a LogicalQuery.
type Strategy string

const (
	StrategyProxy        Strategy = "proxy"
	StrategyAggregate    Strategy = "aggregate"
	StrategyLocalFilter  Strategy = "local_filter"
	StrategyFallbackOnly Strategy = "fallback_only"
)
