// Package transport defines the dashboard read-model DTOs.
package transport

import (
	"time"

	surveydomain "hospital_crm_backend/internal/surveys/domain"
)

// PipelineStage is one funnel row: how many leads currently sit in the
// stage and what share of all leads that is.
type PipelineStage struct {
	Status     string  `json:"status"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// SourceCount is one bar of the lead-by-source histogram.
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// TaskCounts summarizes the follow-up workload.
type TaskCounts struct {
	Open           int `json:"open"`
	Overdue        int `json:"overdue"`
	CompletedToday int `json:"completedToday"`
}

// ChannelStat is one row of the communication channel breakdown.
type ChannelStat struct {
	Channel  string `json:"channel"`
	Total    int    `json:"total"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

// SnapshotResponse is the composed dashboard read model. Every section
// can independently come back empty when its source was unavailable.
type SnapshotResponse struct {
	TotalLeads     int                   `json:"totalLeads"`
	LostLeads      int                   `json:"lostLeads"`
	Pipeline       []PipelineStage       `json:"pipeline"`
	Sources        []SourceCount         `json:"sources"`
	Tasks          TaskCounts            `json:"tasks"`
	Communications []ChannelStat         `json:"communications"`
	Surveys        surveydomain.Snapshot `json:"surveys"`
	GeneratedAt    time.Time             `json:"generatedAt"`
}

// ConversionStage is one row of the conversion report: how many leads
// have reached the stage or gone beyond it, and the loss versus the
// previous stage.
type ConversionStage struct {
	Status     string  `json:"status"`
	Reached    int     `json:"reached"`
	Percentage float64 `json:"percentage"`
	DropOff    int     `json:"dropOff"`
}

// ConversionReportResponse is the per-stage drop-off view of the
// pipeline.
type ConversionReportResponse struct {
	TotalLeads     int               `json:"totalLeads"`
	ConvertedLeads int               `json:"convertedLeads"`
	LostLeads      int               `json:"lostLeads"`
	ConversionRate float64           `json:"conversionRate"`
	Stages         []ConversionStage `json:"stages"`
}
