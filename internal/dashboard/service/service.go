// Package service composes the dashboard read model from the other
// modules. It performs no writes; every sub-metric degrades to its zero
// value when its source fails, so the dashboard renders with whatever
// data is available.
package service

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"time"

	commtransport "hospital_crm_backend/internal/communications/transport"
	"hospital_crm_backend/internal/dashboard/cache"
	"hospital_crm_backend/internal/dashboard/transport"
	leaddomain "hospital_crm_backend/internal/leads/domain"
	surveydomain "hospital_crm_backend/internal/surveys/domain"
	taskrepo "hospital_crm_backend/internal/tasks/repository"
	"hospital_crm_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// LeadStats supplies the pipeline and source distributions.
type LeadStats interface {
	CountByStatus(ctx context.Context) (map[leaddomain.Status]int, error)
	CountBySource(ctx context.Context) (map[leaddomain.Source]int, error)
}

// TaskStats supplies the workload counters.
type TaskStats interface {
	WorkloadCounts(ctx context.Context) (taskrepo.WorkloadCounts, error)
}

// CommunicationStats supplies the channel breakdown.
type CommunicationStats interface {
	Stats(ctx context.Context) (commtransport.StatsResponse, error)
}

// SurveyStats supplies the cross-survey satisfaction snapshot.
type SurveyStats interface {
	OverallSnapshot(ctx context.Context) (surveydomain.Snapshot, error)
}

type Service struct {
	leads   LeadStats
	tasks   TaskStats
	comms   CommunicationStats
	surveys SurveyStats
	cache   *cache.Cache
	log     *logger.Logger
	now     func() time.Time
}

func New(leads LeadStats, tasks TaskStats, comms CommunicationStats, surveys SurveyStats, c *cache.Cache, log *logger.Logger) *Service {
	return &Service{
		leads:   leads,
		tasks:   tasks,
		comms:   comms,
		surveys: surveys,
		cache:   c,
		log:     log,
		now:     time.Now,
	}
}

const (
	snapshotCacheKey   = "snapshot"
	conversionCacheKey = "conversion"
)

// Snapshot returns the composed dashboard, read-through cached.
func (s *Service) Snapshot(ctx context.Context) (transport.SnapshotResponse, error) {
	if payload, ok := s.cache.Get(ctx, snapshotCacheKey); ok {
		var resp transport.SnapshotResponse
		if err := json.Unmarshal(payload, &resp); err == nil {
			return resp, nil
		}
	}

	var (
		byStatus map[leaddomain.Status]int
		bySource map[leaddomain.Source]int
		workload taskrepo.WorkloadCounts
		comms    commtransport.StatsResponse
		surveys  surveydomain.Snapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		byStatus = s.statusCounts(gctx)
		return nil
	})
	g.Go(func() error {
		bySource = s.sourceCounts(gctx)
		return nil
	})
	g.Go(func() error {
		workload = s.workloadCounts(gctx)
		return nil
	})
	g.Go(func() error {
		comms = s.channelBreakdown(gctx)
		return nil
	})
	g.Go(func() error {
		surveys = s.surveySnapshot(gctx)
		return nil
	})
	_ = g.Wait()

	total := 0
	for _, count := range byStatus {
		total += count
	}

	resp := transport.SnapshotResponse{
		TotalLeads:     total,
		LostLeads:      byStatus[leaddomain.StatusLost],
		Pipeline:       buildPipeline(byStatus, total),
		Sources:        buildSources(bySource),
		Tasks:          transport.TaskCounts{Open: workload.Open, Overdue: workload.Overdue, CompletedToday: workload.CompletedToday},
		Communications: buildChannels(comms),
		Surveys:        surveys,
		GeneratedAt:    s.now().UTC(),
	}

	if payload, err := json.Marshal(resp); err == nil {
		s.cache.Set(ctx, snapshotCacheKey, payload)
	}
	return resp, nil
}

// ConversionReport returns per-stage reach and drop-off. A lead's
// current status stands in for the furthest stage it reached; a lead in
// QUALIFIED counts as having reached NEW, CONTACTED, and QUALIFIED.
func (s *Service) ConversionReport(ctx context.Context) (transport.ConversionReportResponse, error) {
	if payload, ok := s.cache.Get(ctx, conversionCacheKey); ok {
		var resp transport.ConversionReportResponse
		if err := json.Unmarshal(payload, &resp); err == nil {
			return resp, nil
		}
	}

	byStatus := s.statusCounts(ctx)

	total := 0
	for _, count := range byStatus {
		total += count
	}
	converted := byStatus[leaddomain.StatusConverted]

	stages := make([]transport.ConversionStage, 0, len(leaddomain.PipelineOrder))
	previous := total
	for i, status := range leaddomain.PipelineOrder {
		reached := 0
		for _, later := range leaddomain.PipelineOrder[i:] {
			reached += byStatus[later]
		}
		stages = append(stages, transport.ConversionStage{
			Status:     string(status),
			Reached:    reached,
			Percentage: percentage(reached, total),
			DropOff:    previous - reached,
		})
		previous = reached
	}

	resp := transport.ConversionReportResponse{
		TotalLeads:     total,
		ConvertedLeads: converted,
		LostLeads:      byStatus[leaddomain.StatusLost],
		ConversionRate: percentage(converted, total),
		Stages:         stages,
	}

	if payload, err := json.Marshal(resp); err == nil {
		s.cache.Set(ctx, conversionCacheKey, payload)
	}
	return resp, nil
}

// Invalidate drops every cached dashboard payload. Wired to the event
// bus so any write in a source module takes effect on the next read.
func (s *Service) Invalidate(ctx context.Context) {
	s.cache.Bump(ctx)
}

func (s *Service) statusCounts(ctx context.Context) map[leaddomain.Status]int {
	counts, err := s.leads.CountByStatus(ctx)
	if err != nil {
		s.log.Warn("dashboard lead status counts unavailable", "error", err)
		return map[leaddomain.Status]int{}
	}
	return counts
}

func (s *Service) sourceCounts(ctx context.Context) map[leaddomain.Source]int {
	counts, err := s.leads.CountBySource(ctx)
	if err != nil {
		s.log.Warn("dashboard lead source counts unavailable", "error", err)
		return map[leaddomain.Source]int{}
	}
	return counts
}

func (s *Service) workloadCounts(ctx context.Context) taskrepo.WorkloadCounts {
	counts, err := s.tasks.WorkloadCounts(ctx)
	if err != nil {
		s.log.Warn("dashboard task counts unavailable", "error", err)
		return taskrepo.WorkloadCounts{}
	}
	return counts
}

func (s *Service) channelBreakdown(ctx context.Context) commtransport.StatsResponse {
	stats, err := s.comms.Stats(ctx)
	if err != nil {
		s.log.Warn("dashboard communication stats unavailable", "error", err)
		return commtransport.StatsResponse{}
	}
	return stats
}

func (s *Service) surveySnapshot(ctx context.Context) surveydomain.Snapshot {
	snapshot, err := s.surveys.OverallSnapshot(ctx)
	if err != nil {
		s.log.Warn("dashboard survey snapshot unavailable", "error", err)
		return surveydomain.Aggregate(nil)
	}
	return snapshot
}

func buildPipeline(byStatus map[leaddomain.Status]int, total int) []transport.PipelineStage {
	stages := make([]transport.PipelineStage, 0, len(leaddomain.PipelineOrder))
	for _, status := range leaddomain.PipelineOrder {
		count := byStatus[status]
		stages = append(stages, transport.PipelineStage{
			Status:     string(status),
			Count:      count,
			Percentage: percentage(count, total),
		})
	}
	return stages
}

func buildSources(bySource map[leaddomain.Source]int) []transport.SourceCount {
	sources := make([]transport.SourceCount, 0, len(bySource))
	for source, count := range bySource {
		sources = append(sources, transport.SourceCount{Source: string(source), Count: count})
	}
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].Count != sources[j].Count {
			return sources[i].Count > sources[j].Count
		}
		return sources[i].Source < sources[j].Source
	})
	return sources
}

func buildChannels(stats commtransport.StatsResponse) []transport.ChannelStat {
	channels := make([]transport.ChannelStat, 0, len(stats.Channels))
	for _, c := range stats.Channels {
		channels = append(channels, transport.ChannelStat{
			Channel:  c.Channel,
			Total:    c.Total,
			Inbound:  c.Inbound,
			Outbound: c.Outbound,
		})
	}
	return channels
}

func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}
