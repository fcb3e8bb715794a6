package service

import (
	"context"
	"errors"
	"testing"
	"time"

	commtransport "hospital_crm_backend/internal/communications/transport"
	"hospital_crm_backend/internal/dashboard/cache"
	leaddomain "hospital_crm_backend/internal/leads/domain"
	surveydomain "hospital_crm_backend/internal/surveys/domain"
	taskrepo "hospital_crm_backend/internal/tasks/repository"
	"hospital_crm_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeLeads struct {
	byStatus map[leaddomain.Status]int
	bySource map[leaddomain.Source]int
	err      error
	calls    int
}

func (f *fakeLeads) CountByStatus(context.Context) (map[leaddomain.Status]int, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.byStatus, nil
}

func (f *fakeLeads) CountBySource(context.Context) (map[leaddomain.Source]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bySource, nil
}

type fakeTasks struct {
	counts taskrepo.WorkloadCounts
	err    error
}

func (f *fakeTasks) WorkloadCounts(context.Context) (taskrepo.WorkloadCounts, error) {
	if f.err != nil {
		return taskrepo.WorkloadCounts{}, f.err
	}
	return f.counts, nil
}

type fakeComms struct {
	stats commtransport.StatsResponse
	err   error
}

func (f *fakeComms) Stats(context.Context) (commtransport.StatsResponse, error) {
	if f.err != nil {
		return commtransport.StatsResponse{}, f.err
	}
	return f.stats, nil
}

type fakeSurveys struct {
	snapshot surveydomain.Snapshot
	err      error
}

func (f *fakeSurveys) OverallSnapshot(context.Context) (surveydomain.Snapshot, error) {
	if f.err != nil {
		return surveydomain.Snapshot{}, f.err
	}
	return f.snapshot, nil
}

func testProviders() (*fakeLeads, *fakeTasks, *fakeComms, *fakeSurveys) {
	leads := &fakeLeads{
		byStatus: map[leaddomain.Status]int{
			leaddomain.StatusNew:       4,
			leaddomain.StatusContacted: 3,
			leaddomain.StatusQualified: 1,
			leaddomain.StatusConverted: 1,
			leaddomain.StatusLost:      1,
		},
		bySource: map[leaddomain.Source]int{
			leaddomain.SourceWebsite:  6,
			leaddomain.SourceReferral: 4,
		},
	}
	tasks := &fakeTasks{counts: taskrepo.WorkloadCounts{Open: 5, Overdue: 2, CompletedToday: 3}}
	comms := &fakeComms{stats: commtransport.StatsResponse{
		Total:    7,
		Channels: []commtransport.ChannelStat{{Channel: "PHONE", Total: 7, Inbound: 3, Outbound: 4}},
	}}
	surveys := &fakeSurveys{snapshot: surveydomain.Aggregate(nil)}
	return leads, tasks, comms, surveys
}

func newTestService(leads *fakeLeads, tasks *fakeTasks, comms *fakeComms, surveys *fakeSurveys, c *cache.Cache) *Service {
	log := logger.New("test")
	if c == nil {
		c = cache.New(nil, time.Minute, log)
	}
	return New(leads, tasks, comms, surveys, c, log)
}

func TestSnapshot_ComposesAllSections(t *testing.T) {
	leads, tasks, comms, surveys := testProviders()
	svc := newTestService(leads, tasks, comms, surveys, nil)

	snapshot, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if snapshot.TotalLeads != 10 {
		t.Errorf("total leads = %d, want 10", snapshot.TotalLeads)
	}
	if snapshot.LostLeads != 1 {
		t.Errorf("lost leads = %d, want 1", snapshot.LostLeads)
	}
	if len(snapshot.Pipeline) != len(leaddomain.PipelineOrder) {
		t.Fatalf("pipeline stages = %d, want %d", len(snapshot.Pipeline), len(leaddomain.PipelineOrder))
	}
	if snapshot.Pipeline[0].Status != string(leaddomain.StatusNew) || snapshot.Pipeline[0].Percentage != 40 {
		t.Errorf("first stage = %+v, want NEW at 40%%", snapshot.Pipeline[0])
	}
	if snapshot.Sources[0].Source != string(leaddomain.SourceWebsite) {
		t.Errorf("top source = %q, want WEBSITE", snapshot.Sources[0].Source)
	}
	if snapshot.Tasks.Overdue != 2 {
		t.Errorf("overdue tasks = %d, want 2", snapshot.Tasks.Overdue)
	}
	if len(snapshot.Communications) != 1 || snapshot.Communications[0].Outbound != 4 {
		t.Errorf("communications = %+v", snapshot.Communications)
	}
}

func TestSnapshot_NoLeadsYieldsZeroPercentages(t *testing.T) {
	leads := &fakeLeads{byStatus: map[leaddomain.Status]int{}, bySource: map[leaddomain.Source]int{}}
	svc := newTestService(leads, &fakeTasks{}, &fakeComms{}, &fakeSurveys{}, nil)

	snapshot, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snapshot.TotalLeads != 0 {
		t.Fatalf("total leads = %d, want 0", snapshot.TotalLeads)
	}
	for _, stage := range snapshot.Pipeline {
		if stage.Percentage != 0 {
			t.Errorf("stage %s percentage = %v, want 0", stage.Status, stage.Percentage)
		}
	}
}

func TestSnapshot_DegradesPerSection(t *testing.T) {
	leads := &fakeLeads{err: errors.New("db down")}
	tasks := &fakeTasks{counts: taskrepo.WorkloadCounts{Open: 4}}
	svc := newTestService(leads, tasks, &fakeComms{err: errors.New("db down")}, &fakeSurveys{err: errors.New("db down")}, nil)

	snapshot, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot should not fail on degraded sections: %v", err)
	}
	if snapshot.TotalLeads != 0 {
		t.Errorf("total leads = %d, want 0", snapshot.TotalLeads)
	}
	if snapshot.Tasks.Open != 4 {
		t.Errorf("open tasks = %d, want 4 despite other sections failing", snapshot.Tasks.Open)
	}
	if snapshot.Surveys.TotalResponses != 0 || len(snapshot.Surveys.Histogram) == 0 {
		t.Errorf("survey section should degrade to empty aggregate, got %+v", snapshot.Surveys)
	}
}

func TestConversionReport_DropOffPerStage(t *testing.T) {
	leads, tasks, comms, surveys := testProviders()
	svc := newTestService(leads, tasks, comms, surveys, nil)

	report, err := svc.ConversionReport(context.Background())
	if err != nil {
		t.Fatalf("ConversionReport: %v", err)
	}

	if report.ConvertedLeads != 1 || report.ConversionRate != 10 {
		t.Errorf("converted = %d at %v%%, want 1 at 10%%", report.ConvertedLeads, report.ConversionRate)
	}
	first := report.Stages[0]
	if first.Reached != 9 || first.DropOff != 1 {
		t.Errorf("first stage = %+v, want reached 9 with drop-off 1", first)
	}
	last := report.Stages[len(report.Stages)-1]
	if last.Status != string(leaddomain.StatusConverted) || last.Reached != 1 {
		t.Errorf("last stage = %+v, want CONVERTED reached 1", last)
	}
}

func TestSnapshot_CachedUntilInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	log := logger.New("test")

	leads, tasks, comms, surveys := testProviders()
	svc := newTestService(leads, tasks, comms, surveys, cache.New(rdb, time.Minute, log))

	if _, err := svc.Snapshot(context.Background()); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if _, err := svc.Snapshot(context.Background()); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if leads.calls != 1 {
		t.Fatalf("status counts queried %d times, want 1 (second read cached)", leads.calls)
	}

	svc.Invalidate(context.Background())
	if _, err := svc.Snapshot(context.Background()); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if leads.calls != 2 {
		t.Fatalf("status counts queried %d times after invalidation, want 2", leads.calls)
	}
}
