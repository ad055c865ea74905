package stats

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/zacharykka/campaign-console/internal/domain"
)

func revenueMap(series RevenueSeries) map[string]float64 {
	out := make(map[string]float64, len(series))
	for _, day := range series {
		out[day.Date] = day.Revenue
	}
	return out
}

func usersWithStatus(active, inactive int) []*domain.User {
	var users []*domain.User
	for i := 0; i < active; i++ {
		users = append(users, &domain.User{Status: domain.UserStatusActive})
	}
	for i := 0; i < inactive; i++ {
		users = append(users, &domain.User{Status: domain.UserStatusInactive})
	}
	return users
}

func TestDashboardStatsEmptyCalls(t *testing.T) {
	stats := DashboardStats(usersWithStatus(3, 2), nil, []*domain.CallLog{}, nil)

	if stats.TotalUsers != 5 || stats.ActiveUsers != 3 {
		t.Fatalf("unexpected user counts %+v", stats)
	}
	if stats.TotalCalls != 0 || stats.AvgCallDuration != 0 || stats.TotalRevenue != 0 {
		t.Fatalf("expected zeroed call figures got %+v", stats)
	}
}

func TestDashboardStatsCallFigures(t *testing.T) {
	calls := []*domain.CallLog{
		{Status: domain.CallStatusCompleted, Duration: 120, Cost: 0.24},
		{Status: domain.CallStatusFailed, Duration: 12, Cost: 0.05},
	}

	stats := DashboardStats(nil, nil, calls, nil)
	if stats.SuccessfulCalls != 1 || stats.TotalCalls != 2 {
		t.Fatalf("unexpected call counts %+v", stats)
	}
	if stats.AvgCallDuration != 66 {
		t.Fatalf("expected avg 66 got %v", stats.AvgCallDuration)
	}
	if stats.TotalRevenue != 0.29 {
		t.Fatalf("expected revenue 0.29 got %v", stats.TotalRevenue)
	}
	if stats.SuccessRate != 50 {
		t.Fatalf("expected success rate 50 got %v", stats.SuccessRate)
	}
}

func TestDashboardStatsCountsActiveRecords(t *testing.T) {
	campaigns := []*domain.Campaign{
		{Status: domain.CampaignStatusActive},
		{Status: domain.CampaignStatusDraft},
		{Status: domain.CampaignStatusActive},
	}
	agents := []*domain.Agent{
		{Status: domain.AgentStatusActive},
		{Status: domain.AgentStatusTraining},
	}

	stats := DashboardStats(nil, campaigns, nil, agents)
	if stats.TotalCampaigns != 3 || stats.ActiveCampaigns != 2 {
		t.Fatalf("unexpected campaign counts %+v", stats)
	}
	if stats.TotalAgents != 2 || stats.ActiveAgents != 1 {
		t.Fatalf("unexpected agent counts %+v", stats)
	}
}

func TestDashboardStatsDoesNotMutateInput(t *testing.T) {
	calls := []*domain.CallLog{{Status: domain.CallStatusCompleted, Duration: 10, Cost: 0.02}}
	first := DashboardStats(usersWithStatus(1, 0), nil, calls, nil)
	second := DashboardStats(usersWithStatus(1, 0), nil, calls, nil)
	if first != second {
		t.Fatalf("expected identical results got %+v vs %+v", first, second)
	}
	if calls[0].Cost != 0.02 || calls[0].Duration != 10 {
		t.Fatalf("input mutated: %+v", calls[0])
	}
}

func TestTotalRevenueMonotonic(t *testing.T) {
	var calls []*domain.CallLog
	previous := 0.0
	for i := 0; i < 50; i++ {
		calls = append(calls, &domain.CallLog{Cost: float64(i%7) * 0.013})
		revenue := DashboardStats(nil, nil, calls, nil).TotalRevenue
		if revenue < previous {
			t.Fatalf("revenue decreased at %d: %v < %v", i, revenue, previous)
		}
		previous = revenue
	}
}

func TestUserAnalyticsMatchesDashboardFormulas(t *testing.T) {
	calls := []*domain.CallLog{
		{Status: domain.CallStatusCompleted, Duration: 120, Cost: 0.24},
		{Status: domain.CallStatusBusy, Duration: 12, Cost: 0.05},
	}
	analytics := UserAnalytics(nil, calls, []*domain.Agent{{Status: domain.AgentStatusActive}})
	if analytics.TotalCost != 0.29 || analytics.AvgDuration != 66 {
		t.Fatalf("unexpected analytics %+v", analytics)
	}
	if analytics.SuccessRate != 50 {
		t.Fatalf("expected success rate 50 got %v", analytics.SuccessRate)
	}
	if analytics.TotalAgents != 1 || analytics.ActiveAgents != 1 {
		t.Fatalf("unexpected agent counts %+v", analytics)
	}

	payload, err := json.Marshal(UserAnalytics(nil, nil, nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"total_campaigns", "active_campaigns", "total_calls", "successful_calls", "success_rate", "total_agents", "active_agents", "total_cost", "avg_duration"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("missing analytics key %s in %s", key, payload)
		}
	}
}

func TestRevenueByDay(t *testing.T) {
	calls := []*domain.CallLog{
		{Cost: 0.30, CreatedAt: time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC)},
		{Cost: 0.15, CreatedAt: time.Date(2024, 1, 15, 23, 59, 0, 0, time.UTC)},
	}

	series := RevenueByDay(calls)
	if len(series) != 2 {
		t.Fatalf("expected 2 buckets got %d", len(series))
	}
	if series[0].Date != "2024-01-15" || series[1].Date != "2024-01-16" {
		t.Fatalf("expected ascending dates got %+v", series)
	}

	got := revenueMap(series)
	if got["2024-01-15"] != 0.15 || got["2024-01-16"] != 0.30 {
		t.Fatalf("unexpected buckets %+v", got)
	}

	payload, err := json.Marshal(series)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"2024-01-15":0.15,"2024-01-16":0.3}` {
		t.Fatalf("unexpected json %s", payload)
	}
}

func TestRevenueByDayUsesUTCAndStartedAtFallback(t *testing.T) {
	offset := time.FixedZone("BRT", -3*3600)
	calls := []*domain.CallLog{
		// 2024-01-15 22:00 BRT == 2024-01-16 01:00 UTC
		{Cost: 0.10, CreatedAt: time.Date(2024, 1, 15, 22, 0, 0, 0, offset)},
		{Cost: 0.05, StartedAt: time.Date(2024, 1, 16, 12, 0, 0, 0, time.UTC)},
		{Cost: 0.05, CreatedAt: time.Date(2024, 1, 16, 13, 0, 0, 0, time.UTC)},
	}

	got := revenueMap(RevenueByDay(calls))
	if len(got) != 1 || got["2024-01-16"] != 0.2 {
		t.Fatalf("expected single UTC bucket with 0.2 got %+v", got)
	}
}

func TestRevenueByDayEmpty(t *testing.T) {
	payload, err := json.Marshal(RevenueByDay(nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{}` {
		t.Fatalf("expected empty object got %s", payload)
	}
}

func TestSuccessRate(t *testing.T) {
	if SuccessRate(0, 0) != 0 {
		t.Fatalf("expected zero rate for empty denominator")
	}
	if got := SuccessRate(1, 3); got != 33.33 {
		t.Fatalf("expected 33.33 got %v", got)
	}
	if got := SuccessRate(2, 2); got != 100 {
		t.Fatalf("expected 100 got %v", got)
	}
}
