package stats

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zacharykka/campaign-console/internal/domain"
)

// DateLayout 为按日聚合的日期键格式（UTC）。
const DateLayout = "2006-01-02"

// Dashboard 是全局看板统计，所有值均在请求时重新计算。
type Dashboard struct {
	TotalUsers      int     `json:"total_users"`
	ActiveUsers     int     `json:"active_users"`
	TotalCampaigns  int     `json:"total_campaigns"`
	ActiveCampaigns int     `json:"active_campaigns"`
	TotalCalls      int     `json:"total_calls"`
	SuccessfulCalls int     `json:"successful_calls"`
	SuccessRate     float64 `json:"success_rate"`
	TotalAgents     int     `json:"total_agents"`
	ActiveAgents    int     `json:"active_agents"`
	TotalRevenue    float64 `json:"total_revenue"`
	AvgCallDuration float64 `json:"avg_call_duration"`
}

// Analytics 是单个用户名下记录的统计。
type Analytics struct {
	TotalCampaigns  int     `json:"total_campaigns"`
	ActiveCampaigns int     `json:"active_campaigns"`
	TotalCalls      int     `json:"total_calls"`
	SuccessfulCalls int     `json:"successful_calls"`
	SuccessRate     float64 `json:"success_rate"`
	TotalAgents     int     `json:"total_agents"`
	ActiveAgents    int     `json:"active_agents"`
	TotalCost       float64 `json:"total_cost"`
	AvgDuration     float64 `json:"avg_duration"`
}

type callTotals struct {
	total      int
	successful int
	cost       float64
	avg        float64
}

func summarizeCalls(calls []*domain.CallLog) callTotals {
	var (
		totals   callTotals
		cost     = decimal.Zero
		duration int64
	)
	for _, call := range calls {
		if call == nil {
			continue
		}
		totals.total++
		if call.Status == domain.CallStatusCompleted {
			totals.successful++
		}
		cost = cost.Add(decimal.NewFromFloat(call.Cost))
		duration += int64(call.Duration)
	}
	totals.cost = cost.InexactFloat64()
	if totals.total > 0 {
		totals.avg = float64(duration) / float64(totals.total)
	}
	return totals
}

func countCampaigns(campaigns []*domain.Campaign) (total, active int) {
	for _, campaign := range campaigns {
		if campaign == nil {
			continue
		}
		total++
		if campaign.Status == domain.CampaignStatusActive {
			active++
		}
	}
	return total, active
}

func countAgents(agents []*domain.Agent) (total, active int) {
	for _, agent := range agents {
		if agent == nil {
			continue
		}
		total++
		if agent.Status == domain.AgentStatusActive {
			active++
		}
	}
	return total, active
}

// DashboardStats 汇总全部用户、活动、通话与代理。空通话集合的平均时长为 0。
func DashboardStats(users []*domain.User, campaigns []*domain.Campaign, calls []*domain.CallLog, agents []*domain.Agent) Dashboard {
	var out Dashboard
	for _, user := range users {
		if user == nil {
			continue
		}
		out.TotalUsers++
		if user.Status == domain.UserStatusActive {
			out.ActiveUsers++
		}
	}
	out.TotalCampaigns, out.ActiveCampaigns = countCampaigns(campaigns)
	out.TotalAgents, out.ActiveAgents = countAgents(agents)

	totals := summarizeCalls(calls)
	out.TotalCalls = totals.total
	out.SuccessfulCalls = totals.successful
	out.SuccessRate = SuccessRate(totals.successful, totals.total)
	out.TotalRevenue = totals.cost
	out.AvgCallDuration = totals.avg
	return out
}

// UserAnalytics 与 DashboardStats 公式一致，输入需由调用方预先按 owner 过滤。
func UserAnalytics(campaigns []*domain.Campaign, calls []*domain.CallLog, agents []*domain.Agent) Analytics {
	var out Analytics
	out.TotalCampaigns, out.ActiveCampaigns = countCampaigns(campaigns)
	out.TotalAgents, out.ActiveAgents = countAgents(agents)

	totals := summarizeCalls(calls)
	out.TotalCalls = totals.total
	out.SuccessfulCalls = totals.successful
	out.SuccessRate = SuccessRate(totals.successful, totals.total)
	out.TotalCost = totals.cost
	out.AvgDuration = totals.avg
	return out
}

// DayRevenue 为单日收入。
type DayRevenue struct {
	Date    string
	Revenue float64
}

// RevenueSeries 按日期升序排列，序列化为 {"YYYY-MM-DD": revenue} 对象。
type RevenueSeries []DayRevenue

// MarshalJSON 保持升序输出对象键。
func (s RevenueSeries) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, day := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(day.Date)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(day.Revenue)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RevenueByDay 按 UTC 日期对通话费用求和，无通话的日期不出现，结果按日期升序。
func RevenueByDay(calls []*domain.CallLog) RevenueSeries {
	buckets := make(map[string]decimal.Decimal)
	for _, call := range calls {
		if call == nil {
			continue
		}
		key := callDate(call).UTC().Format(DateLayout)
		buckets[key] = buckets[key].Add(decimal.NewFromFloat(call.Cost))
	}

	series := make(RevenueSeries, 0, len(buckets))
	for date, sum := range buckets {
		series = append(series, DayRevenue{Date: date, Revenue: sum.InexactFloat64()})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series
}

func callDate(call *domain.CallLog) time.Time {
	if !call.CreatedAt.IsZero() {
		return call.CreatedAt
	}
	return call.StartedAt
}

// SuccessRate 返回百分比形式的成功率，total 为 0 时返回 0。
func SuccessRate(successful, total int) float64 {
	if total <= 0 {
		return 0
	}
	rate := decimal.NewFromInt(int64(successful)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
	return rate.InexactFloat64()
}
