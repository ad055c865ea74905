package provider

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zacharykka/campaign-console/internal/config"
	"github.com/zacharykka/campaign-console/internal/domain"
)

const (
	transcriptCompleted = "Call completed successfully. Customer showed interest."
	transcriptFailed    = "Call not completed."
)

var callStatuses = []string{
	domain.CallStatusCompleted,
	domain.CallStatusFailed,
	domain.CallStatusBusy,
	domain.CallStatusNoAnswer,
}

// RandomOutcomes 随机合成通话结果：基础时长在 [min, max) 秒内均匀分布，状态均匀抽取。
// 接通的通话按秒计费并保留 4 位小数，其余通话时长取十分之一并收取固定费用。
type RandomOutcomes struct {
	mu             sync.Mutex
	rng            *rand.Rand
	minDuration    int
	maxDuration    int
	costPerSecond  decimal.Decimal
	failedCallCost float64
}

// NewRandomOutcomes 基于配置创建合成器；rng 为 nil 时使用随机种子。
func NewRandomOutcomes(cfg config.ProviderConfig, rng *rand.Rand) *RandomOutcomes {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	minDuration, maxDuration := cfg.MinDuration, cfg.MaxDuration
	if minDuration < 0 {
		minDuration = 0
	}
	if maxDuration <= minDuration {
		maxDuration = minDuration + 1
	}
	return &RandomOutcomes{
		rng:            rng,
		minDuration:    minDuration,
		maxDuration:    maxDuration,
		costPerSecond:  decimal.NewFromFloat(cfg.CostPerSecond),
		failedCallCost: cfg.FailedCallCost,
	}
}

// Next 生成一条通话结果。
func (o *RandomOutcomes) Next() Outcome {
	o.mu.Lock()
	base := o.minDuration + o.rng.IntN(o.maxDuration-o.minDuration)
	status := callStatuses[o.rng.IntN(len(callStatuses))]
	o.mu.Unlock()

	out := Outcome{
		Status:  status,
		Elapsed: time.Duration(base) * time.Second,
	}
	if status == domain.CallStatusCompleted {
		out.Duration = base
		out.Cost = decimal.NewFromInt(int64(base)).Mul(o.costPerSecond).Round(4).InexactFloat64()
		out.Transcript = transcriptCompleted
		return out
	}
	out.Duration = base / 10
	out.Cost = o.failedCallCost
	out.Transcript = transcriptFailed
	return out
}
