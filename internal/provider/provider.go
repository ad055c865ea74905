package provider

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMissingAPIKey 表示既未保存也未配置服务商 API Key。
	ErrMissingAPIKey = errors.New("provider api key not configured")
	// ErrInvalidRequest 表示发给服务商的参数不完整。
	ErrInvalidRequest = errors.New("invalid provider request")
)

// AgentSpec 是创建外部语音代理所需的字段。
type AgentSpec struct {
	Name         string
	VoiceID      string
	Language     string
	Personality  string
	Instructions string
}

// CallRequest 描述一次单独外呼。
type CallRequest struct {
	PhoneNumber string
	AgentID     string
	CampaignID  string
	Script      string
}

// CallOutcome 是服务商返回的通话结果。
type CallOutcome struct {
	ExternalRef string
	Status      string
	Duration    int
	Cost        float64
	Transcript  string
	StartedAt   time.Time
	EndedAt     time.Time
}

// Provider 抽象外部语音服务商，调度器只依赖该接口。
type Provider interface {
	CreateAgent(ctx context.Context, spec AgentSpec) (string, error)
	StartCampaign(ctx context.Context, campaignID string) error
	PlaceCall(ctx context.Context, req CallRequest) (*CallOutcome, error)
}

// Outcome 为通话结果合成器的产物，不含外部引用。
type Outcome struct {
	Status     string
	Duration   int
	Cost       float64
	Transcript string
	// Elapsed 为通话实际占用的时长，用于计算结束时间。
	Elapsed time.Duration
}

// OutcomeSource 隔离通话结果的生成策略，真实服务商接入时可直接替换。
type OutcomeSource interface {
	Next() Outcome
}

// KeyResolver 提供当前生效的 API Key。
type KeyResolver interface {
	APIKey(ctx context.Context) (string, error)
}
