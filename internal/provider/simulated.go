package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zacharykka/campaign-console/internal/config"
	"go.uber.org/zap"
)

// Simulated 在进程内模拟语音服务商，不发起任何网络请求。
type Simulated struct {
	cfg      config.ProviderConfig
	keys     KeyResolver
	outcomes OutcomeSource
	logger   *zap.Logger
	nowFn    func() time.Time
}

// NewSimulated 创建模拟服务商；keys 为 nil 时只使用配置中的默认 Key。
func NewSimulated(cfg config.ProviderConfig, keys KeyResolver, outcomes OutcomeSource, logger *zap.Logger) *Simulated {
	if logger == nil {
		logger = zap.NewNop()
	}
	if outcomes == nil {
		outcomes = NewRandomOutcomes(cfg, nil)
	}
	return &Simulated{
		cfg:      cfg,
		keys:     keys,
		outcomes: outcomes,
		logger:   logger,
		nowFn:    time.Now,
	}
}

// WithClock 允许注入自定义时间函数，便于测试。
func (s *Simulated) WithClock(now func() time.Time) {
	if now != nil {
		s.nowFn = now
	}
}

func (s *Simulated) apiKey(ctx context.Context) (string, error) {
	if s.keys != nil {
		key, err := s.keys.APIKey(ctx)
		if err != nil {
			return "", fmt.Errorf("resolve provider key: %w", err)
		}
		if strings.TrimSpace(key) != "" {
			return key, nil
		}
	}
	if strings.TrimSpace(s.cfg.DefaultAPIKey) == "" {
		return "", ErrMissingAPIKey
	}
	return s.cfg.DefaultAPIKey, nil
}

// CreateAgent 返回外部代理引用。
func (s *Simulated) CreateAgent(ctx context.Context, spec AgentSpec) (string, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return "", fmt.Errorf("%w: agent name required", ErrInvalidRequest)
	}
	if _, err := s.apiKey(ctx); err != nil {
		return "", err
	}
	ref := fmt.Sprintf("millis_agent_%d", s.nowFn().UnixMilli())
	s.logger.Debug("provider agent created",
		zap.String("provider", s.cfg.Name),
		zap.String("endpoint", s.cfg.APIBase+"/agents"),
		zap.String("external_ref", ref),
	)
	return ref, nil
}

// StartCampaign 通知服务商开始外呼。
func (s *Simulated) StartCampaign(ctx context.Context, campaignID string) error {
	if strings.TrimSpace(campaignID) == "" {
		return fmt.Errorf("%w: campaign id required", ErrInvalidRequest)
	}
	if _, err := s.apiKey(ctx); err != nil {
		return err
	}
	s.logger.Debug("provider campaign started",
		zap.String("provider", s.cfg.Name),
		zap.String("endpoint", s.cfg.APIBase+"/campaigns/"+campaignID+"/start"),
	)
	return nil
}

// PlaceCall 合成一次通话结果。
func (s *Simulated) PlaceCall(ctx context.Context, req CallRequest) (*CallOutcome, error) {
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return nil, fmt.Errorf("%w: phone number required", ErrInvalidRequest)
	}
	if _, err := s.apiKey(ctx); err != nil {
		return nil, err
	}

	now := s.nowFn().UTC()
	outcome := s.outcomes.Next()
	result := &CallOutcome{
		ExternalRef: fmt.Sprintf("call_%d", now.UnixMilli()),
		Status:      outcome.Status,
		Duration:    outcome.Duration,
		Cost:        outcome.Cost,
		Transcript:  outcome.Transcript,
		StartedAt:   now,
		EndedAt:     now.Add(outcome.Elapsed),
	}
	s.logger.Debug("provider call placed",
		zap.String("provider", s.cfg.Name),
		zap.String("external_ref", result.ExternalRef),
		zap.String("status", result.Status),
	)
	return result, nil
}
