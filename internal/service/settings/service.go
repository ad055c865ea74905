package settings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/zacharykka/campaign-console/internal/domain"
)

// ErrEmptyValue 表示尝试保存空的 API Key。
var ErrEmptyValue = errors.New("setting value required")

// Service 管理服务商 API Key 等系统配置。
type Service struct {
	repo  domain.SystemSettingRepository
	nowFn func() time.Time
}

// NewService 创建配置服务。
func NewService(repo domain.SystemSettingRepository) *Service {
	return &Service{repo: repo, nowFn: time.Now}
}

// WithClock 允许注入自定义时间函数，便于测试。
func (s *Service) WithClock(now func() time.Time) {
	if now != nil {
		s.nowFn = now
	}
}

// Get 读取指定键，不存在时返回 domain.ErrNotFound。
func (s *Service) Get(ctx context.Context, key string) (*domain.SystemSetting, error) {
	return s.repo.Get(ctx, key)
}

// Save 以 upsert 方式保存服务商 API Key。
func (s *Service) Save(ctx context.Context, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return ErrEmptyValue
	}
	return s.repo.Upsert(ctx, domain.SettingMillisAPIKey, apiKey, s.nowFn().UTC())
}

// APIKey 返回已保存的 API Key，未保存时返回空字符串。
func (s *Service) APIKey(ctx context.Context) (string, error) {
	setting, err := s.repo.Get(ctx, domain.SettingMillisAPIKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return setting.Value, nil
}

// Configured 判断是否已保存 API Key，用于前端显示“已配置”状态。
func (s *Service) Configured(ctx context.Context) (bool, error) {
	key, err := s.APIKey(ctx)
	if err != nil {
		return false, err
	}
	return key != "", nil
}

// Hint 返回脱敏后的 Key 提示，只保留末四位。
func Hint(key string) string {
	if key == "" {
		return ""
	}
	runes := []rune(key)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}
