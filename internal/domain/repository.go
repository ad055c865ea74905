package domain

import (
	"context"
	"time"
)

// UserRepository 定义用户档案存取接口。
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	UpdateStatus(ctx context.Context, userID, status string, at time.Time) error
	UpdateRole(ctx context.Context, userID, role string, at time.Time) error
	UpdateProfile(ctx context.Context, userID string, params UserProfileParams, at time.Time) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
	Delete(ctx context.Context, userID string) error
}

// IdentityRepository 定义登录凭证存取接口。
type IdentityRepository interface {
	Create(ctx context.Context, identity *Identity) error
	GetByID(ctx context.Context, identityID string) (*Identity, error)
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	Delete(ctx context.Context, identityID string) error
}

// AgentRepository 定义语音代理存取接口。
type AgentRepository interface {
	Create(ctx context.Context, agent *Agent) error
	GetByID(ctx context.Context, agentID string) (*Agent, error)
	List(ctx context.Context) ([]*Agent, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Agent, error)
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
}

// CampaignRepository 定义营销活动存取接口。
type CampaignRepository interface {
	Create(ctx context.Context, campaign *Campaign) error
	GetByID(ctx context.Context, campaignID string) (*Campaign, error)
	List(ctx context.Context) ([]*Campaign, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Campaign, error)
	MarkStarted(ctx context.Context, campaignID string, at time.Time) error
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
}

// CallLogRepository 定义通话记录存取接口。
type CallLogRepository interface {
	Create(ctx context.Context, call *CallLog) error
	List(ctx context.Context) ([]*CallLog, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*CallLog, error)
	ListRecentWithRefs(ctx context.Context, limit int) ([]*CallLogEntry, error)
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
}

// SystemSettingRepository 定义键值配置存取接口。
type SystemSettingRepository interface {
	Get(ctx context.Context, key string) (*SystemSetting, error)
	Upsert(ctx context.Context, key, value string, at time.Time) error
}

// Repositories 聚合全部仓储接口，便于依赖注入。
type Repositories struct {
	Users      UserRepository
	Identities IdentityRepository
	Agents     AgentRepository
	Campaigns  CampaignRepository
	CallLogs   CallLogRepository
	Settings   SystemSettingRepository
}
