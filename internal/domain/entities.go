package domain

import "time"

// 角色取值，按权限由低到高排列。
const (
	RoleUser    = "user"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// 用户状态。
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// 语音代理状态。
const (
	AgentStatusActive   = "active"
	AgentStatusInactive = "inactive"
	AgentStatusTraining = "training"
)

// 营销活动状态。
const (
	CampaignStatusDraft     = "draft"
	CampaignStatusActive    = "active"
	CampaignStatusPaused    = "paused"
	CampaignStatusCompleted = "completed"
	CampaignStatusCancelled = "cancelled"
)

// 通话结果状态。
const (
	CallStatusCompleted = "completed"
	CallStatusFailed    = "failed"
	CallStatusBusy      = "busy"
	CallStatusNoAnswer  = "no_answer"
)

// SettingMillisAPIKey 是语音服务商 API Key 在 system_settings 中的键。
const SettingMillisAPIKey = "millis_api_key"

// User 是存储侧的用户档案，角色与状态以此为准。
type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FullName    *string    `json:"full_name,omitempty"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	Company     *string    `json:"company,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Identity 保存登录凭证，与 User 档案一一对应但独立删除。
type Identity struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// Principal 表示一次请求中解析出的调用者，不跨请求缓存。
type Principal struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// Agent 是用户创建的语音代理。
type Agent struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"user_id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	Status       string    `json:"status"`
	VoiceID      *string   `json:"voice_id,omitempty"`
	Language     *string   `json:"language,omitempty"`
	Personality  *string   `json:"personality,omitempty"`
	Instructions *string   `json:"instructions,omitempty"`
	ExternalRef  string    `json:"millis_agent_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Campaign 是批量外呼活动。
type Campaign struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"user_id"`
	AgentID         *string    `json:"agent_id,omitempty"`
	Name            string     `json:"name"`
	Status          string     `json:"status"`
	TotalRecords    int        `json:"total_records"`
	CompletedCalls  int        `json:"completed_calls"`
	SuccessfulCalls int        `json:"successful_calls"`
	FailedCalls     int        `json:"failed_calls"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CallLog 记录单次通话结果；Duration 单位为秒。
type CallLog struct {
	ID          string     `json:"id"`
	CampaignID  *string    `json:"campaign_id,omitempty"`
	AgentID     *string    `json:"agent_id,omitempty"`
	OwnerID     string     `json:"user_id"`
	PhoneNumber string     `json:"phone_number"`
	Status      string     `json:"status"`
	Duration    int        `json:"duration"`
	Cost        float64    `json:"cost"`
	Transcript  *string    `json:"transcript,omitempty"`
	ExternalRef string     `json:"millis_call_id"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CallLogEntry 为系统日志视图附带活动、代理与用户的展示名称。
type CallLogEntry struct {
	CallLog
	CampaignName *string `json:"campaign_name,omitempty"`
	AgentName    *string `json:"agent_name,omitempty"`
	UserFullName *string `json:"user_full_name,omitempty"`
	UserEmail    *string `json:"user_email,omitempty"`
}

// SystemSetting 是扁平的键值配置。
type SystemSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserProfileParams 描述可由用户本人修改的档案字段。
type UserProfileParams struct {
	FullName *string
	Company  *string
	Phone    *string
}
