package dispatch

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/zacharykka/campaign-console/internal/domain"
	"github.com/zacharykka/campaign-console/internal/service/access"
)

// Surface 表示请求入口。
type Surface string

const (
	// SurfaceAdmin 为管理后台接口，基线要求 manager 及以上。
	SurfaceAdmin Surface = "admin-panel-api"
	// SurfaceVoice 为语音集成接口，基线要求已认证。
	SurfaceVoice Surface = "millis-ai-integration"
)

func (s Surface) baseline() access.Requirement {
	if s == SurfaceAdmin {
		return access.ManagerOrAbove
	}
	return access.Authenticated
}

// Action 是封闭的动作集合，只有本包内的类型可以实现。
type Action interface {
	Name() string
	Requirement() access.Requirement
	validate() error
	sealed()
}

type actionBase struct{}

func (actionBase) sealed()         {}
func (actionBase) validate() error { return nil }

type managerAction struct{ actionBase }

func (managerAction) Requirement() access.Requirement { return access.ManagerOrAbove }

type memberAction struct{ actionBase }

func (memberAction) Requirement() access.Requirement { return access.Authenticated }

// ---- 管理后台动作 ----

// GetDashboardStats 汇总全局统计。
type GetDashboardStats struct{ managerAction }

func (*GetDashboardStats) Name() string { return "get-dashboard-stats" }

// GetAllUsers 列出全部用户档案。
type GetAllUsers struct{ managerAction }

func (*GetAllUsers) Name() string { return "get-all-users" }

// GetSystemLogs 返回最近的通话日志。
type GetSystemLogs struct{ managerAction }

func (*GetSystemLogs) Name() string { return "get-system-logs" }

// GetRevenueAnalytics 按日汇总收入。
type GetRevenueAnalytics struct{ managerAction }

func (*GetRevenueAnalytics) Name() string { return "get-revenue-analytics" }

// UpdateUserStatus 修改用户状态。
type UpdateUserStatus struct {
	managerAction
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

func (*UpdateUserStatus) Name() string { return "update-user-status" }

func (a *UpdateUserStatus) validate() error {
	if strings.TrimSpace(a.UserID) == "" {
		return invalid("user_id is required")
	}
	if !domain.ValidUserStatus(a.Status) {
		return invalid("status must be active or inactive")
	}
	return nil
}

// UpdateUserRole 修改用户角色。
type UpdateUserRole struct {
	managerAction
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (*UpdateUserRole) Name() string { return "update-user-role" }

func (a *UpdateUserRole) validate() error {
	if strings.TrimSpace(a.UserID) == "" {
		return invalid("user_id is required")
	}
	if !domain.ValidRole(a.Role) {
		return invalid("role must be user, manager or admin")
	}
	return nil
}

// UpdateMillisAPIKey 保存服务商 API Key。
type UpdateMillisAPIKey struct {
	managerAction
	APIKey string `json:"api_key"`
}

func (*UpdateMillisAPIKey) Name() string { return "update-millis-api-key" }

func (a *UpdateMillisAPIKey) validate() error {
	if strings.TrimSpace(a.APIKey) == "" {
		return invalid("api_key is required")
	}
	return nil
}

// DeleteUser 删除用户凭证，并按配置清理其数据。
type DeleteUser struct {
	managerAction
	UserID string `json:"user_id"`
}

func (*DeleteUser) Name() string { return "delete-user" }

func (a *DeleteUser) validate() error {
	if strings.TrimSpace(a.UserID) == "" {
		return invalid("user_id is required")
	}
	return nil
}

// ---- 语音集成动作 ----

// CreateAgent 在服务商侧创建代理后落库。
type CreateAgent struct {
	memberAction
	AgentName    string `json:"name"`
	Description  string `json:"description"`
	VoiceID      string `json:"voice_id"`
	Language     string `json:"language"`
	Personality  string `json:"personality"`
	Instructions string `json:"instructions"`
}

func (*CreateAgent) Name() string { return "create-agent" }

func (a *CreateAgent) validate() error {
	if strings.TrimSpace(a.AgentName) == "" {
		return invalid("name is required")
	}
	return nil
}

// CreateCampaign 为调用者创建草稿活动，归属与状态由服务端决定。
type CreateCampaign struct {
	memberAction
	CampaignName string `json:"name"`
	AgentID      string `json:"agent_id"`
	TotalRecords int    `json:"total_records"`
}

func (*CreateCampaign) Name() string { return "create-campaign" }

func (a *CreateCampaign) validate() error {
	if strings.TrimSpace(a.CampaignName) == "" {
		return invalid("name is required")
	}
	if a.TotalRecords < 0 {
		return invalid("total_records must not be negative")
	}
	return nil
}

// StartCampaign 启动调用者名下的活动。
type StartCampaign struct {
	memberAction
	CampaignID string `json:"campaign_id"`
}

func (*StartCampaign) Name() string { return "start-campaign" }

func (a *StartCampaign) validate() error {
	if strings.TrimSpace(a.CampaignID) == "" {
		return invalid("campaign_id is required")
	}
	return nil
}

// MakeCall 发起单次外呼并记录结果。
type MakeCall struct {
	memberAction
	PhoneNumber string `json:"phone_number"`
	AgentID     string `json:"agent_id"`
	CampaignID  string `json:"campaign_id"`
	Script      string `json:"script"`
}

func (*MakeCall) Name() string { return "make-call" }

func (a *MakeCall) validate() error {
	if strings.TrimSpace(a.PhoneNumber) == "" {
		return invalid("phone_number is required")
	}
	return nil
}

// GetAnalytics 返回调用者自己的统计。
type GetAnalytics struct{ memberAction }

func (*GetAnalytics) Name() string { return "get-analytics" }

var surfaceActions = map[Surface]map[string]func() Action{
	SurfaceAdmin: {
		"get-dashboard-stats":   func() Action { return &GetDashboardStats{} },
		"get-all-users":         func() Action { return &GetAllUsers{} },
		"get-system-logs":       func() Action { return &GetSystemLogs{} },
		"get-revenue-analytics": func() Action { return &GetRevenueAnalytics{} },
		"update-user-status":    func() Action { return &UpdateUserStatus{} },
		"update-user-role":      func() Action { return &UpdateUserRole{} },
		"update-millis-api-key": func() Action { return &UpdateMillisAPIKey{} },
		"delete-user":           func() Action { return &DeleteUser{} },
	},
	SurfaceVoice: {
		"create-agent":    func() Action { return &CreateAgent{} },
		"create-campaign": func() Action { return &CreateCampaign{} },
		"start-campaign":  func() Action { return &StartCampaign{} },
		"make-call":       func() Action { return &MakeCall{} },
		"get-analytics":   func() Action { return &GetAnalytics{} },
	},
}

// Lookup 按名称查找入口下的动作，返回未填充负载的实例。
func Lookup(surface Surface, name string) (Action, error) {
	factories, ok := surfaceActions[surface]
	if !ok {
		return nil, unknownAction(name)
	}
	factory, ok := factories[name]
	if !ok {
		return nil, unknownAction(name)
	}
	return factory(), nil
}

// decodePayload 将 data 填入动作并校验。
func decodePayload(action Action, data json.RawMessage) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, action); err != nil {
			return &Error{Kind: KindValidation, Message: "data must be a JSON object", Err: err}
		}
	}
	return action.validate()
}
