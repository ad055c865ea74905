package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zacharykka/campaign-console/internal/config"
	"github.com/zacharykka/campaign-console/internal/domain"
	"github.com/zacharykka/campaign-console/internal/provider"
	"github.com/zacharykka/campaign-console/internal/service/access"
	"github.com/zacharykka/campaign-console/internal/service/stats"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result 为成功响应的负载，会与 success 字段合并输出。
type Result map[string]any

// SettingsWriter 保存服务商 API Key。
type SettingsWriter interface {
	Save(ctx context.Context, apiKey string) error
}

// IdentityRemover 删除登录凭证。
type IdentityRemover interface {
	DeleteIdentity(ctx context.Context, identityID string) error
}

// Dispatcher 将命名动作路由到受保护的操作。
type Dispatcher struct {
	repos      *domain.Repositories
	provider   provider.Provider
	settings   SettingsWriter
	identities IdentityRemover
	cfg        config.AdminConfig
	logger     *zap.Logger
	nowFn      func() time.Time
	newID      func() string
}

// NewDispatcher 创建调度器。
func NewDispatcher(repos *domain.Repositories, voice provider.Provider, settings SettingsWriter, identities IdentityRemover, cfg config.AdminConfig, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DeleteUserCleanup == "" {
		cfg.DeleteUserCleanup = config.CleanupCascade
	}
	if cfg.SystemLogLimit <= 0 {
		cfg.SystemLogLimit = 50
	}
	return &Dispatcher{
		repos:      repos,
		provider:   voice,
		settings:   settings,
		identities: identities,
		cfg:        cfg,
		logger:     logger,
		nowFn:      time.Now,
		newID:      uuid.NewString,
	}
}

// WithClock 允许注入自定义时间函数，便于测试。
func (d *Dispatcher) WithClock(now func() time.Time) {
	if now != nil {
		d.nowFn = now
	}
}

// Dispatch 依次执行：认证、入口基线授权、解析动作、动作授权、校验负载、执行。
// 每一步失败即终止，已提交的写入不回滚。
func (d *Dispatcher) Dispatch(ctx context.Context, principal *domain.Principal, surface Surface, name string, data json.RawMessage) (Result, error) {
	start := time.Now()
	result, err := d.dispatch(ctx, principal, surface, name, data)

	fields := []zap.Field{
		zap.String("surface", string(surface)),
		zap.String("action", name),
		zap.Duration("duration", time.Since(start)),
	}
	if principal != nil {
		fields = append(fields, zap.String("principal_id", principal.ID))
	}
	if err != nil {
		kind := KindOf(err)
		fields = append(fields, zap.String("kind", string(kind)), zap.Error(err))
		if kind == KindUpstream {
			d.logger.Error("action failed", fields...)
		} else {
			d.logger.Warn("action rejected", fields...)
		}
		return nil, err
	}
	d.logger.Info("action completed", fields...)
	return result, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, principal *domain.Principal, surface Surface, name string, data json.RawMessage) (Result, error) {
	if err := authorize(principal, surface.baseline()); err != nil {
		return nil, err
	}

	action, err := Lookup(surface, name)
	if err != nil {
		return nil, err
	}

	if err := authorize(principal, action.Requirement()); err != nil {
		return nil, err
	}

	if err := decodePayload(action, data); err != nil {
		return nil, err
	}

	return d.execute(ctx, principal, action)
}

// Admit 只做入口基线授权，供请求体无法解析时决定返回 401/403 还是 400。
func (d *Dispatcher) Admit(principal *domain.Principal, surface Surface) error {
	return authorize(principal, surface.baseline())
}

func authorize(principal *domain.Principal, requirement access.Requirement) error {
	decision := access.Authorize(principal, requirement)
	if decision.Allowed {
		return nil
	}
	if decision.Reason == access.ReasonUnauthenticated {
		return unauthenticated()
	}
	return forbidden("Access denied - insufficient privileges")
}

func (d *Dispatcher) execute(ctx context.Context, principal *domain.Principal, action Action) (Result, error) {
	switch a := action.(type) {
	case *GetDashboardStats:
		return d.dashboardStats(ctx)
	case *GetAllUsers:
		return d.allUsers(ctx)
	case *GetSystemLogs:
		return d.systemLogs(ctx)
	case *GetRevenueAnalytics:
		return d.revenueAnalytics(ctx)
	case *UpdateUserStatus:
		return d.updateUserStatus(ctx, principal, a)
	case *UpdateUserRole:
		return d.updateUserRole(ctx, principal, a)
	case *UpdateMillisAPIKey:
		return d.updateAPIKey(ctx, a)
	case *DeleteUser:
		return d.deleteUser(ctx, principal, a)
	case *CreateAgent:
		return d.createAgent(ctx, principal, a)
	case *CreateCampaign:
		return d.createCampaign(ctx, principal, a)
	case *StartCampaign:
		return d.startCampaign(ctx, principal, a)
	case *MakeCall:
		return d.makeCall(ctx, principal, a)
	case *GetAnalytics:
		return d.analytics(ctx, principal)
	default:
		return nil, unknownAction(action.Name())
	}
}

// ---- 管理后台 ----

func (d *Dispatcher) dashboardStats(ctx context.Context) (Result, error) {
	var (
		users     []*domain.User
		campaigns []*domain.Campaign
		calls     []*domain.CallLog
		agents    []*domain.Agent
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = d.repos.Users.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		campaigns, err = d.repos.Campaigns.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		calls, err = d.repos.CallLogs.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		agents, err = d.repos.Agents.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, upstream("failed to load dashboard data", err)
	}

	return Result{"stats": stats.DashboardStats(users, campaigns, calls, agents)}, nil
}

func (d *Dispatcher) allUsers(ctx context.Context) (Result, error) {
	users, err := d.repos.Users.List(ctx)
	if err != nil {
		return nil, upstream("failed to load users", err)
	}
	if users == nil {
		users = []*domain.User{}
	}
	return Result{"users": users}, nil
}

func (d *Dispatcher) systemLogs(ctx context.Context) (Result, error) {
	logs, err := d.repos.CallLogs.ListRecentWithRefs(ctx, d.cfg.SystemLogLimit)
	if err != nil {
		return nil, upstream("failed to load system logs", err)
	}
	if logs == nil {
		logs = []*domain.CallLogEntry{}
	}
	return Result{"logs": logs}, nil
}

func (d *Dispatcher) revenueAnalytics(ctx context.Context) (Result, error) {
	calls, err := d.repos.CallLogs.List(ctx)
	if err != nil {
		return nil, upstream("failed to load call logs", err)
	}
	return Result{"revenue": stats.RevenueByDay(calls)}, nil
}

func (d *Dispatcher) updateUserStatus(ctx context.Context, principal *domain.Principal, a *UpdateUserStatus) (Result, error) {
	if err := d.guardTarget(ctx, principal, a.UserID); err != nil {
		return nil, err
	}
	if err := d.repos.Users.UpdateStatus(ctx, a.UserID, a.Status, d.nowFn().UTC()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, invalid("user not found")
		}
		return nil, upstream("failed to update user status", err)
	}
	return Result{"message": "User status updated successfully"}, nil
}

func (d *Dispatcher) updateUserRole(ctx context.Context, principal *domain.Principal, a *UpdateUserRole) (Result, error) {
	if access.RoleRank(a.Role) > access.RoleRank(principal.Role) {
		return nil, forbidden("Access denied - cannot grant a role above your own")
	}
	if err := d.guardTarget(ctx, principal, a.UserID); err != nil {
		return nil, err
	}
	if err := d.repos.Users.UpdateRole(ctx, a.UserID, a.Role, d.nowFn().UTC()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, invalid("user not found")
		}
		return nil, upstream("failed to update user role", err)
	}
	return Result{"message": "User role updated successfully"}, nil
}

// guardTarget 拒绝操作角色高于调用者的用户；档案不存在时交由后续写入报告。
func (d *Dispatcher) guardTarget(ctx context.Context, principal *domain.Principal, userID string) error {
	target, err := d.repos.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return upstream("failed to load user", err)
	}
	if access.RoleRank(target.Role) > access.RoleRank(principal.Role) {
		return forbidden("Access denied - target user outranks you")
	}
	return nil
}

func (d *Dispatcher) updateAPIKey(ctx context.Context, a *UpdateMillisAPIKey) (Result, error) {
	if err := d.settings.Save(ctx, a.APIKey); err != nil {
		return nil, upstream("failed to save api key", err)
	}
	return Result{"message": "API key updated successfully"}, nil
}

func (d *Dispatcher) deleteUser(ctx context.Context, principal *domain.Principal, a *DeleteUser) (Result, error) {
	if a.UserID == principal.ID {
		return nil, invalid("cannot delete your own account")
	}
	if err := d.guardTarget(ctx, principal, a.UserID); err != nil {
		return nil, err
	}

	if err := d.identities.DeleteIdentity(ctx, a.UserID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, invalid("user not found")
		}
		return nil, upstream("failed to delete identity", err)
	}

	if err := d.cleanupOwner(ctx, a.UserID); err != nil {
		return nil, upstream("identity deleted but cleanup failed", err)
	}
	return Result{"message": "User deleted successfully"}, nil
}

// cleanupOwner 按策略依次清理数据，无事务，中途失败时已删除的部分保持删除。
func (d *Dispatcher) cleanupOwner(ctx context.Context, ownerID string) error {
	policy := d.cfg.DeleteUserCleanup
	if policy == config.CleanupNone {
		return nil
	}

	if policy == config.CleanupCascade {
		calls, err := d.repos.CallLogs.DeleteByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		campaigns, err := d.repos.Campaigns.DeleteByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		agents, err := d.repos.Agents.DeleteByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		d.logger.Info("owner records removed",
			zap.String("owner_id", ownerID),
			zap.Int64("call_logs", calls),
			zap.Int64("campaigns", campaigns),
			zap.Int64("agents", agents),
		)
	}

	if err := d.repos.Users.Delete(ctx, ownerID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

// ---- 语音集成 ----

func (d *Dispatcher) createAgent(ctx context.Context, principal *domain.Principal, a *CreateAgent) (Result, error) {
	ref, err := d.provider.CreateAgent(ctx, provider.AgentSpec{
		Name:         a.AgentName,
		VoiceID:      a.VoiceID,
		Language:     a.Language,
		Personality:  a.Personality,
		Instructions: a.Instructions,
	})
	if err != nil {
		return nil, upstream("failed to create agent at provider", err)
	}

	now := d.nowFn().UTC()
	agent := &domain.Agent{
		ID:           d.newID(),
		OwnerID:      principal.ID,
		Name:         a.AgentName,
		Description:  optional(a.Description),
		Status:       domain.AgentStatusActive,
		VoiceID:      optional(a.VoiceID),
		Language:     optional(a.Language),
		Personality:  optional(a.Personality),
		Instructions: optional(a.Instructions),
		ExternalRef:  ref,
		CreatedAt:    now,
	}
	if err := d.repos.Agents.Create(ctx, agent); err != nil {
		return nil, upstream("failed to save agent", err)
	}
	return Result{"agent": agent}, nil
}

func (d *Dispatcher) createCampaign(ctx context.Context, principal *domain.Principal, a *CreateCampaign) (Result, error) {
	campaign := &domain.Campaign{
		ID:           d.newID(),
		OwnerID:      principal.ID,
		Name:         strings.TrimSpace(a.CampaignName),
		Status:       domain.CampaignStatusDraft,
		TotalRecords: a.TotalRecords,
		CreatedAt:    d.nowFn().UTC(),
	}
	if a.AgentID != "" {
		agent, err := d.ownedAgent(ctx, principal, a.AgentID)
		if err != nil {
			return nil, err
		}
		campaign.AgentID = &agent.ID
	}

	if err := d.repos.Campaigns.Create(ctx, campaign); err != nil {
		return nil, upstream("failed to save campaign", err)
	}
	return Result{"campaign": campaign}, nil
}

func (d *Dispatcher) startCampaign(ctx context.Context, principal *domain.Principal, a *StartCampaign) (Result, error) {
	campaign, err := d.repos.Campaigns.GetByID(ctx, a.CampaignID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, invalid("campaign not found")
		}
		return nil, upstream("failed to load campaign", err)
	}
	if campaign.OwnerID != principal.ID {
		return nil, forbidden("Access denied - campaign belongs to another user")
	}

	if err := d.repos.Campaigns.MarkStarted(ctx, campaign.ID, d.nowFn().UTC()); err != nil {
		return nil, upstream("failed to update campaign", err)
	}

	// 状态已写入；通知失败不回滚
	if err := d.provider.StartCampaign(ctx, campaign.ID); err != nil {
		return nil, upstream("campaign marked active but provider notification failed", err)
	}
	return Result{"message": "Campaign started successfully"}, nil
}

func (d *Dispatcher) makeCall(ctx context.Context, principal *domain.Principal, a *MakeCall) (Result, error) {
	call := &domain.CallLog{
		ID:          d.newID(),
		OwnerID:     principal.ID,
		PhoneNumber: a.PhoneNumber,
	}

	if a.AgentID != "" {
		agent, err := d.ownedAgent(ctx, principal, a.AgentID)
		if err != nil {
			return nil, err
		}
		call.AgentID = &agent.ID
	}
	if a.CampaignID != "" {
		campaign, err := d.repos.Campaigns.GetByID(ctx, a.CampaignID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, invalid("campaign not found")
			}
			return nil, upstream("failed to load campaign", err)
		}
		if campaign.OwnerID != principal.ID {
			return nil, forbidden("Access denied - campaign belongs to another user")
		}
		call.CampaignID = &campaign.ID
	}

	outcome, err := d.provider.PlaceCall(ctx, provider.CallRequest{
		PhoneNumber: a.PhoneNumber,
		AgentID:     a.AgentID,
		CampaignID:  a.CampaignID,
		Script:      a.Script,
	})
	if err != nil {
		return nil, upstream("failed to place call", err)
	}

	endedAt := outcome.EndedAt.UTC()
	call.Status = outcome.Status
	call.Duration = outcome.Duration
	call.Cost = outcome.Cost
	call.Transcript = optional(outcome.Transcript)
	call.ExternalRef = outcome.ExternalRef
	call.StartedAt = outcome.StartedAt.UTC()
	call.EndedAt = &endedAt
	call.CreatedAt = d.nowFn().UTC()

	if err := d.repos.CallLogs.Create(ctx, call); err != nil {
		return nil, upstream("failed to save call log", err)
	}
	return Result{"call": call}, nil
}

// ownedAgent 读取代理并确认归属调用者。
func (d *Dispatcher) ownedAgent(ctx context.Context, principal *domain.Principal, agentID string) (*domain.Agent, error) {
	agent, err := d.repos.Agents.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, invalid("agent not found")
		}
		return nil, upstream("failed to load agent", err)
	}
	if agent.OwnerID != principal.ID {
		return nil, forbidden("Access denied - agent belongs to another user")
	}
	return agent, nil
}

func (d *Dispatcher) analytics(ctx context.Context, principal *domain.Principal) (Result, error) {
	var (
		campaigns []*domain.Campaign
		calls     []*domain.CallLog
		agents    []*domain.Agent
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		campaigns, err = d.repos.Campaigns.ListByOwner(gctx, principal.ID)
		return err
	})
	g.Go(func() (err error) {
		calls, err = d.repos.CallLogs.ListByOwner(gctx, principal.ID)
		return err
	})
	g.Go(func() (err error) {
		agents, err = d.repos.Agents.ListByOwner(gctx, principal.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, upstream("failed to load analytics data", err)
	}

	return Result{"analytics": stats.UserAnalytics(campaigns, calls, agents)}, nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
