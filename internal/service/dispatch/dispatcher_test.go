package dispatch

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/zacharykka/campaign-console/db"
	"github.com/zacharykka/campaign-console/internal/config"
	"github.com/zacharykka/campaign-console/internal/domain"
	"github.com/zacharykka/campaign-console/internal/infra/database"
	"github.com/zacharykka/campaign-console/internal/infra/repository"
	"github.com/zacharykka/campaign-console/internal/provider"
	"github.com/zacharykka/campaign-console/internal/service/settings"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

type fakeProvider struct {
	createErr error
	startErr  error
	callErr   error
	created   int
	started   int
	placed    int
}

func (f *fakeProvider) CreateAgent(context.Context, provider.AgentSpec) (string, error) {
	f.created++
	if f.createErr != nil {
		return "", f.createErr
	}
	return "millis_agent_1", nil
}

func (f *fakeProvider) StartCampaign(context.Context, string) error {
	f.started++
	return f.startErr
}

func (f *fakeProvider) PlaceCall(_ context.Context, req provider.CallRequest) (*provider.CallOutcome, error) {
	f.placed++
	if f.callErr != nil {
		return nil, f.callErr
	}
	started := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return &provider.CallOutcome{
		ExternalRef: "call_1",
		Status:      domain.CallStatusCompleted,
		Duration:    120,
		Cost:        0.24,
		Transcript:  "ok",
		StartedAt:   started,
		EndedAt:     started.Add(120 * time.Second),
	}, nil
}

type identityRemover struct {
	repo domain.IdentityRepository
}

func (r identityRemover) DeleteIdentity(ctx context.Context, id string) error {
	return r.repo.Delete(ctx, id)
}

// countingUsers 记录 List 调用次数。
type countingUsers struct {
	domain.UserRepository
	lists int
}

func (c *countingUsers) List(ctx context.Context) ([]*domain.User, error) {
	c.lists++
	return c.UserRepository.List(ctx)
}

type harness struct {
	dispatcher *Dispatcher
	repos      *domain.Repositories
	provider   *fakeProvider
	users      *countingUsers
	settings   *settings.Service
}

func newHarness(t *testing.T, cleanup string) *harness {
	t.Helper()
	conn, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "dispatch.db")+"?_time_format=sqlite")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })
	if err := database.Migrate(context.Background(), conn, db.Migrations, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repos := repository.NewSQLRepositories(conn, database.NewDialect("sqlite"))
	users := &countingUsers{UserRepository: repos.Users}
	repos.Users = users

	fake := &fakeProvider{}
	settingsSvc := settings.NewService(repos.Settings)
	d := NewDispatcher(repos, fake, settingsSvc, identityRemover{repo: repos.Identities},
		config.AdminConfig{DeleteUserCleanup: cleanup, SystemLogLimit: 2}, zap.NewNop())
	d.WithClock(func() time.Time { return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC) })

	return &harness{dispatcher: d, repos: repos, provider: fake, users: users, settings: settingsSvc}
}

func (h *harness) addUser(t *testing.T, role string) *domain.Principal {
	t.Helper()
	id := uuid.NewString()
	email := id + "@example.com"
	if err := h.repos.Identities.Create(context.Background(), &domain.Identity{ID: id, Email: email, HashedPassword: "x"}); err != nil {
		t.Fatalf("create identity: %v", err)
	}
	if err := h.repos.Users.Create(context.Background(), &domain.User{ID: id, Email: email, Role: role, Status: domain.UserStatusActive}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &domain.Principal{ID: id, Email: email, Role: role, Status: domain.UserStatusActive}
}

func (h *harness) addCampaign(t *testing.T, ownerID string) *domain.Campaign {
	t.Helper()
	campaign := &domain.Campaign{ID: uuid.NewString(), OwnerID: ownerID, Name: "Spring"}
	if err := h.repos.Campaigns.Create(context.Background(), campaign); err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return campaign
}

func data(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func expectKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("expected kind %s got %s (%v)", want, got, err)
	}
}

func TestDispatchUnauthenticatedHidesActionNames(t *testing.T) {
	h := newHarness(t, config.CleanupCascade)
	ctx := context.Background()

	for _, surface := range []Surface{SurfaceAdmin, SurfaceVoice} {
		for _, name := range []string{"get-dashboard-stats", "get-analytics", "no-such-action"} {
			_, err := h.dispatcher.Dispatch(ctx, nil, surface, name, nil)
			expectKind(t, err, KindUnauthenticated)
		}
	}
	if h.users.lists != 0 {
		t.Fatalf("expected no store reads got %d", h.users.lists)
	}
}

func TestDispatchUserCannotListUsers(t *testing.T) {
	h := newHarness(t, config.CleanupCascade)
	caller := h.addUser(t, domain.RoleUser)

	_, err := h.dispatcher.Dispatch(context.Background(), caller, SurfaceAdmin, "get-all-users", nil)
	expectKind(t, err, KindForbidden)
	if h.users.lists != 0 {
		t.Fatalf("expected no user reads got %d", h.users.lists)
	}
}

func TestDispatchUnknownAction(t *testing.T) {
	h := newHarness(t, config.CleanupCascade)
	manager := h.addUser(t, domain.RoleManager)
	user := h.addUser(t, domain.RoleUser)
	ctx := context.Background()

	_, err := h.dispatcher.Dispatch(ctx, manager, SurfaceAdmin, "drop-tables", nil)
	expectKind(t, err, KindUnknownAction)

	// voice 动作不能经由 admin 入口调用
	_, err = h.dispatcher.Dispatch(ctx, manager, SurfaceAdmin, "make-call", nil)
	expectKind(t, err, KindUnknownAction)

	// 基线授权先于动作名校验
	_, err = h.dispatcher.Dispatch(ctx, user, SurfaceAdmin, "drop-tables", nil)
	expectKind(t, err, KindForbidden)

	_, err = h.dispatcher.Dispatch(ctx, user, SurfaceVoice, "get-all-users", nil)
	expectKind(t, err, KindUnknownAction)
}

func TestDispatchInactivePrincipalForbidden(t *testing.T) {
	h := newHarness(t, config.CleanupCascade)
	caller := h.addUser(t, domain.RoleAdmin)
	caller.Status = domain.UserStatusInactive

	_, err := h.dispatcher.Dispatch(context.Background(), caller, SurfaceVoice, "get-analytics", nil)
	expectKind(t, err, KindForbidden)
}

func TestMakeCallRequiresPhoneNumber(t *testing.T) {
	h := newHarness(t, config.CleanupCascade)
	caller := h.addUser(t, domain.RoleUser)
	ctx := context.Background()

	_, err := h.dispatcher.Dispatch(ctx, caller, SurfaceVoice, "make-call", data(t, map[string]any{"agent_id": ""}))
	expectKind(t, err, KindValidation)

	calls, err := h.repos.CallLogs.List(ctx)
	if err != nil {
		t.Fatalf("list calls: %v", err)
	}
	if len(calls) != 0 || h.provider.placed != 0 {
		t.Fatalf("expected no call persisted got %d rows, %d provider calls", len(calls), h.provider.placed)
	}
}

func TestMakeCallPersistsOutcome(t *testing.T) {
	h := newHarness(t, config.CleanupCascade)
	caller := h.addUser(t, domain.RoleUser)
	campaign := h.addCampaign(t, caller.ID)
	ctx := context.Background()

	result, err := h.dispatcher.Dispatch(ctx, caller, SurfaceVoice, "make-call", data(t, map[string]any{
		"phone_number": "+15551234",
		"campaign_id":  campaign.ID,
	}))
	if err != nil {
		t.Fatalf("make call: %v", err)
	}
	call, ok := result["call"].(*domain.CallLog)
	if !ok {
		t.Fatalf("expected call payload got %#v", result)
	}
	if call.OwnerID != caller.ID || call.CampaignID == nil || *call.CampaignID != campaign.ID {
		t.Fatalf("unexpected call ownership %+v", call)
	}

	stored, err := h.repos.CallLogs.ListByOwner(ctx, caller.ID)
	if err != nil {
		t.Fatalf("list calls: %v", err)
	}
	if len(stored) != 1 || stored[0].Duration != 120 || stored[0].Cost != 0.24 || stored[0].ExternalRef != "call_1" {
		t.Fatalf("unexpected stored call %+v", stored)
	}
}

func TestMakeCallRejectsForeignAgent(t *testing.T) {
	h := newHarness(t, config.CleanupCascade)
	owner := h.addUser(t, domain.RoleUser)
	other := h.addUser(t, domain.RoleUser)
	ctx := context.Background()

	agent := &domain.Agent{ID: uuid.NewString(), OwnerID: owner.ID, Name: "bot", ExternalRef: "ref"}
	if err := h.repos.Agents.Create(ctx, agent); err != nil {
		t.Fatalf("create agent: %v", err)
	}

	_, err := h.dispatcher.Dispatch(ctx, other, SurfaceVoice, "make-call", data(t, map[string]any{
		"phone_number": "+15551234",
		"agent_id":     agent.ID,
	}))
	expectKind(t, err, KindForbidden)
	if h.provider.placed != 0 {
		t.Fatalf("provider should not be called")
	}
}

func TestStartCampaignKeepsActiveWhenProviderFails(t *testing.T) {
	h := newHarness(t, config.CleanupCascade)
	caller := h.addUser(t, domain.RoleUser)
	campaign := h.addCampaign(t, caller.ID)
	h.provider.startErr = errors.New("provider unavailable")
	ctx := context.Background()

	_, err := h.dispatcher.Dispatch(ctx, caller, SurfaceVoice, "start-campaign", data(t, map[string]any{"campaign_id": campaign.ID}))
	expectKind(t, err, KindUpstream)
	if !errors.Is(err, h.provider.startErr) {
		t.Fatalf("expected provider error to be wrapped got %v", err)
	}

	stored, err := h.repos.Campaigns.GetByID(ctx, campaign.ID)
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if stored.Status != domain.CampaignStatusActive || stored.StartedAt == nil {
		t.Fatalf("expected campaign to stay active got %s started=%v", stored.Status, stored.StartedAt)
	}
}

func TestStartCampaignOwnerScoped(t *testing.T) {
	h := newHarness(t, config.CleanupCascade)
	owner := h.addUser(t, domain.RoleUser)
	admin := h.addUser(t, domain.RoleAdmin)
	campaign := h.addCampaign(t, owner.ID)
	ctx := context.Background()

	_, err := h.dispatcher.Dispatch(ctx, admin, SurfaceVoice, "start-campaign", data(t, map[string]any{"campaign_id": campaign.ID}))
	expectKind(t, err, KindForbidden)

	stored, err := h.repos.Campaigns.GetByID(ctx, campaign.ID)
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if stored.Status != domain.CampaignStatusDraft {
		t.Fatalf("expected draft status got %s", stored.Status)
	}

	_, err = h.dispatcher.Dispatch(ctx, owner, SurfaceVoice, "start-campaign", data(t, map[string]any{"campaign_id": "missing"}))
	expectKind(t, err, KindValidation)

	result, err := h.dispatcher.Dispatch(ctx, owner, SurfaceVoice, "start-campaign", data(t, map[string]any{"campaign_id": campaign.ID}))
	if err != nil {
		t.Fatalf("start campaign: %v", err)
	}
	if result["message"] == "" || h.provider.started != 1 {
		t.Fatalf("unexpected result %#v started=%d", result, h.provider.started)
	}
}

func TestCreateAgentSequencing(t *testing.T) {
	h := newHarness(t, config.CleanupCascade)
	caller := h.addUser(t, domain.RoleUser)
	ctx := context.Background()
	payload := data(t, map[string]any{"name": "Sales Bot", "language": "pt-BR"})

	h.provider.createErr = errors.New("provider down")
	_, err := h.dispatcher.Dispatch(ctx, caller, SurfaceVoice, "create-agent", payload)
	expectKind(t, err, KindUpstream)
	agents, err := h.repos.Agents.ListByOwner(ctx, caller.ID)
	if err != nil {
		t.Fatalf("list agents: %v", err)
	}
	if len(agents) != 0 {
		t.Fatalf("expected no agent row after provider failure got %d", len(agents))
	}

	h.provider.createErr = nil
	result, err := h.dispatcher.Dispatch(ctx, caller, SurfaceVoice, "create-agent", payload)
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	agent := result["agent"].(*domain.Agent)
	if agent.Status != domain.AgentStatusActive || agent.OwnerID != caller.ID || agent.ExternalRef != "millis_agent_1" {
		t.Fatalf("unexpected agent %+v", agent)
	}

	_, err = h.dispatcher.Dispatch(ctx, caller, SurfaceVoice, "create-agent", data(t, map[string]any{}))
	expectKind(t, err, KindValidation)
}

func TestDashboardStatsIdempotent(t *testing.T) {
	h := newHarness(t, config.CleanupCascade)
	manager := h.addUser(t, domain.RoleManager)
	caller := h.addUser(t, domain.RoleUser)
	ctx := context.Background()

	if _, err := h.dispatcher.Dispatch(ctx, caller, SurfaceVoice, "make-call", data(t, map[string]any{"phone_number": "+1555"})); err != nil {
		t.Fatalf("make call: %v", err)
	}

	first, err := h.dispatcher.Dispatch(ctx, manager, SurfaceAdmin, "get-dashboard-stats", nil)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	second, err := h.dispatcher.Dispatch(ctx, manager, SurfaceAdmin, "get-dashboard-stats", nil)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("expected identical results\n%s\n%s", a, b)
	}

	var decoded struct {
		Stats map[string]float64 `json:"stats"`
	}
	if err := json.Unmarshal(a, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Stats["total_users"] != 2 || decoded.Stats["total_calls"] != 1 || decoded.Stats["total_revenue"] != 0.24 || decoded.Stats["success_rate"] != 100 {
		t.Fatalf("unexpected stats %+v", decoded.Stats)
	}
}

func TestAnalyticsScopedToCaller(t *testing.T) {
	h := newHarness(t, config.CleanupCascade)
	alice := h.addUser(t, domain.RoleUser)
	bob := h.addUser(t, domain.RoleUser)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := h.dispatcher.Dispatch(ctx, alice, SurfaceVoice, "make-call", data(t, map[string]any{"phone_number": "+1555"})); err != nil {
			t.Fatalf("make call: %v", err)
		}
	}
	h.addCampaign(t, bob.ID)

	result, err := h.dispatcher.Dispatch(ctx, bob, SurfaceVoice, "get-analytics", nil)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	raw, _ := json.Marshal(result)
	var decoded struct {
		Success   bool               `json:"success"`
		Analytics map[string]float64 `json:"analytics"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Analytics["total_calls"] != 0 || decoded.Analytics["total_campaigns"] != 1 || decoded.Analytics["avg_duration"] != 0 {
		t.Fatalf("expected bob's own figures only got %+v", decoded.Analytics)
	}
}

func TestRevenueAndSystemLogs(t *testing.T) {
	h := newHarness(t, config.CleanupCascade)
	admin := h.addUser(t, domain.RoleAdmin)
	ctx := context.Background()

	for i, day := range []int{16, 15, 15} {
		call := &domain.CallLog{
			ID:          uuid.NewString(),
			OwnerID:     admin.ID,
			PhoneNumber: "+1555",
			Status:      domain.CallStatusCompleted,
			Cost:        0.15,
			ExternalRef: "call",
			StartedAt:   time.Date(2024, 1, day, 10, i, 0, 0, time.UTC),
			CreatedAt:   time.Date(2024, 1, day, 10, i, 0, 0, time.UTC),
		}
		if err := h.repos.CallLogs.Create(ctx, call); err != nil {
			t.Fatalf("create call: %v", err)
		}
	}

	result, err := h.dispatcher.Dispatch(ctx, admin, SurfaceAdmin, "get-revenue-analytics", nil)
	if err != nil {
		t.Fatalf("revenue: %v", err)
	}
	raw, _ := json.Marshal(result["revenue"])
	if string(raw) != `{"2024-01-15":0.3,"2024-01-16":0.15}` {
		t.Fatalf("unexpected revenue %s", raw)
	}

	result, err = h.dispatcher.Dispatch(ctx, admin, SurfaceAdmin, "get-system-logs", nil)
	if err != nil {
		t.Fatalf("system logs: %v", err)
	}
	logs := result["logs"].([]*domain.CallLogEntry)
	if len(logs) != 2 {
		t.Fatalf("expected configured limit 2 got %d", len(logs))
	}
	if logs[0].UserEmail == nil || *logs[0].UserEmail != admin.Email {
		t.Fatalf("expected joined user email got %v", logs[0].UserEmail)
	}
}

func TestUpdateUserStatusAndRole(t *testing.T) {
	h := newHarness(t, config.CleanupCascade)
	manager := h.addUser(t, domain.RoleManager)
	target := h.addUser(t, domain.RoleUser)
	ctx := context.Background()

	if _, err := h.dispatcher.Dispatch(ctx, manager, SurfaceAdmin, "update-user-status", data(t, map[string]any{
		"user_id": target.ID, "status": domain.UserStatusInactive,
	})); err != nil {
		t.Fatalf("update status: %v", err)
	}
	_, err := h.dispatcher.Dispatch(ctx, manager, SurfaceAdmin, "update-user-status", data(t, map[string]any{
		"user_id": target.ID, "status": "banned",
	}))
	expectKind(t, err, KindValidation)

	_, err = h.dispatcher.Dispatch(ctx, manager, SurfaceAdmin, "update-user-role", data(t, map[string]any{
		"user_id": target.ID, "role": domain.RoleAdmin,
	}))
	expectKind(t, err, KindForbidden)

	if _, err := h.dispatcher.Dispatch(ctx, manager, SurfaceAdmin, "update-user-role", data(t, map[string]any{
		"user_id": target.ID, "role": domain.RoleManager,
	})); err != nil {
		t.Fatalf("update role: %v", err)
	}

	stored, err := h.repos.Users.GetByID(ctx, target.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if stored.Status != domain.UserStatusInactive || stored.Role != domain.RoleManager {
		t.Fatalf("unexpected user %+v", stored)
	}
	if !stored.UpdatedAt.Equal(time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected updated_at stamped got %v", stored.UpdatedAt)
	}

	_, err = h.dispatcher.Dispatch(ctx, manager, SurfaceAdmin, "update-user-role", data(t, map[string]any{
		"user_id": "missing", "role": domain.RoleUser,
	}))
	expectKind(t, err, KindValidation)
}

func TestUpdateMillisAPIKey(t *testing.T) {
	h := newHarness(t, config.CleanupCascade)
	manager := h.addUser(t, domain.RoleManager)
	ctx := context.Background()

	if _, err := h.dispatcher.Dispatch(ctx, manager, SurfaceAdmin, "update-millis-api-key", data(t, map[string]any{"api_key": "sk_123"})); err != nil {
		t.Fatalf("update api key: %v", err)
	}
	key, err := h.settings.APIKey(ctx)
	if err != nil || key != "sk_123" {
		t.Fatalf("unexpected key %q %v", key, err)
	}

	_, err = h.dispatcher.Dispatch(ctx, manager, SurfaceAdmin, "update-millis-api-key", json.RawMessage(`[1,2]`))
	expectKind(t, err, KindValidation)
}

func TestDeleteUserCleanupPolicies(t *testing.T) {
	cases := []struct {
		policy      string
		wantProfile bool
		wantRecords bool
	}{
		{config.CleanupNone, true, true},
		{config.CleanupProfile, false, true},
		{config.CleanupCascade, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.policy, func(t *testing.T) {
			h := newHarness(t, tc.policy)
			admin := h.addUser(t, domain.RoleAdmin)
			victim := h.addUser(t, domain.RoleUser)
			ctx := context.Background()

			h.addCampaign(t, victim.ID)
			if _, err := h.dispatcher.Dispatch(ctx, victim, SurfaceVoice, "create-agent", data(t, map[string]any{"name": "bot"})); err != nil {
				t.Fatalf("create agent: %v", err)
			}
			if _, err := h.dispatcher.Dispatch(ctx, victim, SurfaceVoice, "make-call", data(t, map[string]any{"phone_number": "+1555"})); err != nil {
				t.Fatalf("make call: %v", err)
			}

			if _, err := h.dispatcher.Dispatch(ctx, admin, SurfaceAdmin, "delete-user", data(t, map[string]any{"user_id": victim.ID})); err != nil {
				t.Fatalf("delete user: %v", err)
			}

			if _, err := h.repos.Identities.GetByID(ctx, victim.ID); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("expected identity removed got %v", err)
			}
			_, err := h.repos.Users.GetByID(ctx, victim.ID)
			if hasProfile := err == nil; hasProfile != tc.wantProfile {
				t.Fatalf("profile present=%v want %v (err=%v)", hasProfile, tc.wantProfile, err)
			}

			calls, _ := h.repos.CallLogs.ListByOwner(ctx, victim.ID)
			campaigns, _ := h.repos.Campaigns.ListByOwner(ctx, victim.ID)
			agents, _ := h.repos.Agents.ListByOwner(ctx, victim.ID)
			hasRecords := len(calls) > 0 && len(campaigns) > 0 && len(agents) > 0
			if hasRecords != tc.wantRecords {
				t.Fatalf("records present=%v want %v (calls=%d campaigns=%d agents=%d)", hasRecords, tc.wantRecords, len(calls), len(campaigns), len(agents))
			}

			_, err = h.dispatcher.Dispatch(ctx, admin, SurfaceAdmin, "delete-user", data(t, map[string]any{"user_id": victim.ID}))
			expectKind(t, err, KindValidation)
		})
	}
}

func TestDeleteUserRejectsSelf(t *testing.T) {
	h := newHarness(t, config.CleanupCascade)
	admin := h.addUser(t, domain.RoleAdmin)

	_, err := h.dispatcher.Dispatch(context.Background(), admin, SurfaceAdmin, "delete-user", data(t, map[string]any{"user_id": admin.ID}))
	expectKind(t, err, KindValidation)
}

func TestKindHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindUnauthenticated: 401,
		KindForbidden:       403,
		KindUnknownAction:   400,
		KindValidation:      400,
		KindUpstream:        502,
	}
	for kind, want := range cases {
		if got := kind.HTTPStatus(); got != want {
			t.Fatalf("%s: expected %d got %d", kind, want, got)
		}
	}
	if KindOf(errors.New("plain")) != KindUpstream {
		t.Fatalf("expected plain errors to map to upstream")
	}
}

func TestCreateCampaignThenStart(t *testing.T) {
	h := newHarness(t, config.CleanupCascade)
	owner := h.addUser(t, domain.RoleUser)
	ctx := context.Background()

	agentResult, err := h.dispatcher.Dispatch(ctx, owner, SurfaceVoice, "create-agent", data(t, map[string]any{"name": "bot"}))
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	agent := agentResult["agent"].(*domain.Agent)

	// 归属与状态由服务端决定，请求体中的同名字段被忽略
	result, err := h.dispatcher.Dispatch(ctx, owner, SurfaceVoice, "create-campaign", data(t, map[string]any{
		"name": " Spring ", "agent_id": agent.ID, "total_records": 40, "user_id": "someone-else", "status": "active",
	}))
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	campaign := result["campaign"].(*domain.Campaign)
	if campaign.OwnerID != owner.ID || campaign.Status != domain.CampaignStatusDraft || campaign.Name != "Spring" {
		t.Fatalf("unexpected campaign %+v", campaign)
	}
	if campaign.AgentID == nil || *campaign.AgentID != agent.ID || campaign.TotalRecords != 40 {
		t.Fatalf("unexpected campaign links %+v", campaign)
	}

	if _, err := h.dispatcher.Dispatch(ctx, owner, SurfaceVoice, "start-campaign", data(t, map[string]any{"campaign_id": campaign.ID})); err != nil {
		t.Fatalf("start campaign: %v", err)
	}
	stored, err := h.repos.Campaigns.GetByID(ctx, campaign.ID)
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if stored.Status != domain.CampaignStatusActive || stored.StartedAt == nil {
		t.Fatalf("expected active campaign got %+v", stored)
	}
}

func TestCreateCampaignValidation(t *testing.T) {
	h := newHarness(t, config.CleanupCascade)
	owner := h.addUser(t, domain.RoleUser)
	other := h.addUser(t, domain.RoleUser)
	ctx := context.Background()

	_, err := h.dispatcher.Dispatch(ctx, owner, SurfaceVoice, "create-campaign", data(t, map[string]any{"name": "  "}))
	expectKind(t, err, KindValidation)

	_, err = h.dispatcher.Dispatch(ctx, owner, SurfaceVoice, "create-campaign", data(t, map[string]any{"name": "x", "total_records": -1}))
	expectKind(t, err, KindValidation)

	_, err = h.dispatcher.Dispatch(ctx, owner, SurfaceVoice, "create-campaign", data(t, map[string]any{"name": "x", "agent_id": "missing"}))
	expectKind(t, err, KindValidation)

	agentResult, err := h.dispatcher.Dispatch(ctx, other, SurfaceVoice, "create-agent", data(t, map[string]any{"name": "bot"}))
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	foreign := agentResult["agent"].(*domain.Agent)
	_, err = h.dispatcher.Dispatch(ctx, owner, SurfaceVoice, "create-campaign", data(t, map[string]any{"name": "x", "agent_id": foreign.ID}))
	expectKind(t, err, KindForbidden)

	campaigns, err := h.repos.Campaigns.ListByOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list campaigns: %v", err)
	}
	if len(campaigns) != 0 {
		t.Fatalf("expected no campaign rows got %d", len(campaigns))
	}
}

func TestManagerCannotChangeHigherRankedUser(t *testing.T) {
	h := newHarness(t, config.CleanupCascade)
	manager := h.addUser(t, domain.RoleManager)
	admin := h.addUser(t, domain.RoleAdmin)
	peer := h.addUser(t, domain.RoleManager)
	ctx := context.Background()

	_, err := h.dispatcher.Dispatch(ctx, manager, SurfaceAdmin, "update-user-role", data(t, map[string]any{
		"user_id": admin.ID, "role": domain.RoleUser,
	}))
	expectKind(t, err, KindForbidden)

	_, err = h.dispatcher.Dispatch(ctx, manager, SurfaceAdmin, "update-user-status", data(t, map[string]any{
		"user_id": admin.ID, "status": domain.UserStatusInactive,
	}))
	expectKind(t, err, KindForbidden)

	_, err = h.dispatcher.Dispatch(ctx, manager, SurfaceAdmin, "delete-user", data(t, map[string]any{"user_id": admin.ID}))
	expectKind(t, err, KindForbidden)

	stored, err := h.repos.Users.GetByID(ctx, admin.ID)
	if err != nil {
		t.Fatalf("expected admin to survive: %v", err)
	}
	if stored.Role != domain.RoleAdmin || stored.Status != domain.UserStatusActive {
		t.Fatalf("admin changed %+v", stored)
	}
	if _, err := h.repos.Identities.GetByID(ctx, admin.ID); err != nil {
		t.Fatalf("expected admin identity to survive: %v", err)
	}

	// 同级允许
	if _, err := h.dispatcher.Dispatch(ctx, manager, SurfaceAdmin, "update-user-status", data(t, map[string]any{
		"user_id": peer.ID, "status": domain.UserStatusInactive,
	})); err != nil {
		t.Fatalf("update peer status: %v", err)
	}
	if _, err := h.dispatcher.Dispatch(ctx, admin, SurfaceAdmin, "update-user-role", data(t, map[string]any{
		"user_id": manager.ID, "role": domain.RoleUser,
	})); err != nil {
		t.Fatalf("admin demotes manager: %v", err)
	}
}
