package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zacharykka/campaign-console/internal/domain"
	"github.com/zacharykka/campaign-console/internal/infra/database"
)

// NewSQLRepositories 构建基于 *sql.DB 的仓储集合。
func NewSQLRepositories(db *sql.DB, dialect database.Dialect) *domain.Repositories {
	return &domain.Repositories{
		Users:      &userRepository{db: db, dialect: dialect},
		Identities: &identityRepository{db: db, dialect: dialect},
		Agents:     &agentRepository{db: db, dialect: dialect},
		Campaigns:  &campaignRepository{db: db, dialect: dialect},
		CallLogs:   &callLogRepository{db: db, dialect: dialect},
		Settings:   &settingRepository{db: db, dialect: dialect},
	}
}

// rowScanner 同时适配 *sql.Row 与 *sql.Rows。
type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value.UTC(), Valid: true}
}

func timePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time.UTC()
	return &t
}

func stampOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ---- 用户档案仓储 ----

type userRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

const userColumns = `id, email, full_name, role, status, company, phone, last_login_at, created_at, updated_at`

type userRow struct {
	id          string
	email       string
	fullName    sql.NullString
	role        string
	status      string
	company     sql.NullString
	phone       sql.NullString
	lastLoginAt sql.NullTime
	createdAt   time.Time
	updatedAt   time.Time
}

func scanUser(scanner rowScanner) (*domain.User, error) {
	var row userRow
	if err := scanner.Scan(&row.id, &row.email, &row.fullName, &row.role, &row.status, &row.company, &row.phone, &row.lastLoginAt, &row.createdAt, &row.updatedAt); err != nil {
		return nil, err
	}
	return &domain.User{
		ID:          row.id,
		Email:       row.email,
		FullName:    stringPtr(row.fullName),
		Role:        row.role,
		Status:      row.status,
		Company:     stringPtr(row.company),
		Phone:       stringPtr(row.phone),
		LastLoginAt: timePtr(row.lastLoginAt),
		CreatedAt:   row.createdAt.UTC(),
		UpdatedAt:   row.updatedAt.UTC(),
	}, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO users (id, email, full_name, role, status, company, phone, created_at, updated_at)
VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)`, ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	if user.Status == "" {
		user.Status = domain.UserStatusActive
	}
	user.CreatedAt = stampOrNow(user.CreatedAt)
	user.UpdatedAt = user.CreatedAt

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Email, nullString(user.FullName), user.Role, user.Status,
		nullString(user.Company), nullString(user.Phone), user.CreatedAt, user.UpdatedAt)
	return err
}

func (r *userRepository) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = %s`, userColumns, ph.Next())

	user, err := scanUser(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = %s`, userColumns, ph.Next())

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM users ORDER BY created_at DESC`, userColumns))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) UpdateStatus(ctx context.Context, userID, status string, at time.Time) error {
	return r.updateColumn(ctx, "status", userID, status, at)
}

func (r *userRepository) UpdateRole(ctx context.Context, userID, role string, at time.Time) error {
	return r.updateColumn(ctx, "role", userID, role, at)
}

// updateColumn 仅供内部使用，column 必须是固定的列名常量。
func (r *userRepository) updateColumn(ctx context.Context, column, userID, value string, at time.Time) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`UPDATE users SET %s = %s, updated_at = %s WHERE id = %s`, column, ph.Next(), ph.Next(), ph.Next())

	result, err := r.db.ExecContext(ctx, query, value, stampOrNow(at), userID)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

func (r *userRepository) UpdateProfile(ctx context.Context, userID string, params domain.UserProfileParams, at time.Time) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	// 未提供的字段保留原值
	query := fmt.Sprintf(`UPDATE users SET full_name = COALESCE(%s, full_name), company = COALESCE(%s, company), phone = COALESCE(%s, phone), updated_at = %s WHERE id = %s`,
		ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	result, err := r.db.ExecContext(ctx, query, nullString(params.FullName), nullString(params.Company), nullString(params.Phone), stampOrNow(at), userID)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`UPDATE users SET last_login_at = %s WHERE id = %s`, ph.Next(), ph.Next())

	result, err := r.db.ExecContext(ctx, query, stampOrNow(at), userID)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

func (r *userRepository) Delete(ctx context.Context, userID string) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM users WHERE id = %s`, ph.Next()), userID)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// ---- 登录凭证仓储 ----

type identityRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

func (r *identityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO identities (id, email, hashed_password, created_at) VALUES (%s, %s, %s, %s)`,
		ph.Next(), ph.Next(), ph.Next(), ph.Next())

	identity.CreatedAt = stampOrNow(identity.CreatedAt)
	_, err := r.db.ExecContext(ctx, query, identity.ID, identity.Email, identity.HashedPassword, identity.CreatedAt)
	return err
}

func (r *identityRepository) GetByID(ctx context.Context, identityID string) (*domain.Identity, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	return r.getOne(ctx, fmt.Sprintf(`SELECT id, email, hashed_password, created_at FROM identities WHERE id = %s`, ph.Next()), identityID)
}

func (r *identityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	return r.getOne(ctx, fmt.Sprintf(`SELECT id, email, hashed_password, created_at FROM identities WHERE email = %s`, ph.Next()), email)
}

func (r *identityRepository) getOne(ctx context.Context, query string, arg string) (*domain.Identity, error) {
	var identity domain.Identity
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&identity.ID, &identity.Email, &identity.HashedPassword, &identity.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	identity.CreatedAt = identity.CreatedAt.UTC()
	return &identity, nil
}

func (r *identityRepository) Delete(ctx context.Context, identityID string) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM identities WHERE id = %s`, ph.Next()), identityID)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// ---- 语音代理仓储 ----

type agentRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

const agentColumns = `id, user_id, name, description, status, voice_id, language, personality, instructions, millis_agent_id, created_at, updated_at`

type agentRow struct {
	id           string
	ownerID      string
	name         string
	description  sql.NullString
	status       string
	voiceID      sql.NullString
	language     sql.NullString
	personality  sql.NullString
	instructions sql.NullString
	externalRef  string
	createdAt    time.Time
	updatedAt    time.Time
}

func scanAgent(scanner rowScanner) (*domain.Agent, error) {
	var row agentRow
	if err := scanner.Scan(&row.id, &row.ownerID, &row.name, &row.description, &row.status, &row.voiceID, &row.language,
		&row.personality, &row.instructions, &row.externalRef, &row.createdAt, &row.updatedAt); err != nil {
		return nil, err
	}
	return &domain.Agent{
		ID:           row.id,
		OwnerID:      row.ownerID,
		Name:         row.name,
		Description:  stringPtr(row.description),
		Status:       row.status,
		VoiceID:      stringPtr(row.voiceID),
		Language:     stringPtr(row.language),
		Personality:  stringPtr(row.personality),
		Instructions: stringPtr(row.instructions),
		ExternalRef:  row.externalRef,
		CreatedAt:    row.createdAt.UTC(),
		UpdatedAt:    row.updatedAt.UTC(),
	}, nil
}

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO agents (%s)
VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`, agentColumns,
		ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	if agent.Status == "" {
		agent.Status = domain.AgentStatusActive
	}
	agent.CreatedAt = stampOrNow(agent.CreatedAt)
	agent.UpdatedAt = agent.CreatedAt

	_, err := r.db.ExecContext(ctx, query, agent.ID, agent.OwnerID, agent.Name, nullString(agent.Description), agent.Status,
		nullString(agent.VoiceID), nullString(agent.Language), nullString(agent.Personality), nullString(agent.Instructions),
		agent.ExternalRef, agent.CreatedAt, agent.UpdatedAt)
	return err
}

func (r *agentRepository) GetByID(ctx context.Context, agentID string) (*domain.Agent, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM agents WHERE id = %s`, agentColumns, ph.Next())

	agent, err := scanAgent(r.db.QueryRowContext(ctx, query, agentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return agent, nil
}

func (r *agentRepository) List(ctx context.Context) ([]*domain.Agent, error) {
	return r.list(ctx, fmt.Sprintf(`SELECT %s FROM agents ORDER BY created_at DESC`, agentColumns))
}

func (r *agentRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Agent, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	return r.list(ctx, fmt.Sprintf(`SELECT %s FROM agents WHERE user_id = %s ORDER BY created_at DESC`, agentColumns, ph.Next()), ownerID)
}

func (r *agentRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Agent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []*domain.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return agents, nil
}

func (r *agentRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM agents WHERE user_id = %s`, ph.Next()), ownerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ---- 营销活动仓储 ----

type campaignRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

const campaignColumns = `id, user_id, agent_id, name, status, total_records, completed_calls, successful_calls, failed_calls, started_at, created_at, updated_at`

type campaignRow struct {
	id              string
	ownerID         string
	agentID         sql.NullString
	name            string
	status          string
	totalRecords    int
	completedCalls  int
	successfulCalls int
	failedCalls     int
	startedAt       sql.NullTime
	createdAt       time.Time
	updatedAt       time.Time
}

func scanCampaign(scanner rowScanner) (*domain.Campaign, error) {
	var row campaignRow
	if err := scanner.Scan(&row.id, &row.ownerID, &row.agentID, &row.name, &row.status, &row.totalRecords, &row.completedCalls,
		&row.successfulCalls, &row.failedCalls, &row.startedAt, &row.createdAt, &row.updatedAt); err != nil {
		return nil, err
	}
	return &domain.Campaign{
		ID:              row.id,
		OwnerID:         row.ownerID,
		AgentID:         stringPtr(row.agentID),
		Name:            row.name,
		Status:          row.status,
		TotalRecords:    row.totalRecords,
		CompletedCalls:  row.completedCalls,
		SuccessfulCalls: row.successfulCalls,
		FailedCalls:     row.failedCalls,
		StartedAt:       timePtr(row.startedAt),
		CreatedAt:       row.createdAt.UTC(),
		UpdatedAt:       row.updatedAt.UTC(),
	}, nil
}

func (r *campaignRepository) Create(ctx context.Context, campaign *domain.Campaign) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO campaigns (%s)
VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`, campaignColumns,
		ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	if campaign.Status == "" {
		campaign.Status = domain.CampaignStatusDraft
	}
	campaign.CreatedAt = stampOrNow(campaign.CreatedAt)
	campaign.UpdatedAt = campaign.CreatedAt

	_, err := r.db.ExecContext(ctx, query, campaign.ID, campaign.OwnerID, nullString(campaign.AgentID), campaign.Name, campaign.Status,
		campaign.TotalRecords, campaign.CompletedCalls, campaign.SuccessfulCalls, campaign.FailedCalls,
		nullTime(campaign.StartedAt), campaign.CreatedAt, campaign.UpdatedAt)
	return err
}

func (r *campaignRepository) GetByID(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM campaigns WHERE id = %s`, campaignColumns, ph.Next())

	campaign, err := scanCampaign(r.db.QueryRowContext(ctx, query, campaignID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return campaign, nil
}

func (r *campaignRepository) List(ctx context.Context) ([]*domain.Campaign, error) {
	return r.list(ctx, fmt.Sprintf(`SELECT %s FROM campaigns ORDER BY created_at DESC`, campaignColumns))
}

func (r *campaignRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Campaign, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	return r.list(ctx, fmt.Sprintf(`SELECT %s FROM campaigns WHERE user_id = %s ORDER BY created_at DESC`, campaignColumns, ph.Next()), ownerID)
}

func (r *campaignRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []*domain.Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, campaign)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return campaigns, nil
}

// MarkStarted 将活动置为 active 并记录开始时间；并发调用以最后一次写入为准。
func (r *campaignRepository) MarkStarted(ctx context.Context, campaignID string, at time.Time) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`UPDATE campaigns SET status = %s, started_at = %s, updated_at = %s WHERE id = %s`,
		ph.Next(), ph.Next(), ph.Next(), ph.Next())

	stamp := stampOrNow(at)
	result, err := r.db.ExecContext(ctx, query, domain.CampaignStatusActive, stamp, stamp, campaignID)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

func (r *campaignRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM campaigns WHERE user_id = %s`, ph.Next()), ownerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ---- 通话记录仓储 ----

type callLogRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

const callLogColumns = `c.id, c.campaign_id, c.agent_id, c.user_id, c.phone_number, c.status, c.duration, c.cost, c.transcript, c.millis_call_id, c.started_at, c.ended_at, c.created_at`

type callLogRow struct {
	id          string
	campaignID  sql.NullString
	agentID     sql.NullString
	ownerID     string
	phoneNumber string
	status      string
	duration    int
	cost        float64
	transcript  sql.NullString
	externalRef string
	startedAt   time.Time
	endedAt     sql.NullTime
	createdAt   time.Time
}

func (row callLogRow) toDomain() domain.CallLog {
	return domain.CallLog{
		ID:          row.id,
		CampaignID:  stringPtr(row.campaignID),
		AgentID:     stringPtr(row.agentID),
		OwnerID:     row.ownerID,
		PhoneNumber: row.phoneNumber,
		Status:      row.status,
		Duration:    row.duration,
		Cost:        row.cost,
		Transcript:  stringPtr(row.transcript),
		ExternalRef: row.externalRef,
		StartedAt:   row.startedAt.UTC(),
		EndedAt:     timePtr(row.endedAt),
		CreatedAt:   row.createdAt.UTC(),
	}
}

func (row *callLogRow) targets() []any {
	return []any{&row.id, &row.campaignID, &row.agentID, &row.ownerID, &row.phoneNumber, &row.status, &row.duration,
		&row.cost, &row.transcript, &row.externalRef, &row.startedAt, &row.endedAt, &row.createdAt}
}

func (r *callLogRepository) Create(ctx context.Context, call *domain.CallLog) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO call_logs (id, campaign_id, agent_id, user_id, phone_number, status, duration, cost, transcript, millis_call_id, started_at, ended_at, created_at)
VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	call.CreatedAt = stampOrNow(call.CreatedAt)
	call.StartedAt = stampOrNow(call.StartedAt)

	_, err := r.db.ExecContext(ctx, query, call.ID, nullString(call.CampaignID), nullString(call.AgentID), call.OwnerID, call.PhoneNumber,
		call.Status, call.Duration, call.Cost, nullString(call.Transcript), call.ExternalRef, call.StartedAt, nullTime(call.EndedAt), call.CreatedAt)
	return err
}

// List 按创建时间升序返回全部通话记录。
func (r *callLogRepository) List(ctx context.Context) ([]*domain.CallLog, error) {
	return r.list(ctx, fmt.Sprintf(`SELECT %s FROM call_logs c ORDER BY c.created_at ASC`, callLogColumns))
}

func (r *callLogRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.CallLog, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	return r.list(ctx, fmt.Sprintf(`SELECT %s FROM call_logs c WHERE c.user_id = %s ORDER BY c.created_at ASC`, callLogColumns, ph.Next()), ownerID)
}

func (r *callLogRepository) list(ctx context.Context, query string, args ...any) ([]*domain.CallLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []*domain.CallLog
	for rows.Next() {
		var row callLogRow
		if err := rows.Scan(row.targets()...); err != nil {
			return nil, err
		}
		call := row.toDomain()
		calls = append(calls, &call)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return calls, nil
}

// ListRecentWithRefs 返回最近的通话记录并关联活动、代理与用户名称，按创建时间倒序。
func (r *callLogRepository) ListRecentWithRefs(ctx context.Context, limit int) ([]*domain.CallLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s, cp.name, a.name, u.full_name, u.email
FROM call_logs c
LEFT JOIN campaigns cp ON cp.id = c.campaign_id
LEFT JOIN agents a ON a.id = c.agent_id
LEFT JOIN users u ON u.id = c.user_id
ORDER BY c.created_at DESC
LIMIT %s`, callLogColumns, ph.Next())

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.CallLogEntry
	for rows.Next() {
		var (
			row          callLogRow
			campaignName sql.NullString
			agentName    sql.NullString
			userFullName sql.NullString
			userEmail    sql.NullString
		)
		targets := append(row.targets(), &campaignName, &agentName, &userFullName, &userEmail)
		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}
		entries = append(entries, &domain.CallLogEntry{
			CallLog:      row.toDomain(),
			CampaignName: stringPtr(campaignName),
			AgentName:    stringPtr(agentName),
			UserFullName: stringPtr(userFullName),
			UserEmail:    stringPtr(userEmail),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *callLogRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM call_logs WHERE user_id = %s`, ph.Next()), ownerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ---- 系统配置仓储 ----

type settingRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

func (r *settingRepository) Get(ctx context.Context, key string) (*domain.SystemSetting, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT key, value, updated_at FROM system_settings WHERE key = %s`, ph.Next())

	var setting domain.SystemSetting
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&setting.Key, &setting.Value, &setting.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	setting.UpdatedAt = setting.UpdatedAt.UTC()
	return &setting, nil
}

func (r *settingRepository) Upsert(ctx context.Context, key, value string, at time.Time) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO system_settings (key, value, updated_at) VALUES (%s, %s, %s)`, ph.Next(), ph.Next(), ph.Next()) +
		r.dialect.UpsertClause("key", "value", "updated_at")

	_, err := r.db.ExecContext(ctx, query, key, value, stampOrNow(at))
	return err
}
