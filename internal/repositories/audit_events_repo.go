package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hospitalops/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxDatabase is the slice of pgxpool.Pool the audit store needs; pgxmock
// satisfies it in tests.
type PgxDatabase interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AuditEventsRepository is the append-only audit trail. Events are inserted
// and read, never updated or deleted.
type AuditEventsRepository interface {
	Create(ctx context.Context, event *models.AuditEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditEvent, error)
	List(ctx context.Context, filters *models.AuditEventFilters) ([]*models.AuditEvent, error)
	CountByType(ctx context.Context, eventType string, since time.Time) (int, error)
}

type auditEventsRepo struct {
	db PgxDatabase
}

// NewAuditEventsRepo builds the repository over a Postgres pool.
func NewAuditEventsRepo(db PgxDatabase) AuditEventsRepository {
	return &auditEventsRepo{db: db}
}

func (r *auditEventsRepo) Create(ctx context.Context, event *models.AuditEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	var detailsBytes []byte
	var err error
	if event.Details != nil {
		detailsBytes, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal details: %w", err)
		}
	}

	query := `
		INSERT INTO audit_events (id, event_type, actor_user_id, actor_role, tenant_key, route, method, ip, user_agent, success, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.db.Exec(ctx, query,
		event.ID, event.EventType, event.ActorUserID, event.ActorRole, event.TenantKey,
		event.Route, event.Method, event.IP, event.UserAgent, event.Success, detailsBytes, event.CreatedAt)
	return err
}

func (r *auditEventsRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditEvent, error) {
	query := `
		SELECT id, event_type, actor_user_id, actor_role, tenant_key, route, method, ip, user_agent, success, details, created_at
		FROM audit_events
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *auditEventsRepo) List(ctx context.Context, filters *models.AuditEventFilters) ([]*models.AuditEvent, error) {
	query := `
		SELECT id, event_type, actor_user_id, actor_role, tenant_key, route, method, ip, user_agent, success, details, created_at
		FROM audit_events
		WHERE 1=1
	`
	args := []any{}
	argPos := 1

	if filters.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argPos)
		args = append(args, filters.EventType)
		argPos++
	}
	if filters.TenantKey != "" {
		query += fmt.Sprintf(" AND tenant_key = $%d", argPos)
		args = append(args, filters.TenantKey)
		argPos++
	}
	if filters.ActorID != "" {
		query += fmt.Sprintf(" AND actor_user_id = $%d", argPos)
		args = append(args, filters.ActorID)
		argPos++
	}
	if filters.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argPos)
		args = append(args, *filters.Since)
		argPos++
	}
	if filters.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argPos)
		args = append(args, *filters.Until)
		argPos++
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		event, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *auditEventsRepo) CountByType(ctx context.Context, eventType string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM audit_events WHERE event_type = $1 AND created_at >= $2`
	var count int
	if err := r.db.QueryRow(ctx, query, eventType, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *auditEventsRepo) scanOne(row pgx.Row) (*models.AuditEvent, error) {
	event := &models.AuditEvent{}
	var detailsBytes []byte
	err := row.Scan(&event.ID, &event.EventType, &event.ActorUserID, &event.ActorRole, &event.TenantKey,
		&event.Route, &event.Method, &event.IP, &event.UserAgent, &event.Success, &detailsBytes, &event.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(detailsBytes) > 0 {
		if err := json.Unmarshal(detailsBytes, &event.Details); err != nil {
			return nil, fmt.Errorf("failed to unmarshal details: %w", err)
		}
	}
	return event, nil
}
