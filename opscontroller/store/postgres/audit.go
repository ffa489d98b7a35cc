package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsplatform/core/pkg/apierr"
)

// AuditLog implements ports.AuditLog as an append-only table.
type AuditLog struct{ pool *pgxpool.Pool }

func NewAuditLog(pool *pgxpool.Pool) *AuditLog { return &AuditLog{pool: pool} }

func (a *AuditLog) Record(ctx context.Context, event string, attrs map[string]any) error {
	doc, err := json.Marshal(attrs)
	if err != nil {
		return apierr.Externalf(err, "encoding audit event %s", event)
	}
	_, err = a.pool.Exec(ctx, `INSERT INTO audit_events (event, document) VALUES ($1, $2)`, event, doc)
	if err != nil {
		return apierr.Externalf(err, "recording audit event %s", event)
	}
	return nil
}
