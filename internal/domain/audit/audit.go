package audit

import (
	"context"
	"encoding/json"
	"time"

	"peopleops/internal/tenant"
)

type Event struct {
	ID         string          `json:"id"`
	TenantID   string          `json:"tenantId"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

// Service appends to the shared audit trail. Every administrative repair
// operation and authoritative-record mutation records an event here.
type Service struct {
	DB tenant.Querier
}

func New(db tenant.Querier) *Service {
	return &Service{DB: db}
}

func (s *Service) Record(ctx context.Context, tenantID, actorID, action, entityType, entityID, requestID, ip string, before, after any) error {
	var beforeJSON, afterJSON []byte
	if before != nil {
		payload, err := json.Marshal(before)
		if err != nil {
			return err
		}
		beforeJSON = payload
	}
	if after != nil {
		payload, err := json.Marshal(after)
		if err != nil {
			return err
		}
		afterJSON = payload
	}

	_, err := s.DB.Exec(ctx, `
    INSERT INTO shared.audit_events (tenant_id, actor_id, action, entity_type, entity_id, request_id, ip, before_state, after_state)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
  `, tenantID, actorID, action, entityType, entityID, requestID, ip, beforeJSON, afterJSON)
	return err
}

func (s *Service) List(ctx context.Context, tenantID, action, entityType string, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.DB.Query(ctx, `
    SELECT id, tenant_id, actor_id, action, entity_type, entity_id, request_id, ip, created_at, before_state, after_state
    FROM shared.audit_events
    WHERE tenant_id = $1
      AND ($2 = '' OR action = $2)
      AND ($3 = '' OR entity_type = $3)
    ORDER BY created_at DESC
    LIMIT $4
  `, tenantID, action, entityType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID, &e.RequestID, &e.IP, &e.CreatedAt, &e.Before, &e.After); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
