package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goldbar123467/claude-code-to-open-code-bridge/internal/storage"
	"github.com/goldbar123467/claude-code-to-open-code-bridge/pkg/types"
)

// Register upserts an agent row. Optional fields only overwrite the stored
// values when non-empty, so a bare re-registration ("I'm still here") does
// not erase a previously declared program or model.
func (s *Store) Register(ctx context.Context, agent *types.Agent) (*types.Agent, error) {
	if agent == nil {
		return nil, storage.ErrInvalidInput
	}
	if err := validateRequired("agent name", agent.Name); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	status := agent.Status
	if status == "" {
		status = types.AgentStatusActive
	}

	query := `
		INSERT INTO agents (name, program, model, task, status, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			program   = COALESCE(NULLIF(excluded.program, ''), program),
			model     = COALESCE(NULLIF(excluded.model, ''), model),
			task      = COALESCE(NULLIF(excluded.task, ''), task),
			status    = excluded.status,
			last_seen = excluded.last_seen
	`

	if _, err := s.db.ExecContext(ctx, query,
		agent.Name, agent.Program, agent.Model, agent.Task, status, now,
	); err != nil {
		return nil, fmt.Errorf("failed to register agent: %w", err)
	}

	return s.getAgent(ctx, agent.Name)
}

// ListAgents returns all registered agents, most recently active first.
func (s *Store) ListAgents(ctx context.Context) ([]*types.Agent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, program, model, task, status, last_seen
		FROM agents
		ORDER BY last_seen DESC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var agents []*types.Agent
	for rows.Next() {
		var a types.Agent
		if err := rows.Scan(&a.Name, &a.Program, &a.Model, &a.Task, &a.Status, &a.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agents: %w", err)
	}

	return agents, nil
}

func (s *Store) getAgent(ctx context.Context, name string) (*types.Agent, error) {
	var a types.Agent
	err := s.db.QueryRowContext(ctx, `
		SELECT name, program, model, task, status, last_seen
		FROM agents
		WHERE name = ?
	`, name).Scan(&a.Name, &a.Program, &a.Model, &a.Task, &a.Status, &a.LastSeen)
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return &a, nil
}

// agentExists reports whether name is registered, within the caller's
// transaction.
func agentExists(ctx context.Context, q queryRower, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// queryRower is satisfied by both *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
