package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goldbar123467/claude-code-to-open-code-bridge/internal/storage"
	"github.com/goldbar123467/claude-code-to-open-code-bridge/pkg/types"
)

// Remember stores a memory and returns it with its assigned ID.
func (s *Store) Remember(ctx context.Context, content, tag string) (*types.Memory, error) {
	if err := validateRequired("content", content); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (content, tag, created_at)
		VALUES (?, ?, ?)
	`, content, nullableString(tag), now)
	if err != nil {
		return nil, fmt.Errorf("failed to store memory: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read memory id: %w", err)
	}

	return &types.Memory{
		ID:        id,
		Content:   content,
		Tag:       tag,
		CreatedAt: now,
	}, nil
}

// Recall returns memories whose content or tag contains opts.Query as a
// case-insensitive substring, newest first. An empty query matches all
// memories up to the limit.
func (s *Store) Recall(ctx context.Context, opts storage.RecallOptions) ([]*types.Memory, error) {
	opts.Normalize()

	// SQLite's LIKE is case-insensitive for ASCII by default; the stored
	// pattern escapes LIKE metacharacters so the query reads as a literal
	// substring.
	pattern := likePattern(opts.Query)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, tag, created_at
		FROM memories
		WHERE content LIKE ? ESCAPE '\'
		   OR (tag IS NOT NULL AND tag LIKE ? ESCAPE '\')
		ORDER BY id DESC
		LIMIT ?
	`, pattern, pattern, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search memories: %w", err)
	}
	defer rows.Close()

	var memories []*types.Memory
	for rows.Next() {
		var m types.Memory
		var tag sql.NullString
		if err := rows.Scan(&m.ID, &m.Content, &tag, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		if tag.Valid {
			m.Tag = tag.String
		}
		memories = append(memories, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memories: %w", err)
	}

	return memories, nil
}

// Forget deletes a memory. A missing id is ErrNotFound, so a double forget
// surfaces rather than silently succeeding.
func (s *Store) Forget(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: memory id is required", storage.ErrInvalidInput)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete memory %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: memory %d does not exist", storage.ErrNotFound, id)
	}
	return nil
}
