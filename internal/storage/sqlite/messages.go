package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goldbar123467/claude-code-to-open-code-bridge/internal/storage"
	"github.com/goldbar123467/claude-code-to-open-code-bridge/pkg/types"
)

// Send inserts a new message and fills in msg.ID and msg.CreatedAt. With
// strict recipient validation (the default) the recipient must be a
// registered agent; the existence check and the insert share one transaction
// so a concurrently-registering recipient is either seen or not, atomically.
func (s *Store) Send(ctx context.Context, msg *types.Message) error {
	if msg == nil {
		return storage.ErrInvalidInput
	}
	if err := validateRequired("sender", msg.Sender); err != nil {
		return err
	}
	if err := validateRequired("recipient", msg.Recipient); err != nil {
		return err
	}
	if err := validateRequired("subject", msg.Subject); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if s.strictRecipients {
		ok, err := agentExists(ctx, tx, msg.Recipient)
		if err != nil {
			return fmt.Errorf("failed to check recipient: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: recipient %q is not a registered agent", storage.ErrNotFound, msg.Recipient)
		}
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (sender, recipient, subject, body, thread_id, created_at, read, acked)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0)
	`, msg.Sender, msg.Recipient, msg.Subject, msg.Body, nullableString(msg.ThreadID), now)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read message id: %w", err)
	}

	// The sender was just active.
	if err := touchAgent(ctx, tx, msg.Sender, now); err != nil {
		return fmt.Errorf("failed to update sender presence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}

	msg.ID = id
	msg.CreatedAt = now
	msg.Read = false
	msg.Acked = false
	return nil
}

// Inbox returns messages addressed to agent in send order (oldest first).
func (s *Store) Inbox(ctx context.Context, agent string, opts storage.InboxOptions) ([]*types.Message, error) {
	if err := validateRequired("agent", agent); err != nil {
		return nil, err
	}
	opts.Normalize()

	query := `
		SELECT id, sender, recipient, subject, body, thread_id, created_at, read, acked
		FROM messages
		WHERE recipient = ?
	`
	args := []interface{}{agent}

	if opts.UnreadOnly {
		query += " AND read = 0"
	}
	query += " ORDER BY id ASC LIMIT ?"
	args = append(args, opts.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch inbox: %w", err)
	}
	defer rows.Close()

	var messages []*types.Message
	for rows.Next() {
		var m types.Message
		var threadID sql.NullString
		if err := rows.Scan(&m.ID, &m.Sender, &m.Recipient, &m.Subject, &m.Body,
			&threadID, &m.CreatedAt, &m.Read, &m.Acked); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if threadID.Valid {
			m.ThreadID = threadID.String
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inbox: %w", err)
	}

	// Reading the inbox counts as presence.
	if _, err := s.db.ExecContext(ctx,
		`UPDATE agents SET last_seen = ? WHERE name = ?`, time.Now().UTC(), agent); err != nil {
		return nil, fmt.Errorf("failed to update agent presence: %w", err)
	}

	return messages, nil
}

// MarkRead sets the read flag on a message. Marking an already-read message
// is a no-op; a missing id is ErrNotFound.
func (s *Store) MarkRead(ctx context.Context, id int64) error {
	return s.setMessageFlag(ctx, id, "read")
}

// Ack sets the acknowledged flag on a message. The read flag is untouched —
// the two flags are independent.
func (s *Store) Ack(ctx context.Context, id int64) error {
	return s.setMessageFlag(ctx, id, "acked")
}

func (s *Store) setMessageFlag(ctx context.Context, id int64, column string) error {
	if id <= 0 {
		return fmt.Errorf("%w: message id is required", storage.ErrInvalidInput)
	}

	// column is one of the two fixed flag names, never user input.
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE messages SET %s = 1 WHERE id = ?`, column), id)
	if err != nil {
		return fmt.Errorf("failed to update message %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: message %d does not exist", storage.ErrNotFound, id)
	}
	return nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
