package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goldbar123467/claude-code-to-open-code-bridge/internal/storage"
	"github.com/goldbar123467/claude-code-to-open-code-bridge/pkg/types"
)

func sendTestMessage(t *testing.T, store *Store, sender, recipient, subject string) *types.Message {
	t.Helper()
	msg := &types.Message{Sender: sender, Recipient: recipient, Subject: subject}
	if err := store.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send(%s -> %s) failed: %v", sender, recipient, err)
	}
	return msg
}

func TestSendAssignsIDAndTimestamp(t *testing.T) {
	store := newTestStore(t)
	mustRegister(t, store, "alice")
	mustRegister(t, store, "bob")

	msg := sendTestMessage(t, store, "alice", "bob", "[TASK] review storage layer")

	if msg.ID <= 0 {
		t.Errorf("ID: got %d, want positive", msg.ID)
	}
	if msg.CreatedAt.IsZero() {
		t.Error("CreatedAt: got zero time")
	}
	if msg.Read || msg.Acked {
		t.Errorf("new message flags: read=%v acked=%v, want both false", msg.Read, msg.Acked)
	}
}

func TestSendRequiresFields(t *testing.T) {
	store := newTestStore(t)
	mustRegister(t, store, "bob")
	ctx := context.Background()

	cases := []*types.Message{
		nil,
		{Recipient: "bob", Subject: "s"},
		{Sender: "alice", Subject: "s"},
		{Sender: "alice", Recipient: "bob"},
	}
	for i, msg := range cases {
		if err := store.Send(ctx, msg); !errors.Is(err, storage.ErrInvalidInput) {
			t.Errorf("case %d: got %v, want ErrInvalidInput", i, err)
		}
	}
}

func TestSendRejectsUnknownRecipient(t *testing.T) {
	store := newTestStore(t)
	mustRegister(t, store, "alice")

	err := store.Send(context.Background(), &types.Message{
		Sender:    "alice",
		Recipient: "nobody",
		Subject:   "hello",
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Send to unknown recipient: got %v, want ErrNotFound", err)
	}
}

func TestSendPermissiveRecipients(t *testing.T) {
	store := newTestStore(t, WithStrictRecipients(false))

	err := store.Send(context.Background(), &types.Message{
		Sender:    "alice",
		Recipient: "not-registered-yet",
		Subject:   "hello",
	})
	if err != nil {
		t.Fatalf("Send with permissive recipients failed: %v", err)
	}
}

// TestInboxOrderOldestFirst pins the delivery order: messages come back in
// send order so a consumer can process them as a queue.
func TestInboxOrderOldestFirst(t *testing.T) {
	store := newTestStore(t)
	mustRegister(t, store, "alice")
	mustRegister(t, store, "bob")

	for i := 1; i <= 3; i++ {
		sendTestMessage(t, store, "alice", "bob", fmt.Sprintf("msg %d", i))
	}

	messages, err := store.Inbox(context.Background(), "bob", storage.InboxOptions{UnreadOnly: true})
	if err != nil {
		t.Fatalf("Inbox() failed: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("Inbox() returned %d messages, want 3", len(messages))
	}
	for i, m := range messages {
		want := fmt.Sprintf("msg %d", i+1)
		if m.Subject != want {
			t.Errorf("messages[%d].Subject = %q, want %q", i, m.Subject, want)
		}
	}
}

func TestInboxUnreadFilter(t *testing.T) {
	store := newTestStore(t)
	mustRegister(t, store, "alice")
	mustRegister(t, store, "bob")
	ctx := context.Background()

	first := sendTestMessage(t, store, "alice", "bob", "first")
	sendTestMessage(t, store, "alice", "bob", "second")

	if err := store.MarkRead(ctx, first.ID); err != nil {
		t.Fatalf("MarkRead() failed: %v", err)
	}

	unread, err := store.Inbox(ctx, "bob", storage.InboxOptions{UnreadOnly: true})
	if err != nil {
		t.Fatalf("Inbox(unread) failed: %v", err)
	}
	if len(unread) != 1 || unread[0].Subject != "second" {
		t.Errorf("unread inbox = %d messages, want just %q", len(unread), "second")
	}

	all, err := store.Inbox(ctx, "bob", storage.InboxOptions{UnreadOnly: false})
	if err != nil {
		t.Fatalf("Inbox(all) failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("full inbox = %d messages, want 2", len(all))
	}
	if !all[0].Read {
		t.Error("first message should report read=true after MarkRead")
	}
}

func TestInboxLimit(t *testing.T) {
	store := newTestStore(t)
	mustRegister(t, store, "alice")
	mustRegister(t, store, "bob")

	for i := 0; i < 5; i++ {
		sendTestMessage(t, store, "alice", "bob", fmt.Sprintf("msg %d", i))
	}

	messages, err := store.Inbox(context.Background(), "bob",
		storage.InboxOptions{UnreadOnly: true, Limit: 2})
	if err != nil {
		t.Fatalf("Inbox() failed: %v", err)
	}
	if len(messages) != 2 {
		t.Errorf("Inbox(limit=2) returned %d messages, want 2", len(messages))
	}
	// The limit takes the oldest messages, not the newest.
	if len(messages) == 2 && messages[0].Subject != "msg 0" {
		t.Errorf("first limited message = %q, want %q", messages[0].Subject, "msg 0")
	}
}

// TestAckIndependentOfRead verifies that acknowledging a message does not
// mark it read, and vice versa.
func TestAckIndependentOfRead(t *testing.T) {
	store := newTestStore(t)
	mustRegister(t, store, "alice")
	mustRegister(t, store, "bob")
	ctx := context.Background()

	msg := sendTestMessage(t, store, "alice", "bob", "needs ack")

	if err := store.Ack(ctx, msg.ID); err != nil {
		t.Fatalf("Ack() failed: %v", err)
	}

	// Still unread: an acked-but-unread message stays in the unread inbox.
	unread, err := store.Inbox(ctx, "bob", storage.InboxOptions{UnreadOnly: true})
	if err != nil {
		t.Fatalf("Inbox() failed: %v", err)
	}
	if len(unread) != 1 {
		t.Fatalf("unread inbox after Ack = %d messages, want 1", len(unread))
	}
	if !unread[0].Acked || unread[0].Read {
		t.Errorf("flags after Ack: read=%v acked=%v, want read=false acked=true",
			unread[0].Read, unread[0].Acked)
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	store := newTestStore(t)
	mustRegister(t, store, "alice")
	mustRegister(t, store, "bob")
	ctx := context.Background()

	msg := sendTestMessage(t, store, "alice", "bob", "read twice")

	if err := store.MarkRead(ctx, msg.ID); err != nil {
		t.Fatalf("first MarkRead() failed: %v", err)
	}
	if err := store.MarkRead(ctx, msg.ID); err != nil {
		t.Errorf("second MarkRead() failed: %v", err)
	}
}

func TestMarkReadAndAckMissingMessage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.MarkRead(ctx, 9999); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("MarkRead(missing): got %v, want ErrNotFound", err)
	}
	if err := store.Ack(ctx, 9999); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Ack(missing): got %v, want ErrNotFound", err)
	}
	if err := store.MarkRead(ctx, 0); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("MarkRead(0): got %v, want ErrInvalidInput", err)
	}
}

func TestThreadIDRoundTrip(t *testing.T) {
	store := newTestStore(t)
	mustRegister(t, store, "alice")
	mustRegister(t, store, "bob")
	ctx := context.Background()

	msg := &types.Message{
		Sender:    "alice",
		Recipient: "bob",
		Subject:   "[QUESTION] threaded",
		ThreadID:  "thread-42",
	}
	if err := store.Send(ctx, msg); err != nil {
		t.Fatalf("Send() failed: %v", err)
	}
	sendTestMessage(t, store, "alice", "bob", "no thread")

	messages, err := store.Inbox(ctx, "bob", storage.InboxOptions{UnreadOnly: true})
	if err != nil {
		t.Fatalf("Inbox() failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("Inbox() returned %d messages, want 2", len(messages))
	}
	if messages[0].ThreadID != "thread-42" {
		t.Errorf("ThreadID: got %q, want %q", messages[0].ThreadID, "thread-42")
	}
	if messages[1].ThreadID != "" {
		t.Errorf("ThreadID of unthreaded message: got %q, want empty", messages[1].ThreadID)
	}
}

// TestSendBumpsSenderPresence verifies that sending counts as agent
// activity.
func TestSendBumpsSenderPresence(t *testing.T) {
	store := newTestStore(t)
	mustRegister(t, store, "alice")
	mustRegister(t, store, "bob")
	ctx := context.Background()

	// Age the sender, then send.
	past := time.Now().UTC().Add(-time.Hour)
	if _, err := store.db.Exec(`UPDATE agents SET last_seen = ? WHERE name = ?`, past, "alice"); err != nil {
		t.Fatalf("failed to age agent: %v", err)
	}

	sendTestMessage(t, store, "alice", "bob", "ping")

	agents, err := store.ListAgents(ctx)
	if err != nil {
		t.Fatalf("ListAgents() failed: %v", err)
	}
	for _, a := range agents {
		if a.Name == "alice" && !a.LastSeen.After(past) {
			t.Errorf("alice.LastSeen = %v, want bumped past %v", a.LastSeen, past)
		}
	}
}
