package types

import "time"

// Conventional subject prefixes. The bridge never parses or validates these;
// they are a client-side convention for skimming an inbox.
const (
	SubjectTagTask     = "[TASK]"
	SubjectTagDone     = "[DONE]"
	SubjectTagBlocked  = "[BLOCKED]"
	SubjectTagQuestion = "[QUESTION]"
	SubjectTagHandoff  = "[HANDOFF]"
)

// Message is an asynchronous note from one agent to another. Messages are
// append-only: the read and acknowledged flags are the only mutable fields,
// and they are independent of each other.
type Message struct {
	// ID is the auto-incrementing message identifier.
	ID int64 `json:"id"`

	// Sender is the name of the agent that sent the message.
	Sender string `json:"sender"`

	// Recipient is the name of the agent the message is addressed to.
	// Recipients must be registered agents.
	Recipient string `json:"recipient"`

	// Subject is a short free-text summary, conventionally prefixed with a
	// bracketed tag such as "[TASK]".
	Subject string `json:"subject"`

	// Body is the optional message body.
	Body string `json:"body,omitempty"`

	// ThreadID optionally groups related messages. Opaque to the bridge.
	ThreadID string `json:"thread_id,omitempty"`

	// CreatedAt is when the message was sent.
	CreatedAt time.Time `json:"created_at"`

	// Read reports whether the recipient has marked the message as read.
	Read bool `json:"read"`

	// Acked reports whether the recipient has acknowledged the message.
	// Acknowledging does not imply reading, or vice versa.
	Acked bool `json:"acked"`
}
