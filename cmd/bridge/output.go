package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/goldbar123467/claude-code-to-open-code-bridge/pkg/types"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator("  ")
	return table
}

func renderAgents(w io.Writer, agents []*types.Agent) {
	if len(agents) == 0 {
		fmt.Fprintln(w, "no agents registered")
		return
	}
	table := newTable(w, []string{"NAME", "PROGRAM", "MODEL", "STATUS", "LAST SEEN", "TASK"})
	for _, a := range agents {
		table.Append([]string{
			a.Name,
			a.Program,
			a.Model,
			a.Status,
			humanAge(a.LastSeen),
			truncate(a.Task, 48),
		})
	}
	table.Render()
}

func renderMessages(w io.Writer, messages []*types.Message) {
	if len(messages) == 0 {
		fmt.Fprintln(w, "no messages")
		return
	}
	table := newTable(w, []string{"ID", "FROM", "SUBJECT", "BODY", "SENT", "STATE"})
	for _, m := range messages {
		table.Append([]string{
			fmt.Sprintf("%d", m.ID),
			m.Sender,
			truncate(m.Subject, 40),
			truncate(m.Body, 60),
			humanAge(m.CreatedAt),
			messageState(m),
		})
	}
	table.Render()
}

func messageState(m *types.Message) string {
	switch {
	case m.Acked:
		return "acked"
	case m.Read:
		return "read"
	default:
		return "unread"
	}
}

func renderLocks(w io.Writer, locks []*types.FileLock, now time.Time) {
	if len(locks) == 0 {
		fmt.Fprintln(w, "no locks held")
		return
	}
	table := newTable(w, []string{"PATH", "AGENT", "REMAINING", "REASON"})
	for _, l := range locks {
		remaining := "expired"
		if l.Active(now) {
			remaining = l.Remaining(now).Round(time.Second).String()
		}
		table.Append([]string{
			l.Path,
			l.Agent,
			remaining,
			truncate(l.Reason, 48),
		})
	}
	table.Render()
}

func renderMemories(w io.Writer, memories []*types.Memory) {
	if len(memories) == 0 {
		fmt.Fprintln(w, "no memories found")
		return
	}
	table := newTable(w, []string{"ID", "TAG", "STORED", "CONTENT"})
	for _, m := range memories {
		table.Append([]string{
			fmt.Sprintf("%d", m.ID),
			m.Tag,
			humanAge(m.CreatedAt),
			truncate(m.Content, 72),
		})
	}
	table.Render()
}

// humanAge renders a timestamp as a coarse relative age for table cells.
func humanAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("2006-01-02")
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
