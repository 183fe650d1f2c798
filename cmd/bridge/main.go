// Command bridge is the command-line surface of the agent coordination
// store: one subcommand per store operation, human-readable tabular output,
// and a non-zero exit code on any error.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/goldbar123467/claude-code-to-open-code-bridge/internal/config"
	"github.com/goldbar123467/claude-code-to-open-code-bridge/internal/notify"
	"github.com/goldbar123467/claude-code-to-open-code-bridge/internal/storage"
	"github.com/goldbar123467/claude-code-to-open-code-bridge/internal/storage/sqlite"
	"github.com/goldbar123467/claude-code-to-open-code-bridge/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "register":
		err = cmdRegister(args)
	case "agents":
		err = cmdAgents(args)
	case "send":
		err = cmdSend(args)
	case "inbox":
		err = cmdInbox(args)
	case "mark_read", "mark-read":
		err = cmdMarkRead(args)
	case "ack":
		err = cmdAck(args)
	case "lock":
		err = cmdLock(args)
	case "unlock":
		err = cmdUnlock(args)
	case "locks":
		err = cmdLocks(args)
	case "remember":
		err = cmdRemember(args)
	case "recall":
		err = cmdRecall(args)
	case "forget":
		err = cmdForget(args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `usage: bridge <command> [arguments]

Agent coordination over a shared database file (BRIDGE_DATA_PATH/bridge.db).

Agents:
  register <name>              register or refresh an agent
  agents                       list registered agents

Messaging:
  send <sender> <recipient> <subject> [body]
  inbox <agent>                fetch messages (unread by default)
  mark_read <message-id>       mark a message as read
  ack <message-id>             acknowledge a message

File locks:
  lock <path> <agent>          acquire or renew an exclusive lock
  unlock <path> <agent>        release a lock you hold
  locks                        list active locks

Shared memory:
  remember <text>              store a note
  recall [query]               search notes (case-insensitive substring)
  forget <memory-id>           delete a note

Run 'bridge <command> -h' for command flags.
`)
}

// openStore loads the configuration, ensures the data directory exists, and
// opens the shared database.
func openStore() (*sqlite.Store, *config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory %q: %w", cfg.Storage.DataPath, err)
	}

	store, err := sqlite.New(cfg.DBPath(), sqlite.WithStrictRecipients(cfg.Bridge.StrictRecipients))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database at %q: %w", cfg.DBPath(), err)
	}
	return store, cfg, nil
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, arg)
	}
	return id, nil
}

func cmdRegister(args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	program := fs.String("program", "", "Agent program (claude-code, opencode, ...)")
	model := fs.String("model", "", "Model being used")
	task := fs.String("task", "", "Current task description")
	status := fs.String("status", "", "Status flag (default: active)")
	jsonOut := fs.Bool("json", false, "JSON output")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: bridge register <name> [-program P] [-model M] [-task T]")
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	agent, err := store.Register(context.Background(), &types.Agent{
		Name:    fs.Arg(0),
		Program: *program,
		Model:   *model,
		Task:    *task,
		Status:  *status,
	})
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(os.Stdout, agent)
	}
	fmt.Printf("registered %s\n", agent.Name)
	return nil
}

func cmdAgents(args []string) error {
	fs := flag.NewFlagSet("agents", flag.ExitOnError)
	jsonOut := fs.Bool("json", false, "JSON output")
	fs.Parse(args)

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	agents, err := store.ListAgents(context.Background())
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(os.Stdout, agents)
	}
	renderAgents(os.Stdout, agents)
	return nil
}

func cmdSend(args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	threadID := fs.String("thread", "", "Thread ID for grouping")
	jsonOut := fs.Bool("json", false, "JSON output")
	fs.Parse(args)

	if fs.NArg() < 3 || fs.NArg() > 4 {
		return fmt.Errorf("usage: bridge send <sender> <recipient> <subject> [body]")
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	msg := &types.Message{
		Sender:    fs.Arg(0),
		Recipient: fs.Arg(1),
		Subject:   fs.Arg(2),
		ThreadID:  *threadID,
	}
	if fs.NArg() == 4 {
		msg.Body = fs.Arg(3)
	}

	if err := store.Send(context.Background(), msg); err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(os.Stdout, msg)
	}
	fmt.Printf("sent message %d to %s\n", msg.ID, msg.Recipient)
	return nil
}

func cmdInbox(args []string) error {
	fs := flag.NewFlagSet("inbox", flag.ExitOnError)
	all := fs.Bool("all", false, "Include messages already marked read")
	limit := fs.Int("limit", 0, "Max messages (default from BRIDGE_INBOX_LIMIT)")
	watch := fs.Bool("watch", false, "Keep running and print new messages as they arrive")
	jsonOut := fs.Bool("json", false, "JSON output")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: bridge inbox <agent> [-all] [-limit N] [-watch]")
	}
	agent := fs.Arg(0)

	store, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	opts := storage.InboxOptions{UnreadOnly: !*all, Limit: *limit}
	if opts.Limit == 0 {
		opts.Limit = cfg.Bridge.InboxLimit
	}

	messages, err := store.Inbox(context.Background(), agent, opts)
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(os.Stdout, messages)
	}
	renderMessages(os.Stdout, messages)

	if !*watch {
		return nil
	}
	return watchInbox(store, cfg, agent, opts, messages)
}

// watchInbox follows the database file and prints messages that arrive after
// the initial listing. It returns when interrupted.
func watchInbox(store *sqlite.Store, cfg *config.Config, agent string, opts storage.InboxOptions, seen []*types.Message) error {
	var lastID int64
	for _, m := range seen {
		if m.ID > lastID {
			lastID = m.ID
		}
	}

	watcher := notify.NewDBWatcher(cfg.DBPath())
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to watch %s: %w", cfg.DBPath(), err)
	}
	defer watcher.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "watching inbox for %s (interrupt to stop)\n", agent)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-watcher.Events():
			messages, err := store.Inbox(ctx, agent, opts)
			if err != nil {
				return err
			}
			var fresh []*types.Message
			for _, m := range messages {
				if m.ID > lastID {
					fresh = append(fresh, m)
					lastID = m.ID
				}
			}
			if len(fresh) > 0 {
				renderMessages(os.Stdout, fresh)
			}
		}
	}
}

func cmdMarkRead(args []string) error {
	fs := flag.NewFlagSet("mark_read", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: bridge mark_read <message-id>")
	}
	id, err := parseID(fs.Arg(0), "message id")
	if err != nil {
		return err
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.MarkRead(context.Background(), id); err != nil {
		return err
	}
	fmt.Printf("marked message %d read\n", id)
	return nil
}

func cmdAck(args []string) error {
	fs := flag.NewFlagSet("ack", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: bridge ack <message-id>")
	}
	id, err := parseID(fs.Arg(0), "message id")
	if err != nil {
		return err
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Ack(context.Background(), id); err != nil {
		return err
	}
	fmt.Printf("acknowledged message %d\n", id)
	return nil
}

func cmdLock(args []string) error {
	fs := flag.NewFlagSet("lock", flag.ExitOnError)
	ttl := fs.Int("ttl", 0, "Lock TTL in seconds (default from BRIDGE_DEFAULT_TTL_SECONDS)")
	reason := fs.String("reason", "", "Why the lock is needed")
	jsonOut := fs.Bool("json", false, "JSON output")
	fs.Parse(args)

	if fs.NArg() != 2 {
		return fmt.Errorf("usage: bridge lock <path> <agent> [-ttl seconds] [-reason R]")
	}

	store, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ttlDur := cfg.Bridge.DefaultLockTTL
	if *ttl > 0 {
		ttlDur = time.Duration(*ttl) * time.Second
	}

	lock, err := store.Lock(context.Background(), fs.Arg(0), fs.Arg(1), *reason, ttlDur)
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(os.Stdout, lock)
	}
	fmt.Printf("locked %s for %s until %s\n", lock.Path, lock.Agent, lock.ExpiresAt.Format(time.RFC3339))
	return nil
}

func cmdUnlock(args []string) error {
	fs := flag.NewFlagSet("unlock", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() != 2 {
		return fmt.Errorf("usage: bridge unlock <path> <agent>")
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Unlock(context.Background(), fs.Arg(0), fs.Arg(1)); err != nil {
		return err
	}
	fmt.Printf("unlocked %s\n", fs.Arg(0))
	return nil
}

func cmdLocks(args []string) error {
	fs := flag.NewFlagSet("locks", flag.ExitOnError)
	agent := fs.String("agent", "", "Filter by holding agent")
	all := fs.Bool("all", false, "Include expired lock rows")
	jsonOut := fs.Bool("json", false, "JSON output")
	fs.Parse(args)

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	locks, err := store.ListLocks(context.Background(), storage.ListLocksOptions{
		ActiveOnly: !*all,
		Agent:      *agent,
	})
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(os.Stdout, locks)
	}
	renderLocks(os.Stdout, locks, time.Now().UTC())
	return nil
}

func cmdRemember(args []string) error {
	fs := flag.NewFlagSet("remember", flag.ExitOnError)
	tag := fs.String("tag", "", "Optional category tag")
	jsonOut := fs.Bool("json", false, "JSON output")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: bridge remember <text> [-tag T]")
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	memory, err := store.Remember(context.Background(), fs.Arg(0), *tag)
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(os.Stdout, memory)
	}
	fmt.Printf("stored memory %d\n", memory.ID)
	return nil
}

func cmdRecall(args []string) error {
	fs := flag.NewFlagSet("recall", flag.ExitOnError)
	limit := fs.Int("limit", 0, "Max results (default from BRIDGE_RECALL_LIMIT)")
	jsonOut := fs.Bool("json", false, "JSON output")
	fs.Parse(args)

	if fs.NArg() > 1 {
		return fmt.Errorf("usage: bridge recall [query] [-limit N]")
	}

	store, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	opts := storage.RecallOptions{Query: fs.Arg(0), Limit: *limit}
	if opts.Limit == 0 {
		opts.Limit = cfg.Bridge.RecallLimit
	}

	memories, err := store.Recall(context.Background(), opts)
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(os.Stdout, memories)
	}
	renderMemories(os.Stdout, memories)
	return nil
}

func cmdForget(args []string) error {
	fs := flag.NewFlagSet("forget", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: bridge forget <memory-id>")
	}
	id, err := parseID(fs.Arg(0), "memory id")
	if err != nil {
		return err
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Forget(context.Background(), id); err != nil {
		return err
	}
	fmt.Printf("forgot memory %d\n", id)
	return nil
}
