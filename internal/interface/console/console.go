// Package console is the line-command front end of the client runtime.
// Each input line is one command. Commands dispatch actions and the printer
// echoes celebrations, live events and incoming chat as they appear.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/voicementor/voicementor/internal/application/client"
	"github.com/voicementor/voicementor/internal/domain/appstate"
	"github.com/voicementor/voicementor/internal/domain/interactive"
	"github.com/voicementor/voicementor/internal/domain/shared"
	"github.com/voicementor/voicementor/pkg/logger"
)

// errUsage marks a command called with the wrong arguments.
var errUsage = errors.New("usage")

// Config configures a Console.
type Config struct {
	Out    io.Writer
	Logger *logger.Logger

	// Now and NewID default to the runtime's clock and generator.
	Now   func() time.Time
	NewID shared.IDGenerator
}

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

// Console routes command lines to handlers.
type Console struct {
	rt    *client.Runtime
	log   *logger.Logger
	now   func() time.Time
	newID shared.IDGenerator

	outMu sync.Mutex
	out   io.Writer

	commands map[string]command

	// challenges completed in this process, by id
	challenges map[string]bool

	unsubscribe func()
}

// New creates a console over rt.
func New(rt *client.Runtime, cfg Config) *Console {
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = rt.Actions.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = rt.Actions.NewID
	}
	c := &Console{
		rt:         rt,
		log:        cfg.Logger.With(logger.Component("console")),
		now:        cfg.Now,
		newID:      cfg.NewID,
		out:        cfg.Out,
		challenges: make(map[string]bool),
	}
	c.registerCommands()
	return c
}

// ══════════════════════════════════════════════════════════════════════════════
// LOOP
// ══════════════════════════════════════════════════════════════════════════════

// Run reads commands from in until quit, end of input or ctx cancellation.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		scanErr <- sc.Err()
	}()

	c.printf("VoiceMentor console. Type 'help' for commands.\n")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if c.Exec(ctx, line) {
				return nil
			}
		}
	}
}

// Exec runs one command line and reports whether the console should exit.
func (c *Console) Exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	if name == "quit" || name == "exit" {
		return true
	}
	_ = c.rt.IX.Dispatch(interactive.UpdateLastInteraction{At: c.now()})

	cmd, ok := c.commands[name]
	if !ok {
		c.notify(appstate.NotifyError, "Unknown command", fmt.Sprintf("%q is not a command. Type 'help'.", name))
		c.printf("unknown command %q\n", name)
		return false
	}

	if err := cmd.run(ctx, args); err != nil {
		if errors.Is(err, errUsage) {
			c.printf("usage: %s\n", cmd.usage)
			return false
		}
		c.log.Debug("command failed", logger.String("command", name), logger.Err(err))
		c.notify(appstate.NotifyError, "Command failed", err.Error())
		c.printf("error: %v\n", err)
	}
	return false
}

func (c *Console) register(name, usage, help string, run func(ctx context.Context, args []string) error) {
	if c.commands == nil {
		c.commands = make(map[string]command)
	}
	c.commands[name] = command{usage: usage, help: help, run: run}
}

func (c *Console) help(context.Context, []string) error {
	names := make([]string, 0, len(c.commands))
	for n := range c.commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		cmd := c.commands[n]
		c.printf("  %-40s %s\n", cmd.usage, cmd.help)
	}
	c.printf("  %-40s %s\n", "quit", "exit the console")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PRINTER
// ══════════════════════════════════════════════════════════════════════════════

// Attach echoes new celebrations, live events and incoming chat messages.
func (c *Console) Attach() {
	c.unsubscribe = c.rt.IX.Subscribe(func(prev, next interactive.State, _ interactive.Action) {
		for _, cel := range added(prev.Celebrations, next.Celebrations, func(x interactive.Celebration) string { return x.ID }) {
			c.printf("🎉 %s %s [%s]\n", cel.Title, cel.Message, cel.ID)
		}
		for _, ev := range added(prev.LiveEvents, next.LiveEvents, func(x interactive.LiveEvent) string { return x.ID }) {
			c.printf("● %s: %s\n", ev.Title, ev.Description)
		}
		self, _ := c.rt.Self()
		for _, m := range added(prev.ChatMessages, next.ChatMessages, func(x interactive.ChatMessage) string { return x.ID }) {
			if m.SenderID != self {
				c.printf("💬 %s: %s [%s]\n", m.SenderName, m.Message, m.ID)
			}
		}
	})
}

// Detach stops echoing.
func (c *Console) Detach() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// added returns the entries of next whose key is not in prev.
func added[T any](prev, next []T, key func(T) string) []T {
	if len(next) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(prev))
	for _, p := range prev {
		seen[key(p)] = true
	}
	var out []T
	for _, n := range next {
		if !seen[key(n)] {
			out = append(out, n)
		}
	}
	return out
}

func (c *Console) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) notify(kind appstate.NotificationKind, title, message string) {
	err := c.rt.App.Dispatch(appstate.AddNotification{Notification: appstate.Notification{
		ID:        c.newID(),
		Title:     title,
		Message:   message,
		Kind:      kind,
		Timestamp: c.now(),
	}})
	if err != nil {
		c.log.Debug("notification dropped", logger.Err(err))
	}
}
