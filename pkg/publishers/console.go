package publishers

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

const avatarGlyph = "(o)"

// consolePublisher renders the user list as cards: avatar, full name and
// the username underneath.
type consolePublisher struct {
	id  string
	typ string

	mu  sync.Mutex
	out io.Writer
}

func newConsolePublisher(_ context.Context, cfg PublisherConfig, _ Logger) (Publisher, error) {
	out := io.Writer(os.Stdout)
	if cfg.Console != nil && cfg.Console.Output == "stderr" {
		out = os.Stderr
	}
	return &consolePublisher{id: cfg.ID, typ: TypeConsole, out: out}, nil
}

func (c *consolePublisher) ID() string   { return c.id }
func (c *consolePublisher) Type() string { return c.typ }

func (c *consolePublisher) Publish(_ context.Context, evt Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, u := range evt.Users {
		if _, err := fmt.Fprintf(c.out, "%s %s\n    %s\n", avatarGlyph, u.FullName(), u.Username); err != nil {
			return fmt.Errorf("write user %d: %w", u.ID, err)
		}
	}
	return nil
}
