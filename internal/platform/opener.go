// Package platform abstracts the host's ability to resolve and open app URLs.
package platform

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// URLOpener resolves and opens app URLs on the host platform.
type URLOpener interface {
	// CanOpen reports whether an installed app handles the URL's scheme.
	CanOpen(rawURL string) bool
	// Open asks the platform to open rawURL. A false result with a nil error
	// means the platform declined.
	Open(ctx context.Context, rawURL string) (bool, error)
}

// Scheme returns the lower-cased scheme of rawURL. Bare schemes ("bank",
// "bank:", "bank://") are accepted.
func Scheme(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(s)
}

// StaticOpener resolves a fixed set of installed schemes and records every
// URL it is asked to open.
type StaticOpener struct {
	mu       sync.Mutex
	schemes  map[string]bool
	opened   []string
	declines bool
}

// NewStaticOpener returns an opener that considers the given schemes installed.
func NewStaticOpener(schemes ...string) *StaticOpener {
	o := &StaticOpener{schemes: make(map[string]bool)}
	for _, s := range schemes {
		o.Install(s)
	}
	return o
}

// Install marks scheme as resolvable.
func (o *StaticOpener) Install(scheme string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s := Scheme(scheme); s != "" {
		o.schemes[s] = true
	}
}

// Uninstall marks scheme as no longer resolvable.
func (o *StaticOpener) Uninstall(scheme string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.schemes, Scheme(scheme))
}

// SetInstalled replaces the resolvable schemes.
func (o *StaticOpener) SetInstalled(schemes []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.schemes = make(map[string]bool, len(schemes))
	for _, s := range schemes {
		if sc := Scheme(s); sc != "" {
			o.schemes[sc] = true
		}
	}
}

// SetDeclines makes Open report false for every URL.
func (o *StaticOpener) SetDeclines(declines bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.declines = declines
}

func (o *StaticOpener) CanOpen(rawURL string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.schemes[Scheme(rawURL)]
}

func (o *StaticOpener) Open(_ context.Context, rawURL string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, rawURL)
	if o.declines {
		return false, nil
	}
	return o.schemes[Scheme(rawURL)], nil
}

// Opened returns the URLs passed to Open, oldest first.
func (o *StaticOpener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.opened))
	copy(out, o.opened)
	return out
}

// CommandOpener resolves a configured set of schemes and opens URLs by running
// an external command (xdg-open, open, adb shell am start ...) with the URL
// appended as the last argument.
type CommandOpener struct {
	*StaticOpener
	command []string
	logger  *slog.Logger
}

// NewCommandOpener builds an opener from a space separated command line.
func NewCommandOpener(command string, schemes []string, logger *slog.Logger) *CommandOpener {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandOpener{
		StaticOpener: NewStaticOpener(schemes...),
		command:      strings.Fields(command),
		logger:       logger,
	}
}

func (o *CommandOpener) Open(ctx context.Context, rawURL string) (bool, error) {
	if !o.CanOpen(rawURL) {
		o.logger.Warn("platform.open.unresolved", "scheme", Scheme(rawURL))
		return false, nil
	}
	if len(o.command) == 0 {
		return o.StaticOpener.Open(ctx, rawURL)
	}
	args := append(append([]string{}, o.command[1:]...), rawURL)
	out, err := exec.CommandContext(ctx, o.command[0], args...).CombinedOutput()
	if err != nil {
		o.logger.Error("platform.open.command_failed", "command", o.command[0], "error", err, "output", string(out))
		return false, fmt.Errorf("open %s: %w", Scheme(rawURL), err)
	}
	o.logger.Info("platform.open.ok", "scheme", Scheme(rawURL))
	return o.StaticOpener.Open(ctx, rawURL)
}

// FromConfig picks a CommandOpener when a command is configured and a
// StaticOpener otherwise.
func FromConfig(command string, schemes []string, logger *slog.Logger) URLOpener {
	if strings.TrimSpace(command) == "" {
		return NewStaticOpener(schemes...)
	}
	return NewCommandOpener(command, schemes, logger)
}
