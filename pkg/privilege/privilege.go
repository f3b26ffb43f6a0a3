// Package privilege turns commands that must not run with the controller's
// rights into commands that execute under a configured unprivileged user.
// It never executes anything itself; adapters do the execution.
package privilege

import (
	"fmt"
	"os"
	"os/user"
)

// WrapFunc rewrites a command so it executes under the separator's identity.
// The input slice is never mutated.
type WrapFunc func(cmd []string) []string

// Separator wraps commands with a privilege drop when one is configured.
// It is stateless apart from its configuration and safe for concurrent use.
type Separator struct {
	runAsUser string
	euid      func() int
	lookup    func(name string) error
}

// Option customizes a Separator, used by tests to fake the effective UID
// and the user database
type Option func(*Separator)

// WithEuid overrides the effective-UID probe
func WithEuid(fn func() int) Option {
	return func(s *Separator) { s.euid = fn }
}

// WithLookup overrides the user database lookup
func WithLookup(fn func(name string) error) Option {
	return func(s *Separator) { s.lookup = fn }
}

// New creates a Separator for the given unprivileged user name. An empty
// name means "stay privileged" and Wrap becomes the identity function.
// The user must resolve at startup; a bad identity is a fatal config error.
func New(runAsUser string, opts ...Option) (*Separator, error) {
	s := &Separator{
		runAsUser: runAsUser,
		euid:      os.Geteuid,
		lookup: func(name string) error {
			_, err := user.Lookup(name)
			return err
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	if runAsUser != "" {
		if err := s.lookup(runAsUser); err != nil {
			return nil, fmt.Errorf("run_as_user %q cannot be resolved: %w", runAsUser, err)
		}
	}
	return s, nil
}

// Wrap returns a command that executes as the configured user. The drop is
// only applied when the controller itself runs as root; an unprivileged
// controller cannot switch identity, so the command passes through untouched.
func (s *Separator) Wrap(cmd []string) []string {
	out := make([]string, 0, len(cmd)+5)
	if s.runAsUser != "" && s.euid() == 0 {
		out = append(out, "sudo", "-E", "-u", s.runAsUser, "--")
	}
	return append(out, cmd...)
}

// User returns the configured unprivileged user name, empty if none
func (s *Separator) User() string {
	return s.runAsUser
}
