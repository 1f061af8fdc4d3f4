// File: server/hioload.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime is the top-level facade: a config struct, functional options,
// and a mutex-guarded struct tracking every socket registered with it
// through Track so Shutdown can close them all at once. This mirrors the teacher's
// HioloadWS facade shape (Config/New/Start/Stop/Shutdown) one to one;
// where HioloadWS wired transport/pool/poller/executor subsystems
// together, Runtime wires socket construction to a shared default
// SocketOptions template and a closer registry instead.
package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/momentics/zmtpgo/api"
)

// Config holds the defaults every socket built through a Runtime
// inherits unless overridden per call.
type Config struct {
	Identity              string
	HandshakeTimeout      time.Duration
	ReconnectInterval     time.Duration
	ReconnectIntervalMax  time.Duration
	Linger                time.Duration
	ShutdownTimeout       time.Duration
	LogLevel              logrus.Level
}

// DefaultConfig returns the baseline Runtime configuration.
func DefaultConfig() *Config {
	return &Config{
		HandshakeTimeout:      30 * time.Second,
		ReconnectInterval:     100 * time.Millisecond,
		ReconnectIntervalMax:  30 * time.Second,
		Linger:                0,
		ShutdownTimeout:       10 * time.Second,
		LogLevel:              logrus.InfoLevel,
	}
}

// RuntimeOption customizes a Runtime's default Config.
type RuntimeOption func(*Config)

// WithIdentity sets the default ZMTP identity new sockets are built with.
func WithIdentity(id string) RuntimeOption {
	return func(c *Config) { c.Identity = id }
}

// WithReconnect overrides the default/max reconnect backoff interval.
func WithReconnect(initial, max time.Duration) RuntimeOption {
	return func(c *Config) { c.ReconnectInterval = initial; c.ReconnectIntervalMax = max }
}

// WithShutdownTimeout bounds how long Shutdown waits for sockets to close.
func WithShutdownTimeout(d time.Duration) RuntimeOption {
	return func(c *Config) { c.ShutdownTimeout = d }
}

// WithLogLevel sets the logrus level of the Runtime's own logger.
// Sockets log through logrus's standard logger and are not affected.
func WithLogLevel(l logrus.Level) RuntimeOption {
	return func(c *Config) { c.LogLevel = l }
}

// Runtime is the central facade: it holds the shared defaults new
// sockets are built from and tracks every socket registered through
// Track so Shutdown can close them uniformly.
type Runtime struct {
	cfg *Config
	log *logrus.Entry

	mu      sync.Mutex
	closers []closer
	started bool
}

// closer avoids importing "io" solely for a one-method interface the
// socket package already structurally satisfies.
type closer interface {
	Close() error
}

// New constructs a Runtime from defaults plus the given options.
func New(opts ...RuntimeOption) *Runtime {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	base := logrus.New()
	base.SetLevel(cfg.LogLevel)
	return &Runtime{
		cfg: cfg,
		log: logrus.NewEntry(base).WithField("component", "runtime"),
	}
}

// SocketOptions builds an api.SocketOptions seeded from this Runtime's
// defaults, ready to be refined further with api.Apply.
func (r *Runtime) SocketOptions(extra ...api.Option) api.SocketOptions {
	o := api.DefaultSocketOptions()
	o.Identity = r.cfg.Identity
	o.HandshakeTimeout = r.cfg.HandshakeTimeout
	o.ReconnectInterval = r.cfg.ReconnectInterval
	o.ReconnectIntervalMax = r.cfg.ReconnectIntervalMax
	o.Linger = r.cfg.Linger
	return api.Apply(o, extra...)
}

// Track registers a socket so Shutdown closes it. Every New<Pattern>
// constructor in the socket package returns a value satisfying
// closer; callers should pass theirs through Track right after
// construction.
func (r *Runtime) Track(c closer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closers = append(r.closers, c)
}

// Start marks the Runtime active. It performs no subsystem
// initialization of its own since socket construction is lazy; it
// exists so Runtime's lifecycle matches the Start/Stop/Shutdown shape
// used elsewhere in this codebase.
func (r *Runtime) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
	r.log.Info("runtime started")
	return nil
}

// Stop closes every tracked socket. It is internal; callers should
// prefer Shutdown for a bounded wait.
func (r *Runtime) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return nil
	}
	var firstErr error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.closers = nil
	r.started = false
	return firstErr
}

// Shutdown stops the Runtime, bounding the wait by ShutdownTimeout.
func (r *Runtime) Shutdown() error {
	done := make(chan error, 1)
	go func() { done <- r.Stop() }()
	select {
	case err := <-done:
		return err
	case <-time.After(r.cfg.ShutdownTimeout):
		return fmt.Errorf("runtime: shutdown timeout after %v", r.cfg.ShutdownTimeout)
	}
}

// Log returns the Runtime's component logger, for callers wiring their
// own subsystems that should share its fields.
func (r *Runtime) Log() *logrus.Entry { return r.log }
