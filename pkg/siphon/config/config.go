// Package config implements the proxy's configuration model as a
// single-writer actor: a *Store owns the live Configuration value and
// applies every change through a typed command channel, replacing what the
// design notes call a "global configuration singleton" with an
// engine-owned value that has explicit, serialized snapshot semantics.
package config

import (
	"sync"

	"github.com/yourusername/siphon/pkg/siphon/rewrite"
)

// FilterMode selects whether a HostFilter's glob list allows or denies.
type FilterMode int

const (
	FilterAllow FilterMode = iota
	FilterDeny
)

// ExternalProxy describes an upstream proxy to forward through, and the
// list of target globs that bypass it (dialed directly instead).
type ExternalProxy struct {
	Enabled  bool
	Host     string
	Port     uint16
	Username string
	Password string
	Bypass   []string
}

// HostFilter allow/deny-lists proxy targets by glob.
type HostFilter struct {
	Mode FilterMode
	List []string
}

// Configuration is the full set of knobs the engine and UI collaborator
// read and write. DefaultPort (9999) and an empty rewrite list describe a
// fresh install.
type Configuration struct {
	Port               uint16
	SystemProxyEnabled bool
	ExternalProxy      ExternalProxy
	HostFilter         HostFilter
	Rewrites           *rewrite.List
}

// DefaultPort is the proxy's default listen port.
const DefaultPort = 9999

// Default returns a fresh Configuration with no rewrites and the default
// port, matching a first-run install.
func Default() Configuration {
	return Configuration{
		Port:     DefaultPort,
		Rewrites: rewrite.NewList(),
	}
}

// Snapshot is an immutable copy of a Configuration, safe to read from any
// goroutine without synchronization — Store hands these out instead of
// pointers into its live value.
type Snapshot struct {
	Configuration
}

// clone deep-copies c so a Snapshot can't be mutated through a shared
// rewrite.List or slice header.
func (c Configuration) clone() Configuration {
	out := c
	out.ExternalProxy.Bypass = append([]string(nil), c.ExternalProxy.Bypass...)
	out.HostFilter.List = append([]string(nil), c.HostFilter.List...)
	if c.Rewrites != nil {
		out.Rewrites = &rewrite.List{
			Enabled: c.Rewrites.Enabled,
			Rules:   append([]rewrite.Rule(nil), c.Rewrites.Rules...),
		}
	}
	return out
}

// Store owns the live Configuration. All reads go through Snapshot; all
// writes go through Apply, which runs a single Command at a time under a
// mutex — the "single-writer" half of the design. Callbacks registered with
// OnPortChange fire whenever Apply changes Port, so the engine can restart
// its listener.
type Store struct {
	mu             sync.Mutex
	cfg            Configuration
	onPortChange   []func(uint16)
	onConfigChange []func(Snapshot)
}

// NewStore returns a Store seeded with cfg.
func NewStore(cfg Configuration) *Store {
	if cfg.Rewrites == nil {
		cfg.Rewrites = rewrite.NewList()
	}
	return &Store{cfg: cfg}
}

// Snapshot returns a point-in-time, independently-mutable copy of the
// current configuration.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{s.cfg.clone()}
}

// OnPortChange registers a callback invoked (outside the Store's lock)
// whenever Apply changes the listen port, so the engine can restart its
// listener. Callbacks added here are never removed; Store is expected to
// live as long as the engine that owns it.
func (s *Store) OnPortChange(fn func(uint16)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPortChange = append(s.onPortChange, fn)
}

// OnConfigChange registers a callback invoked after every successfully
// applied command, with the resulting snapshot — used to flush
// persistence in the out-of-scope UI collaborator.
func (s *Store) OnConfigChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConfigChange = append(s.onConfigChange, fn)
}
