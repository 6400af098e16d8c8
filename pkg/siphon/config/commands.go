package config

import "github.com/yourusername/siphon/pkg/siphon/rewrite"

// Command is a typed configuration mutation. Apply executes exactly one
// under the Store's lock; there is no generic "set any field" command, so
// every mutation is traceable to a specific intent.
type Command interface {
	apply(*Configuration) error
}

// SetPort changes the listen port.
type SetPort struct {
	Port uint16
}

func (c SetPort) apply(cfg *Configuration) error {
	cfg.Port = c.Port
	return nil
}

// SetSystemProxyEnabled toggles the system-proxy-registration flag (the
// actual OS-level registration is the out-of-scope UI collaborator's job;
// this just records the desired state).
type SetSystemProxyEnabled struct {
	Enabled bool
}

func (c SetSystemProxyEnabled) apply(cfg *Configuration) error {
	cfg.SystemProxyEnabled = c.Enabled
	return nil
}

// SetExternalProxy replaces the external (upstream) proxy settings.
type SetExternalProxy struct {
	Proxy ExternalProxy
}

func (c SetExternalProxy) apply(cfg *Configuration) error {
	cfg.ExternalProxy = c.Proxy
	return nil
}

// SetHostFilter replaces the host allow/deny filter.
type SetHostFilter struct {
	Filter HostFilter
}

func (c SetHostFilter) apply(cfg *Configuration) error {
	cfg.HostFilter = c.Filter
	return nil
}

// UpsertRule replaces the rule at Index, or appends it when Index equals
// the current rule count. It reports ErrRuleIndexOutOfRange otherwise.
type UpsertRule struct {
	Index int
	Rule  rewrite.Rule
}

func (c UpsertRule) apply(cfg *Configuration) error {
	if cfg.Rewrites == nil {
		cfg.Rewrites = rewrite.NewList()
	}
	if !cfg.Rewrites.UpsertAt(c.Index, c.Rule) {
		return ErrRuleIndexOutOfRange
	}
	return nil
}

// DeleteRule removes the rule at Index.
type DeleteRule struct {
	Index int
}

func (c DeleteRule) apply(cfg *Configuration) error {
	if cfg.Rewrites == nil || !cfg.Rewrites.DeleteAt(c.Index) {
		return ErrRuleIndexOutOfRange
	}
	return nil
}

// SetRewritesEnabled toggles the whole rewrite list on or off without
// touching individual rules.
type SetRewritesEnabled struct {
	Enabled bool
}

func (c SetRewritesEnabled) apply(cfg *Configuration) error {
	if cfg.Rewrites == nil {
		cfg.Rewrites = rewrite.NewList()
	}
	cfg.Rewrites.Enabled = c.Enabled
	return nil
}

// Apply runs cmd against the live configuration and, if it succeeds,
// notifies registered callbacks. Port-change callbacks only fire when the
// resulting port actually differs from the prior one, per spec: "listener
// restarted if port changes".
func (s *Store) Apply(cmd Command) error {
	s.mu.Lock()
	prevPort := s.cfg.Port
	next := s.cfg.clone()
	if err := cmd.apply(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.cfg = next
	snap := Snapshot{s.cfg.clone()}
	portChanged := next.Port != prevPort
	newPort := next.Port
	portCbs := append([]func(uint16){}, s.onPortChange...)
	cfgCbs := append([]func(Snapshot){}, s.onConfigChange...)
	s.mu.Unlock()

	for _, cb := range cfgCbs {
		cb(snap)
	}
	if portChanged {
		for _, cb := range portCbs {
			cb(newPort)
		}
	}
	return nil
}
