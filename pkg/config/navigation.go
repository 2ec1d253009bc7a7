package config

import (
	"fmt"
	"sync"

	"github.com/gobwas/glob"
)

const (
	// SectionIDNavigation is the identifier for the navigation policy section
	SectionIDNavigation = "navigation"
)

// NavigationSection manages the host allow/deny policy consulted before
// every navigation. Patterns are globs matched against the URL host.
// Deny patterns win over allow patterns. An empty allow list permits any
// host that is not denied.
type NavigationSection struct {
	AllowedHosts []string
	DeniedHosts  []string
	mu           sync.RWMutex
}

// NewNavigationSection creates a navigation section with default settings.
// The defaults block the link-local metadata range used by cloud
// instance metadata services.
func NewNavigationSection() *NavigationSection {
	return &NavigationSection{
		AllowedHosts: nil,
		DeniedHosts:  []string{"169.254.*"},
	}
}

// ID returns the section identifier.
func (s *NavigationSection) ID() string {
	return SectionIDNavigation
}

// Title returns the section title.
func (s *NavigationSection) Title() string {
	return "Navigation Policy"
}

// Description returns the section description.
func (s *NavigationSection) Description() string {
	return "Glob patterns for hosts browsers may navigate to. Deny patterns win; an empty allow list permits everything not denied"
}

// Data returns the current configuration data.
func (s *NavigationSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed := make([]any, len(s.AllowedHosts))
	for i, p := range s.AllowedHosts {
		allowed[i] = p
	}
	denied := make([]any, len(s.DeniedHosts))
	for i, p := range s.DeniedHosts {
		denied[i] = p
	}

	return map[string]any{
		"allowed_hosts": allowed,
		"denied_hosts":  denied,
	}
}

// SetData updates the configuration from the provided data.
func (s *NavigationSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if raw, ok := data["allowed_hosts"]; ok {
		patterns, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("invalid allowed_hosts: %w", err)
		}
		s.AllowedHosts = patterns
	}

	if raw, ok := data["denied_hosts"]; ok {
		patterns, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("invalid denied_hosts: %w", err)
		}
		s.DeniedHosts = patterns
	}

	return nil
}

// Validate checks that every pattern compiles.
func (s *NavigationSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.AllowedHosts {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("invalid allowed pattern %q: %w", p, err)
		}
	}
	for _, p := range s.DeniedHosts {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("invalid denied pattern %q: %w", p, err)
		}
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *NavigationSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AllowedHosts = nil
	s.DeniedHosts = []string{"169.254.*"}
}

// Matcher compiles the current patterns into a HostMatcher.
func (s *NavigationSection) Matcher() (*HostMatcher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return NewHostMatcher(s.AllowedHosts, s.DeniedHosts)
}

// HostMatcher matches URL hosts against compiled allow/deny globs.
type HostMatcher struct {
	allowed    []glob.Glob
	denied     []glob.Glob
	allowedRaw []string
	deniedRaw  []string
}

// NewHostMatcher compiles allow and deny patterns into a matcher.
func NewHostMatcher(allowed, denied []string) (*HostMatcher, error) {
	m := &HostMatcher{}

	for _, pattern := range allowed {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed pattern %q: %w", pattern, err)
		}
		m.allowed = append(m.allowed, g)
		m.allowedRaw = append(m.allowedRaw, pattern)
	}

	for _, pattern := range denied {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid denied pattern %q: %w", pattern, err)
		}
		m.denied = append(m.denied, g)
		m.deniedRaw = append(m.deniedRaw, pattern)
	}

	return m, nil
}

// Verdict reports whether host may be navigated to. When it may not,
// pattern names the deny pattern that matched, or is empty when the
// host simply failed the allow list.
func (m *HostMatcher) Verdict(host string) (allowed bool, pattern string) {
	for i, g := range m.denied {
		if g.Match(host) {
			return false, m.deniedRaw[i]
		}
	}

	if len(m.allowed) == 0 {
		return true, ""
	}

	for _, g := range m.allowed {
		if g.Match(host) {
			return true, ""
		}
	}
	return false, ""
}

// asStringSlice converts JSON-decoded list values to a string slice.
func asStringSlice(raw any) ([]string, error) {
	items, ok := raw.([]any)
	if !ok {
		// Already-typed slices appear when sections are set programmatically
		if typed, ok := raw.([]string); ok {
			return append([]string(nil), typed...), nil
		}
		return nil, fmt.Errorf("expected list, got %T", raw)
	}

	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("element %d: expected string, got %T", i, item)
		}
		out = append(out, s)
	}
	return out, nil
}
