package config

import (
	"fmt"
	"sync"
	"time"
)

const (
	// SectionIDServer is the identifier for the HTTP server section
	SectionIDServer = "server"

	// DefaultListenAddr is the default listen address for the REST API
	DefaultListenAddr = ":8000"

	// DefaultReadTimeoutSec is the default HTTP read timeout in seconds
	DefaultReadTimeoutSec = 30

	// DefaultWriteTimeoutSec is the default HTTP write timeout in seconds.
	// Writes stay open for long pipelines (idle actions, slow navigations).
	DefaultWriteTimeoutSec = 300
)

// ServerSection manages HTTP server settings.
type ServerSection struct {
	ListenAddr      string
	ReadTimeoutSec  int
	WriteTimeoutSec int
	mu              sync.RWMutex
}

// NewServerSection creates a new server section with default settings.
func NewServerSection() *ServerSection {
	return &ServerSection{
		ListenAddr:      DefaultListenAddr,
		ReadTimeoutSec:  DefaultReadTimeoutSec,
		WriteTimeoutSec: DefaultWriteTimeoutSec,
	}
}

// ID returns the section identifier.
func (s *ServerSection) ID() string {
	return SectionIDServer
}

// Title returns the section title.
func (s *ServerSection) Title() string {
	return "HTTP Server"
}

// Description returns the section description.
func (s *ServerSection) Description() string {
	return "Listen address and request timeouts for the REST API"
}

// Data returns the current configuration data.
func (s *ServerSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"listen_addr":       s.ListenAddr,
		"read_timeout_sec":  s.ReadTimeoutSec,
		"write_timeout_sec": s.WriteTimeoutSec,
	}
}

// SetData updates the configuration from the provided data.
func (s *ServerSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if addr, ok := data["listen_addr"].(string); ok {
		s.ListenAddr = addr
	}

	if v, ok := asInt(data["read_timeout_sec"]); ok {
		s.ReadTimeoutSec = v
	}

	if v, ok := asInt(data["write_timeout_sec"]); ok {
		s.WriteTimeoutSec = v
	}

	return nil
}

// Validate validates the current configuration.
func (s *ServerSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if s.ReadTimeoutSec < 0 || s.WriteTimeoutSec < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *ServerSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ListenAddr = DefaultListenAddr
	s.ReadTimeoutSec = DefaultReadTimeoutSec
	s.WriteTimeoutSec = DefaultWriteTimeoutSec
}

// GetListenAddr returns the configured listen address.
func (s *ServerSection) GetListenAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ListenAddr
}

// SetListenAddr sets the listen address.
func (s *ServerSection) SetListenAddr(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ListenAddr = addr
}

// GetReadTimeout returns the HTTP read timeout as a duration.
func (s *ServerSection) GetReadTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.ReadTimeoutSec) * time.Second
}

// GetWriteTimeout returns the HTTP write timeout as a duration.
func (s *ServerSection) GetWriteTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.WriteTimeoutSec) * time.Second
}

// asInt converts JSON-decoded numeric values to int. The JSON decoder
// produces float64 for all numbers, so both forms must be accepted.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}
