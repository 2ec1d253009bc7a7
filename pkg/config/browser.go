package config

import (
	"fmt"
	"sync"
)

const (
	// SectionIDBrowser is the identifier for the browser pool section
	SectionIDBrowser = "browser"

	// DefaultProfilesDir is where persistent browser profiles live,
	// relative to the working directory unless absolute.
	DefaultProfilesDir = "profiles"

	// DefaultNavigationTimeoutMs is the default navigation timeout
	DefaultNavigationTimeoutMs = 3600.0

	// Default viewport dimensions
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// BrowserSection manages browser pool settings.
type BrowserSection struct {
	Headless            bool
	ProfilesDir         string
	NavigationTimeoutMs float64
	ViewportWidth       int
	ViewportHeight      int
	// MaxBrowsers caps the number of live instances. Zero means unlimited.
	MaxBrowsers int
	mu          sync.RWMutex
}

// NewBrowserSection creates a new browser section with default settings.
func NewBrowserSection() *BrowserSection {
	return &BrowserSection{
		Headless:            true,
		ProfilesDir:         DefaultProfilesDir,
		NavigationTimeoutMs: DefaultNavigationTimeoutMs,
		ViewportWidth:       DefaultViewportWidth,
		ViewportHeight:      DefaultViewportHeight,
		MaxBrowsers:         0,
	}
}

// ID returns the section identifier.
func (s *BrowserSection) ID() string {
	return SectionIDBrowser
}

// Title returns the section title.
func (s *BrowserSection) Title() string {
	return "Browser Pool"
}

// Description returns the section description.
func (s *BrowserSection) Description() string {
	return "Launch mode, profile storage, navigation timeout, and viewport for browser instances"
}

// Data returns the current configuration data.
func (s *BrowserSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"headless":              s.Headless,
		"profiles_dir":          s.ProfilesDir,
		"navigation_timeout_ms": s.NavigationTimeoutMs,
		"viewport_width":        s.ViewportWidth,
		"viewport_height":       s.ViewportHeight,
		"max_browsers":          s.MaxBrowsers,
	}
}

// SetData updates the configuration from the provided data.
func (s *BrowserSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if headless, ok := data["headless"].(bool); ok {
		s.Headless = headless
	}

	if dir, ok := data["profiles_dir"].(string); ok && dir != "" {
		s.ProfilesDir = dir
	}

	if timeout, ok := asFloat(data["navigation_timeout_ms"]); ok {
		s.NavigationTimeoutMs = timeout
	}

	if w, ok := asInt(data["viewport_width"]); ok {
		s.ViewportWidth = w
	}

	if h, ok := asInt(data["viewport_height"]); ok {
		s.ViewportHeight = h
	}

	if max, ok := asInt(data["max_browsers"]); ok {
		s.MaxBrowsers = max
	}

	return nil
}

// Validate validates the current configuration.
func (s *BrowserSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ProfilesDir == "" {
		return fmt.Errorf("profiles_dir must not be empty")
	}
	if s.NavigationTimeoutMs < 0 {
		return fmt.Errorf("navigation_timeout_ms must not be negative")
	}
	if s.ViewportWidth <= 0 || s.ViewportHeight <= 0 {
		return fmt.Errorf("viewport dimensions must be positive")
	}
	if s.MaxBrowsers < 0 {
		return fmt.Errorf("max_browsers must not be negative")
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *BrowserSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Headless = true
	s.ProfilesDir = DefaultProfilesDir
	s.NavigationTimeoutMs = DefaultNavigationTimeoutMs
	s.ViewportWidth = DefaultViewportWidth
	s.ViewportHeight = DefaultViewportHeight
	s.MaxBrowsers = 0
}

// GetProfilesDir returns the configured profiles directory.
func (s *BrowserSection) GetProfilesDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ProfilesDir
}

// GetHeadless returns whether browsers launch headless.
func (s *BrowserSection) GetHeadless() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Headless
}

// GetNavigationTimeoutMs returns the default navigation timeout.
func (s *BrowserSection) GetNavigationTimeoutMs() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NavigationTimeoutMs
}

// GetViewport returns the configured viewport dimensions.
func (s *BrowserSection) GetViewport() (width, height int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ViewportWidth, s.ViewportHeight
}

// GetMaxBrowsers returns the instance cap. Zero means unlimited.
func (s *BrowserSection) GetMaxBrowsers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.MaxBrowsers
}

// asFloat converts JSON-decoded numeric values to float64.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
