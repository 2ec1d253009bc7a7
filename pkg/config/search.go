package config

import (
	"fmt"
	"strings"
	"sync"
)

const (
	// SectionIDSearch is the identifier for the web search section
	SectionIDSearch = "search"

	// DefaultSearchBaseURL is the search engine queried by /search
	DefaultSearchBaseURL = "https://www.google.com/search"

	// DefaultSearchCount is the default number of results returned
	DefaultSearchCount = 5
)

// SearchSection manages web search settings.
type SearchSection struct {
	BaseURL      string
	DefaultCount int
	mu           sync.RWMutex
}

// NewSearchSection creates a new search section with default settings.
func NewSearchSection() *SearchSection {
	return &SearchSection{
		BaseURL:      DefaultSearchBaseURL,
		DefaultCount: DefaultSearchCount,
	}
}

// ID returns the section identifier.
func (s *SearchSection) ID() string {
	return SectionIDSearch
}

// Title returns the section title.
func (s *SearchSection) Title() string {
	return "Web Search"
}

// Description returns the section description.
func (s *SearchSection) Description() string {
	return "Search engine URL and result count defaults for the /search endpoint"
}

// Data returns the current configuration data.
func (s *SearchSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"base_url":      s.BaseURL,
		"default_count": s.DefaultCount,
	}
}

// SetData updates the configuration from the provided data.
func (s *SearchSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if baseURL, ok := data["base_url"].(string); ok && baseURL != "" {
		s.BaseURL = baseURL
	}

	if count, ok := asInt(data["default_count"]); ok {
		s.DefaultCount = count
	}

	return nil
}

// Validate validates the current configuration.
func (s *SearchSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !strings.HasPrefix(s.BaseURL, "http://") && !strings.HasPrefix(s.BaseURL, "https://") {
		return fmt.Errorf("base_url must be an http(s) URL, got %q", s.BaseURL)
	}
	if s.DefaultCount < 1 {
		return fmt.Errorf("default_count must be at least 1")
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *SearchSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BaseURL = DefaultSearchBaseURL
	s.DefaultCount = DefaultSearchCount
}

// GetBaseURL returns the configured search engine URL.
func (s *SearchSection) GetBaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.BaseURL
}

// GetDefaultCount returns the default result count.
func (s *SearchSection) GetDefaultCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.DefaultCount
}
