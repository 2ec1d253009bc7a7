package config

import (
	"sync"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// Initialize creates and initializes the global configuration manager.
// This should be called once at application startup.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	// Create file store
	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	// Create manager
	manager := NewManager(store)

	// Register default sections
	if err := manager.RegisterSection(NewServerSection()); err != nil {
		return err
	}

	if err := manager.RegisterSection(NewBrowserSection()); err != nil {
		return err
	}

	if err := manager.RegisterSection(NewSearchSection()); err != nil {
		return err
	}

	if err := manager.RegisterSection(NewNavigationSection()); err != nil {
		return err
	}

	// Load configuration
	if err := manager.LoadAll(); err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}

	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

// GetServer returns the server section from global config.
// Returns nil if config is not initialized.
func GetServer() *ServerSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDServer)
	if !ok {
		return nil
	}

	server, ok := section.(*ServerSection)
	if !ok {
		return nil
	}

	return server
}

// GetBrowser returns the browser section from global config.
// Returns nil if config is not initialized.
func GetBrowser() *BrowserSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDBrowser)
	if !ok {
		return nil
	}

	browser, ok := section.(*BrowserSection)
	if !ok {
		return nil
	}

	return browser
}

// GetSearch returns the search section from global config.
// Returns nil if config is not initialized.
func GetSearch() *SearchSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDSearch)
	if !ok {
		return nil
	}

	search, ok := section.(*SearchSection)
	if !ok {
		return nil
	}

	return search
}

// GetNavigation returns the navigation policy section from global config.
// Returns nil if config is not initialized.
func GetNavigation() *NavigationSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDNavigation)
	if !ok {
		return nil
	}

	navigation, ok := section.(*NavigationSection)
	if !ok {
		return nil
	}

	return navigation
}
