package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const profileMetadataFile = "profile.yaml"

// ProfileMetadata is the sidecar record kept alongside each persistent
// profile directory.
type ProfileMetadata struct {
	Name      string    `yaml:"name"`
	CreatedAt time.Time `yaml:"created_at"`
	LastUsed  time.Time `yaml:"last_used"`
	UseCount  int       `yaml:"use_count"`
}

// ProfileStore manages persistent browser profile directories under a
// single root. Profiles are created on first use and survive daemon
// restarts, so cookies and local storage carry across runs.
type ProfileStore struct {
	root string
}

// NewProfileStore creates a store rooted at dir. The directory is
// created lazily on first profile use.
func NewProfileStore(dir string) *ProfileStore {
	return &ProfileStore{root: dir}
}

// Root returns the store's root directory.
func (s *ProfileStore) Root() string {
	return s.root
}

// ValidateName rejects profile names that would escape the store root.
func (s *ProfileStore) ValidateName(name string) error {
	if name == "" {
		return Errorf(CodeInvalidParameter, "profile name must not be empty")
	}
	if name == "." || name == ".." {
		return Errorf(CodeInvalidParameter, "invalid profile name %q", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return Errorf(CodeInvalidParameter, "profile name %q must not contain path separators", name)
	}
	return nil
}

// Ensure resolves the directory for the named profile, creating it and
// its metadata sidecar if needed, and records the use. It returns the
// directory to hand to the engine.
func (s *ProfileStore) Ensure(name string) (string, error) {
	if err := s.ValidateName(name); err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create profile directory: %w", err)
	}

	meta, err := s.readMetadata(dir)
	if err != nil {
		return "", err
	}
	if meta == nil {
		meta = &ProfileMetadata{
			Name:      name,
			CreatedAt: time.Now().UTC(),
		}
	}
	meta.LastUsed = time.Now().UTC()
	meta.UseCount++

	if err := s.writeMetadata(dir, meta); err != nil {
		return "", err
	}
	return dir, nil
}

// Metadata returns the sidecar record for the named profile, or nil if
// the profile has never been used.
func (s *ProfileStore) Metadata(name string) (*ProfileMetadata, error) {
	if err := s.ValidateName(name); err != nil {
		return nil, err
	}
	return s.readMetadata(filepath.Join(s.root, name))
}

func (s *ProfileStore) readMetadata(dir string) (*ProfileMetadata, error) {
	path := filepath.Join(dir, profileMetadataFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile metadata: %w", err)
	}

	var meta ProfileMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse profile metadata: %w", err)
	}
	return &meta, nil
}

func (s *ProfileStore) writeMetadata(dir string, meta *ProfileMetadata) error {
	data, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal profile metadata: %w", err)
	}

	path := filepath.Join(dir, profileMetadataFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write profile metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to save profile metadata: %w", err)
	}
	return nil
}
