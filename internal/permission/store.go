package permission

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"murmur/internal/fileutil"
)

// ConsentStore persists the user's permission decision as a small JSON file.
type ConsentStore struct {
	path string
	now  func() time.Time
}

type consentRecord struct {
	Status    string    `json:"status"`
	DecidedAt time.Time `json:"decidedAt"`
}

// DefaultConsentPath returns ~/.config/murmur/consent.json.
func DefaultConsentPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "murmur-consent.json")
	}
	return filepath.Join(home, ".config", "murmur", "consent.json")
}

// NewConsentStore returns a store backed by path. An empty path uses
// DefaultConsentPath.
func NewConsentStore(path string) *ConsentStore {
	if strings.TrimSpace(path) == "" {
		path = DefaultConsentPath()
	}
	return &ConsentStore{path: path, now: time.Now}
}

// Path returns the backing file path.
func (s *ConsentStore) Path() string {
	return s.path
}

// Load returns the stored decision. A missing file means not determined.
func (s *ConsentStore) Load() (Status, time.Time, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return StatusNotDetermined, time.Time{}, nil
	}
	if err != nil {
		return StatusNotDetermined, time.Time{}, fmt.Errorf("read consent: %w", err)
	}
	var record consentRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return StatusNotDetermined, time.Time{}, fmt.Errorf("parse consent %s: %w", s.path, err)
	}
	return ParseStatus(record.Status), record.DecidedAt, nil
}

// Save records a decision.
func (s *ConsentStore) Save(status Status) error {
	data, err := json.MarshalIndent(consentRecord{Status: status.String(), DecidedAt: s.now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode consent: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write consent: %w", err)
	}
	return nil
}

// Reset forgets any stored decision.
func (s *ConsentStore) Reset() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove consent: %w", err)
	}
	return nil
}
