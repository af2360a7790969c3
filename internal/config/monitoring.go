package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Monitoring is the server-driven list of extra metric paths to sample.
// It is persisted locally so a restart does not lose channels while the
// server is unreachable.
type Monitoring struct {
	// Channels are additional metric paths recorded into every sample.
	Channels []string `json:"channels"`
	// UpdatedAt is the server timestamp of the newest channel seen, used
	// as the high-water mark for incremental refreshes.
	UpdatedAt time.Time `json:"updated_at"`
}

// LoadMonitoring reads the persisted monitoring document. A missing file is
// not an error; it returns an empty document.
func LoadMonitoring(path string) (*Monitoring, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("monitoring file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if os.IsNotExist(err) {
		return &Monitoring{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read monitoring file: %w", err)
	}

	var m Monitoring
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse monitoring file: %w", err)
	}
	return &m, nil
}

// Save writes the document atomically via a temp file rename.
func (m *Monitoring) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode monitoring file: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write monitoring file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace monitoring file: %w", err)
	}
	return nil
}

// Merge folds newly fetched channels into the document, deduplicating and
// advancing the high-water mark. It reports whether anything changed.
func (m *Monitoring) Merge(channels []string, updatedAt time.Time) bool {
	changed := false
	seen := make(map[string]bool, len(m.Channels))
	for _, c := range m.Channels {
		seen[c] = true
	}
	for _, c := range channels {
		if c == "" || seen[c] {
			continue
		}
		m.Channels = append(m.Channels, c)
		seen[c] = true
		changed = true
	}
	if updatedAt.After(m.UpdatedAt) {
		m.UpdatedAt = updatedAt
		changed = true
	}
	return changed
}
