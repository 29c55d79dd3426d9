// Package state persists the daily updater's bookkeeping as a JSON file.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"CycleDCA/internal/model"
)

// Load reads the state from a JSON file. Returns a zero state if the file doesn't exist.
func Load(filePath string) (*model.UpdateState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.UpdateState{}, nil
		}
		return nil, fmt.Errorf("read state %s: %w", filePath, err)
	}
	var st model.UpdateState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", filePath, err)
	}
	return &st, nil
}

// Save writes the state to filePath through a temp file and rename.
func Save(filePath string, st *model.UpdateState, now time.Time) error {
	st.UpdatedAt = now
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Due reports whether at least interval has passed since the last daily update.
func Due(st *model.UpdateState, now time.Time, interval time.Duration) bool {
	if st == nil || st.LastDailyUpdate.IsZero() {
		return true
	}
	return now.Sub(st.LastDailyUpdate) >= interval
}
