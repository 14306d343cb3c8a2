package alarms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	domain "github.com/Doaky/pi-alarm-block/internal/domain/alarm"
	"github.com/Doaky/pi-alarm-block/internal/logger"
)

// Repository defines persistence operations for the alarm snapshot.
type Repository interface {
	Load(ctx context.Context) (map[string]*domain.Alarm, error)
	Save(ctx context.Context, alarms map[string]*domain.Alarm) error
}

// FileRepository persists the alarm set to a JSON file on disk.
// The on-disk format is a list of alarm records ordered by ID so the
// snapshot round-trips deterministically.
type FileRepository struct {
	// path is the filesystem location of the JSON snapshot file.
	path string
	// mu protects concurrent access to the snapshot file.
	mu sync.Mutex
}

// defaultFilePermissions restricts the snapshot to the owning user.
const defaultFilePermissions = 0o600

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the alarm snapshot from disk.
//
// A missing file yields an empty map. A malformed record is skipped and
// logged; only an unreadable or structurally broken file is reported as an
// error, and even then an empty map is returned so startup can continue.
func (r *FileRepository) Load(ctx context.Context) (map[string]*domain.Alarm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make(map[string]*domain.Alarm)

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return result, nil
		}

		return result, fmt.Errorf("read alarms file: %w", err)
	}

	var records []json.RawMessage
	if err = json.Unmarshal(contents, &records); err != nil {
		return result, fmt.Errorf("decode alarms file: %w", err)
	}

	for i, record := range records {
		var a domain.Alarm
		if err = json.Unmarshal(record, &a); err != nil {
			logger.WarnKV(ctx, "Skipping unreadable alarm record", "index", i, "error", err)
			continue
		}

		if err = a.Validate(); err != nil {
			logger.WarnKV(ctx, "Skipping invalid alarm record", "index", i, "id", a.ID, "error", err)
			continue
		}

		if a.ID == "" {
			logger.WarnKV(ctx, "Skipping alarm record without ID", "index", i)
			continue
		}

		result[a.ID] = &a
	}

	logger.InfoKV(ctx, "Loaded alarms from disk", "path", r.path, "count", len(result))

	return result, nil
}

// Save writes the full alarm set atomically (write-temp-then-rename).
func (r *FileRepository) Save(ctx context.Context, alarms map[string]*domain.Alarm) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := make([]*domain.Alarm, 0, len(alarms))
	for _, a := range alarms {
		records = append(records, a)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode alarms: %w", err)
	}

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, defaultFilePermissions); err != nil {
		return fmt.Errorf("write alarms temp file: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		// Leave no stale temp file behind.
		_ = os.Remove(tmp)

		return fmt.Errorf("replace alarms file: %w", err)
	}

	logger.DebugKV(ctx, "Saved alarms to disk", "path", r.path, "count", len(records))

	return nil
}
