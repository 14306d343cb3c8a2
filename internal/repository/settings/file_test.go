package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/Doaky/pi-alarm-block/internal/domain/alarm"
)

// TestStore_Defaults verifies a missing file yields default settings.
func TestStore_Defaults(t *testing.T) {
	t.Parallel()

	s := NewStore(context.Background(), filepath.Join(t.TempDir(), "settings.json"))

	require.Equal(t, domain.ScheduleA, s.Schedule())
	require.Equal(t, DefaultVolume, s.Volume())
	require.Equal(t, DefaultAlarmVolume, s.AlarmVolume())
}

// TestStore_PersistsAcrossInstances verifies mutations survive a reload.
func TestStore_PersistsAcrossInstances(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.json")

	s := NewStore(ctx, path)
	require.NoError(t, s.SetSchedule(ctx, domain.ScheduleB))
	require.NoError(t, s.SetVolume(ctx, 40))
	require.NoError(t, s.SetAlarmVolume(ctx, 90))

	reloaded := NewStore(ctx, path)
	require.Equal(t, domain.ScheduleB, reloaded.Schedule())
	require.Equal(t, 40, reloaded.Volume())
	require.Equal(t, 90, reloaded.AlarmVolume())
}

// TestStore_Validation verifies out-of-range values are rejected without mutation.
func TestStore_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore(ctx, filepath.Join(t.TempDir(), "settings.json"))

	var verr *domain.ValidationError

	err := s.SetVolume(ctx, 101)
	require.ErrorAs(t, err, &verr)
	require.Equal(t, DefaultVolume, s.Volume())

	err = s.SetAlarmVolume(ctx, -1)
	require.ErrorAs(t, err, &verr)
	require.Equal(t, DefaultAlarmVolume, s.AlarmVolume())

	err = s.SetSchedule(ctx, "c")
	require.ErrorAs(t, err, &verr)
	require.Equal(t, domain.ScheduleA, s.Schedule())
}

// TestStore_CorruptFile verifies unreadable settings degrade to defaults.
func TestStore_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	s := NewStore(context.Background(), path)
	require.Equal(t, domain.ScheduleA, s.Schedule())
	require.Equal(t, DefaultVolume, s.Volume())
}
