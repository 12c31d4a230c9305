package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/challan/config"
	"example.com/backstage/services/challan/internal/models"
)

type mockExporter struct {
	mock.Mock
}

func (m *mockExporter) ExportChallans(ctx context.Context, filter models.ListFilter) ([]byte, error) {
	args := m.Called(ctx, filter)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func TestRunWritesLocalBackup(t *testing.T) {
	dir := t.TempDir()
	exporter := new(mockExporter)
	exporter.On("ExportChallans", mock.Anything, models.ListFilter{}).Return([]byte("xlsx-bytes"), nil)

	runner := NewRunner(exporter, NewLocalSink(filepath.Join(dir, "backups")))
	runner.now = func() time.Time { return time.Date(2024, 3, 5, 9, 30, 7, 0, time.UTC) }

	location, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "backups", "challans_20240305_093007.xlsx"), location)
	data, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Equal(t, "xlsx-bytes", string(data))

	_, err = os.Stat(location + ".tmp")
	assert.True(t, os.IsNotExist(err))
	exporter.AssertExpectations(t)
}

func TestRunExportFailure(t *testing.T) {
	dir := t.TempDir()
	exporter := new(mockExporter)
	exporter.On("ExportChallans", mock.Anything, mock.Anything).Return(nil, errors.New("database is down"))

	runner := NewRunner(exporter, NewLocalSink(dir))
	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is down")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewSinkDefaultsToLocal(t *testing.T) {
	sink, err := NewSink(context.Background(), config.BackupConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	defer sink.Close()

	_, ok := sink.(*LocalSink)
	assert.True(t, ok)
}
