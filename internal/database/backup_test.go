package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"stirka/internal/config"
	"stirka/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformBackup(t *testing.T) {
	logger := zerolog.Nop()
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "stirka.db")

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.CreateMachine(context.Background(), "Machine 1")
	require.NoError(t, err)

	backupDir := filepath.Join(tempDir, "backups")
	svc := NewBackupService(dbPath, config.BackupConfig{
		Enabled:     true,
		StoragePath: backupDir,
	}, &logger)

	require.NoError(t, svc.PerformBackup())

	files, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	require.Len(t, files, 1)

	// Копия открывается и содержит данные
	restored, err := NewDB(filepath.Join(backupDir, files[0].Name()), &logger)
	require.NoError(t, err)
	defer restored.Close()

	machines, err := restored.ListMachines(context.Background())
	require.NoError(t, err)
	require.Len(t, machines, 1)
	assert.Equal(t, models.MachineAvailable, machines[0].Status)
}

func TestCleanupOldBackups(t *testing.T) {
	logger := zerolog.Nop()
	backupDir := t.TempDir()

	oldFile := filepath.Join(backupDir, "stirka_old.db")
	require.NoError(t, os.WriteFile(oldFile, []byte("stale"), 0o644))
	oldTime := time.Now().AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))

	freshFile := filepath.Join(backupDir, "stirka_fresh.db")
	require.NoError(t, os.WriteFile(freshFile, []byte("fresh"), 0o644))

	svc := NewBackupService("unused.db", config.BackupConfig{
		Enabled:       true,
		RetentionDays: 7,
		StoragePath:   backupDir,
	}, &logger)

	svc.CleanupOldBackups()

	assert.NoFileExists(t, oldFile)
	assert.FileExists(t, freshFile)
}
