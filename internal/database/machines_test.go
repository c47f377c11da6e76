package database

import (
	"context"
	"testing"

	"stirka/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMachine(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	machine, err := db.CreateMachine(ctx, "Machine 1")
	require.NoError(t, err)
	assert.NotZero(t, machine.ID)
	assert.Equal(t, models.MachineAvailable, machine.Status)
}

func TestEnsureMachine_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.EnsureMachine(ctx, "Machine 1"))
	require.NoError(t, db.EnsureMachine(ctx, "Machine 1"))
	require.NoError(t, db.EnsureMachine(ctx, "Machine 2"))

	machines, err := db.ListMachines(ctx)
	require.NoError(t, err)
	assert.Len(t, machines, 2)
}

func TestListMachines_Order(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	for _, name := range []string{"Machine 1", "Machine 2", "Machine 3"} {
		_, err := db.CreateMachine(ctx, name)
		require.NoError(t, err)
	}

	machines, err := db.ListMachines(ctx)
	require.NoError(t, err)
	require.Len(t, machines, 3)
	assert.Equal(t, "Machine 1", machines[0].Name)
	assert.Equal(t, "Machine 3", machines[2].Name)
}

func TestListMachines_LastUsedByName(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	userID, machineID := seedUserAndMachine(t, db, "S1")

	b := &models.Booking{UserID: userID, MachineID: machineID, StartTime: slot(1, 10, 0), EndTime: slot(1, 11, 0)}
	require.NoError(t, db.CreateBookingSlot(ctx, b, slot(1, 8, 0)))

	machines, err := db.ListMachines(ctx)
	require.NoError(t, err)
	require.Len(t, machines, 1)
	assert.Equal(t, "Test User", machines[0].LastUsedByName)
}

func TestSetMachineStatus(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	machine, err := db.CreateMachine(ctx, "Machine 1")
	require.NoError(t, err)

	require.NoError(t, db.SetMachineStatus(ctx, machine.ID, models.MachineBroken))

	found, err := db.GetMachine(ctx, machine.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MachineBroken, found.Status)

	assert.ErrorIs(t, db.SetMachineStatus(ctx, machine.ID, "exploded"), ErrInvalidStatus)
	assert.ErrorIs(t, db.SetMachineStatus(ctx, 999, models.MachineAvailable), ErrMachineNotFound)
}

func TestGetMachine_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.GetMachine(context.Background(), 42)
	assert.ErrorIs(t, err, ErrMachineNotFound)
}
