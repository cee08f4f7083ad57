package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"occupancy-backend/models"
	"occupancy-backend/utils"
)

func TestRunInTx_RollsBackOnError(t *testing.T) {
	env := newTestEnv(t)
	boom := errors.New("boom")

	err := runInTx(context.Background(), env.db, env.pub, "manager-1", func(o *occupancyTx) error {
		bed, err := o.lockBed(bed1)
		require.NoError(t, err)
		require.NoError(t, o.applyBedTransition(bed, EventMarkMaintenance, ""))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, models.BedAvailable, env.bed(t, bed1).Status)
	assert.Empty(t, env.pub.Events())
}

func TestRunInTx_FailedRollbackIsInconsistentState(t *testing.T) {
	env := newTestEnv(t)

	err := runInTx(context.Background(), env.db, env.pub, "manager-1", func(o *occupancyTx) error {
		// ending the tx early makes the later rollback fail
		require.NoError(t, o.tx.Commit().Error)
		return utils.ErrInvalidTarget
	})
	assert.ErrorIs(t, err, utils.ErrInconsistentState)
}

func TestRunInTx_PublishFailureDoesNotFailTheWrite(t *testing.T) {
	env := newTestEnv(t)
	env.pub.err = errors.New("redis down")

	bed, err := env.inventory.SetBedStatus(context.Background(), SetBedStatusInput{
		BedID: bed1, Status: models.BedMaintenance, ExpectedStatus: models.BedAvailable,
	})
	require.NoError(t, err)
	assert.Equal(t, models.BedMaintenance, bed.Status)
	assert.Equal(t, models.BedMaintenance, env.bed(t, bed1).Status)
	assert.Len(t, env.pub.Events(), 1)
}

func TestRunInTx_PanicRollsBack(t *testing.T) {
	env := newTestEnv(t)

	assert.Panics(t, func() {
		_ = runInTx(context.Background(), env.db, env.pub, "", func(o *occupancyTx) error {
			bed, err := o.lockBed(bed2)
			require.NoError(t, err)
			require.NoError(t, o.applyBedTransition(bed, EventMarkMaintenance, ""))
			panic("unexpected")
		})
	})
	assert.Equal(t, models.BedAvailable, env.bed(t, bed2).Status)
}

func TestApplyBedTransition_StaleRowVersion(t *testing.T) {
	env := newTestEnv(t)

	err := runInTx(context.Background(), env.db, env.pub, "", func(o *occupancyTx) error {
		bed, err := o.lockBed(bed1)
		if err != nil {
			return err
		}
		bed.RowVersion = 7
		return o.applyBedTransition(bed, EventMarkMaintenance, "")
	})
	assert.ErrorIs(t, err, utils.ErrConflict)
	assert.Equal(t, models.BedAvailable, env.bed(t, bed1).Status)
}

func TestClassifyDBError(t *testing.T) {
	assert.NoError(t, classifyDBError(nil, "x"))
	assert.ErrorIs(t, classifyDBError(errors.New("UNIQUE constraint failed: tenants.bed_id"), "x"), utils.ErrConflict)
	assert.ErrorIs(t, classifyDBError(errors.New("Error 1062: Duplicate entry 'b' for key 'bed_id'"), "x"), utils.ErrConflict)

	other := errors.New("disk full")
	err := classifyDBError(other, "x")
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, utils.ErrConflict)
}
