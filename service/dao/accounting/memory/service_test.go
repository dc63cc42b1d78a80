package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/nucleus/model/accounting"
	"github.com/viant/nucleus/service/dao"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	service := New()
	records := []*accounting.Record{
		{PID: 3, ParentPID: 1, Reason: accounting.ReasonKilled, Blocked: true, SemAddr: 0x40},
		{PID: 1, Reason: accounting.ReasonExit, CPUTime: 900},
		{PID: 2, ParentPID: 1, Reason: accounting.ReasonKilled},
	}
	for _, record := range records {
		require.NoError(t, service.Save(ctx, record))
	}
	assert.ErrorIs(t, service.Save(ctx, nil), dao.ErrNilEntity)
	assert.ErrorIs(t, service.Save(ctx, &accounting.Record{}), dao.ErrInvalidID)

	loaded, err := service.Load(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 900, loaded.CPUTime)
	_, err = service.Load(ctx, 7)
	assert.ErrorIs(t, err, dao.ErrNotFound)
	_, err = service.Load(ctx, 0)
	assert.ErrorIs(t, err, dao.ErrInvalidID)

	all, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{all[0].PID, all[1].PID, all[2].PID})

	killed, err := service.List(ctx, dao.NewParameter(dao.ParamReason, accounting.ReasonKilled))
	require.NoError(t, err)
	assert.Len(t, killed, 2)

	require.NoError(t, service.Delete(ctx, 2))
	assert.ErrorIs(t, service.Delete(ctx, 2), dao.ErrNotFound)
	assert.Equal(t, 2, service.Len())
}
