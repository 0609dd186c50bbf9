package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"object-detector/internal/domain/entity"
	"object-detector/internal/infrastructure/storage"
)

func TestUserService_BeginDetectAndCancel(t *testing.T) {
	repo := storage.NewMemoryUserRepository()
	svc := NewUserService(repo)
	ctx := context.Background()

	user, err := svc.BeginDetect(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingPhoto, user.State)

	user, err = svc.Cancel(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
}

func TestUserService_SetState(t *testing.T) {
	repo := storage.NewMemoryUserRepository()
	svc := NewUserService(repo)
	ctx := context.Background()

	user, err := svc.StartProcessing(ctx, 2, 20)
	require.NoError(t, err)
	require.Equal(t, entity.StateProcessing, user.State)

	stored, err := repo.Get(ctx, 2, 20)
	require.NoError(t, err)
	require.Equal(t, entity.StateProcessing, stored.State)
}

func TestUserService_RecordResult(t *testing.T) {
	repo := storage.NewMemoryUserRepository()
	svc := NewUserService(repo)
	fixed := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	ctx := context.Background()

	_, err := svc.StartProcessing(ctx, 3, 30)
	require.NoError(t, err)

	user, err := svc.RecordResult(ctx, 3, 30, 2)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
	require.Equal(t, 1, user.ProcessedImages)
	require.Equal(t, 2, user.LastObjects)
	require.Equal(t, fixed, user.LastProcessedAt)
}

func TestUserService_Count(t *testing.T) {
	svc := NewUserService(storage.NewMemoryUserRepository())
	ctx := context.Background()

	_, err := svc.BeginDetect(ctx, 1, 10)
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, 2, 20)
	require.NoError(t, err)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}
