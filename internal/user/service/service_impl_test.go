package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"github.com/subgate/subgate/internal/clock"
	userdomain "github.com/subgate/subgate/internal/user/domain"
	userrepository "github.com/subgate/subgate/internal/user/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bwmarrin/snowflake"
)

func setupService(t *testing.T) userdomain.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:user_svc_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&userdomain.User{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fc := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	return NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  userrepository.Provide(),
		Clock: fc,
	})
}

func TestEnsureCreatesOnce(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	first, err := svc.Ensure(ctx, 42, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(42), first.ExternalID)
	require.Equal(t, "alice", first.Handle)

	second, err := svc.Ensure(ctx, 42, "alice_renamed")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "alice", second.Handle, "handle is only filled in when empty")

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestEnsureBackfillsEmptyHandle(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	first, err := svc.Ensure(ctx, 42, "")
	require.NoError(t, err)
	require.Empty(t, first.Handle)

	second, err := svc.Ensure(ctx, 42, "alice")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "alice", second.Handle)

	got, err := svc.Get(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Handle)
}

func TestGetUnknownUser(t *testing.T) {
	svc := setupService(t)

	_, err := svc.Get(context.Background(), 99)
	require.ErrorIs(t, err, userdomain.ErrUserNotFound)
}

func TestRecordOperation(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.Ensure(ctx, 42, "alice")
	require.NoError(t, err)
	_, err = svc.Ensure(ctx, 43, "bob")
	require.NoError(t, err)

	require.NoError(t, svc.RecordOperation(ctx, 42))
	require.NoError(t, svc.RecordOperation(ctx, 42))
	require.NoError(t, svc.RecordOperation(ctx, 43))

	alice, err := svc.Get(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, int64(2), alice.OperationCount)

	total, err := svc.TotalOperations(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
}

func TestRecordOperationUnknownUser(t *testing.T) {
	svc := setupService(t)

	err := svc.RecordOperation(context.Background(), 12345)
	require.ErrorIs(t, err, userdomain.ErrUserNotFound)
}

func TestTotalOperationsEmpty(t *testing.T) {
	svc := setupService(t)

	total, err := svc.TotalOperations(context.Background())
	require.NoError(t, err)
	require.Zero(t, total)
}
