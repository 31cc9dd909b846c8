package dbexec

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-core/internal/logging"
)

func TestStandardExecutor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exec := NewStandardExecutor(db)
	rows, err := exec.QueryContext(context.Background(), "SELECT 1")
	require.NoError(t, err)
	defer rows.Close()
	assert.True(t, rows.Next())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	sess, err := BeginSnapshot(context.Background(), db)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID())

	rows, err := sess.QueryContext(context.Background(), "SELECT 1")
	require.NoError(t, err)
	require.True(t, rows.Next())
	require.NoError(t, rows.Close())

	require.NoError(t, sess.Close())
	// Closing twice is harmless.
	require.NoError(t, sess.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotSessionLogsSessionID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	var buf bytes.Buffer
	logger := &logging.Logger{
		Logger: slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
	ctx := logging.WithLogger(context.Background(), logger)

	sess, err := BeginSnapshot(ctx, db)
	require.NoError(t, err)
	require.NoError(t, sess.Close())

	// The session id lands in the begin log line for correlation.
	assert.Contains(t, buf.String(), "snapshot session started")
	assert.Contains(t, buf.String(), sess.ID())
}

func TestCountingExecutor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < 3; i++ {
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	}

	counting := NewCountingExecutor(NewStandardExecutor(db))
	for i := 0; i < 3; i++ {
		rows, err := counting.QueryContext(context.Background(), "SELECT 1")
		require.NoError(t, err)
		require.NoError(t, rows.Close())
	}
	assert.EqualValues(t, 3, counting.Count())

	counting.Reset()
	assert.EqualValues(t, 0, counting.Count())
}

func TestWrapExec(t *testing.T) {
	assert.NoError(t, WrapExec("op", nil))

	cause := errors.New("connection reset")
	err := WrapExec("fetch roots", cause)
	require.Error(t, err)

	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "fetch roots", execErr.Op)
	assert.ErrorIs(t, err, cause)
}
