package postgres

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicementor/voicementor/internal/domain/mentor"
)

func TestErrorHelpers(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	assert.True(t, IsUniqueViolation(dup))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.False(t, IsNoRows(dup))
}

func TestClosedConnection(t *testing.T) {
	c := &Connection{}
	c.closed.Store(true)
	ctx := context.Background()

	assert.ErrorIs(t, c.Check(ctx), ErrClosed)
	_, err := c.Exec(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrClosed)
	var n int
	assert.ErrorIs(t, c.QueryRow(ctx, "SELECT 1").Scan(&n), ErrClosed)
	assert.ErrorIs(t, c.WithTx(ctx, func(pgx.Tx) error { return nil }), ErrClosed)
}

func TestPoolPressure(t *testing.T) {
	assert.NoError(t, poolPressure(3, 10))
	assert.NoError(t, poolPressure(0, 0))
	err := poolPressure(10, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "10/10")
}

func TestMigrations(t *testing.T) {
	migs := GetMigrations()
	require.Len(t, migs, 1)
	for _, table := range []string{"users", "mentors", "sessions"} {
		assert.Contains(t, migs[0].UpSQL, "CREATE TABLE IF NOT EXISTS "+table)
		assert.Contains(t, migs[0].DownSQL, "DROP TABLE IF EXISTS "+table)
	}
	assert.True(t, strings.Contains(migs[0].UpSQL, "phone VARCHAR(32) NOT NULL UNIQUE"))
}

func TestNonNil(t *testing.T) {
	var tags []string
	assert.NotNil(t, nonNil(tags))
	assert.Equal(t, []string{"go"}, nonNil([]string{"go"}))
}

func TestMentorArgsOrder(t *testing.T) {
	args := mentorArgs(mentorFixture())
	require.Len(t, args, 14)
	assert.Equal(t, "1", args[0])
	assert.Equal(t, true, args[13])
}

func mentorFixture() mentor.Mentor {
	return mentor.Mentor{ID: "1", Name: "Priya Singh", IsOnline: true}
}
