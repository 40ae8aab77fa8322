package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// affectedRows is what the stub driver reports for every Exec. With
// clientFoundRows in the DSN, MySQL reports matched rows, so an UPDATE
// that matches but rewrites the same value still reports 1.
var affectedRows int64

type stubSQLDriver struct{}

func (stubSQLDriver) Open(string) (driver.Conn, error) { return stubConn{}, nil }

type stubConn struct{}

func (stubConn) Prepare(string) (driver.Stmt, error) { return stubStmt{}, nil }
func (stubConn) Close() error                        { return nil }
func (stubConn) Begin() (driver.Tx, error)           { return nil, driver.ErrSkip }

type stubStmt struct{}

func (stubStmt) Close() error  { return nil }
func (stubStmt) NumInput() int { return -1 }
func (stubStmt) Exec([]driver.Value) (driver.Result, error) {
	return driver.RowsAffected(affectedRows), nil
}
func (stubStmt) Query([]driver.Value) (driver.Rows, error) { return nil, driver.ErrSkip }

func init() { sql.Register("stubmysql", stubSQLDriver{}) }

func openStubRepo(t *testing.T) *SQLModelRepo {
	t.Helper()
	db, err := sql.Open("stubmysql", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLModelRepo(db)
}

func TestGuardedUpdateMatchedRowSucceeds(t *testing.T) {
	repo := openStubRepo(t)
	affectedRows = 1

	// Re-writing the same node_url or the same progress value matches
	// the row and must stay a success, not a failed precondition.
	require.NoError(t, repo.SetNodeURL(context.Background(), "mnist-v1", "lb:5000"))
	require.NoError(t, repo.SetProgress(context.Background(), "mnist-v1", 100))
	require.NoError(t, repo.MarkNodeRequested(context.Background(), "mnist-v1"))
	require.NoError(t, repo.SetArtifact(context.Background(), "mnist-v1", "https://bucket/key"))
}

func TestGuardedUpdateUnmatchedRowFailsPrecondition(t *testing.T) {
	repo := openStubRepo(t)
	affectedRows = 0

	err := repo.SetNodeURL(context.Background(), "mnist-v1", "lb:5000")
	assert.ErrorIs(t, err, ErrConditionFailed)

	err = repo.MarkNodeRequested(context.Background(), "mnist-v1")
	assert.ErrorIs(t, err, ErrConditionFailed)

	err = repo.SetProgress(context.Background(), "ghost", 50)
	assert.ErrorIs(t, err, ErrModelNotFound)

	err = repo.SetArtifact(context.Background(), "ghost", "https://bucket/key")
	assert.ErrorIs(t, err, ErrModelNotFound)
}
