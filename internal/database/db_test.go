package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSNReportsMatchedRows(t *testing.T) {
	dsn := buildDSN("svc", "secret", "db.internal", "3306", "orchestration")

	assert.Equal(t,
		"svc:secret@tcp(db.internal:3306)/orchestration?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
		dsn)

	// Without clientFoundRows the driver reports changed rows, so a
	// repeated SetNodeURL or SetProgress writing the same value would
	// come back as zero affected rows and be misread as a failed
	// precondition.
	assert.Contains(t, dsn, "clientFoundRows=true")
}

func TestBuildDSNWithoutPassword(t *testing.T) {
	dsn := buildDSN("svc", "", "localhost", "3306", "orchestration")
	assert.Equal(t,
		"svc@tcp(localhost:3306)/orchestration?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
		dsn)
}
