package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSQLLiteral(t *testing.T) {
	assert.Equal(t, "NULL", sqlLiteral(nil))
	assert.Equal(t, "TRUE", sqlLiteral(true))
	assert.Equal(t, "FALSE", sqlLiteral(false))
	assert.Equal(t, "42", sqlLiteral(int64(42)))
	assert.Equal(t, "7", sqlLiteral(int32(7)))
	assert.Equal(t, "2.5", sqlLiteral(2.5))
	assert.Equal(t, "'plain'", sqlLiteral("plain"))
	assert.Equal(t, "'it''s broken'", sqlLiteral("it's broken"))
	assert.Equal(t, "'bytes'", sqlLiteral([]byte("bytes")))

	ts := time.Date(2026, 3, 10, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, "'2026-03-10T12:30:00Z'", sqlLiteral(ts))
}

func TestDumpTablesCoverSchema(t *testing.T) {
	// Parent tables must come before their children so the dump restores
	// with foreign keys enabled.
	index := map[string]int{}
	for i, table := range dumpTables {
		index[table] = i
	}
	assert.Less(t, index["users"], index["tickets"])
	assert.Less(t, index["clients"], index["tickets"])
	assert.Less(t, index["appliances"], index["tickets"])
	assert.Less(t, index["issue_types"], index["tickets"])
	assert.Less(t, index["tickets"], index["status_history"])
	assert.Less(t, index["tickets"], index["ticket_comments"])
	assert.Less(t, index["tickets"], index["ticket_parts"])
	assert.Less(t, index["tickets"], index["deadline_extensions"])
	assert.Less(t, index["tickets"], index["notifications"])
}
