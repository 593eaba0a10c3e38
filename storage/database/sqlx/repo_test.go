package sqlxrepos

import (
	"database/sql/driver"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/storage/database"
)

// testDB connects to the postgres database of DATABASE_URL, migrates it and empties the work tables.
func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := sqlx.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db.DB))
	_, err = db.Exec(`TRUNCATE work, work_status, work_totals`)
	require.NoError(t, err)
	return db
}

func Test_wrapErr(t *testing.T) {
	assert.NoError(t, wrapErr(nil, "finding work"))

	errBoom := errors.New("boom")
	err := wrapErr(errBoom, "finding work")
	assert.Equal(t, "finding work: boom", err.Error())
	assert.Equal(t, errBoom, errors.Cause(err))
	assert.False(t, core.IsShutdown(err))

	err = wrapErr(driver.ErrBadConn, "finding work")
	assert.True(t, core.IsShutdown(err))
	assert.Equal(t, "finding work: "+driver.ErrBadConn.Error(), err.Error())
	assert.True(t, core.IsShutdown(errors.Wrap(err, "upserting status")))
}
