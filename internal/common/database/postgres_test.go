package database

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresClient_PingOrClose(t *testing.T) {
	t.Run("failed ping closes the pool", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)

		refused := stderrors.New("connection refused")
		mock.ExpectPing().WillReturnError(refused)
		mock.ExpectClose()

		err = (&PostgresClient{DB: db}).pingOrClose(context.Background())

		assert.ErrorIs(t, err, refused)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("healthy pool stays open", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing()

		require.NoError(t, (&PostgresClient{DB: db}).pingOrClose(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
