package database

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDB_Health(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	db := NewFromPool(mock)

	mock.ExpectPing()
	assert.NoError(t, db.Health(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Error(t, db.Health(context.Background()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresDB_InvalidURL(t *testing.T) {
	_, err := NewPostgresDB(context.Background(), "://not a url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse database URL")
}
