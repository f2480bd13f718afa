package keyring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
)

func TestSetAndGetConnectionString(t *testing.T) {
	gokeyring.MockInit()

	connStr := "postgres://testuser@localhost:5432/nova?sslmode=disable"
	require.NoError(t, SetConnectionString(connStr))

	got, err := GetConnectionString()
	require.NoError(t, err)
	assert.Equal(t, connStr, got)
}

func TestSetConnectionStringEmpty(t *testing.T) {
	gokeyring.MockInit()
	assert.Error(t, SetConnectionString(""))
}

func TestGetConnectionStringNotFound(t *testing.T) {
	gokeyring.MockInit()
	_ = DeleteConnectionString()

	_, err := GetConnectionString()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserIDLifecycle(t *testing.T) {
	gokeyring.MockInit()

	_, err := GetUserID()
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SetUserID("user-123"))
	got, err := GetUserID()
	require.NoError(t, err)
	assert.Equal(t, "user-123", got)

	require.NoError(t, DeleteUserID())
	assert.ErrorIs(t, DeleteUserID(), ErrNotFound)
}

func TestSetUserIDEmpty(t *testing.T) {
	gokeyring.MockInit()
	assert.Error(t, SetUserID(""))
}

func TestIsAvailableWithMock(t *testing.T) {
	gokeyring.MockInit()
	assert.True(t, IsAvailable())
}
