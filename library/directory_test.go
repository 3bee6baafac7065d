package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyCredentials(t *testing.T) {
	s := testStore(t)
	dir := NewDirectoryService(s)

	id, err := dir.VerifyCredentials(RoleAdmin, "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, id.Role)

	_, err = dir.VerifyCredentials(RoleAdmin, "admin", "wrong")
	assert.ErrorIs(t, err, ErrAccessDenied)

	// Roles check their own table only: the admin seed is not a client.
	_, err = dir.VerifyCredentials(RoleClient, "admin", "admin")
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = dir.VerifyCredentials(RoleClient, "", "x")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = dir.VerifyCredentials("superuser", "admin", "admin")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAddClient(t *testing.T) {
	s := testStore(t)
	dir := NewDirectoryService(s)

	c, err := dir.AddClient("bob", "secret", "bob@example.com")
	require.NoError(t, err)
	assert.NotZero(t, c.ID)

	id, err := dir.VerifyCredentials(RoleClient, "bob", "secret")
	require.NoError(t, err)
	assert.Equal(t, c.ID, id.ID)

	_, err = dir.AddClient("", "pw", "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = dir.AddClient("carol", "", "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = dir.AddClient("carol", "pw", "not-an-email")
	assert.ErrorIs(t, err, ErrValidation)

	// Duplicate email violates the unique constraint.
	_, err = dir.AddClient("bob2", "pw", "bob@example.com")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestEditClientBlankPasswordKeepsExisting(t *testing.T) {
	s := testStore(t)
	dir := NewDirectoryService(s)

	c, err := dir.AddClient("dora", "original", "dora@example.com")
	require.NoError(t, err)

	require.NoError(t, dir.EditClient(c.ID, "dora-renamed", "", "dora@example.com"))

	// Old password still works under the new username.
	_, err = dir.VerifyCredentials(RoleClient, "dora-renamed", "original")
	require.NoError(t, err)

	// A provided password replaces the stored one.
	require.NoError(t, dir.EditClient(c.ID, "dora-renamed", "fresh", "dora@example.com"))
	_, err = dir.VerifyCredentials(RoleClient, "dora-renamed", "original")
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, err = dir.VerifyCredentials(RoleClient, "dora-renamed", "fresh")
	require.NoError(t, err)

	assert.ErrorIs(t, dir.EditClient(9999, "ghost", "", ""), ErrNotFound)
}

func TestChangePassword(t *testing.T) {
	s := testStore(t)
	dir := NewDirectoryService(s)

	c, err := dir.AddClient("eve", "old", "eve@example.com")
	require.NoError(t, err)

	assert.ErrorIs(t, dir.ChangePassword(c.ID, "", ""), ErrValidation)
	assert.ErrorIs(t, dir.ChangePassword(c.ID, "new", "other"), ErrValidation)
	assert.ErrorIs(t, dir.ChangePassword(9999, "new", "new"), ErrNotFound)

	require.NoError(t, dir.ChangePassword(c.ID, "new", "new"))
	_, err = dir.VerifyCredentials(RoleClient, "eve", "new")
	require.NoError(t, err)
}

func TestRemoveClient(t *testing.T) {
	s := testStore(t)
	dir := NewDirectoryService(s)

	c, err := dir.AddClient("frank", "pw", "frank@example.com")
	require.NoError(t, err)

	require.NoError(t, dir.RemoveClient(c.ID))
	assert.ErrorIs(t, dir.RemoveClient(c.ID), ErrNotFound)
	_, err = dir.GetClient(c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddAdmin(t *testing.T) {
	s := testStore(t)
	dir := NewDirectoryService(s)

	a, err := dir.AddAdmin("head", "pw", "head@example.com")
	require.NoError(t, err)

	id, err := dir.VerifyCredentials(RoleAdmin, "head", "pw")
	require.NoError(t, err)
	assert.Equal(t, a.ID, id.ID)
}

func TestListClients(t *testing.T) {
	s := testStore(t)
	dir := NewDirectoryService(s)

	// Seed client "a" plus one more.
	_, err := dir.AddClient("gina", "pw", "gina@example.com")
	require.NoError(t, err)

	clients, err := dir.ListClients()
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "a", clients[0].Username)
}
