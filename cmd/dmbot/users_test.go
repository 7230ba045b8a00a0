package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersCommands(t *testing.T) {
	cfgPath := writeConfig(t, "")

	out, err := execute(t, cfgPath, "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No users registered.")

	seedUsers(t, cfgPath)

	out, err = execute(t, cfgPath, "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "@alice")
	assert.Contains(t, out, "Bob")
	assert.Contains(t, out, "Total: 2")

	out, err = execute(t, cfgPath, "users", "ban", "123")
	require.NoError(t, err)
	assert.Contains(t, out, "User 123 banned: true")

	_, err = execute(t, cfgPath, "actions", "add",
		"--from", "123", "--to", "42", "--message", "x", "--time", "9:30 PM", "--daily")
	require.Error(t, err, "banned users cannot create actions")

	out, err = execute(t, cfgPath, "users", "unban", "123")
	require.NoError(t, err)
	assert.Contains(t, out, "User 123 banned: false")

	_, err = execute(t, cfgPath, "users", "ban", "555")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")

	_, err = execute(t, cfgPath, "users", "add", "zero")
	require.Error(t, err)
}
