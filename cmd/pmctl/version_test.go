package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	out, err := runLocal(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "pmctl version "+version+"\n", out)
}

func TestVersionCommand_RejectsArgs(t *testing.T) {
	_, err := runLocal(t, "version", "extra")
	assert.Error(t, err)
}
