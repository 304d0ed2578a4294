package main

import (
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSpinner(t *testing.T) {
	pterm.DisableOutput()
	t.Cleanup(pterm.EnableOutput)

	sp := startSpinner("Training")
	require.NotNil(t, sp)
	assert.Equal(t, "Training", sp.Text)
	assert.Equal(t, spinnerFrames, sp.Sequence)
	sp.Success("Training completed")
	assert.False(t, sp.IsActive)
}
