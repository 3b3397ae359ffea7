package template

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestParse(t *testing.T) {
	out, err := Parse("Objective: {{.Objective}}", struct{ Objective string }{"open settings"})
	require.NoError(t, err)
	assert.Equal(t, "Objective: open settings", out)

	again, err := Parse("Objective: {{.Objective}}", struct{ Objective string }{"close it"})
	require.NoError(t, err)
	assert.Equal(t, "Objective: close it", again)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("{{.Missing", nil)
	assert.ErrorContains(t, err, "parse")

	_, err = Parse("{{.Missing}}", struct{}{})
	assert.ErrorContains(t, err, "execute")
}
