package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dayplan-api/internal/models"
)

func TestParseScopes(t *testing.T) {
	scopes, err := parseScopes(" plans:write, tasklists:write,plans:write,, ")
	require.NoError(t, err)
	assert.Equal(t, []models.Scope{models.ScopePlansWrite, models.ScopeTaskListsWrite}, scopes)

	scopes, err = parseScopes("")
	require.NoError(t, err)
	assert.Empty(t, scopes)

	_, err = parseScopes("admin")
	require.Error(t, err)
}
