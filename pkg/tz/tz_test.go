package tz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	loc, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = Load("Europe/Paris")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", loc.String())

	_, err = Load("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	paris, err := Load("Europe/Paris")
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-01 13:00 UTC", Format(at, nil))
	assert.Equal(t, "2026-03-01 14:00 CET", Format(at, paris))
	assert.Equal(t, "", Format(time.Time{}, paris))
}
