package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jst(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	return loc
}

func TestResolvePeriodSingleDay(t *testing.T) {
	loc := jst(t)
	p, err := resolvePeriod([]string{"2026-02-20"}, "", loc)
	require.NoError(t, err)

	// JST midnight is 15:00 UTC the previous day.
	assert.Equal(t, time.Date(2026, 2, 19, 15, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2026, 2, 20, 15, 0, 0, 0, time.UTC), p.End)
}

func TestResolvePeriodRange(t *testing.T) {
	loc := jst(t)
	p, err := resolvePeriod([]string{"2026-02-20"}, "2026-02-22", loc)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 2, 19, 15, 0, 0, 0, time.UTC), p.Start)
	// Inclusive end day: the period runs to the midnight after it.
	assert.Equal(t, time.Date(2026, 2, 22, 15, 0, 0, 0, time.UTC), p.End)
}

func TestResolvePeriodDefaultIsYesterday(t *testing.T) {
	loc := jst(t)
	p, err := resolvePeriod(nil, "", loc)
	require.NoError(t, err)

	today := midnight(time.Now().In(loc))
	assert.Equal(t, today.AddDate(0, 0, -1).UTC(), p.Start)
	assert.Equal(t, today.UTC(), p.End)
}

func TestResolvePeriodErrors(t *testing.T) {
	loc := jst(t)

	_, err := resolvePeriod([]string{"02/20/2026"}, "", loc)
	assert.Error(t, err)

	_, err = resolvePeriod([]string{"2026-02-20"}, "2026-02-19", loc)
	assert.Error(t, err)

	_, err = resolvePeriod(nil, "2026-02-20", loc)
	assert.Error(t, err)
}
