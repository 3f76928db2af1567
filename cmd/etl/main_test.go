package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
	"github.com/farxc/accurate-sales-etl/internal/logger"
)

func TestResolveWindow(t *testing.T) {
	now := time.Date(2026, 2, 13, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		opts      Options
		wantStart string
		wantEnd   string
	}{
		{name: "defaults to the week ending yesterday", wantStart: "2026-02-06", wantEnd: "2026-02-12"},
		{name: "explicit window", opts: Options{Start: "2026-01-01", End: "2026-01-31"}, wantStart: "2026-01-01", wantEnd: "2026-01-31"},
		{name: "start only", opts: Options{Start: "2026-02-01"}, wantStart: "2026-02-01", wantEnd: "2026-02-12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := resolveWindow(tt.opts, now)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, w.Start.Format(time.DateOnly))
			assert.Equal(t, tt.wantEnd, w.End.Format(time.DateOnly))
		})
	}
}

func TestResolveWindow_Invalid(t *testing.T) {
	now := time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)

	_, err := resolveWindow(Options{Start: "13/02/2026", End: "2026-02-13"}, now)
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	_, err = resolveWindow(Options{Start: "2026-02-10", End: "2026-02-01"}, now)
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestResourceMonitor_StopReturnsPeaks(t *testing.T) {
	appLogger := logger.NewNop()
	monitor := NewResourceMonitor()
	monitor.Start(time.Hour, appLogger)
	monitor.sample(appLogger)

	stats := monitor.Stop()
	assert.Equal(t, 1, stats.Samples)
	assert.Positive(t, stats.PeakGoroutines)
}
