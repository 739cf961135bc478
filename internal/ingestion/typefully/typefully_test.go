package typefully

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/growth-metrics-ingestion/internal/config"
)

func TestFetchPosts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		settings  config.Settings
		wantWarns int
	}{
		{name: "key configured", settings: config.Settings{TypefullyAPIKey: "tf"}},
		{name: "key missing", settings: config.Settings{}, wantWarns: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zap.WarnLevel)
			src := New(tt.settings, nil, zap.New(core))

			x, err := src.FetchXPosts(context.Background(), 7)
			require.NoError(t, err)
			assert.NotNil(t, x)
			assert.Empty(t, x)

			li, err := src.FetchLinkedInPosts(context.Background(), 14)
			require.NoError(t, err)
			assert.Empty(t, li)

			assert.Equal(t, tt.wantWarns, logs.Len())
		})
	}
}

func TestJobsDoNotNeedSubject(t *testing.T) {
	t.Parallel()

	jobs := New(config.Settings{}, nil, nil).Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, JobXPosts, jobs[0].Name)
	assert.Equal(t, JobLinkedInPosts, jobs[1].Name)
	for _, j := range jobs {
		assert.False(t, j.NeedsSubject)
	}
}
