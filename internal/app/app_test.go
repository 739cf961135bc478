// Package app_test contains unit tests for the app package.
package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/growth-metrics-ingestion/internal/app"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/config"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/ingestion"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/runner"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/storage/memory"
)

// MockPublisher mocks runner.Publisher and io.Closer.
type MockPublisher struct {
	mock.Mock
}

// Publish satisfies runner.Publisher for the mock.
func (m *MockPublisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	args := m.Called(ctx, topic, payload)
	return args.String(0), args.Error(1)
}

// Close satisfies io.Closer for the mock.
func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// closingStore is a memory run store that records Close calls.
type closingStore struct {
	*memory.RunStore
	closed int
}

func (s *closingStore) Close() error {
	s.closed++
	return errors.New("close failed")
}

func memorySettings() config.Settings {
	return config.Settings{
		DatabaseURL:        "postgres://localhost/ingest",
		HTTPTimeoutSeconds: 30,
		BackoffBaseSeconds: 1,
		RunStore:           config.RunStoreMemory,
	}
}

func TestNewApp_Success(t *testing.T) {
	a, err := app.New(context.Background(), memorySettings(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Logger())
	assert.NotNil(t, a.Runner())
	assert.IsType(t, &memory.RunStore{}, a.Store())
	assert.Equal(t, config.RunStoreMemory, a.Settings().RunStore)

	names := []string{}
	for _, j := range a.Registry().Jobs() {
		names = append(names, j.Name)
	}
	assert.Equal(t, []string{
		"apify.tiktok_videos",
		"ga4.sessions",
		"semrush.backlinks",
		"semrush.keywords",
		"typefully.linkedin_posts",
		"typefully.x_posts",
	}, names)
}

func TestNewApp_ConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Settings)
	}{
		{
			name:   "unknown run store",
			mutate: func(s *config.Settings) { s.RunStore = "sqlite" },
		},
		{
			name: "unparseable database url",
			mutate: func(s *config.Settings) {
				s.RunStore = config.RunStorePostgres
				s.DatabaseURL = "postgres://localhost:5432/ingest?sslmode=sometimes"
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := memorySettings()
			tt.mutate(&s)
			a, err := app.New(context.Background(), s, zap.NewNop())
			require.Error(t, err)
			assert.Nil(t, a)
		})
	}
}

func TestNewApp_RunsJobsEndToEnd(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, "ingest-runs", mock.AnythingOfType("runner.Event")).
		Return("msg-1", nil).Once()
	pub.On("Close").Return(nil).Once()

	s := memorySettings()
	s.PubSubProjectID = "growth"
	s.PubSubTopic = "ingest-runs"

	a, err := app.New(context.Background(), s, zap.NewNop(), app.WithPublisher(pub))
	require.NoError(t, err)

	run, records, err := a.Runner().Run(context.Background(), "typefully.x_posts", ingestion.Params{SinceDays: ingestion.DefaultSinceDays})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, runner.StatusSucceeded, run.Status)

	stored, err := a.Store().GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, "typefully.x_posts", stored.Job)

	a.Close()
	pub.AssertExpectations(t)
}

func TestApp_Close_WithErrors(t *testing.T) {
	store := &closingStore{RunStore: memory.NewRunStore()}
	pub := new(MockPublisher)
	pub.On("Close").Return(errors.New("publisher error")).Once()

	a, err := app.New(context.Background(), memorySettings(), zap.NewNop(),
		app.WithRunStore(store),
		app.WithPublisher(pub),
	)
	require.NoError(t, err)

	a.Close()
	a.Close()

	assert.Equal(t, 1, store.closed)
	pub.AssertExpectations(t)
}

func TestApp_CloseNil(t *testing.T) {
	var a *app.App
	a.Close()
}
