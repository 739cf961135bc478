package ga4

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/growth-metrics-ingestion/internal/config"
)

const keyJSON = `{"type":"service_account","project_id":"growth","client_email":"ga4@growth.iam.gserviceaccount.com","private_key":"secret"}`

func TestFetchSessions(t *testing.T) {
	t.Parallel()

	validKey := base64.StdEncoding.EncodeToString([]byte(keyJSON))

	tests := []struct {
		name      string
		settings  config.Settings
		wantStage string
		wantWarns int
	}{
		{name: "no key", settings: config.Settings{}, wantWarns: 1},
		{name: "key and property", settings: config.Settings{GA4JSONKeyB64: validKey, GA4PropertyID: "123"}},
		{name: "key without property", settings: config.Settings{GA4JSONKeyB64: validKey}, wantWarns: 1},
		{name: "bad base64", settings: config.Settings{GA4JSONKeyB64: "not*base64"}, wantStage: config.StageBase64},
		{
			name:      "bad json",
			settings:  config.Settings{GA4JSONKeyB64: base64.StdEncoding.EncodeToString([]byte(`{"type":`))},
			wantStage: config.StageJSON,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zap.WarnLevel)
			rows, err := New(tt.settings, nil, zap.New(core)).FetchSessions(context.Background(), 7)

			if tt.wantStage != "" {
				var decodeErr *config.CredentialDecodeError
				require.True(t, errors.As(err, &decodeErr), "got %v", err)
				assert.Equal(t, tt.wantStage, decodeErr.Stage)
				assert.Nil(t, rows)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, rows)
			assert.Empty(t, rows)
			assert.Equal(t, tt.wantWarns, logs.Len())
			for _, e := range logs.All() {
				assert.NotContains(t, e.Message, "secret")
			}
		})
	}
}

func TestJobsRegistersSessions(t *testing.T) {
	t.Parallel()

	jobs := New(config.Settings{}, nil, nil).Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, JobSessions, jobs[0].Name)
	assert.False(t, jobs[0].NeedsSubject)
}
