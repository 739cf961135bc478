package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, Params) ([]Record, error) { return []Record{}, nil }

func TestRegistryRegisterAndLookup(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(Job{Name: "semrush.keywords", NeedsSubject: true, Fetch: noop}))
	require.NoError(t, r.Register(Job{Name: "apify.tiktok_videos", Fetch: noop}))

	job, err := r.Lookup("semrush.keywords")
	require.NoError(t, err)
	assert.True(t, job.NeedsSubject)

	_, err = r.Lookup("semrush.unknown")
	assert.True(t, errors.Is(err, ErrUnknownJob))

	names := []string{}
	for _, j := range r.Jobs() {
		names = append(names, j.Name)
	}
	assert.Equal(t, []string{"apify.tiktok_videos", "semrush.keywords"}, names)
}

func TestRegistryRejectsDuplicatesAndIncompleteJobs(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(Job{Name: "ga4.sessions", Fetch: noop}))
	assert.True(t, errors.Is(r.Register(Job{Name: "ga4.sessions", Fetch: noop}), ErrDuplicateJob))
	assert.Error(t, r.Register(Job{Name: "", Fetch: noop}))
	assert.Error(t, r.Register(Job{Name: "ga4.other"}))
}

func TestJobValidate(t *testing.T) {
	t.Parallel()

	subjectJob := Job{Name: "semrush.backlinks", NeedsSubject: true, Fetch: noop}
	plainJob := Job{Name: "typefully.x_posts", Fetch: noop}

	tests := []struct {
		name    string
		job     Job
		params  Params
		wantErr bool
	}{
		{name: "default lookback", job: plainJob, params: Params{SinceDays: DefaultSinceDays}},
		{name: "zero lookback", job: plainJob, params: Params{}},
		{name: "negative lookback", job: plainJob, params: Params{SinceDays: -1}, wantErr: true},
		{name: "subject present", job: subjectJob, params: Params{Subject: "example.com", SinceDays: 7}},
		{name: "subject missing", job: subjectJob, params: Params{SinceDays: 7}, wantErr: true},
		{name: "subject blank", job: subjectJob, params: Params{Subject: "  ", SinceDays: 7}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.job.Validate(tt.params)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidParams), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
