// Package ingestion defines the contract shared by every provider job and a
// registry mapping job names to fetch functions.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// DefaultSinceDays is the lookback window used when a caller does not pick one.
const DefaultSinceDays = 7

var (
	// ErrUnknownJob is returned by Lookup for an unregistered job name.
	ErrUnknownJob = errors.New("unknown ingestion job")
	// ErrDuplicateJob is returned by Register when a name is already taken.
	ErrDuplicateJob = errors.New("duplicate ingestion job")
	// ErrInvalidParams marks parameters rejected before a job runs.
	ErrInvalidParams = errors.New("invalid ingestion params")
)

// Record is one ingested row as returned by a provider.
type Record = map[string]any

// JSONClient is the subset of the HTTP access layer providers depend on.
type JSONClient interface {
	GetJSON(ctx context.Context, rawURL string, headers map[string]string, params url.Values) (map[string]any, error)
	PostJSON(ctx context.Context, rawURL string, headers map[string]string, body any) (map[string]any, error)
}

// Params selects what a job ingests.
type Params struct {
	// Subject is a domain or account handle; some jobs ignore it.
	Subject   string
	SinceDays int
}

// FetchFunc runs one ingestion and returns its records in provider order.
type FetchFunc func(ctx context.Context, p Params) ([]Record, error)

// Job is a named, registered FetchFunc.
type Job struct {
	Name         string
	Description  string
	NeedsSubject bool
	Fetch        FetchFunc
}

// Validate checks p against the job's requirements.
func (j Job) Validate(p Params) error {
	if p.SinceDays < 0 {
		return fmt.Errorf("%w: since_days must be >= 0, got %d", ErrInvalidParams, p.SinceDays)
	}
	if j.NeedsSubject && strings.TrimSpace(p.Subject) == "" {
		return fmt.Errorf("%w: job %s requires a subject", ErrInvalidParams, j.Name)
	}
	return nil
}

// Registry holds the jobs known to the process.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]Job)}
}

// Register adds job under its name.
func (r *Registry) Register(job Job) error {
	if job.Name == "" || job.Fetch == nil {
		return errors.New("register job: name and fetch func are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}
	r.jobs[job.Name] = job
	return nil
}

// Lookup returns the job registered under name.
func (r *Registry) Lookup(name string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[name]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return job, nil
}

// Jobs returns every registered job sorted by name.
func (r *Registry) Jobs() []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}
