package httpclient

import (
	"net/http"
	"time"
)

// DefaultMaxAttempts is the attempt ceiling for one logical call.
const DefaultMaxAttempts = 5

// Verdict is the classification of a single attempt.
type Verdict int

const (
	// VerdictSuccess means the attempt produced a 2xx response.
	VerdictSuccess Verdict = iota
	// VerdictRetry means the attempt failed transiently and may be repeated.
	VerdictRetry
	// VerdictTerminal means the attempt failed permanently.
	VerdictTerminal
)

func (v Verdict) String() string {
	switch v {
	case VerdictSuccess:
		return "success"
	case VerdictRetry:
		return "retryable"
	case VerdictTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Policy decides how many attempts a logical call may make, how long to wait
// between them, and which outcomes are worth repeating.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Classify    func(resp *http.Response, err error) Verdict
}

// DefaultPolicy returns the five-attempt exponential policy.
func DefaultPolicy(base time.Duration) Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   base,
		Classify:    Classify,
	}
}

// Classify is the default attempt classifier. Transport failures, 429 and
// 5xx are retryable; every other non-2xx status is terminal.
func Classify(resp *http.Response, err error) Verdict {
	if err != nil {
		return VerdictRetry
	}
	if resp == nil {
		return VerdictTerminal
	}
	return ClassifyStatus(resp.StatusCode)
}

// ClassifyStatus classifies an HTTP status code.
func ClassifyStatus(code int) Verdict {
	switch {
	case code >= 200 && code < 300:
		return VerdictSuccess
	case code == http.StatusTooManyRequests || code >= 500:
		return VerdictRetry
	default:
		return VerdictTerminal
	}
}

// Backoff returns the wait after the k-th failed attempt (k >= 1):
// BaseDelay * 2^(k-1). There is no jitter and no cap.
func (p Policy) Backoff(k int) time.Duration {
	if k < 1 || p.BaseDelay <= 0 {
		return 0
	}
	return p.BaseDelay * time.Duration(uint64(1)<<uint(k-1))
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) classify(resp *http.Response, err error) Verdict {
	if p.Classify == nil {
		return Classify(resp, err)
	}
	return p.Classify(resp, err)
}
