package resolve

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"
)

// DefaultAttempts bounds retries of transient failures.
const DefaultAttempts = 5

// DefaultBackoff waits (attempt+1)+1 seconds after the zero-based attempt,
// giving 2s, 3s, 4s, 5s, 6s.
func DefaultBackoff(attempt int) time.Duration {
	return time.Duration((attempt+1)+1) * time.Second
}

// Resolver retries transient backend failures and fails fast on
// unsatisfiable constraints.
type Resolver struct {
	Backend  Backend
	Attempts int
	Backoff  func(attempt int) time.Duration
	Sleep    func(ctx context.Context, d time.Duration) error
	Logger   *log.Logger
	// OnRetry, when set, is called before each backoff wait with the
	// one-based attempt that failed.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// New returns a Resolver with the default retry policy.
func New(backend Backend, logger *log.Logger) *Resolver {
	return &Resolver{
		Backend:  backend,
		Attempts: DefaultAttempts,
		Backoff:  DefaultBackoff,
		Sleep:    sleepContext,
		Logger:   logger,
	}
}

// Resolve maps constraint to a concrete version of tool.
func (r *Resolver) Resolve(ctx context.Context, tool, constraint string) Outcome {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	backoff := r.Backoff
	if backoff == nil {
		backoff = DefaultBackoff
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	logger := r.logger()

	var last Outcome
	for attempt := 0; attempt < attempts; attempt++ {
		version, err := r.Backend.Resolve(ctx, tool, constraint)
		if err == nil && !version.complete() {
			err = errorf(ReasonBackendData, "%s: incomplete answer for %s %q", FetchErrorPrefix, tool, constraint)
		}
		if err == nil {
			logger.Printf("resolved %s %q to %s (attempt %d)", tool, constraint, version.Number, attempt+1)
			return Outcome{Kind: Resolved, Version: version, Attempts: attempt + 1}
		}

		reason := Classify(err)
		if reason.Kind() == Unsatisfiable {
			logger.Printf("resolve %s %q: %s: %v", tool, constraint, reason, err)
			return Outcome{Kind: Unsatisfiable, Reason: reason, Err: err, Attempts: attempt + 1}
		}

		last = Outcome{Kind: Transient, Reason: reason, Err: err, Attempts: attempt + 1}
		delay := backoff(attempt)
		logger.Printf("resolve %s %q: attempt %d/%d failed: %v; retrying in %s", tool, constraint, attempt+1, attempts, err, delay)
		if r.OnRetry != nil {
			r.OnRetry(attempt+1, err, delay)
		}
		if serr := sleep(ctx, delay); serr != nil {
			last.Err = fmt.Errorf("%w (gave up: %v)", err, serr)
			return last
		}
	}
	return last
}

// Explain queries the backend once more and returns its error, if any. It is
// used only to capture the text of a failure for the report.
func (r *Resolver) Explain(ctx context.Context, tool, constraint string) error {
	_, err := r.Backend.Resolve(ctx, tool, constraint)
	return err
}

func (r *Resolver) logger() *log.Logger {
	if r.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return r.Logger
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FailureMessage renders the user-facing line for a failed resolution.
// display is the tool's human name ("Node"), tool its identifier ("node").
func FailureMessage(display, tool, constraint string, err error) string {
	switch Classify(err) {
	case ReasonNoMatch:
		return fmt.Sprintf("Could not find %s version corresponding to version requirement: %s", display, constraint)
	case ReasonInvalidConstraint, ReasonBackendData:
		return fmt.Sprintf("Error: Invalid semantic version %q", constraint)
	default:
		return fmt.Sprintf("Error: Unknown error installing %q of %s", constraint, tool)
	}
}
