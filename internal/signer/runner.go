package signer

import (
	"context"
	"encoding/json"
	"sync"

	"golang.org/x/time/rate"

	"github.com/tiebatools/autosign/internal/observability"
	"github.com/tiebatools/autosign/internal/tieba"
)

// Check-in response sub-codes. The platform reports these in the payload's
// numeric field; the HTTP status is 200 either way.
const (
	codeSigned        = 0
	codeAlreadySigned = 1101
	codeNeedVcode     = 2150040
)

// Outcome classifies one forum's check-in attempt.
type Outcome string

// Check-in outcomes.
const (
	OutcomeSigned        Outcome = "signed"
	OutcomeAlreadySigned Outcome = "already_signed"
	OutcomeFailed        Outcome = "failed"
)

// Result is the outcome of one forum's check-in attempt.
type Result struct {
	Index      int
	Forum      string
	Outcome    Outcome
	ServerCode int64
	ServerMsg  string
	Err        error
}

// Report summarizes a full check-in run.
type Report struct {
	UserID        string
	DeviceID      string
	Total         int
	Signed        int
	AlreadySigned int
	Failed        int
	Results       []Result
}

// CredentialSource supplies the current credential. Workers consult it per
// request so a rotated credential is picked up mid-run.
type CredentialSource func() string

// Static returns a CredentialSource with a fixed credential.
func Static(credential string) CredentialSource {
	return func() string { return credential }
}

// Config configures a check-in run.
type Config struct {
	// Concurrency is the number of forums checked in concurrently.
	// Default is 1.
	Concurrency int

	// RatePerSecond paces check-in requests across all workers. Zero
	// disables pacing; the platform's own limiter is then the only
	// coupling, observed through 429 responses.
	RatePerSecond float64

	// Burst is the pacing burst size. Default is 1 when pacing is enabled.
	Burst int
}

// Runner performs check-in runs.
type Runner struct {
	client  tieba.Client
	logger  observability.Logger
	workers int
	limiter *rate.Limiter
}

// New creates a new runner.
func New(client tieba.Client, cfg Config, logger observability.Logger) *Runner {
	if logger == nil {
		logger = observability.NopLogger()
	}

	workers := cfg.Concurrency
	if workers <= 0 {
		workers = 1
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	return &Runner{
		client:  client,
		logger:  logger.With(observability.String("component", "signer")),
		workers: workers,
		limiter: limiter,
	}
}

// Run validates the credential, enumerates followed forums, fetches a fresh
// security token, and checks in to every forum. Per-forum failures do not
// abort the run; they are recorded in the report. Run fails only when one of
// the three leading operations fails.
func (r *Runner) Run(ctx context.Context, source CredentialSource) (*Report, error) {
	info, err := r.client.Authenticate(ctx, source())
	if err != nil {
		return nil, err
	}
	r.logger.Info("credential validated",
		observability.String("user_id", info.UserID),
	)

	forums, err := r.client.ListForums(ctx, source())
	if err != nil {
		return nil, err
	}

	report := &Report{
		UserID:   info.UserID,
		DeviceID: info.DeviceID,
		Total:    len(forums),
	}
	if len(forums) == 0 {
		r.logger.Info("user follows no forums, nothing to do")
		return report, nil
	}

	tbs, err := r.client.FetchTbs(ctx, source())
	if err != nil {
		return nil, err
	}

	report.Results = r.checkInAll(ctx, source, forums, tbs)
	for _, res := range report.Results {
		switch res.Outcome {
		case OutcomeSigned:
			report.Signed++
		case OutcomeAlreadySigned:
			report.AlreadySigned++
		default:
			report.Failed++
		}
	}

	r.logger.Info("check-in run finished",
		observability.Int("total", report.Total),
		observability.Int("signed", report.Signed),
		observability.Int("already_signed", report.AlreadySigned),
		observability.Int("failed", report.Failed),
	)

	return report, nil
}

// checkInAll fans the forums out over the worker pool and returns the
// results in forum order.
func (r *Runner) checkInAll(ctx context.Context, source CredentialSource, forums []tieba.Forum, tbs string) []Result {
	results := make([]Result, len(forums))

	type job struct {
		index int
		forum tieba.Forum
	}
	jobs := make(chan job)

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.index] = r.checkInOne(ctx, source, j.forum, tbs, j.index)
			}
		}()
	}

	for i, f := range forums {
		jobs <- job{index: i, forum: f}
	}
	close(jobs)
	wg.Wait()

	return results
}

// checkInOne performs the check-in for a single forum and classifies the
// payload.
func (r *Runner) checkInOne(ctx context.Context, source CredentialSource, forum tieba.Forum, tbs string, index int) Result {
	result := Result{Index: index, Forum: forum.ForumName}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			result.Outcome = OutcomeFailed
			result.Err = err
			checkinsTotal.WithLabelValues(string(OutcomeFailed)).Inc()
			return result
		}
	}

	payload, err := r.client.SignIn(ctx, source(), forum.ForumName, tbs, index)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
		checkinsTotal.WithLabelValues(string(OutcomeFailed)).Inc()
		r.logger.Error("check-in failed",
			observability.String("forum", forum.ForumName),
			observability.Int("index", index),
			observability.Error(err),
		)
		return result
	}

	result.Outcome, result.ServerCode, result.ServerMsg = classifyPayload(payload)
	checkinsTotal.WithLabelValues(string(result.Outcome)).Inc()

	r.logger.Info("check-in result",
		observability.String("forum", forum.ForumName),
		observability.Int("index", index),
		observability.String("outcome", string(result.Outcome)),
		observability.Int64("server_code", result.ServerCode),
	)

	return result
}

// signPayload is the check-in response envelope.
type signPayload struct {
	No    int64  `json:"no"`
	Error string `json:"error"`
}

// classifyPayload maps the raw check-in payload to an outcome. An
// undecodable payload counts as failed; the client already guaranteed it is
// non-empty.
func classifyPayload(raw json.RawMessage) (Outcome, int64, string) {
	var p signPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return OutcomeFailed, 0, "undecodable payload"
	}

	switch p.No {
	case codeSigned:
		return OutcomeSigned, p.No, p.Error
	case codeAlreadySigned:
		return OutcomeAlreadySigned, p.No, p.Error
	case codeNeedVcode:
		return OutcomeFailed, p.No, "verification code required"
	default:
		return OutcomeFailed, p.No, p.Error
	}
}
