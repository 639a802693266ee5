// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package forward

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v5"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/splay/internal/config"
	"github.com/tomtom215/splay/internal/events"
	"github.com/tomtom215/splay/internal/logging"
	"github.com/tomtom215/splay/internal/metrics"
	"github.com/tomtom215/splay/internal/models"
)

// HeaderForwardedFor carries the original sender's IP to the destination.
const HeaderForwardedFor = "X-Forwarded-For"

// recordTimeout bounds the forward log write after an attempt.
const recordTimeout = 5 * time.Second

var (
	// ErrQueueFull is recorded when a job cannot be queued for a worker.
	ErrQueueFull = errors.New("queue full")
	// ErrBreakerOpen is recorded when a destination host's breaker rejects an attempt.
	ErrBreakerOpen = errors.New("circuit breaker open")
	// ErrUnexpectedStatus is recorded for non-2xx destination responses.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrInvalidDestination marks a forward URL that can never succeed.
	ErrInvalidDestination = errors.New("invalid destination url")
)

// Store is the slice of the database the forwarder needs.
type Store interface {
	ListForwardSettingsForBucket(ctx context.Context, bucketID string) ([]models.ForwardSetting, error)
	InsertForwardLog(ctx context.Context, l *models.BucketForwardLog) error
}

// Publisher announces forward logs.
type Publisher interface {
	PublishForwardLog(ctx context.Context, owner string, l *models.BucketForwardLog) error
}

// Job is one receive log bound for one destination.
type Job struct {
	Log       *models.BucketReceiveLog
	Owner     string
	ClientIP  string
	RequestID string
	SettingID string
	URL       string
	Attempt   int
}

// ID identifies the job across retries.
func (j *Job) ID() string {
	return j.Log.ID + "/" + j.SettingID
}

// Stats is a snapshot of the forwarder's queues.
type Stats struct {
	Queued   int `json:"queued"`
	Retrying int `json:"retrying"`
	Workers  int `json:"workers"`
}

// Forwarder relays receive logs to their bucket's forward settings. A
// bounded queue feeds a fixed set of workers; failed attempts wait in a
// RetryQueue until their backoff elapses. It implements suture.Service and
// keeps its queues across restarts.
type Forwarder struct {
	cfg       config.ForwardConfig
	store     Store
	publisher Publisher
	client    *http.Client

	jobs    chan *Job
	retries *RetryQueue[*Job]
	guards  *hostGuards

	wg sync.WaitGroup
}

// New creates a forwarder. publisher may be nil.
func New(cfg config.ForwardConfig, store Store, publisher Publisher) *Forwarder {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.RetryTick <= 0 {
		cfg.RetryTick = 500 * time.Millisecond
	}
	return &Forwarder{
		cfg:       cfg,
		store:     store,
		publisher: publisher,
		client:    &http.Client{Timeout: cfg.RequestTimeout},
		jobs:      make(chan *Job, cfg.QueueSize),
		retries:   NewRetryQueue[*Job](),
		guards:    newHostGuards(cfg),
	}
}

// Enqueue queues rj for every forward setting of its bucket. It never
// blocks on workers; a job that does not fit is recorded as dropped.
func (f *Forwarder) Enqueue(ctx context.Context, rj *models.ReceiveJob) error {
	settings, err := f.store.ListForwardSettingsForBucket(ctx, rj.Log.Bucket)
	if err != nil {
		return fmt.Errorf("list forward settings: %w", err)
	}

	for i := range settings {
		f.dispatch(ctx, &Job{
			Log:       &rj.Log,
			Owner:     rj.Owner,
			ClientIP:  rj.ClientIP,
			RequestID: rj.RequestID,
			SettingID: settings[i].ID,
			URL:       settings[i].URL,
			Attempt:   1,
		})
	}
	return nil
}

// HandleReceiveLog is the events handler for the receive log topic.
func (f *Forwarder) HandleReceiveLog(ctx context.Context, msg *message.Message) error {
	rj, err := events.DecodeReceiveJob(msg)
	if err != nil {
		return err
	}
	return f.Enqueue(ctx, rj)
}

func (f *Forwarder) dispatch(ctx context.Context, j *Job) {
	select {
	case f.jobs <- j:
		metrics.ForwardQueueDepth.Set(float64(len(f.jobs)))
	default:
		logging.Ctx(ctx).Warn().
			Str("receive_log", j.Log.ID).
			Str("destination", j.URL).
			Int("queue_size", cap(f.jobs)).
			Msg("Forward queue full, dropping job")
		metrics.RecordForwardAttempt(metrics.OutcomeQueueFull, 0)
		f.record(ctx, j, &models.BucketForwardLog{
			Bucket:           j.Log.Bucket,
			BucketReceiveLog: j.Log.ID,
			DestinationURL:   j.URL,
			Body:             j.Log.Body,
			Headers:          j.Log.Headers,
			Attempt:          j.Attempt,
			Error:            ErrQueueFull.Error(),
		})
	}
}

// Serve runs the workers and the retry scheduler until ctx is canceled.
func (f *Forwarder) Serve(ctx context.Context) error {
	log := logging.WithComponent("forwarder")
	log.Info().
		Int("workers", f.cfg.Workers).
		Int("queue_size", f.cfg.QueueSize).
		Int("pending_retries", f.retries.Len()).
		Msg("Forwarder started")

	for i := 0; i < f.cfg.Workers; i++ {
		f.wg.Add(1)
		go f.worker(ctx)
	}

	ticker := time.NewTicker(f.cfg.RetryTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.wg.Wait()
			queued, pending := len(f.jobs), f.retries.Len()
			event := log.Info()
			if queued+pending > 0 {
				// Queues are in memory; these are lost if the process exits.
				event = log.Warn()
			}
			event.
				Int("queued", queued).
				Int("pending_retries", pending).
				Msg("Forwarder stopped")
			return ctx.Err()
		case now := <-ticker.C:
			f.releaseDue(now)
		}
	}
}

// releaseDue moves due retries onto the job queue. Retries that do not fit
// go back on the retry queue for the next tick.
func (f *Forwarder) releaseDue(now time.Time) {
	for _, j := range f.retries.PopDue(now) {
		select {
		case f.jobs <- j:
		default:
			f.retries.Push(j, f.cfg.RetryTick)
		}
	}
	metrics.ForwardQueueDepth.Set(float64(len(f.jobs)))
	metrics.ForwardRetryQueueDepth.Set(float64(f.retries.Len()))
}

func (f *Forwarder) worker(ctx context.Context) {
	defer f.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-f.jobs:
			metrics.ForwardQueueDepth.Set(float64(len(f.jobs)))
			f.attempt(ctx, j)
		}
	}
}

// attempt sends j once, records the outcome and schedules a retry on failure.
func (f *Forwarder) attempt(ctx context.Context, j *Job) {
	if j.RequestID != "" {
		ctx = logging.ContextWithRequestID(ctx, j.RequestID)
	}

	start := time.Now()
	status, outcome, err := f.send(ctx, j)
	elapsed := time.Since(start)
	if err != nil && ctx.Err() != nil {
		// Stopping, not a destination failure: no forward log, and the same
		// attempt runs again if the supervisor restarts the forwarder.
		f.retries.Push(j, 0)
		logging.Ctx(ctx).Debug().
			Str("receive_log", j.Log.ID).
			Str("destination", j.URL).
			Int("attempt", j.Attempt).
			Msg("Forward interrupted by shutdown")
		return
	}
	if outcome == metrics.OutcomeBreakerOpen {
		elapsed = 0
	}
	metrics.RecordForwardAttempt(outcome, elapsed)

	entry := &models.BucketForwardLog{
		Bucket:           j.Log.Bucket,
		BucketReceiveLog: j.Log.ID,
		DestinationURL:   j.URL,
		Body:             j.Log.Body,
		Headers:          j.Log.Headers,
		StatusCode:       status,
		Attempt:          j.Attempt,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	f.record(ctx, j, entry)

	if err == nil {
		logging.Ctx(ctx).Debug().
			Str("destination", j.URL).
			Int("status", status).
			Int("attempt", j.Attempt).
			Dur("duration", elapsed).
			Msg("Forwarded webhook")
		return
	}
	f.scheduleRetry(ctx, j, err)
}

// send performs one paced, circuit-broken POST to the destination.
func (f *Forwarder) send(ctx context.Context, j *Job) (int, string, error) {
	u, err := url.Parse(j.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return 0, metrics.OutcomeTransportError, fmt.Errorf("%w: %q", ErrInvalidDestination, j.URL)
	}

	guard := f.guards.get(u.Host)
	if err := guard.limiter.Wait(ctx); err != nil {
		return 0, metrics.OutcomeTransportError, fmt.Errorf("rate limit wait: %w", err)
	}

	status, err := guard.breaker.Execute(func() (int, error) {
		return f.do(ctx, j)
	})
	switch {
	case err == nil:
		return status, metrics.OutcomeSuccess, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return 0, metrics.OutcomeBreakerOpen, fmt.Errorf("%w for %s", ErrBreakerOpen, u.Host)
	case status > 0:
		return status, metrics.OutcomeHTTPError, err
	default:
		return 0, metrics.OutcomeTransportError, err
	}
}

// do posts the original body with the original headers plus
// X-Forwarded-For.
func (f *Forwarder) do(ctx context.Context, j *Job) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.URL, bytes.NewReader(j.Log.Body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header = make(http.Header, len(j.Log.Headers)+1)
	for k, v := range j.Log.Headers {
		req.Header[k] = append([]string(nil), v...)
	}
	if j.ClientIP != "" {
		req.Header.Add(HeaderForwardedFor, j.ClientIP)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func (f *Forwarder) scheduleRetry(ctx context.Context, j *Job, cause error) {
	log := logging.Ctx(ctx)
	if errors.Is(cause, ErrInvalidDestination) || j.Attempt > f.cfg.MaxRetries {
		metrics.ForwardGiveUps.Inc()
		log.Warn().
			Err(cause).
			Str("receive_log", j.Log.ID).
			Str("destination", j.URL).
			Int("attempts", j.Attempt).
			Msg("Giving up on forward")
		return
	}

	delay := f.backoffDelay(j.Attempt)
	next := *j
	next.Attempt++
	if f.retries.Push(&next, delay) {
		metrics.ForwardRetriesScheduled.Inc()
	}
	metrics.ForwardRetryQueueDepth.Set(float64(f.retries.Len()))

	log.Debug().
		Err(cause).
		Str("destination", j.URL).
		Int("next_attempt", next.Attempt).
		Dur("delay", delay).
		Msg("Forward retry scheduled")
}

// backoffDelay returns the wait before the retry that follows attempt,
// clamped to [MinBackoff, MaxBackoff].
func (f *Forwarder) backoffDelay(attempt int) time.Duration {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     f.cfg.MinBackoff,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          2,
		MaxInterval:         f.cfg.MaxBackoff,
	}
	b.Reset()

	delay := f.cfg.MinBackoff
	for i := 0; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	if delay < f.cfg.MinBackoff {
		delay = f.cfg.MinBackoff
	}
	if f.cfg.MaxBackoff > 0 && delay > f.cfg.MaxBackoff {
		delay = f.cfg.MaxBackoff
	}
	return delay
}

// record stores the forward log and announces it. The write outlives
// shutdown cancellation so the last attempts are not lost.
func (f *Forwarder) record(ctx context.Context, j *Job, entry *models.BucketForwardLog) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := f.store.InsertForwardLog(ctx, entry); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("receive_log", j.Log.ID).Msg("Failed to store forward log")
		return
	}
	if f.publisher == nil {
		return
	}
	if err := f.publisher.PublishForwardLog(ctx, j.Owner, entry); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("forward_log", entry.ID).Msg("Failed to publish forward log")
	}
}

// Stats returns the current queue depths.
func (f *Forwarder) Stats() Stats {
	return Stats{
		Queued:   len(f.jobs),
		Retrying: f.retries.Len(),
		Workers:  f.cfg.Workers,
	}
}

// String implements fmt.Stringer for supervisor logs.
func (f *Forwarder) String() string {
	return "forwarder"
}
