package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/cloutagent/cloutagent/internal/domain/agent"
	"github.com/cloutagent/cloutagent/internal/domain/cost"
	"github.com/cloutagent/cloutagent/internal/domain/execution"
	"github.com/cloutagent/cloutagent/internal/port/provider"
)

// ExecutionService orchestrates single agent invocations: prompt templating,
// the provider call raced against a timeout, and cost computation. Both entry
// points are total: they always return a well-formed result, never an error.
type ExecutionService struct {
	provider       provider.Provider
	tracker        *CostTracker
	sink           execution.Sink
	sem            *semaphore.Weighted
	defaultTimeout time.Duration
}

// NewExecutionService creates the engine. maxConcurrent caps in-flight
// executions when positive; 0 means uncapped.
func NewExecutionService(p provider.Provider, tracker *CostTracker, maxConcurrent int64) *ExecutionService {
	s := &ExecutionService{
		provider: p,
		tracker:  tracker,
	}
	if maxConcurrent > 0 {
		s.sem = semaphore.NewWeighted(maxConcurrent)
	}
	return s
}

// SetSink attaches a process-wide event sink (websocket hub, message queue,
// telemetry). Streamed executions publish to it alongside the caller's sink.
func (s *ExecutionService) SetSink(sink execution.Sink) {
	s.sink = sink
}

// SetDefaultTimeout overrides the fallback deadline applied when a call
// supplies no timeout of its own.
func (s *ExecutionService) SetDefaultTimeout(d time.Duration) {
	if d > 0 {
		s.defaultTimeout = d
	}
}

// Execute runs one batch invocation of the agent against the provider.
func (s *ExecutionService) Execute(ctx context.Context, ag *agent.Agent, input string, opts execution.Options) *execution.Result {
	id := uuid.NewString()
	start := time.Now()

	if err := s.acquire(ctx); err != nil {
		return failedResult(id, err, start)
	}
	defer s.release()

	req := s.buildRequest(ag, input, opts)
	timeout := s.resolveTimeout(opts)

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type callResult struct {
		resp *provider.Response
		err  error
	}
	done := make(chan callResult, 1)
	go func() {
		resp, err := s.provider.Complete(callCtx, req)
		done <- callResult{resp: resp, err: err}
	}()

	select {
	case <-callCtx.Done():
		err := callCtx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = timeoutError(timeout)
		}
		slog.Warn("execution aborted", "execution_id", id, "agent_id", ag.ID, "error", err)
		return failedResult(id, err, start)
	case res := <-done:
		if res.err != nil {
			slog.Warn("execution failed", "execution_id", id, "agent_id", ag.ID, "error", res.err)
			return failedResult(id, res.err, start)
		}
		usage := cost.TokenUsage{Input: res.resp.Usage.InputTokens, Output: res.resp.Usage.OutputTokens}
		s.tracker.TrackTokens(id, usage)
		return s.completedResult(id, ag, res.resp.Text, usage, start)
	}
}

// Stream runs one streaming invocation, publishing lifecycle events to sink
// as the provider delivers chunks and usage. The started event always comes
// first; a completed event, when the stream succeeds, always comes last.
func (s *ExecutionService) Stream(ctx context.Context, ag *agent.Agent, input string, sink execution.Sink, opts execution.Options) *execution.Result {
	id := uuid.NewString()
	start := time.Now()

	if err := s.acquire(ctx); err != nil {
		return failedResult(id, err, start)
	}
	defer s.release()

	em := &emitter{sink: s.combinedSink(sink)}
	em.publish(execution.NewEvent(execution.EventStarted, id, execution.StartedData{AgentID: ag.ID}))

	req := s.buildRequest(ag, input, opts)
	timeout := s.resolveTimeout(opts)

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type streamResult struct {
		resp *provider.Response
		err  error
	}
	done := make(chan streamResult, 1)
	go func() {
		// Usage reports carry cumulative counts; only the delta since the
		// previous report is added to the tracker. Callbacks arrive serially
		// from the provider, so prev needs no locking.
		var prev provider.Usage
		resp, err := s.provider.Stream(callCtx, req, provider.StreamCallbacks{
			OnText: func(chunk string) {
				em.chunk(id, chunk)
			},
			OnUsage: func(u provider.Usage) {
				delta := cost.TokenUsage{
					Input:  u.InputTokens - prev.InputTokens,
					Output: u.OutputTokens - prev.OutputTokens,
				}
				prev = u
				em.recordUsage(id, delta, cost.TokenUsage{Input: u.InputTokens, Output: u.OutputTokens}, s.tracker)
			},
		})
		done <- streamResult{resp: resp, err: err}
	}()

	select {
	case <-callCtx.Done():
		err := callCtx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = timeoutError(timeout)
		}
		result := failedResult(id, err, start)
		em.settleFailed(id, result)
		slog.Warn("stream aborted", "execution_id", id, "agent_id", ag.ID, "error", err)
		return result
	case res := <-done:
		if res.err != nil {
			result := failedResult(id, res.err, start)
			em.settleFailed(id, result)
			slog.Warn("stream failed", "execution_id", id, "agent_id", ag.ID, "error", res.err)
			return result
		}
		// Usage may arrive only in the final response on some paths.
		if em.tokensSeen() == 0 && (res.resp.Usage.InputTokens > 0 || res.resp.Usage.OutputTokens > 0) {
			usage := cost.TokenUsage{Input: res.resp.Usage.InputTokens, Output: res.resp.Usage.OutputTokens}
			em.recordUsage(id, usage, usage, s.tracker)
		}
		usage := cost.TokenUsage{Input: res.resp.Usage.InputTokens, Output: res.resp.Usage.OutputTokens}
		result := s.completedResult(id, ag, em.text(), usage, start)
		em.settleCompleted(id, result)
		return result
	}
}

func (s *ExecutionService) buildRequest(ag *agent.Agent, input string, opts execution.Options) provider.Request {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = ag.Config.MaxTokens
	}
	return provider.Request{
		Model:       ag.Config.Model,
		System:      RenderTemplate(ag.Config.SystemPrompt, opts.Variables),
		Input:       input,
		MaxTokens:   maxTokens,
		Temperature: ag.Config.Temperature,
	}
}

func (s *ExecutionService) completedResult(id string, ag *agent.Agent, text string, usage cost.TokenUsage, start time.Time) *execution.Result {
	return &execution.Result{
		ID:     id,
		Status: execution.StatusCompleted,
		Result: text,
		Cost: cost.Breakdown{
			PromptTokens:     usage.Input,
			CompletionTokens: usage.Output,
			TotalCost:        cost.Calculate(ag.Config.Model, usage),
		},
		DurationMS: time.Since(start).Milliseconds(),
	}
}

func (s *ExecutionService) combinedSink(caller execution.Sink) execution.Sink {
	switch {
	case caller != nil && s.sink != nil:
		return execution.MultiSink(caller, s.sink)
	case caller != nil:
		return caller
	case s.sink != nil:
		return s.sink
	default:
		return execution.SinkFunc(func(execution.Event) {})
	}
}

func (s *ExecutionService) acquire(ctx context.Context) error {
	if s.sem == nil {
		return nil
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("execution slot unavailable: %w", err)
	}
	return nil
}

func (s *ExecutionService) release() {
	if s.sem != nil {
		s.sem.Release(1)
	}
}

func (s *ExecutionService) resolveTimeout(opts execution.Options) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	if s.defaultTimeout > 0 {
		return s.defaultTimeout
	}
	return execution.DefaultTimeout
}

func timeoutError(timeout time.Duration) error {
	return fmt.Errorf("execution timeout after %dms", timeout.Milliseconds())
}

func failedResult(id string, err error, start time.Time) *execution.Result {
	msg := "Unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &execution.Result{
		ID:         id,
		Status:     execution.StatusFailed,
		DurationMS: time.Since(start).Milliseconds(),
		Error:      msg,
	}
}

// RenderTemplate substitutes every {{key}} occurrence in tmpl with its value
// from vars. Keys absent from vars stay as literal placeholders.
func RenderTemplate(tmpl string, vars map[string]string) string {
	if len(vars) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(vars)*2)
	for key, val := range vars {
		pairs = append(pairs, "{{"+key+"}}", val)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// emitter serializes event publication for one streamed execution and goes
// inert once the execution has settled, so a late provider callback after a
// timeout can neither leak events nor charge further tokens to the tracker.
type emitter struct {
	sink execution.Sink

	mu      sync.Mutex
	settled bool
	usages  int
	buf     strings.Builder
}

func (e *emitter) publish(ev execution.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.settled {
		return
	}
	e.sink.Publish(ev)
}

func (e *emitter) chunk(id, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.settled {
		return
	}
	e.buf.WriteString(text)
	e.sink.Publish(execution.NewEvent(execution.EventOutput, id, execution.OutputData{Chunk: text}))
}

// recordUsage charges delta to the tracker and publishes a token-usage event
// with the cumulative counts. Both happen under the settled check, so a
// report arriving after the timeout race is lost leaves the tracker untouched.
func (e *emitter) recordUsage(id string, delta, total cost.TokenUsage, tracker *CostTracker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.settled {
		return
	}
	tracker.TrackTokens(id, delta)
	e.usages++
	e.sink.Publish(execution.NewEvent(execution.EventTokenUsage, id, execution.TokenUsageData{
		PromptTokens:     total.Input,
		CompletionTokens: total.Output,
		EstimatedCost:    tracker.ExecutionCost(id),
	}))
}

func (e *emitter) tokensSeen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.usages
}

func (e *emitter) text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf.String()
}

func (e *emitter) settleCompleted(id string, result *execution.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.settled {
		return
	}
	e.settled = true
	e.sink.Publish(execution.NewEvent(execution.EventCompleted, id, execution.CompletedData{
		Result:     result.Result,
		Cost:       result.Cost,
		DurationMS: result.DurationMS,
	}))
}

func (e *emitter) settleFailed(id string, result *execution.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.settled {
		return
	}
	e.settled = true
	e.sink.Publish(execution.NewEvent(execution.EventFailed, id, execution.FailedData{
		Error:      result.Error,
		DurationMS: result.DurationMS,
	}))
}
