package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jdziat/simple-recurring-triggers/pkg/core"
	"github.com/jdziat/simple-recurring-triggers/pkg/internal/handler"
	"github.com/jdziat/simple-recurring-triggers/pkg/security"
)

// Scheduler persists triggers and fires them when due. Multiple
// schedulers may share one storage backend; the claim lock ensures
// each occurrence fires exactly once.
type Scheduler struct {
	storage core.Storage
	config  Config
	logger  *slog.Logger

	mu       sync.RWMutex
	handlers map[string]*handler.Handler

	// Hooks
	onFire      []func(context.Context, *core.Trigger)
	onExhausted []func(context.Context, *core.Trigger)
	onError     []func(context.Context, *core.Trigger, error)

	// Event stream
	eventSubs []chan core.Event

	wg sync.WaitGroup
}

// New creates a Scheduler on the given storage backend.
func New(s core.Storage, opts ...Option) *Scheduler {
	config := Config{
		PollInterval: time.Second,
		Concurrency:  4,
		SchedulerID:  uuid.New().String(),
		StaleAfter:   10 * time.Minute,
	}

	for _, opt := range opts {
		opt.Apply(&config)
	}

	if config.StorageRetry == nil {
		cfg := DefaultRetryConfig()
		config.StorageRetry = &cfg
	}
	if config.ClaimRetry == nil {
		// Longer backoff than storage writes to avoid hammering the
		// database during outages.
		cfg := RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     10 * time.Second,
			Multiplier:     2.0,
			JitterFraction: 0.2,
		}
		config.ClaimRetry = &cfg
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		storage:  s,
		config:   config,
		logger:   logger,
		handlers: make(map[string]*handler.Handler),
	}
}

// Storage returns the underlying storage backend.
func (s *Scheduler) Storage() core.Storage {
	return s.storage
}

// Register registers the handler for triggers with the given name.
// The function must have signature func(ctx context.Context, payload T) error.
// Trigger names must be alphanumeric (starting with a letter), max 255 chars.
func (s *Scheduler) Register(name string, fn any) {
	if err := security.ValidateTriggerName(name); err != nil {
		panic(fmt.Sprintf("triggers: invalid handler name %q: %v", name, err))
	}

	h, err := handler.NewHandler(fn)
	if err != nil {
		panic(fmt.Sprintf("triggers: handler for %q: %v", name, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = h
}

// HasHandler checks if a handler is registered for the name.
func (s *Scheduler) HasHandler(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.handlers[name]
	return ok
}

func (s *Scheduler) getHandler(name string) (*handler.Handler, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handlers[name]
	return h, ok
}

// Schedule validates the spec, resolves its first fire time, and
// persists the trigger. The name must be unique among active triggers
// and identifies the handler to invoke.
func (s *Scheduler) Schedule(ctx context.Context, name string, spec core.Spec, payload any) (*core.Trigger, error) {
	if err := security.ValidateTriggerName(name); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	specBytes, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("triggers: failed to marshal spec: %w", err)
	}

	var payloadBytes []byte
	if payload != nil {
		payloadBytes, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("triggers: failed to marshal payload: %w", err)
		}
		if len(payloadBytes) > security.MaxPayloadSize {
			return nil, core.ErrPayloadTooLarge
		}
	}

	fireAt, ok := spec.NextFire(time.Now(), 0)
	if !ok {
		return nil, core.ErrNoOccurrence
	}

	trigger := &core.Trigger{
		ID:      uuid.New().String(),
		Name:    name,
		Kind:    spec.Kind(),
		Spec:    specBytes,
		Payload: payloadBytes,
		Status:  core.StatusScheduled,
		FireAt:  &fireAt,
	}

	if err := s.storage.Save(ctx, trigger); err != nil {
		if errors.Is(err, core.ErrDuplicateTrigger) {
			return nil, err
		}
		return nil, fmt.Errorf("triggers: failed to save: %w", err)
	}

	s.Emit(&core.TriggerScheduled{Trigger: trigger, FireAt: fireAt, Timestamp: time.Now()})

	return trigger, nil
}

// Cancel removes a trigger from the active schedule by ID.
func (s *Scheduler) Cancel(ctx context.Context, id string) error {
	trigger, err := s.storage.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storage.Cancel(ctx, id); err != nil {
		return err
	}
	s.Emit(&core.TriggerCancelled{Trigger: trigger, Timestamp: time.Now()})
	return nil
}

// CancelByName removes a trigger from the active schedule by name.
func (s *Scheduler) CancelByName(ctx context.Context, name string) error {
	trigger, err := s.storage.GetByName(ctx, name)
	if err != nil {
		return err
	}
	return s.Cancel(ctx, trigger.ID)
}

// Get retrieves a trigger by ID.
func (s *Scheduler) Get(ctx context.Context, id string) (*core.Trigger, error) {
	return s.storage.Get(ctx, id)
}

// GetByName retrieves a trigger by name.
func (s *Scheduler) GetByName(ctx context.Context, name string) (*core.Trigger, error) {
	return s.storage.GetByName(ctx, name)
}

// Start begins polling for due triggers. Blocks until the context is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	due := make(chan *core.Trigger, s.config.Concurrency)

	go s.runStaleSweeper(ctx)

	for i := 0; i < s.config.Concurrency; i++ {
		s.wg.Add(1)
		go s.fireLoop(ctx, due)
	}

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(due)
			s.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			trigger, err := s.claimWithRetry(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					s.logger.Error("failed to claim after retries", "error", err)
				}
				continue
			}
			if trigger != nil {
				select {
				case due <- trigger:
				case <-ctx.Done():
				}
			}
		}
	}
}

func (s *Scheduler) claimWithRetry(ctx context.Context) (*core.Trigger, error) {
	var trigger *core.Trigger
	err := retryWithBackoff(ctx, *s.config.ClaimRetry, func() error {
		var claimErr error
		trigger, claimErr = s.storage.Claim(ctx, s.config.SchedulerID)
		return claimErr
	})
	return trigger, err
}

func (s *Scheduler) fireLoop(ctx context.Context, due <-chan *core.Trigger) {
	defer s.wg.Done()

	for trigger := range due {
		s.fire(ctx, trigger)
	}
}

// fire runs the trigger's handler, then advances the occurrence
// counter and resolves the next fire time in one storage write. The
// occurrence advances even when the handler errors: the instant
// occurred, the work just failed.
func (s *Scheduler) fire(ctx context.Context, trigger *core.Trigger) {
	firedAt := time.Now()

	spec, err := trigger.DecodeSpec()
	if err != nil {
		s.logger.Error("undecodable spec, retiring trigger",
			"trigger", trigger.Name, "error", err)
		s.markFiredWithRetry(ctx, trigger.ID, trigger.Occurrence, nil, err.Error())
		s.callErrorHooks(ctx, trigger, err)
		s.Emit(&core.TriggerFailed{Trigger: trigger, Error: err, Timestamp: time.Now()})
		return
	}

	var fireErr error
	if h, ok := s.getHandler(trigger.Name); ok {
		fireErr = s.executeHandler(ctx, trigger, h)
	} else {
		fireErr = core.ErrNoHandler
	}

	occurrence := trigger.Occurrence + 1

	var nextFireAt *time.Time
	if next, more := spec.NextFire(firedAt, occurrence); more {
		nextFireAt = &next
	}

	errMsg := ""
	if fireErr != nil {
		errMsg = fireErr.Error()
	}

	if err := s.markFiredWithRetry(ctx, trigger.ID, occurrence, nextFireAt, errMsg); err != nil {
		if errors.Is(err, core.ErrTriggerNotOwned) {
			s.logger.Warn("lost claim before recording fire", "trigger", trigger.Name)
		} else {
			s.logger.Error("failed to record fire after retries",
				"trigger", trigger.Name, "error", err)
		}
		return
	}

	trigger.Occurrence = occurrence
	trigger.FireAt = nextFireAt

	if fireErr != nil {
		s.logger.Error("trigger handler failed",
			"trigger", trigger.Name, "occurrence", occurrence, "error", fireErr)
		s.callErrorHooks(ctx, trigger, fireErr)
		s.Emit(&core.TriggerFailed{Trigger: trigger, Error: fireErr, Timestamp: time.Now()})
	} else {
		s.logger.Debug("trigger fired",
			"trigger", trigger.Name, "occurrence", occurrence,
			"duration", time.Since(firedAt))
		s.callFireHooks(ctx, trigger)
		s.Emit(&core.TriggerFired{
			Trigger:    trigger,
			Occurrence: occurrence,
			NextFireAt: nextFireAt,
			Timestamp:  time.Now(),
		})
	}

	if nextFireAt == nil {
		s.callExhaustedHooks(ctx, trigger)
		s.Emit(&core.TriggerExhausted{Trigger: trigger, Timestamp: time.Now()})
	}
}

func (s *Scheduler) executeHandler(ctx context.Context, trigger *core.Trigger, h *handler.Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Execute(ctx, trigger.Payload)
}

func (s *Scheduler) markFiredWithRetry(ctx context.Context, id string, occurrence int, nextFireAt *time.Time, errMsg string) error {
	return retryWithBackoff(ctx, *s.config.StorageRetry, func() error {
		err := s.storage.MarkFired(ctx, id, s.config.SchedulerID, occurrence, nextFireAt, errMsg)
		if errors.Is(err, core.ErrTriggerNotOwned) {
			// Another scheduler reclaimed the trigger; retrying
			// cannot help.
			return &permanentError{err: err}
		}
		return err
	})
}

// runStaleSweeper periodically returns triggers with expired claim
// locks to the schedule, covering schedulers that died mid-fire.
func (s *Scheduler) runStaleSweeper(ctx context.Context) {
	interval := s.config.StaleAfter / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			released, err := s.storage.ReleaseStaleLocks(ctx, s.config.StaleAfter)
			if err != nil {
				s.logger.Error("failed to release stale locks", "error", err)
				continue
			}
			if released > 0 {
				s.logger.Warn("released stale trigger locks", "count", released)
			}
		}
	}
}

// OnFire registers a callback invoked after a trigger fires
// successfully.
func (s *Scheduler) OnFire(fn func(context.Context, *core.Trigger)) {
	s.mu.Lock()
	s.onFire = append(s.onFire, fn)
	s.mu.Unlock()
}

// OnExhausted registers a callback invoked when a trigger leaves the
// active schedule after its last occurrence.
func (s *Scheduler) OnExhausted(fn func(context.Context, *core.Trigger)) {
	s.mu.Lock()
	s.onExhausted = append(s.onExhausted, fn)
	s.mu.Unlock()
}

// OnError registers a callback invoked when a trigger's handler fails.
func (s *Scheduler) OnError(fn func(context.Context, *core.Trigger, error)) {
	s.mu.Lock()
	s.onError = append(s.onError, fn)
	s.mu.Unlock()
}

func (s *Scheduler) callFireHooks(ctx context.Context, trigger *core.Trigger) {
	s.mu.RLock()
	hooks := make([]func(context.Context, *core.Trigger), len(s.onFire))
	copy(hooks, s.onFire)
	s.mu.RUnlock()

	for _, fn := range hooks {
		fn(ctx, trigger)
	}
}

func (s *Scheduler) callExhaustedHooks(ctx context.Context, trigger *core.Trigger) {
	s.mu.RLock()
	hooks := make([]func(context.Context, *core.Trigger), len(s.onExhausted))
	copy(hooks, s.onExhausted)
	s.mu.RUnlock()

	for _, fn := range hooks {
		fn(ctx, trigger)
	}
}

func (s *Scheduler) callErrorHooks(ctx context.Context, trigger *core.Trigger, err error) {
	s.mu.RLock()
	hooks := make([]func(context.Context, *core.Trigger, error), len(s.onError))
	copy(hooks, s.onError)
	s.mu.RUnlock()

	for _, fn := range hooks {
		fn(ctx, trigger, err)
	}
}

// Events returns a channel for receiving scheduler events.
// The caller must call Unsubscribe when done to prevent resource leaks.
func (s *Scheduler) Events() <-chan core.Event {
	ch := make(chan core.Event, 100)
	s.mu.Lock()
	s.eventSubs = append(s.eventSubs, ch)
	s.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel created by Events().
// The channel is not closed; callers must stop reading before calling
// Unsubscribe.
func (s *Scheduler) Unsubscribe(ch <-chan core.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.eventSubs {
		if sub == ch {
			s.eventSubs = append(s.eventSubs[:i], s.eventSubs[i+1:]...)
			return
		}
	}
}

// Emit broadcasts an event to all subscribers. Events are dropped for
// subscribers whose channel is full, so slow consumers never block
// firing.
func (s *Scheduler) Emit(e core.Event) {
	s.mu.RLock()
	subs := make([]chan core.Event, len(s.eventSubs))
	copy(subs, s.eventSubs)
	s.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
		}
	}
}
