package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jdziat/simple-recurring-triggers/pkg/core"
	"github.com/jdziat/simple-recurring-triggers/pkg/match"
	"github.com/jdziat/simple-recurring-triggers/pkg/storage"
)

func newTestScheduler(t *testing.T, opts ...Option) *Scheduler {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	store, err := storage.NewGormStorage(db)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	opts = append([]Option{PollInterval(10 * time.Millisecond)}, opts...)
	return New(store, opts...)
}

func startScheduler(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func onceSpec(at time.Time) core.Spec {
	return core.Spec{At: &at}
}

func TestRegister_PanicsOnInvalidName(t *testing.T) {
	s := newTestScheduler(t)

	assert.Panics(t, func() {
		s.Register("9starts-with-digit", func(ctx context.Context) error { return nil })
	})
}

func TestRegister_PanicsOnInvalidHandler(t *testing.T) {
	s := newTestScheduler(t)

	assert.Panics(t, func() {
		s.Register("valid", "not a function")
	})
}

func TestHasHandler(t *testing.T) {
	s := newTestScheduler(t)
	s.Register("welcome", func(ctx context.Context) error { return nil })

	assert.True(t, s.HasHandler("welcome"))
	assert.False(t, s.HasHandler("other"))
}

func TestSchedule_RejectsInvalidName(t *testing.T) {
	s := newTestScheduler(t)

	_, err := s.Schedule(context.Background(), "no spaces allowed", onceSpec(time.Now().Add(time.Hour)), nil)
	assert.ErrorIs(t, err, core.ErrInvalidTriggerName)
}

func TestSchedule_RejectsInvalidSpec(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	_, err := s.Schedule(ctx, "empty", core.Spec{}, nil)
	assert.ErrorIs(t, err, core.ErrInvalidSpec)

	at := time.Now().Add(time.Hour)
	_, err = s.Schedule(ctx, "two-kinds", core.Spec{At: &at, Every: time.Minute}, nil)
	assert.ErrorIs(t, err, core.ErrInvalidSpec)
}

func TestSchedule_RejectsClosedWindow(t *testing.T) {
	s := newTestScheduler(t)

	past := time.Now().Add(-time.Hour)
	_, err := s.Schedule(context.Background(), "expired", core.Spec{Every: time.Minute, Before: &past}, nil)
	assert.ErrorIs(t, err, core.ErrNoOccurrence)
}

func TestSchedule_RejectsOversizedPayload(t *testing.T) {
	s := newTestScheduler(t)

	big := make([]byte, 2<<20)
	_, err := s.Schedule(context.Background(), "big", onceSpec(time.Now().Add(time.Hour)), string(big))
	assert.ErrorIs(t, err, core.ErrPayloadTooLarge)
}

func TestSchedule_RejectsDuplicateName(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	_, err := s.Schedule(ctx, "reminder", onceSpec(time.Now().Add(time.Hour)), nil)
	require.NoError(t, err)

	_, err = s.Schedule(ctx, "reminder", onceSpec(time.Now().Add(time.Hour)), nil)
	assert.ErrorIs(t, err, core.ErrDuplicateTrigger)
}

func TestSchedule_ResolvesMatchFireTime(t *testing.T) {
	s := newTestScheduler(t)

	rule := match.Rule{Hour: mo.Some(9)}
	trigger, err := s.Schedule(context.Background(), "daily-nine", core.Spec{Match: &rule}, nil)
	require.NoError(t, err)

	want, ok := rule.Next(time.Now(), 0)
	require.True(t, ok)
	require.NotNil(t, trigger.FireAt)
	assert.WithinDuration(t, want, *trigger.FireAt, time.Minute)
	assert.Equal(t, core.KindMatch, trigger.Kind)
}

func TestScheduler_FiresOnceTrigger(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	type payload struct {
		UserID string `json:"user_id"`
	}
	got := make(chan payload, 1)
	s.Register("welcome", func(ctx context.Context, p payload) error {
		got <- p
		return nil
	})

	trigger, err := s.Schedule(ctx, "welcome", onceSpec(time.Now().Add(-time.Second)), payload{UserID: "u-42"})
	require.NoError(t, err)

	startScheduler(t, s)

	select {
	case p := <-got:
		assert.Equal(t, "u-42", p.UserID)
	case <-time.After(5 * time.Second):
		t.Fatal("trigger did not fire")
	}

	require.Eventually(t, func() bool {
		stored, err := s.Get(ctx, trigger.ID)
		return err == nil && stored.Status == core.StatusExhausted
	}, 5*time.Second, 20*time.Millisecond)

	stored, err := s.Get(ctx, trigger.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Occurrence)
	assert.Nil(t, stored.FireAt)
}

func TestScheduler_EveryFiresUntilCountExhausted(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	var fires atomic.Int32
	s.Register("heartbeat", func(ctx context.Context) error {
		fires.Add(1)
		return nil
	})

	trigger, err := s.Schedule(ctx, "heartbeat", core.Spec{Every: 20 * time.Millisecond, Count: 2}, nil)
	require.NoError(t, err)

	startScheduler(t, s)

	require.Eventually(t, func() bool {
		stored, err := s.Get(ctx, trigger.ID)
		return err == nil && stored.Status == core.StatusExhausted
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, int32(2), fires.Load())
}

func TestScheduler_HandlerErrorKeepsSchedule(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	s.Register("flaky", func(ctx context.Context) error {
		return errors.New("boom")
	})

	trigger, err := s.Schedule(ctx, "flaky", core.Spec{Every: 20 * time.Millisecond}, nil)
	require.NoError(t, err)

	startScheduler(t, s)

	var stored *core.Trigger
	require.Eventually(t, func() bool {
		got, err := s.Get(ctx, trigger.ID)
		if err != nil || got.Occurrence < 1 || got.Status != core.StatusScheduled {
			return false
		}
		stored = got
		return true
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, "boom", stored.LastError)
	assert.NotNil(t, stored.FireAt)
}

func TestScheduler_MissingHandlerRecordsError(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	trigger, err := s.Schedule(ctx, "orphan", onceSpec(time.Now().Add(-time.Second)), nil)
	require.NoError(t, err)

	startScheduler(t, s)

	require.Eventually(t, func() bool {
		stored, err := s.Get(ctx, trigger.ID)
		return err == nil && stored.Occurrence >= 1
	}, 5*time.Second, 20*time.Millisecond)

	stored, err := s.Get(ctx, trigger.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.LastError, "no handler")
}

func TestScheduler_HandlerPanicIsRecovered(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	s.Register("panicky", func(ctx context.Context) error {
		panic("kaboom")
	})

	trigger, err := s.Schedule(ctx, "panicky", onceSpec(time.Now().Add(-time.Second)), nil)
	require.NoError(t, err)

	startScheduler(t, s)

	require.Eventually(t, func() bool {
		stored, err := s.Get(ctx, trigger.ID)
		return err == nil && stored.Occurrence >= 1
	}, 5*time.Second, 20*time.Millisecond)

	stored, err := s.Get(ctx, trigger.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.LastError, "kaboom")
}

func TestScheduler_Hooks(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	fired := make(chan struct{}, 1)
	exhausted := make(chan struct{}, 1)
	s.OnFire(func(ctx context.Context, tr *core.Trigger) {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	s.OnExhausted(func(ctx context.Context, tr *core.Trigger) {
		select {
		case exhausted <- struct{}{}:
		default:
		}
	})

	s.Register("hello", func(ctx context.Context) error { return nil })
	_, err := s.Schedule(ctx, "hello", onceSpec(time.Now().Add(-time.Second)), nil)
	require.NoError(t, err)

	startScheduler(t, s)

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("fire hook not called")
	}
	select {
	case <-exhausted:
	case <-time.After(5 * time.Second):
		t.Fatal("exhausted hook not called")
	}
}

func TestScheduler_ErrorHook(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	errs := make(chan error, 1)
	s.OnError(func(ctx context.Context, tr *core.Trigger, err error) {
		select {
		case errs <- err:
		default:
		}
	})

	s.Register("flaky", func(ctx context.Context) error {
		return errors.New("boom")
	})
	_, err := s.Schedule(ctx, "flaky", onceSpec(time.Now().Add(-time.Second)), nil)
	require.NoError(t, err)

	startScheduler(t, s)

	select {
	case err := <-errs:
		assert.EqualError(t, err, "boom")
	case <-time.After(5 * time.Second):
		t.Fatal("error hook not called")
	}
}

func TestScheduler_Events(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	events := s.Events()
	defer s.Unsubscribe(events)

	s.Register("hello", func(ctx context.Context) error { return nil })
	_, err := s.Schedule(ctx, "hello", onceSpec(time.Now().Add(-time.Second)), nil)
	require.NoError(t, err)

	startScheduler(t, s)

	var sawScheduled, sawFired, sawExhausted bool
	deadline := time.After(5 * time.Second)
	for !(sawScheduled && sawFired && sawExhausted) {
		select {
		case e := <-events:
			switch ev := e.(type) {
			case *core.TriggerScheduled:
				sawScheduled = true
			case *core.TriggerFired:
				sawFired = true
				assert.Equal(t, 1, ev.Occurrence)
				assert.Nil(t, ev.NextFireAt)
			case *core.TriggerExhausted:
				sawExhausted = true
			}
		case <-deadline:
			t.Fatalf("missing events: scheduled=%v fired=%v exhausted=%v",
				sawScheduled, sawFired, sawExhausted)
		}
	}
}

func TestScheduler_Unsubscribe(t *testing.T) {
	s := newTestScheduler(t)

	events := s.Events()
	s.Unsubscribe(events)

	s.Emit(&core.TriggerScheduled{Timestamp: time.Now()})

	select {
	case <-events:
		t.Fatal("received event after unsubscribe")
	default:
	}
}

func TestScheduler_CancelByName(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	trigger, err := s.Schedule(ctx, "reminder", onceSpec(time.Now().Add(time.Hour)), nil)
	require.NoError(t, err)

	require.NoError(t, s.CancelByName(ctx, "reminder"))

	stored, err := s.Get(ctx, trigger.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCancelled, stored.Status)

	assert.ErrorIs(t, s.CancelByName(ctx, "missing"), core.ErrTriggerNotFound)
}
