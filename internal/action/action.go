// Package action runs the page's simulated asynchronous operations.
//
// Every action shows the shared loader, waits at least its minimum duration,
// runs its work, applies the result, hides the loader and finally shows a
// toast. The loader is released on every path, including a panicking Work.
// Actions cannot be cancelled once started: abandoning Wait leaves the action
// running to completion.
package action

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/BTreeMap/FarmGenius/internal/models"
	"github.com/BTreeMap/FarmGenius/internal/util"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/BTreeMap/FarmGenius/internal/action"

// Indicator is the loader and toast surface an action reports to.
// *uibus.Bus satisfies it.
type Indicator interface {
	ShowLoader() (release func())
	Notify(n models.Notification) string
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithTracer overrides the tracer used for action spans.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Simulator) {
		s.tracer = tr
	}
}

// WithDelayScale multiplies every minimum duration. 0 removes the delays.
func WithDelayScale(f float64) Option {
	return func(s *Simulator) {
		if f >= 0 {
			s.scale = f
		}
	}
}

// Simulator starts actions for one page.
type Simulator struct {
	ui      Indicator
	tracer  trace.Tracer
	scale   float64
	mu      sync.Mutex
	pending map[string]models.ActionInfo
	closing bool
	wg      sync.WaitGroup
}

// NewSimulator creates a simulator reporting to ui.
func NewSimulator(ui Indicator, opts ...Option) *Simulator {
	s := &Simulator{
		ui:      ui,
		tracer:  otel.Tracer(tracerName),
		scale:   1,
		pending: make(map[string]models.ActionInfo),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Action describes one simulated operation.
type Action[T any] struct {
	Kind        models.ActionKind
	MinDuration time.Duration
	// Work produces the result. It runs after MinDuration has elapsed.
	Work func(ctx context.Context) (T, error)
	// Apply updates page state with a successful result, before the loader hides.
	Apply func(T)
	// Success builds the toast for a result; nil shows none.
	Success func(T) models.Notification
	// Failure builds the toast for an error; nil uses models.NoticeFor.
	Failure func(error) models.Notification
}

// Pending is a started action.
type Pending[T any] struct {
	info models.ActionInfo
	done chan struct{}
	val  T
	err  error
}

// Info describes the action.
func (p *Pending[T]) Info() models.ActionInfo { return p.info }

// Done is closed once the action has fully completed, toast included.
func (p *Pending[T]) Done() <-chan struct{} { return p.done }

// Wait blocks until the action completes or ctx ends. A ctx error does not
// stop the action.
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.val, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Start launches a and returns immediately with the loader already shown.
func Start[T any](ctx context.Context, s *Simulator, a Action[T]) *Pending[T] {
	min := time.Duration(float64(a.MinDuration) * s.scale)
	p := &Pending[T]{
		info: models.ActionInfo{
			ID:            util.NewActionID(),
			Kind:          a.Kind,
			StartedAt:     time.Now(),
			MinDurationMs: min.Milliseconds(),
		},
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		p.err = models.ErrPageClosed
		close(p.done)
		slog.Warn("Simulator.Start: refusing action, simulator is draining", "kind", a.Kind)
		return p
	}
	s.pending[p.info.ID] = p.info
	s.wg.Add(1)
	s.mu.Unlock()
	release := s.ui.ShowLoader()

	// Detach from the caller: the request that started the action may end first.
	runCtx, span := s.tracer.Start(context.WithoutCancel(ctx), "action."+string(a.Kind),
		trace.WithAttributes(
			attribute.String("action.id", p.info.ID),
			attribute.Int64("action.min_duration_ms", p.info.MinDurationMs),
		))
	slog.Debug("Simulator.Start", "id", p.info.ID, "kind", a.Kind, "min_duration", min)

	go func() {
		defer s.wg.Done()
		defer span.End()

		p.val, p.err = execute(runCtx, a, min)
		release()

		if p.err != nil {
			span.RecordError(p.err)
			span.SetStatus(codes.Error, p.err.Error())
			notice := models.NoticeFor(p.err)
			if a.Failure != nil {
				notice = a.Failure(p.err)
			}
			s.ui.Notify(notice)
			slog.Warn("Simulator: action failed", "id", p.info.ID, "kind", a.Kind, "error", p.err)
		} else {
			if a.Success != nil {
				s.ui.Notify(a.Success(p.val))
			}
			slog.Debug("Simulator: action succeeded", "id", p.info.ID, "kind", a.Kind, "elapsed", time.Since(p.info.StartedAt))
		}

		s.mu.Lock()
		delete(s.pending, p.info.ID)
		s.mu.Unlock()
		close(p.done)
	}()
	return p
}

// Run starts a and waits for it.
func Run[T any](ctx context.Context, s *Simulator, a Action[T]) (T, error) {
	return Start(ctx, s, a).Wait(ctx)
}

func execute[T any](ctx context.Context, a Action[T], min time.Duration) (val T, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Simulator: action panicked", "kind", a.Kind, "panic", r)
			var zero T
			val, err = zero, fmt.Errorf("action %s panicked: %v", a.Kind, r)
		}
	}()
	if min > 0 {
		time.Sleep(min)
	}
	if a.Work != nil {
		val, err = a.Work(ctx)
	}
	if err == nil && a.Apply != nil {
		a.Apply(val)
	}
	return val, err
}

// Pending lists in-flight actions, oldest first.
func (s *Simulator) Pending() []models.ActionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ActionInfo, 0, len(s.pending))
	for _, info := range s.pending {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Drain stops new actions from starting, then waits for every started
// action to finish or for ctx to end. Start after Drain fails with
// models.ErrPageClosed.
func (s *Simulator) Drain(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
