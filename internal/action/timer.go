package action

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// TimerInfo describes a scheduled callback.
type TimerInfo struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	ScheduledAt time.Time `json:"scheduled_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type timerEntry struct {
	timer *time.Timer
	info  TimerInfo
}

// Timer runs page callbacks after a delay. Callbacks keep running after the
// user navigates away; Stop is the only way to drop them.
type Timer struct {
	mu      sync.Mutex
	timers  map[string]*timerEntry
	nextID  int64
	stopped bool
}

// NewTimer creates an empty Timer.
func NewTimer() *Timer {
	return &Timer{timers: make(map[string]*timerEntry)}
}

// ScheduleAfter runs fn once after delay and returns the timer id. After
// Stop it schedules nothing and returns "".
func (t *Timer) ScheduleAfter(label string, delay time.Duration, fn func()) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		slog.Debug("Timer.ScheduleAfter: stopped, ignoring", "label", label)
		return ""
	}
	t.nextID++
	id := fmt.Sprintf("timer_%d", t.nextID)
	now := time.Now()

	t.timers[id] = &timerEntry{
		info: TimerInfo{ID: id, Label: label, ScheduledAt: now, ExpiresAt: now.Add(delay)},
		timer: time.AfterFunc(delay, func() {
			t.mu.Lock()
			_, live := t.timers[id]
			delete(t.timers, id)
			t.mu.Unlock()
			if !live {
				return
			}
			slog.Debug("Timer: firing", "id", id, "label", label)
			fn()
		}),
	}
	slog.Debug("Timer.ScheduleAfter", "id", id, "label", label, "delay", delay)
	return id
}

// Cancel drops a scheduled callback. It reports whether one was pending.
func (t *Timer) Cancel(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.timers[id]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(t.timers, id)
	slog.Debug("Timer.Cancel", "id", id, "label", entry.info.Label)
	return true
}

// Pending lists scheduled callbacks ordered by expiry.
func (t *Timer) Pending() []TimerInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TimerInfo, 0, len(t.timers))
	for _, e := range t.timers {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out
}

// Stop cancels every scheduled callback and refuses new ones.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, e := range t.timers {
		e.timer.Stop()
		delete(t.timers, id)
	}
	t.stopped = true
	slog.Debug("Timer.Stop: stopped all timers")
}
