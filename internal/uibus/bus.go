// Package uibus owns the page-wide UI signals: the shared loading indicator,
// the toast notification channel and the stream of state changes pushed to the
// browser.
//
// The loader is a counting semaphore (visible while at least one holder has
// not released it). Notifications are queued and shown one at a time by a
// single display loop, so two toasts never race on the same dismiss timer.
package uibus

import (
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/FarmGenius/internal/models"
	"github.com/google/uuid"
)

// SignalType names what changed on the page.
type SignalType string

const (
	SignalLoader      SignalType = "loader"
	SignalToast       SignalType = "toast"
	SignalToastHidden SignalType = "toast_hidden"
	SignalView        SignalType = "view"
	SignalNav         SignalType = "nav"
	SignalModal       SignalType = "modal"
	SignalSession     SignalType = "session"
	SignalTheme       SignalType = "theme"
	SignalLanguage    SignalType = "language"
	SignalReload      SignalType = "reload"
	SignalChat        SignalType = "chat"
	SignalChart       SignalType = "chart"
	SignalNews        SignalType = "news"
	SignalResult      SignalType = "result"
)

// Signal is one UI change. Payload is JSON-encodable.
type Signal struct {
	Seq     uint64     `json:"seq"`
	Type    SignalType `json:"type"`
	At      time.Time  `json:"at"`
	Payload any        `json:"payload,omitempty"`
}

// LoaderPayload accompanies SignalLoader.
type LoaderPayload struct {
	Visible bool `json:"visible"`
}

// Defaults mirror the page: toasts stay up for five seconds.
const (
	DefaultToastDuration    = 5 * time.Second
	DefaultSubscriberBuffer = 64
)

// Option configures a Bus.
type Option func(*Bus)

// WithToastDuration sets how long each toast stays visible.
func WithToastDuration(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.toastDuration = d
		}
	}
}

// Bus is the single owner of the loader and the toast channel of one page.
type Bus struct {
	mu            sync.Mutex
	loaderCount   int
	queue         []models.Notification
	current       *models.Notification
	subs          map[int]chan Signal
	nextSub       int
	seq           uint64
	toastDuration time.Duration
	closed        bool

	wake    chan struct{}
	dismiss chan string
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewBus creates a bus and starts its notification display loop.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs:          make(map[int]chan Signal),
		toastDuration: DefaultToastDuration,
		wake:          make(chan struct{}, 1),
		dismiss:       make(chan string, 1),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	go b.displayLoop()
	return b
}

// ShowLoader increments the loader count and returns the matching release
// function. Release is idempotent, so a holder can never decrement twice.
func (b *Bus) ShowLoader() (release func()) {
	b.mu.Lock()
	b.loaderCount++
	if b.loaderCount == 1 {
		b.publishLocked(SignalLoader, LoaderPayload{Visible: true})
	}
	count := b.loaderCount
	b.mu.Unlock()
	slog.Debug("Bus.ShowLoader", "count", count)

	var once sync.Once
	return func() {
		once.Do(b.releaseLoader)
	}
}

func (b *Bus) releaseLoader() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loaderCount == 0 {
		slog.Warn("Bus.releaseLoader: loader count already zero")
		return
	}
	b.loaderCount--
	if b.loaderCount == 0 {
		b.publishLocked(SignalLoader, LoaderPayload{Visible: false})
	}
	slog.Debug("Bus.releaseLoader", "count", b.loaderCount)
}

// LoaderVisible reports whether any holder still keeps the loader shown.
func (b *Bus) LoaderVisible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaderCount > 0
}

// LoaderCount returns the number of outstanding loader holders.
func (b *Bus) LoaderCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaderCount
}

// Notify queues a toast and returns its id. Toasts are shown in order.
func (b *Bus) Notify(n models.Notification) string {
	if n.Level == "" {
		n.Level = models.LevelInfo
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		slog.Warn("Bus.Notify: bus closed, dropping notification", "message", n.Message)
		return ""
	}
	b.queue = append(b.queue, n)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
	slog.Debug("Bus.Notify: queued", "id", n.ID, "level", n.Level, "message", n.Message)
	return n.ID
}

// Dismiss hides the toast currently on screen, if any.
func (b *Bus) Dismiss() {
	b.mu.Lock()
	if b.current == nil {
		b.mu.Unlock()
		return
	}
	id := b.current.ID
	b.mu.Unlock()
	for {
		select {
		case b.dismiss <- id:
			return
		default:
		}
		// A stale id from an earlier toast fills the slot; discard it.
		select {
		case <-b.dismiss:
		default:
		}
	}
}

// Current returns the toast on screen.
func (b *Bus) Current() (models.Notification, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return models.Notification{}, false
	}
	return *b.current, true
}

// Pending returns the number of queued toasts not yet shown.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Publish fans a signal out to every subscriber.
func (b *Bus) Publish(t SignalType, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publishLocked(t, payload)
}

func (b *Bus) publishLocked(t SignalType, payload any) {
	if b.closed {
		return
	}
	b.seq++
	sig := Signal{Seq: b.seq, Type: t, At: time.Now(), Payload: payload}
	for id, ch := range b.subs {
		select {
		case ch <- sig:
		default:
			slog.Debug("Bus.publish: subscriber buffer full, dropping signal", "subscriber", id, "type", t)
		}
	}
}

// Subscribe registers a listener. The returned cancel function closes the
// channel; it is safe to call more than once.
func (b *Bus) Subscribe(buffer int) (<-chan Signal, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	ch := make(chan Signal, buffer)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Close stops the display loop and closes every subscriber channel.
func (b *Bus) Close() {
	b.once.Do(func() {
		close(b.stop)
		<-b.done
		b.mu.Lock()
		defer b.mu.Unlock()
		b.closed = true
		for id, ch := range b.subs {
			delete(b.subs, id)
			close(ch)
		}
		b.queue = nil
		slog.Debug("Bus.Close: closed")
	})
}

func (b *Bus) displayLoop() {
	defer close(b.done)
	for {
		n, ok := b.popNext()
		if !ok {
			select {
			case <-b.wake:
				continue
			case <-b.stop:
				return
			}
		}

		b.drainDismiss()
		b.mu.Lock()
		b.current = &n
		b.publishLocked(SignalToast, n)
		b.mu.Unlock()

		timer := time.NewTimer(b.toastDuration)
		stopped := false
		for waiting := true; waiting; {
			select {
			case <-timer.C:
				waiting = false
			case id := <-b.dismiss:
				if id == n.ID {
					timer.Stop()
					waiting = false
				}
			case <-b.stop:
				timer.Stop()
				waiting = false
				stopped = true
			}
		}

		b.mu.Lock()
		b.current = nil
		b.publishLocked(SignalToastHidden, models.Notification{ID: n.ID, Level: n.Level, Message: n.Message})
		b.mu.Unlock()
		if stopped {
			return
		}
	}
}

// drainDismiss drops dismiss requests left over from toasts already hidden.
func (b *Bus) drainDismiss() {
	for {
		select {
		case id := <-b.dismiss:
			slog.Debug("Bus.drainDismiss: dropping stale dismiss", "id", id)
		default:
			return
		}
	}
}

func (b *Bus) popNext() (models.Notification, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return models.Notification{}, false
	}
	n := b.queue[0]
	b.queue = b.queue[1:]
	return n, true
}
