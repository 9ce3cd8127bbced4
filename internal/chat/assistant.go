package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/FarmGenius/internal/action"
	"github.com/BTreeMap/FarmGenius/internal/models"
	"github.com/BTreeMap/FarmGenius/internal/responder"
	"github.com/BTreeMap/FarmGenius/internal/uibus"
	"github.com/BTreeMap/FarmGenius/internal/util"
)

// DefaultThinkingDelay is how long the bot "types" before answering.
const DefaultThinkingDelay = time.Second

// GeneratedCategory marks bot turns written by the fallback model.
const GeneratedCategory = "generated"

// Completer answers questions the rule table does not cover.
// *genai.Client satisfies it.
type Completer interface {
	Answer(ctx context.Context, question string) (string, error)
}

// Publisher receives chat turns as they are appended. *uibus.Bus satisfies it.
type Publisher interface {
	Publish(t uibus.SignalType, payload any)
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithThinkingDelay sets the pause before each bot turn.
func WithThinkingDelay(d time.Duration) Option {
	return func(a *Assistant) {
		if d >= 0 {
			a.delay = d
		}
	}
}

// WithFallback lets a model answer messages that match no rule.
func WithFallback(c Completer) Option {
	return func(a *Assistant) {
		a.fallback = c
	}
}

// WithPublisher pushes each new turn to the page.
func WithPublisher(p Publisher) Option {
	return func(a *Assistant) {
		a.pub = p
	}
}

// Assistant answers every user turn with exactly one bot turn after the
// thinking delay, unless the conversation closes first.
type Assistant struct {
	conv      *Conversation
	responder *responder.Responder
	timer     *action.Timer
	delay     time.Duration
	fallback  Completer
	pub       Publisher

	mu      sync.Mutex
	replies map[string]chan models.ChatTurn
}

// NewAssistant creates an assistant over conv. Replies are scheduled on timer.
func NewAssistant(conv *Conversation, r *responder.Responder, timer *action.Timer, opts ...Option) *Assistant {
	a := &Assistant{
		conv:      conv,
		responder: r,
		timer:     timer,
		delay:     DefaultThinkingDelay,
		replies:   make(map[string]chan models.ChatTurn),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Conversation returns the underlying conversation.
func (a *Assistant) Conversation() *Conversation { return a.conv }

// Send appends the user's message and schedules the bot reply. The returned
// channel yields the bot turn, or is closed empty if the conversation closes
// before the reply lands.
func (a *Assistant) Send(ctx context.Context, text string) (models.ChatTurn, <-chan models.ChatTurn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.ChatTurn{}, nil, &models.ValidationError{Kind: models.MissingField, Field: "message", Message: "Please type a message"}
	}
	user := models.ChatTurn{ID: util.NewTurnID(), Sender: models.SenderUser, Text: text, Timestamp: time.Now()}
	if err := a.conv.Append(user); err != nil {
		return models.ChatTurn{}, nil, err
	}
	a.publish(user)

	out := make(chan models.ChatTurn, 1)
	// Hold the lock across scheduling so a zero delay cannot fire before the
	// reply channel is registered.
	a.mu.Lock()
	id := a.timer.ScheduleAfter("chat reply", a.delay, func() {
		a.reply(context.WithoutCancel(ctx), text, out)
	})
	if id == "" {
		a.mu.Unlock()
		close(out)
		return user, out, nil
	}
	a.replies[id] = out
	a.mu.Unlock()
	slog.Debug("Assistant.Send: reply scheduled", "turn", user.ID, "timer", id)
	return user, out, nil
}

func (a *Assistant) reply(ctx context.Context, question string, out chan models.ChatTurn) {
	a.mu.Lock()
	for id, ch := range a.replies {
		if ch == out {
			delete(a.replies, id)
		}
	}
	a.mu.Unlock()
	defer close(out)

	r := a.responder.Respond(question)
	turn := models.ChatTurn{
		Sender:      models.SenderBot,
		Text:        r.Text,
		Category:    r.Category,
		Suggestions: r.Suggestions,
	}
	if r.Category == responder.FallbackCategory && a.fallback != nil {
		if answer, err := a.fallback.Answer(ctx, question); err != nil {
			slog.Warn("Assistant.reply: fallback model failed, using canned reply", "error", err)
		} else if answer != "" {
			turn.Text = answer
			turn.Category = GeneratedCategory
		}
	}
	turn.ID = util.NewTurnID()
	turn.Timestamp = time.Now()

	if err := a.conv.Append(turn); err != nil {
		slog.Debug("Assistant.reply: conversation closed, dropping reply")
		return
	}
	a.publish(turn)
	out <- turn
}

// Close ends the conversation and drops replies that have not landed.
func (a *Assistant) Close() {
	a.conv.Close()
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, ch := range a.replies {
		if a.timer.Cancel(id) {
			close(ch)
		}
		delete(a.replies, id)
	}
}

func (a *Assistant) publish(turn models.ChatTurn) {
	if a.pub != nil {
		a.pub.Publish(uibus.SignalChat, turn)
	}
}
