package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BTreeMap/FarmGenius/internal/action"
	"github.com/BTreeMap/FarmGenius/internal/models"
	"github.com/BTreeMap/FarmGenius/internal/responder"
	"github.com/BTreeMap/FarmGenius/internal/uibus"
)

type fakeCompleter struct {
	answer string
	err    error
	asked  []string
}

func (f *fakeCompleter) Answer(_ context.Context, q string) (string, error) {
	f.asked = append(f.asked, q)
	return f.answer, f.err
}

func newTestAssistant(t *testing.T, opts ...Option) (*Assistant, *action.Timer) {
	t.Helper()
	timer := action.NewTimer()
	t.Cleanup(timer.Stop)
	opts = append([]Option{WithThinkingDelay(5 * time.Millisecond)}, opts...)
	return NewAssistant(NewConversation(), responder.New(nil), timer, opts...), timer
}

func awaitReply(t *testing.T, ch <-chan models.ChatTurn) (models.ChatTurn, bool) {
	t.Helper()
	select {
	case turn, ok := <-ch:
		return turn, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bot reply")
		return models.ChatTurn{}, false
	}
}

func TestEveryUserTurnGetsOneBotTurn(t *testing.T) {
	a, _ := newTestAssistant(t)
	ctx := context.Background()

	user, reply, err := a.Send(ctx, "What's the weather today?")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if user.Sender != models.SenderUser || user.Text != "What's the weather today?" {
		t.Errorf("unexpected user turn %+v", user)
	}
	bot, ok := awaitReply(t, reply)
	if !ok {
		t.Fatal("reply channel closed without a turn")
	}
	if bot.Sender != models.SenderBot || bot.Category != "weather" || len(bot.Suggestions) != 4 {
		t.Errorf("unexpected bot turn %+v", bot)
	}

	turns := a.Conversation().Turns()
	if len(turns) != 2 || turns[0].ID != user.ID || turns[1].ID != bot.ID {
		t.Fatalf("unexpected conversation %+v", turns)
	}
	if turns[0].ID >= turns[1].ID {
		t.Errorf("turn ids should sort in append order")
	}
}

func TestReplyWaitsThinkingDelay(t *testing.T) {
	a, _ := newTestAssistant(t, WithThinkingDelay(40*time.Millisecond))
	start := time.Now()
	_, reply, _ := a.Send(context.Background(), "thank you")
	if a.Conversation().Len() != 1 {
		t.Error("bot answered before the thinking delay")
	}
	awaitReply(t, reply)
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("reply after %v, want at least 40ms", elapsed)
	}
}

func TestEmptyMessageRejected(t *testing.T) {
	a, _ := newTestAssistant(t)
	_, _, err := a.Send(context.Background(), "   ")
	if ve, ok := models.IsValidation(err); !ok || ve.Kind != models.MissingField {
		t.Errorf("expected MissingField, got %v", err)
	}
	if a.Conversation().Len() != 0 {
		t.Error("empty message should not be appended")
	}
}

func TestCloseDropsPendingReply(t *testing.T) {
	a, _ := newTestAssistant(t, WithThinkingDelay(time.Hour))
	_, reply, _ := a.Send(context.Background(), "hello")
	a.Close()
	if _, ok := awaitReply(t, reply); ok {
		t.Error("expected closed channel with no reply")
	}
	if _, _, err := a.Send(context.Background(), "hello again"); !errors.Is(err, models.ErrPageClosed) {
		t.Errorf("expected ErrPageClosed after Close, got %v", err)
	}
	if a.Conversation().Len() != 1 {
		t.Errorf("expected only the first user turn, got %d turns", a.Conversation().Len())
	}
}

func TestFallbackModelAnswersUnmatched(t *testing.T) {
	fc := &fakeCompleter{answer: "Try intercropping pulses."}
	a, _ := newTestAssistant(t, WithFallback(fc))

	_, reply, _ := a.Send(context.Background(), "xyzzy")
	bot, _ := awaitReply(t, reply)
	if bot.Category != GeneratedCategory || bot.Text != "Try intercropping pulses." {
		t.Errorf("unexpected bot turn %+v", bot)
	}
	if len(bot.Suggestions) != 4 {
		t.Errorf("generated answers keep the default suggestions, got %v", bot.Suggestions)
	}

	_, reply, _ = a.Send(context.Background(), "thank you")
	awaitReply(t, reply)
	if len(fc.asked) != 1 {
		t.Errorf("model should only see unmatched messages, asked %v", fc.asked)
	}
}

func TestFallbackModelErrorUsesCannedReply(t *testing.T) {
	a, _ := newTestAssistant(t, WithFallback(&fakeCompleter{err: errors.New("quota")}))
	_, reply, _ := a.Send(context.Background(), "xyzzy")
	bot, _ := awaitReply(t, reply)
	if bot.Category != responder.FallbackCategory {
		t.Errorf("expected canned fallback, got %+v", bot)
	}
}

func TestTurnsArePublished(t *testing.T) {
	bus := uibus.NewBus()
	defer bus.Close()
	ch, cancel := bus.Subscribe(8)
	defer cancel()

	a, _ := newTestAssistant(t, WithPublisher(bus))
	_, reply, _ := a.Send(context.Background(), "namaste")
	awaitReply(t, reply)

	var senders []models.Sender
	for len(senders) < 2 {
		select {
		case sig := <-ch:
			if sig.Type == uibus.SignalChat {
				senders = append(senders, sig.Payload.(models.ChatTurn).Sender)
			}
		case <-time.After(time.Second):
			t.Fatalf("expected two chat signals, got %v", senders)
		}
	}
	if senders[0] != models.SenderUser || senders[1] != models.SenderBot {
		t.Errorf("unexpected publish order %v", senders)
	}
}
