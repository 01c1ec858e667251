package turn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aivorahq/aivora/backend/internal/gateway"
	"github.com/aivorahq/aivora/backend/internal/model/chat"
	"github.com/aivorahq/aivora/backend/internal/model/persona"
	"github.com/aivorahq/aivora/backend/internal/service/history"
	sosService "github.com/aivorahq/aivora/backend/internal/service/sos"
)

type stubGateway struct {
	text  string
	err   error
	calls int64
}

func (s *stubGateway) Complete(_ context.Context, _ string) (gateway.Result, error) {
	atomic.AddInt64(&s.calls, 1)
	if s.err != nil {
		return gateway.Result{}, s.err
	}
	return gateway.Result{Text: s.text}, nil
}

func setup(t *testing.T, gw gateway.Gateway) (*Orchestrator, *sosService.Service, chat.Conversation) {
	t.Helper()

	sosSvc := sosService.NewService(sosService.NewMemoryStore(), nil, nil)
	o := New(persona.NewMemoryStore(persona.Seed()), gw, history.NewMemoryStore(), sosSvc, nil, nil, nil)

	conv, err := o.StartConversation(context.Background(), "user-1", "helpful")
	if err != nil {
		t.Fatalf("start conversation: %v", err)
	}
	return o, sosSvc, conv
}

func TestSubmitRejectsBlankInput(t *testing.T) {
	gw := &stubGateway{text: "unused"}
	o, _, conv := setup(t, gw)

	_, err := o.Submit(context.Background(), Input{ConversationID: conv.ID, Text: "   "})
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}

	seq, _ := o.Sequence(conv.ID)
	if len(seq) != 0 {
		t.Fatalf("rejected input must leave no turns, got %d", len(seq))
	}
	if atomic.LoadInt64(&gw.calls) != 0 {
		t.Fatal("rejected input must not reach the gateway")
	}
}

func TestSubmitHappyPath(t *testing.T) {
	gw := &stubGateway{text: `{"reply":"Glad to help!","emotion":"happy"}`}
	o, sosSvc, conv := setup(t, gw)

	res, err := o.Submit(context.Background(), Input{ConversationID: conv.ID, Text: "hello"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.State != StateCompleted {
		t.Fatalf("expected completed state, got %q", res.State)
	}
	if res.AssistantTurn.Text != "Glad to help!" {
		t.Fatalf("unexpected assistant text %q", res.AssistantTurn.Text)
	}

	seq, _ := o.Sequence(conv.ID)
	if len(seq) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(seq))
	}
	if seq[0].Sender != chat.SenderUser || seq[1].Sender != chat.SenderAssistant {
		t.Fatalf("turns out of order: %q then %q", seq[0].Sender, seq[1].Sender)
	}
	if seq[0].CreatedAt.After(seq[1].CreatedAt) {
		t.Fatal("user turn must not be newer than assistant turn")
	}

	alerts, _ := sosSvc.List(context.Background(), "user-1")
	if len(alerts) != 0 {
		t.Fatalf("happy reply must not raise alerts, got %d", len(alerts))
	}
}

func TestSubmitGatewayFailure(t *testing.T) {
	gw := &stubGateway{err: errors.New("upstream down")}
	o, sosSvc, conv := setup(t, gw)

	res, err := o.Submit(context.Background(), Input{ConversationID: conv.ID, Text: "hello"})
	if err == nil {
		t.Fatal("expected error")
	}
	if res.State != StateFailed {
		t.Fatalf("expected failed state, got %q", res.State)
	}
	if res.AssistantTurn.Text != ErrorTurnText {
		t.Fatalf("expected fixed error text, got %q", res.AssistantTurn.Text)
	}

	seq, _ := o.Sequence(conv.ID)
	if len(seq) != 2 {
		t.Fatalf("expected user turn plus error turn, got %d turns", len(seq))
	}
	if seq[1].Text != ErrorTurnText {
		t.Fatalf("error turn missing, got %q", seq[1].Text)
	}

	alerts, _ := sosSvc.List(context.Background(), "user-1")
	if len(alerts) != 0 {
		t.Fatalf("failed completion must not raise alerts, got %d", len(alerts))
	}
}

func TestSubmitDistressRaisesSingleAlert(t *testing.T) {
	gw := &stubGateway{text: `{"reply":"Please stay with me.","emotion":"panic"}`}
	o, sosSvc, conv := setup(t, gw)

	res, err := o.Submit(context.Background(), Input{ConversationID: conv.ID, Text: "I can't breathe"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.SOSAlertID == "" {
		t.Fatal("distress must produce an alert id")
	}

	alerts, _ := sosSvc.List(context.Background(), "user-1")
	if len(alerts) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(alerts))
	}
	if alerts[0].Location != nil {
		t.Fatal("emotion-triggered alert must not carry a location")
	}
	if alerts[0].DetectedEmotion != "panic" {
		t.Fatalf("unexpected detected emotion %q", alerts[0].DetectedEmotion)
	}
}

func TestSubmitCalmRaisesNoAlert(t *testing.T) {
	gw := &stubGateway{text: `{"reply":"All good.","emotion":"calm"}`}
	o, sosSvc, conv := setup(t, gw)

	if _, err := o.Submit(context.Background(), Input{ConversationID: conv.ID, Text: "feeling fine"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	alerts, _ := sosSvc.List(context.Background(), "user-1")
	if len(alerts) != 0 {
		t.Fatalf("calm reply must not raise alerts, got %d", len(alerts))
	}
}

func TestSubmitFilePrompt(t *testing.T) {
	gw := &stubGateway{text: `{"reply":"Nice file.","emotion":"neutral"}`}
	o, _, conv := setup(t, gw)

	res, err := o.Submit(context.Background(), Input{
		ConversationID: conv.ID,
		FileReference:  "https://cdn.example.com/report.pdf",
		FileName:       "report.pdf",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(res.UserTurn.Text, "report.pdf") {
		t.Fatalf("file turn text missing file name: %q", res.UserTurn.Text)
	}
}

func TestSubmitPersistsAndReconciles(t *testing.T) {
	gw := &stubGateway{text: `{"reply":"Hi.","emotion":"neutral"}`}
	o, _, conv := setup(t, gw)

	if _, err := o.Submit(context.Background(), Input{ConversationID: conv.ID, Text: "hello"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	o.Close()

	seq, _ := o.Sequence(conv.ID)
	for _, turn := range seq {
		if turn.ID == "" {
			t.Fatalf("turn %q was not reconciled after persistence", turn.TempID)
		}
		if !strings.HasPrefix(turn.TempID, "t_") {
			t.Fatalf("temp id missing prefix: %q", turn.TempID)
		}
	}
}

func TestReconcileIdempotent(t *testing.T) {
	o, _, conv := setup(t, &stubGateway{text: "x"})

	turn := chat.Turn{TempID: "t_abc", ConversationID: conv.ID, Sender: chat.SenderUser, Text: "hi"}
	o.append(conv.ID, turn)

	o.Reconcile(conv.ID, "t_abc", "real-1")
	o.Reconcile(conv.ID, "t_abc", "real-2")

	seq, _ := o.Sequence(conv.ID)
	if seq[0].ID != "real-1" {
		t.Fatalf("second reconcile must be a no-op, got id %q", seq[0].ID)
	}
}

func TestReactionAndDelete(t *testing.T) {
	o, _, conv := setup(t, &stubGateway{text: "x"})
	o.append(conv.ID, chat.Turn{TempID: "t_1", ConversationID: conv.ID, Sender: chat.SenderUser, Text: "hi"})

	if !o.ToggleReaction(conv.ID, "t_1", "👍") {
		t.Fatal("reaction on existing turn must succeed")
	}
	seq, _ := o.Sequence(conv.ID)
	if seq[0].Reactions["👍"] != 1 {
		t.Fatalf("unexpected reaction count %d", seq[0].Reactions["👍"])
	}

	if o.ToggleReaction(conv.ID, "missing", "👍") {
		t.Fatal("reaction on missing turn must fail")
	}

	if !o.DeleteTurn(conv.ID, "t_1") {
		t.Fatal("delete of existing turn must succeed")
	}
	seq, _ = o.Sequence(conv.ID)
	if len(seq) != 0 {
		t.Fatalf("expected empty sequence after delete, got %d", len(seq))
	}
}

func TestSubscribeReceivesTurnEvents(t *testing.T) {
	gw := &stubGateway{text: `{"reply":"Hey.","emotion":"neutral"}`}
	o, _, conv := setup(t, gw)

	events, cancel := o.Subscribe(conv.ID)
	defer cancel()

	if _, err := o.Submit(context.Background(), Input{ConversationID: conv.ID, Text: "hello"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	var turnEvents int
	for drained := false; !drained; {
		select {
		case ev := <-events:
			if ev.Type == EventTurn {
				turnEvents++
			}
		default:
			drained = true
		}
	}
	if turnEvents != 2 {
		t.Fatalf("expected 2 turn events, got %d", turnEvents)
	}
}

func TestStartConversationUnknownPersona(t *testing.T) {
	o, _, _ := setup(t, &stubGateway{text: "x"})
	if _, err := o.StartConversation(context.Background(), "user-1", "ghost"); !errors.Is(err, ErrPersonaNotFound) {
		t.Fatalf("expected ErrPersonaNotFound, got %v", err)
	}
}

func TestSubmitWithoutGateway(t *testing.T) {
	sosSvc := sosService.NewService(sosService.NewMemoryStore(), nil, nil)
	o := New(persona.NewMemoryStore(persona.Seed()), nil, history.NewMemoryStore(), sosSvc, nil, nil, nil)
	conv, err := o.StartConversation(context.Background(), "user-1", "helpful")
	if err != nil {
		t.Fatalf("start conversation: %v", err)
	}

	res, err := o.Submit(context.Background(), Input{ConversationID: conv.ID, Text: "hello"})
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
	if res.State != StateFailed {
		t.Fatalf("expected failed state, got %q", res.State)
	}
}

func TestClassifyDirectRecordsBothTurns(t *testing.T) {
	gw := &stubGateway{text: `{"reply":"Stay with me.","emotion":"panic"}`}
	sosSvc := sosService.NewService(sosService.NewMemoryStore(), nil, nil)
	store := history.NewMemoryStore()
	o := New(persona.NewMemoryStore(persona.Seed()), gw, store, sosSvc, nil, nil, nil)

	res, err := o.ClassifyDirect(context.Background(), "user-1", "help me")
	if err != nil {
		t.Fatalf("classify direct: %v", err)
	}
	if res.State != StateCompleted {
		t.Fatalf("expected completed state, got %q", res.State)
	}
	if res.AssistantTurn.Text != "Stay with me." {
		t.Fatalf("unexpected assistant text %q", res.AssistantTurn.Text)
	}

	// Both turns are stored before ClassifyDirect returns.
	turns, err := store.List(context.Background(), "user-1", DirectConversationID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 stored turns, got %d", len(turns))
	}
	if turns[0].Sender != chat.SenderUser || turns[0].Text != "help me" {
		t.Fatalf("unexpected first turn %+v", turns[0])
	}
	if turns[1].Sender != chat.SenderAssistant || turns[1].Emotion != "panic" {
		t.Fatalf("unexpected second turn %+v", turns[1])
	}

	alerts, _ := sosSvc.List(context.Background(), "user-1")
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Location != nil {
		t.Fatal("classified alert must not carry a location")
	}
	if res.SOSAlertID == "" {
		t.Fatal("result must carry the alert id")
	}
}

func TestClassifyDirectRejectsBlankInput(t *testing.T) {
	gw := &stubGateway{text: "unused"}
	sosSvc := sosService.NewService(sosService.NewMemoryStore(), nil, nil)
	store := history.NewMemoryStore()
	o := New(persona.NewMemoryStore(persona.Seed()), gw, store, sosSvc, nil, nil, nil)

	if _, err := o.ClassifyDirect(context.Background(), "user-1", "   "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	turns, _ := store.List(context.Background(), "user-1", DirectConversationID)
	if len(turns) != 0 {
		t.Fatalf("rejected input must store nothing, got %d turns", len(turns))
	}
}

func TestClassifyDirectWithoutGateway(t *testing.T) {
	sosSvc := sosService.NewService(sosService.NewMemoryStore(), nil, nil)
	o := New(persona.NewMemoryStore(persona.Seed()), nil, history.NewMemoryStore(), sosSvc, nil, nil, nil)

	res, err := o.ClassifyDirect(context.Background(), "user-1", "hello")
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
	if res.State != StateFailed {
		t.Fatalf("expected failed state, got %q", res.State)
	}
}

func TestClassifyDirectGatewayFailureStoresUserTurn(t *testing.T) {
	gw := &stubGateway{err: errors.New("upstream down")}
	sosSvc := sosService.NewService(sosService.NewMemoryStore(), nil, nil)
	store := history.NewMemoryStore()
	o := New(persona.NewMemoryStore(persona.Seed()), gw, store, sosSvc, nil, nil, nil)

	res, err := o.ClassifyDirect(context.Background(), "user-1", "hello")
	if err == nil {
		t.Fatal("expected an error")
	}
	if res.State != StateFailed {
		t.Fatalf("expected failed state, got %q", res.State)
	}

	turns, _ := store.List(context.Background(), "user-1", DirectConversationID)
	if len(turns) != 1 {
		t.Fatalf("expected only the user turn, got %d", len(turns))
	}
}
