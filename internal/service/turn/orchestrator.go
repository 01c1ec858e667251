// Package turn implements the conversation pipeline: a validated user input
// becomes a persisted user turn, a completion request, a persisted assistant
// turn, and an SOS alert when the classified emotion is a distress label.
package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aivorahq/aivora/backend/internal/emotion"
	"github.com/aivorahq/aivora/backend/internal/gateway"
	"github.com/aivorahq/aivora/backend/internal/model/chat"
	"github.com/aivorahq/aivora/backend/internal/model/persona"
	"github.com/aivorahq/aivora/backend/internal/observability/metrics"
	"github.com/aivorahq/aivora/backend/internal/prompt"
	"github.com/aivorahq/aivora/backend/internal/service/history"
	"github.com/aivorahq/aivora/backend/internal/service/sos"
	"github.com/aivorahq/aivora/backend/internal/service/speech"
)

// ErrorTurnText is the fixed assistant-styled message appended when a
// submission fails. Wording is part of the product surface.
const ErrorTurnText = "Network error or server error. Please try again."

var (
	ErrEmptyInput           = errors.New("turn: input is neither non-blank text nor a file reference")
	ErrConversationNotFound = errors.New("turn: conversation not found")
	ErrPersonaNotFound      = errors.New("turn: persona not found")
	ErrGatewayUnavailable   = errors.New("turn: no completion provider configured")
)

// State of one turn submission. Short-lived, never persisted.
type State string

const (
	StateIdle               State = "idle"
	StateSubmitted          State = "submitted"
	StateAwaitingCompletion State = "awaiting_completion"
	StateCompleted          State = "completed"
	StateFailed             State = "failed"
)

// Input is one raw user submission.
type Input struct {
	ConversationID string
	Text           string
	FileReference  string
	FileName       string
}

// Result reports the outcome of a submission.
type Result struct {
	State         State
	UserTurn      chat.Turn
	AssistantTurn chat.Turn
	Emotion       emotion.Label
	SOSAlertID    string
}

// Event is published to conversation subscribers as the sequence changes.
type Event struct {
	Type           string     `json:"type"`
	ConversationID string     `json:"conversationId"`
	Turn           *chat.Turn `json:"turn,omitempty"`
	Emotion        string     `json:"emotion,omitempty"`
	State          State      `json:"state,omitempty"`
}

// Event types.
const (
	EventTurn    = "turn"
	EventEmotion = "emotion"
	EventState   = "state"
)

// Orchestrator owns the in-memory turn sequences and is the only writer of
// turns and SOS alerts.
type Orchestrator struct {
	mu            sync.RWMutex
	conversations map[string]chat.Conversation
	sequences     map[string][]chat.Turn
	subscribers   map[string]map[int]chan Event
	nextSubID     int

	personas   persona.Store
	classifier *gateway.Classifier
	store      history.Store
	sosSvc     *sos.Service
	speaker    speech.Synthesizer
	logger     *slog.Logger
	metrics    *metrics.Metrics

	wg sync.WaitGroup
}

// New wires the orchestrator to its collaborators. speaker may be nil.
func New(personas persona.Store, gw gateway.Gateway, store history.Store, sosSvc *sos.Service, speaker speech.Synthesizer, logger *slog.Logger, m *metrics.Metrics) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if speaker == nil {
		speaker = speech.Noop{}
	}
	var classifier *gateway.Classifier
	if gw != nil {
		classifier = gateway.NewClassifier(gw)
	}
	return &Orchestrator{
		conversations: make(map[string]chat.Conversation),
		sequences:     make(map[string][]chat.Turn),
		subscribers:   make(map[string]map[int]chan Event),
		personas:      personas,
		classifier:    classifier,
		store:         store,
		sosSvc:        sosSvc,
		speaker:       speaker,
		logger:        logger,
		metrics:       m,
	}
}

// StartConversation provisions a conversation bound to a persona.
func (o *Orchestrator) StartConversation(_ context.Context, userID, personaID string) (chat.Conversation, error) {
	if _, ok := o.personas.FindByID(personaID); !ok {
		return chat.Conversation{}, ErrPersonaNotFound
	}

	conv := chat.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		PersonaID: personaID,
		CreatedAt: time.Now().UTC(),
	}

	o.mu.Lock()
	o.conversations[conv.ID] = conv
	o.sequences[conv.ID] = make([]chat.Turn, 0, 16)
	o.mu.Unlock()

	return conv, nil
}

// GetConversation retrieves a conversation by identifier.
func (o *Orchestrator) GetConversation(_ context.Context, conversationID string) (chat.Conversation, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	conv, ok := o.conversations[conversationID]
	if !ok {
		return chat.Conversation{}, ErrConversationNotFound
	}
	return conv, nil
}

// Sequence returns a copy of the conversation's in-memory turn sequence.
func (o *Orchestrator) Sequence(conversationID string) ([]chat.Turn, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	seq, ok := o.sequences[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	copied := make([]chat.Turn, len(seq))
	copy(copied, seq)
	return copied, nil
}

// Submit runs the pipeline for one user input. Steps within a submission are
// strictly sequential; distinct submissions are independent and their
// completions may interleave.
func (o *Orchestrator) Submit(ctx context.Context, in Input) (Result, error) {
	// Validate. A rejected input has no observable effect.
	isFile := strings.TrimSpace(in.FileReference) != ""
	if strings.TrimSpace(in.Text) == "" && !isFile {
		return Result{State: StateIdle}, ErrEmptyInput
	}

	conv, err := o.GetConversation(ctx, in.ConversationID)
	if err != nil {
		return Result{State: StateIdle}, err
	}
	p, ok := o.personas.FindByID(conv.PersonaID)
	if !ok {
		return Result{State: StateIdle}, ErrPersonaNotFound
	}

	// Submitted: optimistic append before any network round-trip.
	userTurn := chat.Turn{
		TempID:         tempID(),
		ConversationID: conv.ID,
		Sender:         chat.SenderUser,
		Text:           in.Text,
		FileReference:  in.FileReference,
		CreatedAt:      time.Now().UTC(),
	}
	if isFile {
		userTurn.Text = fmt.Sprintf("Uploaded file: %s", prompt.FileNote(in.FileName, in.FileReference))
	}
	o.append(conv.ID, userTurn)
	o.metrics.ObserveTurn(chat.SenderUser, "ok")
	o.persistAsync(ctx, conv.UserID, userTurn)

	// Build the prompt from the active persona and the raw input.
	var built string
	if isFile {
		built = prompt.Build(p.PromptPrefix, "", prompt.FileNote(in.FileName, in.FileReference))
	} else {
		built = prompt.Build(p.PromptPrefix, in.Text, "")
	}

	// AwaitingCompletion: no cancellation once entered; the call runs to
	// success or failure even if the submitting client goes away.
	completionCtx, cancelCompletion := context.WithTimeout(context.WithoutCancel(ctx), 90*time.Second)
	defer cancelCompletion()

	start := time.Now()
	var res gateway.Result
	if o.classifier == nil {
		err = ErrGatewayUnavailable
	} else {
		res, err = o.classifier.Classify(completionCtx, built)
	}
	if err != nil {
		o.metrics.ObserveCompletion("error", time.Since(start).Seconds())
		o.logger.Error("completion failed",
			"conversation_id", conv.ID,
			"error", err.Error(),
		)

		errorTurn := chat.Turn{
			TempID:         tempID(),
			ConversationID: conv.ID,
			Sender:         chat.SenderAssistant,
			Text:           ErrorTurnText,
			CreatedAt:      time.Now().UTC(),
		}
		o.append(conv.ID, errorTurn)
		o.metrics.ObserveTurn(chat.SenderAssistant, "error")
		o.publish(conv.ID, Event{Type: EventState, ConversationID: conv.ID, State: StateFailed})
		return Result{State: StateFailed, UserTurn: userTurn, AssistantTurn: errorTurn}, err
	}
	o.metrics.ObserveCompletion("ok", time.Since(start).Seconds())

	assistantTurn := chat.Turn{
		TempID:         tempID(),
		ConversationID: conv.ID,
		Sender:         chat.SenderAssistant,
		Text:           res.Text,
		Emotion:        string(res.Emotion),
		CreatedAt:      time.Now().UTC(),
	}
	o.append(conv.ID, assistantTurn)
	o.metrics.ObserveTurn(chat.SenderAssistant, "ok")
	o.persistAsync(ctx, conv.UserID, assistantTurn)

	result := Result{
		State:         StateCompleted,
		UserTurn:      userTurn,
		AssistantTurn: assistantTurn,
		Emotion:       res.Emotion,
	}

	// Classified distress raises an SOS with no geolocation; only the manual
	// trigger ever supplies coordinates.
	if emotion.IsDistress(res.Emotion) {
		alertID, sosErr := o.sosSvc.Raise(completionCtx, conv.UserID, nil, string(res.Emotion))
		if sosErr != nil {
			o.logger.Error("failed to raise sos alert",
				"conversation_id", conv.ID,
				"error", sosErr.Error(),
			)
		} else {
			result.SOSAlertID = alertID
		}
	}

	if res.Emotion != "" {
		o.publish(conv.ID, Event{Type: EventEmotion, ConversationID: conv.ID, Emotion: string(res.Emotion)})
	}
	o.publish(conv.ID, Event{Type: EventState, ConversationID: conv.ID, State: StateCompleted})
	o.speakAsync(ctx, conv.ID, res.Text)

	return result, nil
}

// DirectConversationID groups sessionless classified exchanges in the
// history store.
const DirectConversationID = "direct"

// ClassifyDirect runs the pipeline for one sessionless exchange: the input
// and the classified reply are both written to the user's history before
// returning, and a distress label raises an SOS alert with no location.
// There is no conversation, so no events are published and nothing is spoken.
func (o *Orchestrator) ClassifyDirect(ctx context.Context, userID, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{State: StateIdle}, ErrEmptyInput
	}
	if o.classifier == nil {
		return Result{State: StateFailed}, ErrGatewayUnavailable
	}

	userTurn := chat.Turn{
		TempID:         tempID(),
		ConversationID: DirectConversationID,
		Sender:         chat.SenderUser,
		Text:           text,
		CreatedAt:      time.Now().UTC(),
	}
	o.persist(ctx, userID, &userTurn)
	o.metrics.ObserveTurn(chat.SenderUser, "ok")

	// Same no cancellation rule as Submit: once the completion is requested
	// it runs to success or failure even if the caller goes away.
	completionCtx, cancelCompletion := context.WithTimeout(context.WithoutCancel(ctx), 90*time.Second)
	defer cancelCompletion()

	start := time.Now()
	res, err := o.classifier.Classify(completionCtx, text)
	if err != nil {
		o.metrics.ObserveCompletion("error", time.Since(start).Seconds())
		o.logger.Error("completion failed",
			"user_id", userID,
			"error", err.Error(),
		)
		return Result{State: StateFailed, UserTurn: userTurn}, err
	}
	o.metrics.ObserveCompletion("ok", time.Since(start).Seconds())

	assistantTurn := chat.Turn{
		TempID:         tempID(),
		ConversationID: DirectConversationID,
		Sender:         chat.SenderAssistant,
		Text:           res.Text,
		Emotion:        string(res.Emotion),
		CreatedAt:      time.Now().UTC(),
	}
	o.persist(ctx, userID, &assistantTurn)
	o.metrics.ObserveTurn(chat.SenderAssistant, "ok")

	result := Result{
		State:         StateCompleted,
		UserTurn:      userTurn,
		AssistantTurn: assistantTurn,
		Emotion:       res.Emotion,
	}

	if emotion.IsDistress(res.Emotion) {
		alertID, sosErr := o.sosSvc.Raise(completionCtx, userID, nil, string(res.Emotion))
		if sosErr != nil {
			o.logger.Error("failed to raise sos alert",
				"user_id", userID,
				"error", sosErr.Error(),
			)
		} else {
			result.SOSAlertID = alertID
		}
	}

	return result, nil
}

// persist stores the turn before returning, unlike persistAsync. Failure is
// logged and the exchange still completes.
func (o *Orchestrator) persist(ctx context.Context, userID string, t *chat.Turn) {
	stored, err := o.store.Append(ctx, userID, *t)
	if err != nil {
		o.logger.Warn("failed to persist turn",
			"conversation_id", t.ConversationID,
			"temp_id", t.TempID,
			"error", err.Error(),
		)
		return
	}
	t.ID = stored.ID
}

// Reconcile replaces a turn's tempId with its store-assigned id. Keyed on
// tempId and idempotent: a second call with the same assignment is a no-op.
func (o *Orchestrator) Reconcile(conversationID, tempIDVal, assignedID string) {
	if tempIDVal == "" || assignedID == "" {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	seq := o.sequences[conversationID]
	for i := range seq {
		if seq[i].TempID == tempIDVal {
			if seq[i].ID == "" {
				seq[i].ID = assignedID
			}
			return
		}
	}
}

// ToggleReaction increments a reaction symbol on a turn. Session-local only,
// never persisted.
func (o *Orchestrator) ToggleReaction(conversationID, turnID, symbol string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	seq := o.sequences[conversationID]
	for i := range seq {
		if seq[i].ID == turnID || seq[i].TempID == turnID {
			if seq[i].Reactions == nil {
				seq[i].Reactions = make(map[string]int)
			}
			seq[i].Reactions[symbol]++
			return true
		}
	}
	return false
}

// DeleteTurn removes a turn from the in-memory sequence. Session-local only;
// the stored record is untouched.
func (o *Orchestrator) DeleteTurn(conversationID, turnID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	seq := o.sequences[conversationID]
	for i := range seq {
		if seq[i].ID == turnID || seq[i].TempID == turnID {
			o.sequences[conversationID] = append(seq[:i], seq[i+1:]...)
			return true
		}
	}
	return false
}

// Subscribe registers a consumer of the conversation's event stream. The
// returned cancel function must be called when the consumer goes away; events
// that cannot be delivered are dropped, so a late completion against a
// torn-down consumer is a no-op.
func (o *Orchestrator) Subscribe(conversationID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	o.mu.Lock()
	id := o.nextSubID
	o.nextSubID++
	if o.subscribers[conversationID] == nil {
		o.subscribers[conversationID] = make(map[int]chan Event)
	}
	o.subscribers[conversationID][id] = ch
	o.mu.Unlock()

	cancel := func() {
		o.mu.Lock()
		if subs, ok := o.subscribers[conversationID]; ok {
			delete(subs, id)
		}
		o.mu.Unlock()
	}
	return ch, cancel
}

// Close waits for in-flight persistence and speech goroutines.
func (o *Orchestrator) Close() {
	o.wg.Wait()
}

func (o *Orchestrator) append(conversationID string, t chat.Turn) {
	o.mu.Lock()
	o.sequences[conversationID] = append(o.sequences[conversationID], t)
	o.mu.Unlock()

	o.publish(conversationID, Event{Type: EventTurn, ConversationID: conversationID, Turn: &t})
}

func (o *Orchestrator) publish(conversationID string, ev Event) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, ch := range o.subscribers[conversationID] {
		select {
		case ch <- ev:
		default:
			// Subscriber is gone or slow; drop rather than block the pipeline.
		}
	}
}

// persistAsync requests persistence without blocking the submission. Failure
// is logged and does not roll back the optimistic append.
func (o *Orchestrator) persistAsync(ctx context.Context, userID string, t chat.Turn) {
	detached := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		persistCtx, cancel := context.WithTimeout(detached, 10*time.Second)
		defer cancel()

		stored, err := o.store.Append(persistCtx, userID, t)
		if err != nil {
			o.logger.Warn("failed to persist turn",
				"conversation_id", t.ConversationID,
				"temp_id", t.TempID,
				"error", err.Error(),
			)
			return
		}
		o.Reconcile(t.ConversationID, t.TempID, stored.ID)
	}()
}

// speakAsync requests a spoken rendering of the assistant text. Best-effort;
// synthesis failure never surfaces as a conversation error.
func (o *Orchestrator) speakAsync(ctx context.Context, conversationID, text string) {
	detached := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		speakCtx, cancel := context.WithTimeout(detached, 30*time.Second)
		defer cancel()

		if _, err := o.speaker.Synthesize(speakCtx, text); err != nil {
			o.logger.Debug("speech synthesis failed",
				"conversation_id", conversationID,
				"error", err.Error(),
			)
		}
	}()
}

func tempID() string {
	return "t_" + uuid.NewString()
}
