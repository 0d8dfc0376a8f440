package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/chefmate/internal/logging"
	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/aretw0/chefmate/pkg/intent"
	"github.com/aretw0/chefmate/pkg/ports"
	"github.com/oklog/ulid/v2"
)

// TurnResult describes a settled turn.
type TurnResult struct {
	TurnID  string              `json:"turn_id"`
	Intent  domain.Intent       `json:"intent"`
	Outcome domain.TurnOutcome  `json:"outcome"`
	Events  []domain.Event      `json:"events"`
	State   domain.SessionState `json:"state"`
}

// Controller executes one intent per turn against a single conversation.
type Controller struct {
	searcher   ports.Searcher
	classifier Classifier
	sink       ports.EventSink
	voice      VoiceGate
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	observer   StateObserver
	timeout    time.Duration
	sessionID  string
	maxInput   int

	mu    sync.Mutex
	state *domain.SessionState

	// voiceMu serializes gate notifications with AttachVoice.
	voiceMu sync.Mutex

	// inflight identifies the network turn that owns cancel.
	inflight string
	cancel   context.CancelFunc
}

// New creates a Controller backed by the given search service.
func New(searcher ports.Searcher, opts ...Option) *Controller {
	c := &Controller{
		searcher:   searcher,
		classifier: intent.New(),
		sink:       ports.NopSink{},
		logger:     logging.NewNop(),
		timeout:    DefaultTimeout,
		state:      domain.NewSessionState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the ID configured with WithSessionID.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Snapshot returns a deep copy of the session state.
func (c *Controller) Snapshot() *domain.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Snapshot()
}

// Restore replaces the session state in place with a persisted one.
// It fails while a network turn is in flight.
func (c *Controller) Restore(state *domain.SessionState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.TurnInFlight {
		return domain.ErrTurnInFlight
	}
	*c.state = *state.Snapshot()
	c.state.TurnInFlight = false
	return nil
}

// AttachVoice routes processing notifications to v until the returned
// function is called. It replaces any gate set with WithVoice. A gate
// attached while a turn is in flight starts out suspended.
func (c *Controller) AttachVoice(ctx context.Context, v VoiceGate) (detach func()) {
	c.voiceMu.Lock()
	defer c.voiceMu.Unlock()

	c.mu.Lock()
	inFlight := c.state.TurnInFlight
	c.mu.Unlock()

	c.voice = v
	if inFlight {
		v.BeginProcessing(ctx)
	}
	return func() {
		c.voiceMu.Lock()
		defer c.voiceMu.Unlock()
		if c.voice == v {
			c.voice = nil
		}
	}
}

// Greet emits the welcome message of a new conversation.
func (c *Controller) Greet(ctx context.Context) domain.Event {
	c.mu.Lock()
	gen := c.state.Generation
	c.mu.Unlock()

	ev := domain.Event{
		Type:         domain.EventAssistantMessage,
		Timestamp:    time.Now(),
		Generation:   gen,
		Message:      WelcomeMessage,
		QuickReplies: copyReplies(WelcomeReplies),
	}
	c.sink.Emit(ctx, ev)
	return ev
}

// HandleInput sanitizes, classifies and executes one utterance.
// Empty input returns domain.ErrEmptyInput; input arriving while a network
// turn is in flight returns domain.ErrTurnInFlight unless it is a reset.
// Collaborator failures are reported as events, not errors.
func (c *Controller) HandleInput(ctx context.Context, text string) (*TurnResult, error) {
	clean, err := SanitizeInput(text, c.maxInput)
	if err != nil {
		return nil, err
	}
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return nil, domain.ErrEmptyInput
	}
	return c.execute(ctx, func(s *domain.SessionState) domain.Intent {
		return c.classifier.Classify(clean, s)
	})
}

// Execute runs an already classified intent.
func (c *Controller) Execute(ctx context.Context, in domain.Intent) (*TurnResult, error) {
	return c.execute(ctx, func(*domain.SessionState) domain.Intent { return in })
}

// Reset clears the conversation. It is accepted even while a turn is in flight.
func (c *Controller) Reset(ctx context.Context) (*TurnResult, error) {
	return c.Execute(ctx, domain.ResetIntent())
}

// Select opens the recipe at a 1-based position of the current result list.
func (c *Controller) Select(ctx context.Context, ordinal int) (*TurnResult, error) {
	return c.Execute(ctx, domain.SelectIntent(ordinal))
}

// Modify asks the search service to transform the active recipe.
func (c *Controller) Modify(ctx context.Context, m domain.Modification) (*TurnResult, error) {
	if _, err := domain.ParseModification(string(m)); err != nil {
		return nil, err
	}
	return c.Execute(ctx, domain.ModifyIntent(m))
}

// turn carries the bookkeeping of one execution.
type turn struct {
	id         string
	intent     domain.Intent
	generation uint64
	started    time.Time
}

func (c *Controller) execute(ctx context.Context, classify func(*domain.SessionState) domain.Intent) (*TurnResult, error) {
	t := &turn{id: ulid.Make().String(), started: time.Now()}

	c.mu.Lock()
	t.intent = classify(c.state)
	t.generation = c.state.Generation

	if t.intent.Kind != domain.IntentReset && c.state.TurnInFlight {
		c.mu.Unlock()
		c.logger.Debug("Turn rejected while another is in flight", "session_id", c.sessionID, "intent", t.intent.String())
		c.turnEnd(ctx, t, domain.OutcomeRejected)
		return nil, domain.ErrTurnInFlight
	}

	switch t.intent.Kind {
	case domain.IntentReset:
		return c.reset(ctx, t)
	case domain.IntentSelect:
		return c.selectRecipe(ctx, t)
	case domain.IntentModify:
		if c.state.ActiveRecipe == nil {
			return c.needRecipe(ctx, t, NeedRecipeForModify)
		}
	case domain.IntentFollowUp:
		if c.state.ActiveRecipe == nil {
			c.state.AwaitingFollowUp = false
			return c.needRecipe(ctx, t, NeedRecipeForFollow)
		}
	case domain.IntentSearch:
	default:
		c.mu.Unlock()
		return nil, fmt.Errorf("unknown intent kind %q", t.intent.Kind)
	}
	return c.network(ctx, t)
}

// reset runs with c.mu held and releases it. Hooks run after the release.
func (c *Controller) reset(ctx context.Context, t *turn) (*TurnResult, error) {
	c.state.Reset()
	cancel := c.cancel
	c.cancel, c.inflight = nil, ""
	gen := c.state.Generation
	snapshot := c.state.Snapshot()
	c.mu.Unlock()
	c.turnStart(ctx, t)

	ev := domain.Event{
		Type:         domain.EventSessionReset,
		Generation:   gen,
		Message:      WelcomeMessage,
		QuickReplies: copyReplies(WelcomeReplies),
	}
	result := c.settle(ctx, t, snapshot, domain.OutcomeSucceeded, ev)

	// Cancelled after session_reset is out, so the stale outcome follows it.
	if cancel != nil {
		c.logger.Debug("Cancelling in-flight turn", "session_id", c.sessionID)
		cancel()
	}
	c.resetRemote(ctx)
	return result, nil
}

func (c *Controller) resetRemote(ctx context.Context) {
	rs, ok := c.searcher.(ports.SessionResetter)
	if !ok {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		if err := rs.ResetSession(ctx); err != nil {
			c.logger.Warn("Failed to reset search session", "session_id", c.sessionID, "err", err)
		}
	}()
}

// selectRecipe runs with c.mu held and releases it.
func (c *Controller) selectRecipe(ctx context.Context, t *turn) (*TurnResult, error) {
	r, ok := c.state.RecipeAt(t.intent.Ordinal)
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidOrdinal, t.intent.Ordinal)
	}
	c.state.Activate(r)
	snapshot := c.state.Snapshot()
	c.mu.Unlock()
	c.turnStart(ctx, t)

	return c.settle(ctx, t, snapshot, domain.OutcomeSucceeded, detailEvent(r)), nil
}

// needRecipe runs with c.mu held and releases it.
func (c *Controller) needRecipe(ctx context.Context, t *turn, message string) (*TurnResult, error) {
	snapshot := c.state.Snapshot()
	c.mu.Unlock()
	c.turnStart(ctx, t)

	ev := domain.Event{Type: domain.EventNeedRecipeFirst, Message: message}
	return c.settle(ctx, t, snapshot, domain.OutcomePrecondition, ev), nil
}

// network runs with c.mu held and releases it while waiting on the search service.
func (c *Controller) network(ctx context.Context, t *turn) (*TurnResult, error) {
	req := buildRequest(t.intent, c.state)
	c.state.TurnInFlight = true
	turnCtx, cancel := context.WithTimeout(ctx, c.timeout)
	c.inflight, c.cancel = t.id, cancel
	c.mu.Unlock()
	c.turnStart(ctx, t)

	c.processing(ctx, t, true)
	resp, err := c.search(turnCtx, t, req)
	cancel()

	c.mu.Lock()
	c.state.TurnInFlight = false
	if c.inflight == t.id {
		c.inflight, c.cancel = "", nil
	}
	stale := c.state.Generation != t.generation
	target := c.state
	if stale {
		// Outcome is computed for observers but never applied.
		target = c.state.Snapshot()
	}

	var (
		events  []domain.Event
		outcome domain.TurnOutcome
	)
	if err != nil {
		c.logger.Warn("Search failed", "session_id", c.sessionID, "intent", t.intent.String(), "err", err)
		events, outcome = []domain.Event{failureEvent(t.intent, err)}, domain.OutcomeFailed
	} else {
		events, outcome = apply(target, t.intent, resp)
	}
	snapshot := c.state.Snapshot()
	c.mu.Unlock()

	if stale {
		c.logger.Info("Discarding stale turn outcome", "session_id", c.sessionID, "generation", t.generation)
		for i := range events {
			events[i].Stale = true
		}
		outcome = domain.OutcomeStale
	}
	result := c.settle(ctx, t, snapshot, outcome, events...)
	c.processing(ctx, t, false)
	return result, nil
}

func buildRequest(in domain.Intent, state *domain.SessionState) domain.SearchRequest {
	var current *domain.Recipe
	if state.ActiveRecipe != nil {
		r := state.ActiveRecipe.Clone()
		current = &r
	}
	switch in.Kind {
	case domain.IntentModify:
		return domain.SearchRequest{Query: ModificationQuery(in.Modification), IsModification: true, CurrentRecipe: current}
	case domain.IntentFollowUp:
		return domain.SearchRequest{Query: in.Text, IsFollowUp: true, CurrentRecipe: current}
	}
	return domain.SearchRequest{Query: in.Text, CurrentRecipe: current}
}

type searchOutcome struct {
	resp *domain.SearchResponse
	err  error
}

// search calls the search service, bounded by ctx even when the service ignores it.
func (c *Controller) search(ctx context.Context, t *turn, req domain.SearchRequest) (*domain.SearchResponse, error) {
	ev := &domain.SearchEvent{
		Timestamp: time.Now(),
		SessionID: c.sessionID,
		TurnID:    t.id,
		Request:   req,
	}
	if c.hooks.OnSearchCall != nil {
		c.hooks.OnSearchCall(ctx, ev)
	}

	done := make(chan searchOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- searchOutcome{err: fmt.Errorf("%w: search service panicked: %v", domain.ErrSearchFailed, r)}
			}
		}()
		resp, err := c.searcher.Search(ctx, req)
		done <- searchOutcome{resp: resp, err: err}
	}()

	var out searchOutcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}
	if out.err == nil {
		if out.resp == nil {
			out.err = fmt.Errorf("%w: empty response", domain.ErrContractViolation)
		} else {
			out.err = out.resp.Validate()
		}
	}

	ev.Duration = time.Since(ev.Timestamp)
	ev.Err = out.err
	if out.resp != nil {
		ev.Results = len(out.resp.Results)
	}
	if c.hooks.OnSearchReturn != nil {
		c.hooks.OnSearchReturn(ctx, ev)
	}
	if out.err != nil {
		return nil, out.err
	}
	return out.resp, nil
}

// apply folds a validated response into state and returns the events to render.
func apply(state *domain.SessionState, in domain.Intent, resp *domain.SearchResponse) ([]domain.Event, domain.TurnOutcome) {
	if !resp.IsRecipe {
		// Only a freshly opened detail view awaits a follow-up.
		state.AwaitingFollowUp = false
		msg := resp.Message
		if msg == "" {
			msg = NotARecipeMessage
		}
		return []domain.Event{{Type: domain.EventAssistantMessage, Message: msg}}, domain.OutcomeSucceeded
	}

	if in.Kind == domain.IntentModify {
		if len(resp.Results) == 0 {
			err := fmt.Errorf("%w: modification returned no recipe", domain.ErrContractViolation)
			return []domain.Event{failureEvent(in, err)}, domain.OutcomeFailed
		}
		state.Activate(resp.Results[0])
		return []domain.Event{detailEvent(resp.Results[0])}, domain.OutcomeSucceeded
	}

	if r, ok := resp.Detail(); ok {
		state.Activate(r)
		return []domain.Event{detailEvent(r)}, domain.OutcomeSucceeded
	}

	state.SetRecipeSet(resp.Results)
	state.AwaitingFollowUp = false
	if len(state.RecipeSet) == 0 {
		return []domain.Event{{
			Type:         domain.EventNoMatches,
			Message:      NoMatchesMessage,
			QuickReplies: copyReplies(NoMatchReplies),
		}}, domain.OutcomeSucceeded
	}
	recipes := state.Snapshot().RecipeSet
	return []domain.Event{{
		Type:         domain.EventShowResults,
		Message:      ResultsMessage,
		Recipes:      recipes,
		QuickReplies: ResultReplies(recipes),
	}}, domain.OutcomeSucceeded
}

func detailEvent(r domain.Recipe) domain.Event {
	r = r.Clone()
	return domain.Event{
		Type:         domain.EventShowDetail,
		Message:      fmt.Sprintf(detailMessagePattern, r.Title),
		Recipe:       &r,
		QuickReplies: copyReplies(DetailReplies),
	}
}

// processing toggles the processing indicator and suspends or resumes voice capture.
func (c *Controller) processing(ctx context.Context, t *turn, on bool) {
	ev := domain.Event{
		Type:       domain.EventProcessingChanged,
		Timestamp:  time.Now(),
		TurnID:     t.id,
		Generation: t.generation,
		Processing: on,
	}
	if on {
		ev.Message = ProcessingMessage(t.intent)
		c.voiceMu.Lock()
		if c.voice != nil {
			c.voice.BeginProcessing(ctx)
		}
		c.voiceMu.Unlock()
	}
	c.sink.Emit(ctx, ev)
	if on {
		return
	}

	c.voiceMu.Lock()
	defer c.voiceMu.Unlock()
	if c.voice == nil {
		return
	}
	if err := c.voice.EndProcessing(ctx); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("Failed to resume voice capture", "session_id", c.sessionID, "err", err)
	}
}

// settle stamps and emits the outcome events, notifies observers and builds the result.
func (c *Controller) settle(ctx context.Context, t *turn, snapshot *domain.SessionState, outcome domain.TurnOutcome, events ...domain.Event) *TurnResult {
	now := time.Now()
	for i := range events {
		events[i].Timestamp = now
		events[i].TurnID = t.id
		if events[i].Type != domain.EventSessionReset {
			events[i].Generation = t.generation
		}
		c.sink.Emit(ctx, events[i])
	}

	if c.observer != nil && outcome != domain.OutcomeStale {
		c.observer(ctx, snapshot)
	}
	c.logger.Debug("Turn settled",
		"session_id", c.sessionID,
		"intent", t.intent.String(),
		"outcome", outcome,
		"generation", t.generation,
	)
	c.turnEnd(ctx, t, outcome)

	return &TurnResult{
		TurnID:  t.id,
		Intent:  t.intent,
		Outcome: outcome,
		Events:  events,
		State:   *snapshot,
	}
}

func (c *Controller) turnStart(ctx context.Context, t *turn) {
	if c.hooks.OnTurnStart == nil {
		return
	}
	c.hooks.OnTurnStart(ctx, &domain.TurnEvent{
		Timestamp:  t.started,
		SessionID:  c.sessionID,
		TurnID:     t.id,
		Intent:     t.intent,
		Generation: t.generation,
	})
}

func (c *Controller) turnEnd(ctx context.Context, t *turn, outcome domain.TurnOutcome) {
	if c.hooks.OnTurnEnd == nil {
		return
	}
	c.hooks.OnTurnEnd(ctx, &domain.TurnEvent{
		Timestamp:  time.Now(),
		SessionID:  c.sessionID,
		TurnID:     t.id,
		Intent:     t.intent,
		Generation: t.generation,
		Outcome:    outcome,
		Duration:   time.Since(t.started),
	})
}
