// Package session owns the conversation log and serializes questions so
// that at most one is in flight at a time.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"feedbackexplorer/internal/domain"
	"feedbackexplorer/internal/observer"
)

var (
	// ErrQueryInFlight rejects a submit while the previous one is unanswered.
	ErrQueryInFlight = domain.ValidationError("query", "a query is already in progress")
	// ErrDataNotLoaded rejects a submit before any feedback was ingested.
	ErrDataNotLoaded = domain.ValidationError("query", "no feedback data loaded yet")
)

// Querier is the subset of the API gateway the session needs.
type Querier interface {
	Query(ctx context.Context, req domain.QueryRequest) (domain.QueryResult, error)
}

// Gate tells the session whether questions may be asked yet.
type Gate interface {
	DataLoaded() bool
}

// EventKind tags a session Event.
type EventKind int

const (
	EventTurnAppended EventKind = iota
	EventInFlightChanged
	EventResultsReplaced
)

// Event is delivered to subscribers after every state change.
type Event struct {
	Kind EventKind
	// Index and Turn are set for EventTurnAppended.
	Index int
	Turn  domain.Turn
	// InFlight is set for EventInFlightChanged.
	InFlight bool
	// Results is set for EventResultsReplaced.
	Results domain.ResultSet
}

// Options configures a Session.
type Options struct {
	TopK            int
	GenerateSummary bool
	// Gate may be nil, in which case questions are always allowed.
	Gate   Gate
	Logger *zap.Logger
}

// Session is one conversation. The turn log is append-only.
type Session struct {
	querier Querier
	gate    Gate
	topK    int
	logger  *zap.Logger

	mu              sync.Mutex
	turns           []domain.Turn
	inFlight        bool
	input           string
	generateSummary bool
	results         domain.ResultSet

	observers observer.Set[Event]
	wg        sync.WaitGroup
}

// New creates an empty session.
func New(querier Querier, opts Options) *Session {
	if opts.TopK <= 0 {
		opts.TopK = domain.DefaultTopK
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Session{
		querier:         querier,
		gate:            opts.Gate,
		topK:            opts.TopK,
		generateSummary: opts.GenerateSummary,
		logger:          opts.Logger.Named("session"),
		results:         domain.ResultSet{Results: []domain.FeedbackResult{}},
	}
}

// Subscribe registers fn for every session event.
func (s *Session) Subscribe(fn func(Event)) (unsubscribe func()) {
	return s.observers.Subscribe(fn)
}

// SetInput stores the pending, not yet submitted question.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

// Input returns the pending question.
func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// SetGenerateSummary toggles summaries for the next question. Ignored while
// a query is in flight.
func (s *Session) SetGenerateSummary(on bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.generateSummary = on
	return true
}

// GenerateSummary reports whether the next question asks for a summary.
func (s *Session) GenerateSummary() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generateSummary
}

// SubmitInput submits the pending question.
func (s *Session) SubmitInput(ctx context.Context) (<-chan domain.Turn, error) {
	return s.Submit(ctx, s.Input())
}

// Submit appends a user turn for text and starts the query. The returned
// channel yields the assistant or error turn once the query resolves.
//
// Empty text, a query already in flight and a closed gate are rejected
// without touching the log or the network.
func (s *Session) Submit(ctx context.Context, text string) (<-chan domain.Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyQuery
	}
	if s.gate != nil && !s.gate.DataLoaded() {
		return nil, ErrDataNotLoaded
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrQueryInFlight
	}
	user := domain.Turn{ID: uuid.NewString(), Kind: domain.TurnUser, Text: text, At: time.Now()}
	s.turns = append(s.turns, user)
	index := len(s.turns) - 1
	s.inFlight = true
	s.input = ""
	req := domain.QueryRequest{QueryText: text, TopK: s.topK, GenerateSummary: s.generateSummary}
	s.wg.Add(1)
	s.mu.Unlock()

	s.observers.Notify(Event{Kind: EventTurnAppended, Index: index, Turn: user})
	s.observers.Notify(Event{Kind: EventInFlightChanged, InFlight: true})

	done := make(chan domain.Turn, 1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		done <- s.run(ctx, req)
	}()
	return done, nil
}

func (s *Session) run(ctx context.Context, req domain.QueryRequest) domain.Turn {
	start := time.Now()
	res, err := s.querier.Query(ctx, req)

	turn := domain.Turn{ID: uuid.NewString(), At: time.Now()}
	if err != nil {
		turn.Kind = domain.TurnError
		turn.Text = domain.Detail(err)
		s.logger.Warn("query failed", zap.String("query", req.QueryText), zap.Error(err),
			zap.Duration("elapsed", time.Since(start)))
	} else {
		turn.Kind = domain.TurnAssistant
		turn.Text = assistantText(res)
		turn.Sources = res.Results
		s.logger.Info("query answered", zap.String("query", req.QueryText),
			zap.Int("results", len(res.Results)), zap.Duration("elapsed", time.Since(start)))
	}

	s.mu.Lock()
	s.turns = append(s.turns, turn)
	index := len(s.turns) - 1
	var rs domain.ResultSet
	if err == nil {
		rs = domain.ResultSet{Summary: res.Summary, Results: res.Results}
		s.results = rs
	}
	s.inFlight = false
	s.mu.Unlock()

	s.observers.Notify(Event{Kind: EventTurnAppended, Index: index, Turn: turn})
	if err == nil {
		s.observers.Notify(Event{Kind: EventResultsReplaced, Results: rs})
	}
	s.observers.Notify(Event{Kind: EventInFlightChanged, InFlight: false})
	return turn
}

func assistantText(res domain.QueryResult) string {
	if strings.TrimSpace(res.Summary) != "" {
		return res.Summary
	}
	switch n := len(res.Results); n {
	case 0:
		return "No matching feedback found."
	case 1:
		return "Found 1 relevant feedback entry."
	default:
		return fmt.Sprintf("Found %d relevant feedback entries.", n)
	}
}

// Wait blocks until the in-flight query, if any, has resolved.
func (s *Session) Wait() { s.wg.Wait() }

// InFlight reports whether a query is awaiting its response.
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Len returns the number of turns.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Turns returns a copy of the log in chronological order.
func (s *Session) Turns() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Turn returns the i-th turn.
func (s *Session) Turn(i int) (domain.Turn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.turns) {
		return domain.Turn{}, false
	}
	return s.turns[i], true
}

// Sources returns every source of the assistant turn at i. It never
// issues a query.
func (s *Session) Sources(i int) ([]domain.FeedbackResult, bool) {
	t, ok := s.Turn(i)
	if !ok || t.Kind != domain.TurnAssistant {
		return nil, false
	}
	return t.Sources, true
}

// LastAssistant returns the index of the most recent assistant turn, or -1.
func (s *Session) LastAssistant() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].Kind == domain.TurnAssistant {
			return i
		}
	}
	return -1
}

// Results returns the ResultSet of the latest successful query.
func (s *Session) Results() domain.ResultSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}
