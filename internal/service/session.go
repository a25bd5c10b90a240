package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"propertychat/internal/metrics"
	"propertychat/internal/model"
)

// FailedTurnPolicy decides what happens to the user entry of a failed turn
type FailedTurnPolicy string

const (
	// PolicyKeep leaves the entry in the transcript marked failed
	PolicyKeep FailedTurnPolicy = "keep"
	// PolicyRollback removes the entry
	PolicyRollback FailedTurnPolicy = "rollback"
)

// Deps are the collaborators shared by every session. Profiles and Cache may
// be nil, which disables the corresponding persistence.
type Deps struct {
	Interpreter Interpreter
	Filterer    Filterer
	Catalog     CatalogSource
	Profiles    ProfileStore
	Cache       LocalCache
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// SessionOptions tune per-session behaviour
type SessionOptions struct {
	CompareLimit     int
	FailedTurnPolicy FailedTurnPolicy
	PersistTimeout   time.Duration
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.FailedTurnPolicy == "" {
		o.FailedTurnPolicy = PolicyKeep
	}
	if o.PersistTimeout <= 0 {
		o.PersistTimeout = 10 * time.Second
	}
	return o
}

// TurnResult is what a successful turn produced
type TurnResult struct {
	Message    string
	Criteria   model.Criteria
	Properties []model.Property // filtered set in the session's current sort order
	Took       time.Duration
}

// Session is one user's conversation: criteria, transcript, filtered catalog
// and compare set. The mutex is held only for state transitions, never across
// a collaborator call.
type Session struct {
	id     string
	userID string
	deps   Deps
	opts   SessionOptions
	logger *zap.Logger

	mu           sync.Mutex
	state        model.TurnState
	typing       bool
	criteria     model.Criteria
	transcript   model.Transcript
	catalog      []model.Property
	filtered     []model.Property
	sort         model.SortDirective
	compare      *CompareSet
	persister    *persister
	hydrationErr error
	closed       bool
}

// Seed is the initial state of a session
type Seed struct {
	Criteria   model.Criteria
	Transcript model.Transcript
	Catalog    []model.Property
	Filtered   []model.Property
	Profile    *model.User
}

// NewSession builds an idle session from seed. Callers normally go through
// Bootstrap, which derives the seed from the catalog and saved state.
func NewSession(id, userID string, deps Deps, opts SessionOptions, seed Seed) *Session {
	deps = deps.withDefaults()
	opts = opts.withDefaults()

	transcript := seed.Transcript.Clone()
	if len(transcript) == 0 {
		transcript = model.Greeting()
	}
	filtered := seed.Filtered
	if filtered == nil {
		filtered = seed.Catalog
	}

	s := &Session{
		id:         id,
		userID:     userID,
		deps:       deps,
		opts:       opts,
		logger:     deps.Logger.With(zap.String("session_id", id)),
		state:      model.TurnIdle,
		criteria:   seed.Criteria.Clone(),
		transcript: transcript,
		catalog:    slices.Clone(seed.Catalog),
		filtered:   slices.Clone(filtered),
		compare:    NewCompareSet(opts.CompareLimit),
	}

	if userID != "" && (deps.Profiles != nil || deps.Cache != nil) {
		var profile model.User
		if seed.Profile != nil {
			profile = *seed.Profile
		}
		s.persister = newPersister(userID, profile, deps, opts.PersistTimeout)
	}
	return s
}

// ID returns the session id
func (s *Session) ID() string { return s.id }

// UserID returns the authenticated user, or "" for an anonymous session
func (s *Session) UserID() string { return s.userID }

// Authenticated reports whether the session persists against a user
func (s *Session) Authenticated() bool { return s.userID != "" }

// HydrationError is the recoverable error from applying saved criteria at
// session start, if any
func (s *Session) HydrationError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrationErr
}

// Submit runs one conversational turn. The utterance is interpreted against
// the current criteria, the merged candidate is filtered, and only when both
// succeed is the candidate committed.
func (s *Session) Submit(ctx context.Context, utterance string) (*TurnResult, error) {
	text := strings.TrimSpace(utterance)
	if text == "" {
		s.deps.Metrics.TurnFinished(metrics.OutcomeRejected, 0)
		return nil, fmt.Errorf("%w: utterance is empty", ErrValidation)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.deps.Metrics.TurnFinished(metrics.OutcomeRejected, 0)
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, s.id)
	}
	if s.state != model.TurnIdle {
		s.mu.Unlock()
		s.deps.Metrics.TurnFinished(metrics.OutcomeRejected, 0)
		return nil, ErrTurnInProgress
	}
	s.transcript = append(s.transcript, model.UserMessage(text))
	entry := len(s.transcript) - 1
	s.typing = true
	s.state = model.TurnAwaitingInterpretation
	current := s.criteria.Clone()
	s.mu.Unlock()

	start := time.Now()

	interp, err := s.deps.Interpreter.Interpret(ctx, text, current)
	if err == nil && interp == nil {
		err = fmt.Errorf("empty response")
	}
	if err == nil {
		err = validateInterpretation(interp)
	}
	if err != nil {
		return nil, s.abort(entry, fmt.Errorf("%w: %w", ErrInterpretation, err), metrics.OutcomeInterpretation)
	}

	partial := interp.Criteria
	partial.Normalize()
	candidate := MergeCriteria(current, partial)

	s.mu.Lock()
	s.state = model.TurnAwaitingFilter
	s.mu.Unlock()

	props, err := s.deps.Filterer.Filter(ctx, candidate)
	if err != nil {
		return nil, s.abort(entry, fmt.Errorf("%w: %w", ErrFilterService, err), metrics.OutcomeFilter)
	}
	if props == nil {
		props = []model.Property{}
	}

	s.mu.Lock()
	s.criteria = candidate
	s.filtered = props
	s.transcript = append(s.transcript, model.BotMessage(interp.Message, props))
	s.typing = false
	s.state = model.TurnIdle
	snap := snapshot{criteria: candidate.Clone(), transcript: s.transcript.Clone()}
	presented := Present(props, s.sort)
	persist := s.persister != nil && !s.closed
	s.mu.Unlock()

	// a turn that outlived its session's logout must not write anything back
	if persist {
		s.persister.enqueue(snap)
	}

	took := time.Since(start)
	s.deps.Metrics.TurnFinished(metrics.OutcomeSuccess, took.Seconds())
	s.logger.Debug("turn completed",
		zap.Int("results", len(props)),
		zap.Duration("took", took))

	return &TurnResult{
		Message:    interp.Message,
		Criteria:   candidate.Clone(),
		Properties: presented,
		Took:       took,
	}, nil
}

// abort returns the session to idle after a failed turn. Criteria and the
// filtered catalog are untouched.
func (s *Session) abort(entry int, err error, outcome string) error {
	s.mu.Lock()
	switch s.opts.FailedTurnPolicy {
	case PolicyRollback:
		s.transcript = slices.Delete(s.transcript, entry, entry+1)
	default:
		s.transcript[entry].Failed = true
	}
	s.typing = false
	s.state = model.TurnIdle
	s.mu.Unlock()

	s.deps.Metrics.TurnFinished(outcome, 0)
	s.logger.Warn("turn failed", zap.Error(err))
	return err
}

// State returns the current turn state
func (s *Session) State() model.TurnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Typing reports whether a reply is outstanding
func (s *Session) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing
}

// Criteria returns a copy of the committed criteria
func (s *Session) Criteria() model.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria.Clone()
}

// Transcript returns a copy of the conversation so far
func (s *Session) Transcript() model.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Clone()
}

// Snapshot describes the whole session for the API
func (s *Session) Snapshot() model.SessionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.SessionResponse{
		SessionID:  s.id,
		UserID:     s.userID,
		State:      s.state,
		Typing:     s.typing,
		Criteria:   s.criteria.Clone(),
		Transcript: s.transcript.Clone(),
		Properties: Present(s.filtered, s.sort),
		Sort:       s.sort,
	}
}

// close marks the session as discarded. Turns still in flight finish in
// memory but persist nothing, and new turns are rejected.
func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	if s.persister != nil {
		s.persister.close()
	}
}

// PresentSorted returns the filtered catalog in sort order without changing
// the session's own directive
func (s *Session) PresentSorted(sort model.SortDirective) []model.Property {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Present(s.filtered, sort)
}

// SetSort changes the presentation order and returns the re-sorted list
func (s *Session) SetSort(sort model.SortDirective) []model.Property {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sort = sort
	return Present(s.filtered, s.sort)
}

// Sort returns the current directive
func (s *Session) Sort() model.SortDirective {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sort
}

// Properties returns the filtered catalog in the current sort order
func (s *Session) Properties() []model.Property {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Present(s.filtered, s.sort)
}

// AddToCompare adds the property with id, looked up in the filtered list
// first and then the full catalog
func (s *Session) AddToCompare(id int64) (model.CompareResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := findProperty(s.filtered, id)
	if !ok {
		p, ok = findProperty(s.catalog, id)
	}
	if !ok {
		return model.CompareResponse{}, fmt.Errorf("%w: %d", ErrPropertyNotFound, id)
	}
	if err := s.compare.Add(p); err != nil {
		return model.CompareResponse{}, err
	}
	return s.compare.Table(), nil
}

// RemoveFromCompare drops id from the compare set
func (s *Session) RemoveFromCompare(id int64) model.CompareResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compare.Remove(id)
	return s.compare.Table()
}

// Compare returns the comparison table
func (s *Session) Compare() model.CompareResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compare.Table()
}

// Flush waits until scheduled persistence has drained
func (s *Session) Flush() {
	if s.persister != nil {
		s.persister.flush()
	}
}

func findProperty(props []model.Property, id int64) (model.Property, bool) {
	i := slices.IndexFunc(props, func(p model.Property) bool { return p.ID == id })
	if i < 0 {
		return model.Property{}, false
	}
	return props[i], true
}
