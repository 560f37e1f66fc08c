package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stickman_shake/internal/domain"
	"stickman_shake/internal/game"
	"stickman_shake/internal/logger"
	"stickman_shake/internal/store"

	"github.com/jonboulle/clockwork"
)

var (
	ErrSessionClosed    = errors.New("session closed")
	ErrActionInProgress = errors.New("action already in progress")
	ErrUnknownAction    = errors.New("unknown action")
)

// State of a client session.
type State string

const (
	StateLoading State = "loading"
	StateAuth    State = "auth"
	StateGame    State = "game"
)

type EventType string

const (
	EventState        EventType = "state"
	EventProfile      EventType = "profile"
	EventLeaderboard  EventType = "leaderboard"
	EventEarned       EventType = "earned"
	EventActionResult EventType = "action_result"
	EventError        EventType = "error"
)

// View is the read model derived from one profile snapshot.
type View struct {
	Profile      domain.PlayerProfile `json:"profile"`
	Multipliers  game.Multipliers     `json:"multipliers"`
	Level        int                  `json:"level"`
	Progress     float64              `json:"progress"`
	CanTranscend bool                 `json:"canTranscend"`
	NextCosts    map[string]int64     `json:"nextCosts"`
}

// Board is the ranked collection plus the compact top.
type Board struct {
	Top     []LeaderboardEntry `json:"top"`
	Entries []LeaderboardEntry `json:"entries"`
}

// Event is pushed from the session to its transport.
type Event struct {
	Type      EventType
	State     State
	View      *View
	Board     *Board
	Earned    int64
	Source    string
	Action    string
	RequestID string
	Digest    string
	Err       error
}

// Command is sent from the transport into the session.
type Command interface {
	command()
}

// SignIn enters the game as an already authenticated identity.
type SignIn struct {
	Identity Identity
	Username string
}

type SignOut struct{}

// Move is one pointer movement delta in pixels.
type Move struct {
	DX, DY float64
}

// Action is a shop or ledger action. Kind is one of the Action* names.
type Action struct {
	RequestID string
	Kind      string
	ID        string
	Category  game.Category
}

func (SignIn) command()  {}
func (SignOut) command() {}
func (Move) command()    {}
func (Action) command()  {}

// EnsureFunc creates the profile for an identity if it is missing.
type EnsureFunc func(ctx context.Context, id Identity, username string) (bool, error)

type SessionConfig struct {
	Engine *Engine
	Store  store.Store
	Ensure EnsureFunc
	Clock  clockwork.Clock
}

type actionDone struct {
	action  Action
	profile *domain.PlayerProfile
	digest  string
	err     error
}

// Session owns one client's game state. All state lives in the Run goroutine; the
// transport talks to it through Send and Events only.
type Session struct {
	engine *Engine
	store  store.Store
	ensure EnsureFunc
	clock  clockwork.Clock

	cmds    chan Command
	events  chan Event
	results chan actionDone
	done    chan struct{}

	state    State
	identity *Identity
	profile  *domain.PlayerProfile
	acc      Accumulator
	inflight map[string]bool

	profileCh      <-chan domain.PlayerProfile
	boardCh        <-chan []domain.PlayerProfile
	releaseProfile func()
	releaseBoard   func()

	ticker   clockwork.Ticker
	idleRate float64
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Session{
		engine:   cfg.Engine,
		store:    cfg.Store,
		ensure:   cfg.Ensure,
		clock:    cfg.Clock,
		cmds:     make(chan Command, 32),
		events:   make(chan Event, 64),
		results:  make(chan actionDone, 8),
		done:     make(chan struct{}),
		state:    StateLoading,
		inflight: make(map[string]bool),
	}
}

// Events is closed when Run returns.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Send queues a command for the session loop.
func (s *Session) Send(ctx context.Context, cmd Command) error {
	select {
	case s.cmds <- cmd:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the session until ctx ends.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.events)
	defer close(s.done)
	defer s.leaveGame()

	s.setState(ctx, StateAuth)

	for {
		var idle <-chan time.Time
		if s.ticker != nil {
			idle = s.ticker.Chan()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case cmd := <-s.cmds:
			s.handle(ctx, cmd)

		case p, ok := <-s.profileCh:
			if !ok {
				s.profileCh = nil
				continue
			}
			s.onProfile(ctx, p)

		case list, ok := <-s.boardCh:
			if !ok {
				s.boardCh = nil
				continue
			}
			entries := Rank(list)
			s.emit(ctx, Event{Type: EventLeaderboard, Board: &Board{Top: Top(entries, TopSize), Entries: entries}})

		case <-idle:
			s.onIdle(ctx)

		case r := <-s.results:
			delete(s.inflight, actionKey(r.action))
			if r.profile != nil {
				s.adopt(ctx, *r.profile)
			}
			s.emit(ctx, Event{
				Type:      EventActionResult,
				Action:    r.action.Kind,
				RequestID: r.action.RequestID,
				Digest:    r.digest,
				Err:       r.err,
			})
		}
	}
}

func (s *Session) handle(ctx context.Context, cmd Command) {
	switch c := cmd.(type) {
	case SignIn:
		s.enterGame(ctx, c)
	case SignOut:
		s.leaveGame()
		s.setState(ctx, StateAuth)
	case Move:
		s.onMove(ctx, c)
	case Action:
		s.startAction(ctx, c)
	}
}

func (s *Session) enterGame(ctx context.Context, c SignIn) {
	if s.state == StateGame {
		if s.identity != nil && s.identity.UserID == c.Identity.UserID {
			return
		}
		s.leaveGame()
	}
	s.setState(ctx, StateLoading)

	if err := s.subscribe(ctx, c); err != nil {
		logger.Error("session sign-in failed", "user_id", c.Identity.UserID, "error", err)
		s.leaveGame()
		s.emit(ctx, Event{Type: EventError, Err: err})
		s.setState(ctx, StateAuth)
		return
	}

	id := c.Identity
	s.identity = &id
	ActiveSessions.Inc()
	s.setState(ctx, StateGame)
}

func (s *Session) subscribe(ctx context.Context, c SignIn) error {
	if s.ensure != nil {
		if _, err := s.ensure(ctx, c.Identity, c.Username); err != nil {
			return err
		}
	}

	ch, release, err := s.store.Subscribe(ctx, c.Identity.UserID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	s.profileCh, s.releaseProfile = ch, release

	all, releaseAll, err := s.store.SubscribeAll(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	s.boardCh, s.releaseBoard = all, releaseAll
	return nil
}

// leaveGame releases subscriptions and drops per-player state. Safe in any state.
func (s *Session) leaveGame() {
	if s.releaseProfile != nil {
		s.releaseProfile()
	}
	if s.releaseBoard != nil {
		s.releaseBoard()
	}
	s.profileCh, s.boardCh = nil, nil
	s.releaseProfile, s.releaseBoard = nil, nil

	s.stopIdle()
	s.acc.Reset()
	s.profile = nil
	if s.identity != nil {
		ActiveSessions.Dec()
		s.identity = nil
	}
}

func (s *Session) onProfile(ctx context.Context, p domain.PlayerProfile) {
	if s.identity == nil || p.UserID != s.identity.UserID {
		return
	}
	s.profile = &p

	m := s.engine.Multipliers(p)
	if m.PerSecond != s.idleRate {
		s.restartIdle(m.PerSecond)
	}

	s.emit(ctx, Event{Type: EventProfile, View: s.engine.View(p)})
}

// adopt takes the profile a write returned so the next action works from it even if
// the matching snapshot is still in flight. A snapshot at least as new wins.
func (s *Session) adopt(ctx context.Context, p domain.PlayerProfile) {
	if s.profile != nil && !p.LastActivity.After(s.profile.LastActivity) {
		return
	}
	s.onProfile(ctx, p)
}

// restartIdle replaces the passive ticker; no ticker runs while the rate is zero.
func (s *Session) restartIdle(rate float64) {
	s.stopIdle()
	s.idleRate = rate
	if rate > 0 {
		s.ticker = s.clock.NewTicker(game.IdleInterval)
	}
}

func (s *Session) stopIdle() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	s.idleRate = 0
}

func (s *Session) onIdle(ctx context.Context) {
	if s.profile == nil {
		return
	}
	if earned := s.engine.IdleTick(ctx, *s.profile); earned > 0 {
		s.emit(ctx, Event{Type: EventEarned, Earned: earned, Source: SourceIdle})
	}
}

func (s *Session) onMove(ctx context.Context, c Move) {
	if s.state != StateGame || s.profile == nil {
		return
	}
	distance, ok := s.acc.Move(c.DX, c.DY, s.engine.Multipliers(*s.profile).PerPixel)
	if !ok {
		return
	}
	if earned := s.engine.PointerFlush(ctx, *s.profile, distance); earned > 0 {
		s.emit(ctx, Event{Type: EventEarned, Earned: earned, Source: SourcePointer})
	}
}

func actionKey(a Action) string {
	return a.Kind + ":" + string(a.Category) + ":" + a.ID
}

// startAction runs a shop or ledger action off the loop. The snapshot it works from is
// the latest one the session holds; the write guards catch anything newer.
func (s *Session) startAction(ctx context.Context, a Action) {
	if s.state != StateGame || s.profile == nil {
		s.emit(ctx, Event{Type: EventActionResult, Action: a.Kind, RequestID: a.RequestID, Err: domain.ErrNotInGame})
		return
	}
	key := actionKey(a)
	if s.inflight[key] {
		s.emit(ctx, Event{Type: EventActionResult, Action: a.Kind, RequestID: a.RequestID, Err: ErrActionInProgress})
		return
	}
	s.inflight[key] = true

	p := s.profile.Clone()
	go func() {
		done := actionDone{action: a}
		out, digest, err := s.perform(ctx, p, a)
		done.digest, done.err = digest, err
		if err == nil {
			done.profile = &out
		}
		select {
		case s.results <- done:
		case <-ctx.Done():
		}
	}()
}

func (s *Session) perform(ctx context.Context, p domain.PlayerProfile, a Action) (domain.PlayerProfile, string, error) {
	switch a.Kind {
	case ActionBuyUpgrade:
		out, err := s.engine.BuyUpgrade(ctx, p, a.ID)
		return out, "", err
	case ActionBuyArtifact:
		return s.engine.BuyArtifact(ctx, p, a.ID)
	case ActionEquipArtifact:
		out, err := s.engine.ToggleArtifact(ctx, p, a.ID)
		return out, "", err
	case ActionBuyCosmetic:
		out, err := s.engine.BuyCosmetic(ctx, p, a.Category, a.ID)
		return out, "", err
	case ActionEquipCosmetic:
		out, err := s.engine.EquipCosmetic(ctx, p, a.Category, a.ID)
		return out, "", err
	case ActionTranscend:
		return s.engine.Transcend(ctx, p)
	}
	return p, "", ErrUnknownAction
}

func (s *Session) setState(ctx context.Context, st State) {
	s.state = st
	s.emit(ctx, Event{Type: EventState, State: st})
}

func (s *Session) emit(ctx context.Context, ev Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}
