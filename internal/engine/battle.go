// Package engine runs the two-fighter battle: turn order, damage, turn
// resolution, reset and fighter loading.
package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/tatianab/pokebattle/internal/logging"
	"github.com/tatianab/pokebattle/internal/models"
)

var (
	ErrInvalidSide     = errors.New("invalid side")
	ErrEmptySlot       = errors.New("no fighter loaded")
	ErrInvalidMoveType = errors.New("move type is not one of the fighter's types")
)

// CreatureSource fetches a creature by name or id.
type CreatureSource interface {
	Pokemon(ctx context.Context, ident string) (*models.Pokemon, error)
}

// MultiplierResolver derives the DamageMap for a defending type list.
type MultiplierResolver interface {
	DefensiveMultipliers(ctx context.Context, types []string) (models.DamageMap, error)
}

// Observer is called with the session after every committed change.
type Observer func(*models.BattleSession)

// Battle owns a BattleSession and applies every state transition to it as
// one unit. It is not safe for concurrent use; callers drive it from a
// single goroutine.
type Battle struct {
	session   *models.BattleSession
	maps      map[models.Side]models.DamageMap
	creatures CreatureSource
	resolver  MultiplierResolver
	calc      Calculator
	observers []Observer

	// pending is the ticket of the turn waiting to settle, 0 when idle.
	pending    uint64
	lastTicket uint64
}

// Option configures a Battle.
type Option func(*Battle)

// WithRandom sets the random source used for crits, rolls and tie-breaks.
func WithRandom(r Random) Option {
	return func(b *Battle) { b.calc.Random = r }
}

// WithZeroDamagePolicy sets how 0-effectiveness hits are scored.
func WithZeroDamagePolicy(p ZeroDamagePolicy) Option {
	return func(b *Battle) { b.calc.Policy = p }
}

// WithObserver registers fn to run after each committed change.
func WithObserver(fn Observer) Option {
	return func(b *Battle) { b.observers = append(b.observers, fn) }
}

// New returns a battle over session, or over a fresh session if nil.
func New(session *models.BattleSession, creatures CreatureSource, resolver MultiplierResolver, opts ...Option) *Battle {
	if session == nil {
		session = models.NewBattleSession()
	}
	b := &Battle{
		session:   session,
		maps:      make(map[models.Side]models.DamageMap),
		creatures: creatures,
		resolver:  resolver,
		calc:      Calculator{Random: DefaultRandom()},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.calc.Random == nil {
		b.calc.Random = DefaultRandom()
	}
	return b
}

// Session exposes the current state for rendering. Callers must not mutate it.
func (b *Battle) Session() *models.BattleSession { return b.session }

// DamageMap is the multiplier table for attacks aimed at side's fighter,
// nil while unknown.
func (b *Battle) DamageMap(side models.Side) models.DamageMap { return b.maps[side] }

// Busy reports whether a turn is waiting to settle.
func (b *Battle) Busy() bool { return b.pending != 0 }

func (b *Battle) notify() {
	for _, fn := range b.observers {
		fn(b.session)
	}
}

// Restore replaces the session wholesale, e.g. from a persisted snapshot,
// and assigns turn order if the restored pair never started.
func (b *Battle) Restore(s *models.BattleSession) {
	if s == nil {
		s = models.NewBattleSession()
	}
	b.session = s
	b.maps = make(map[models.Side]models.DamageMap)
	b.pending = 0
	b.maybeStart()
	b.notify()
}

// SetInput records the raw identifier typed for side.
func (b *Battle) SetInput(side models.Side, raw string) error {
	if !side.Valid() {
		return ErrInvalidSide
	}
	if b.session.Input(side) == raw {
		return nil
	}
	b.session.SetInput(side, raw)
	b.notify()
	return nil
}

// FetchFighter looks up a creature without touching the session.
func (b *Battle) FetchFighter(ctx context.Context, ident string) (*models.Pokemon, error) {
	id := strings.ToLower(strings.TrimSpace(ident))
	p, err := b.creatures.Pokemon(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load fighter %q: %w", ident, err)
	}
	return p, nil
}

// ApplyFighter puts p into side at full HP with its first type selected.
// The other side, the log and the turn markers are left alone.
func (b *Battle) ApplyFighter(side models.Side, ident string, p *models.Pokemon) error {
	f := b.session.Fighter(side)
	if f == nil {
		return ErrInvalidSide
	}
	if p == nil {
		return ErrEmptySlot
	}
	*f = models.NewFighter(p)
	b.session.SetInput(side, ident)
	delete(b.maps, side)
	// A turn in flight was rolled against the previous fighter.
	b.pending = 0
	b.maybeStart()
	b.notify()
	return nil
}

// LoadFighter fetches ident and applies it to side, then resolves the new
// fighter's DamageMap. A failed fetch leaves the session untouched.
func (b *Battle) LoadFighter(ctx context.Context, side models.Side, ident string) error {
	if !side.Valid() {
		return ErrInvalidSide
	}
	p, err := b.FetchFighter(ctx, ident)
	if err != nil {
		return err
	}
	if err := b.ApplyFighter(side, ident, p); err != nil {
		return err
	}
	b.RefreshDamageMap(ctx, side)
	return nil
}

// FetchDamageMap resolves the multipliers for a defending type list.
func (b *Battle) FetchDamageMap(ctx context.Context, types []string) (models.DamageMap, error) {
	if b.resolver == nil {
		return nil, errors.New("no multiplier resolver configured")
	}
	return b.resolver.DefensiveMultipliers(ctx, types)
}

// ApplyDamageMap stores m for side if side's fighter still has types.
// It reports false for a stale result.
func (b *Battle) ApplyDamageMap(side models.Side, types []string, m models.DamageMap) bool {
	f := b.session.Fighter(side)
	if f.Empty() || !slices.Equal(f.Pokemon.TypeNames(), types) {
		return false
	}
	b.maps[side] = m
	return true
}

// RefreshDamageMap recomputes side's DamageMap. On failure the map stays
// nil, which is neutral for every type.
func (b *Battle) RefreshDamageMap(ctx context.Context, side models.Side) {
	f := b.session.Fighter(side)
	if f.Empty() {
		delete(b.maps, side)
		return
	}
	types := f.Pokemon.TypeNames()
	m, err := b.FetchDamageMap(ctx, types)
	if err != nil {
		logging.Warn("type effectiveness unavailable, using neutral multipliers", err, logging.Fields{
			"side":  string(side),
			"types": types,
		})
		m = nil
	}
	b.ApplyDamageMap(side, types, m)
}

// RefreshDamageMaps recomputes both sides' DamageMaps.
func (b *Battle) RefreshDamageMaps(ctx context.Context) {
	b.RefreshDamageMap(ctx, models.SideA)
	b.RefreshDamageMap(ctx, models.SideB)
}

// SetMoveType selects one of side's own types as its move type.
func (b *Battle) SetMoveType(side models.Side, moveType string) error {
	f := b.session.Fighter(side)
	if f == nil {
		return ErrInvalidSide
	}
	if f.Empty() {
		return ErrEmptySlot
	}
	if !f.Pokemon.HasType(moveType) {
		return fmt.Errorf("%w: %q", ErrInvalidMoveType, moveType)
	}
	if f.MoveType == moveType {
		return nil
	}
	f.MoveType = moveType
	b.notify()
	return nil
}

// CycleMoveType selects side's next own type and returns it.
func (b *Battle) CycleMoveType(side models.Side) (string, error) {
	f := b.session.Fighter(side)
	if f == nil {
		return "", ErrInvalidSide
	}
	if f.Empty() {
		return "", ErrEmptySlot
	}
	types := f.Pokemon.TypeNames()
	if len(types) == 0 {
		return "", nil
	}
	next := types[(slices.Index(types, f.MoveType)+1)%len(types)]
	return next, b.SetMoveType(side, next)
}

// starter picks the faster fighter; an exact tie is a coin flip.
func (b *Battle) starter() models.Side {
	spA := b.session.Left.Pokemon.Stat(models.StatSpeed)
	spB := b.session.Right.Pokemon.Stat(models.StatSpeed)
	switch {
	case spA > spB:
		return models.SideA
	case spB > spA:
		return models.SideB
	}
	if b.calc.Random.Float64() < 0.5 {
		return models.SideA
	}
	return models.SideB
}

// maybeStart assigns turn order once per fresh pair of fighters.
func (b *Battle) maybeStart() {
	if !b.session.Ready() || !b.session.NeverStarted() {
		return
	}
	first := b.starter()
	b.session.FirstTurn = first
	b.session.Turn = first
}

// CanTurn reports whether a turn request would be accepted now.
func (b *Battle) CanTurn() bool {
	s := b.session
	return s.Turn.Valid() && s.Ready() && s.Finished == models.SideNone && b.pending == 0
}

// BeginTurn starts the settling window of a turn and returns its ticket.
// Requests while a turn is settling, or when no turn is possible, are
// rejected.
func (b *Battle) BeginTurn() (uint64, bool) {
	if !b.CanTurn() {
		return 0, false
	}
	b.lastTicket++
	b.pending = b.lastTicket
	return b.pending, true
}

// ResolveTurn commits the turn identified by ticket: damage, HP, log entry
// and the turn flip or termination. Stale tickets are ignored.
func (b *Battle) ResolveTurn(ticket uint64) (models.TurnLog, bool) {
	if ticket == 0 || ticket != b.pending {
		return models.TurnLog{}, false
	}
	b.pending = 0

	s := b.session
	if !s.Turn.Valid() || !s.Ready() || s.Finished != models.SideNone {
		return models.TurnLog{}, false
	}

	atkSide := s.Turn
	defSide := atkSide.Other()
	atk := s.Fighter(atkSide)
	def := s.Fighter(defSide)

	moveType := atk.MoveType
	if moveType == "" {
		moveType = atk.Pokemon.FirstType()
	}
	if moveType == "" {
		moveType = FallbackHit
	}

	res := b.calc.Compute(atk.Pokemon, def.Pokemon, b.maps[defSide], moveType)
	remaining := max(0, def.CurrentHP-res.Damage)

	entry := models.TurnLog{
		Attacker:          atkSide,
		Defender:          defSide,
		AttackerName:      atk.Pokemon.DisplayName(),
		DefenderName:      def.Pokemon.DisplayName(),
		MoveType:          moveType,
		Damage:            res.Damage,
		Effectiveness:     res.Effectiveness,
		Critical:          res.Critical,
		DefenderRemaining: remaining,
	}

	def.CurrentHP = remaining
	s.Logs = append(s.Logs, entry)
	if remaining == 0 {
		s.Finished = atkSide
		s.Turn = models.SideNone
	} else {
		s.Turn = defSide
	}
	b.notify()
	return entry, true
}

// DoTurn begins and immediately resolves a turn, skipping the settling
// delay. It is a no-op when no turn is possible.
func (b *Battle) DoTurn() (models.TurnLog, bool) {
	ticket, ok := b.BeginTurn()
	if !ok {
		return models.TurnLog{}, false
	}
	return b.ResolveTurn(ticket)
}

// Reset restores both fighters to full HP, clears the log and the winner,
// and hands the turn back to whoever went first. It cancels a settling turn.
func (b *Battle) Reset() bool {
	s := b.session
	if !s.Ready() {
		return false
	}
	s.Left.CurrentHP = s.Left.MaxHP()
	s.Right.CurrentHP = s.Right.MaxHP()
	s.Turn = s.FirstTurn
	s.Finished = models.SideNone
	s.Logs = nil
	b.pending = 0
	b.maybeStart()
	b.notify()
	return true
}
