package engine

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/tatianab/pokebattle/internal/models"
)

type fakeCreatures map[string]*models.Pokemon

func (f fakeCreatures) Pokemon(ctx context.Context, ident string) (*models.Pokemon, error) {
	p, ok := f[ident]
	if !ok {
		return nil, errors.New("not found")
	}
	return p, nil
}

type fakeResolver struct {
	maps map[string]models.DamageMap
	err  error
}

func (f fakeResolver) DefensiveMultipliers(ctx context.Context, types []string) (models.DamageMap, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.maps[types[0]], nil
}

func roster() fakeCreatures {
	return fakeCreatures{
		"bulbasaur":  creature(1, "bulbasaur", 45, 49, 49, 45, "grass", "poison"),
		"charmander": creature(4, "charmander", 39, 52, 43, 65, "fire"),
		"1":          creature(1, "bulbasaur", 45, 49, 49, 45, "grass", "poison"),
		"pikachu":    creature(25, "pikachu", 35, 55, 40, 90, "electric"),
		"raichu":     creature(26, "raichu", 60, 90, 55, 110, "electric"),
		"twin":       creature(99, "twin", 50, 50, 50, 65, "normal"),
	}
}

func resolver() fakeResolver {
	return fakeResolver{maps: map[string]models.DamageMap{
		"grass": {"fire": 2, "water": 0.5, "grass": 0.5},
		"fire":  {"water": 2, "grass": 0.5, "fire": 0.5},
	}}
}

func loaded(t *testing.T, a, b string, opts ...Option) *Battle {
	t.Helper()
	bt := New(nil, roster(), resolver(), opts...)
	ctx := context.Background()
	if err := bt.LoadFighter(ctx, models.SideA, a); err != nil {
		t.Fatalf("LoadFighter(A, %s): %v", a, err)
	}
	if err := bt.LoadFighter(ctx, models.SideB, b); err != nil {
		t.Fatalf("LoadFighter(B, %s): %v", b, err)
	}
	return bt
}

func TestFasterFighterGoesFirst(t *testing.T) {
	bt := loaded(t, "bulbasaur", "charmander")
	s := bt.Session()
	if s.FirstTurn != models.SideB || s.Turn != models.SideB {
		t.Fatalf("first/turn = %q/%q, want B (speed 65 beats 45)", s.FirstTurn, s.Turn)
	}
	if s.Phase() != models.PhaseInProgress {
		t.Errorf("phase = %v", s.Phase())
	}
}

func TestSpeedTieUsesRandom(t *testing.T) {
	for draw, want := range map[float64]models.Side{0.3: models.SideA, 0.7: models.SideB} {
		bt := loaded(t, "charmander", "twin", WithRandom(NewSequence(draw)))
		if got := bt.Session().FirstTurn; got != want {
			t.Errorf("tie with draw %v: first = %q, want %q", draw, got, want)
		}
	}
}

func TestLoadingAfterStartKeepsTurnOrder(t *testing.T) {
	bt := loaded(t, "bulbasaur", "charmander")
	if err := bt.LoadFighter(context.Background(), models.SideA, "raichu"); err != nil {
		t.Fatalf("LoadFighter: %v", err)
	}
	s := bt.Session()
	if s.FirstTurn != models.SideB || s.Turn != models.SideB {
		t.Errorf("turn order was recomputed: %q/%q", s.FirstTurn, s.Turn)
	}
	if s.Left.Pokemon.Name != "raichu" || s.Left.CurrentHP != 60 || s.Left.MoveType != "electric" {
		t.Errorf("left = %+v", s.Left)
	}
	if s.Right.Pokemon.Name != "charmander" {
		t.Errorf("other side was touched: %+v", s.Right)
	}
	if s.InputA != "raichu" {
		t.Errorf("input A = %q", s.InputA)
	}
}

func TestLoadFailureLeavesStateUntouched(t *testing.T) {
	bt := loaded(t, "bulbasaur", "charmander")
	before := *bt.Session()
	calls := 0
	bt.observers = append(bt.observers, func(*models.BattleSession) { calls++ })

	if err := bt.LoadFighter(context.Background(), models.SideA, "missingno"); err == nil {
		t.Fatalf("expected load error")
	}
	s := bt.Session()
	if s.Left != before.Left || s.InputA != before.InputA || s.Turn != before.Turn {
		t.Errorf("failed load mutated session")
	}
	if calls != 0 {
		t.Errorf("observers notified %d times on failed load", calls)
	}
}

func TestLoadIsCaseInsensitive(t *testing.T) {
	bt := New(nil, roster(), resolver())
	if err := bt.LoadFighter(context.Background(), models.SideA, "  BulbaSaur "); err != nil {
		t.Fatalf("LoadFighter: %v", err)
	}
	if bt.Session().Left.Pokemon.Name != "bulbasaur" {
		t.Errorf("left = %+v", bt.Session().Left)
	}
	if bt.Session().Phase() != models.PhaseUninitialized {
		t.Errorf("one fighter should not start the battle")
	}
}

func TestTurnAlternation(t *testing.T) {
	bt := loaded(t, "bulbasaur", "charmander", WithRandom(NewSequence(0.9, 0.0)))
	s := bt.Session()
	s.FirstTurn, s.Turn = models.SideA, models.SideA

	if _, ok := bt.DoTurn(); !ok {
		t.Fatalf("first turn rejected")
	}
	if s.Turn != models.SideB {
		t.Fatalf("after one turn, turn = %q, want B", s.Turn)
	}
	if _, ok := bt.DoTurn(); !ok {
		t.Fatalf("second turn rejected")
	}
	if s.Finished == models.SideNone && s.Turn != models.SideA {
		t.Fatalf("after two turns, turn = %q, want A", s.Turn)
	}
	if len(s.Logs) != 2 || s.Logs[0].Attacker != models.SideA || s.Logs[1].Attacker != models.SideB {
		t.Errorf("logs = %+v", s.Logs)
	}
}

// twoFighters builds a session with a fire attacker vs a 39 HP defender
// that resists fire; with draws (0.5, 0.2) each hit deals 15.
func twoFighters(defenderHP int) (*Battle, *models.BattleSession) {
	atk := creature(4, "charmander", 39, 40, 43, 65, "fire")
	def := creature(1, "bulbasaur", 39, 49, 50, 45, "grass")
	s := models.NewBattleSession()
	s.Left = models.NewFighter(atk)
	s.Right = models.NewFighter(def)
	s.Right.CurrentHP = defenderHP
	s.FirstTurn, s.Turn = models.SideA, models.SideA

	bt := New(s, roster(), resolver(), WithRandom(NewSequence(0.5, 0.2)))
	bt.maps[models.SideB] = models.DamageMap{"fire": 0.5}
	return bt, s
}

func TestDoTurnScenario(t *testing.T) {
	bt, s := twoFighters(39)

	entry, ok := bt.DoTurn()
	if !ok {
		t.Fatalf("turn rejected")
	}
	if s.Right.CurrentHP != 24 {
		t.Errorf("defender HP = %d, want 24", s.Right.CurrentHP)
	}
	if len(s.Logs) != 1 || s.Turn != models.SideB || s.Finished != models.SideNone {
		t.Errorf("logs=%d turn=%q finished=%q", len(s.Logs), s.Turn, s.Finished)
	}
	want := models.TurnLog{
		Attacker: models.SideA, Defender: models.SideB,
		AttackerName: "Charmander", DefenderName: "Bulbasaur",
		MoveType: "fire", Damage: 15, Effectiveness: 0.5, DefenderRemaining: 24,
	}
	if entry != want || s.Logs[0] != want {
		t.Errorf("entry = %+v, want %+v", entry, want)
	}
}

func TestKnockoutFinishesBattle(t *testing.T) {
	bt, s := twoFighters(10)

	if _, ok := bt.DoTurn(); !ok {
		t.Fatalf("turn rejected")
	}
	if s.Right.CurrentHP != 0 {
		t.Errorf("defender HP = %d, want 0", s.Right.CurrentHP)
	}
	if s.Finished != models.SideA || s.Turn != models.SideNone || s.Phase() != models.PhaseFinished {
		t.Errorf("finished=%q turn=%q", s.Finished, s.Turn)
	}
	if _, ok := bt.DoTurn(); ok {
		t.Errorf("turn accepted after the battle finished")
	}
	if len(s.Logs) != 1 {
		t.Errorf("log grew after finish: %d", len(s.Logs))
	}
}

func TestSettlingTurnRejectsRequests(t *testing.T) {
	bt, s := twoFighters(39)

	ticket, ok := bt.BeginTurn()
	if !ok || !bt.Busy() {
		t.Fatalf("BeginTurn = %d, %v", ticket, ok)
	}
	if _, again := bt.BeginTurn(); again {
		t.Errorf("second request during settling was accepted")
	}
	if _, ok := bt.DoTurn(); ok {
		t.Errorf("DoTurn during settling was accepted")
	}
	if len(s.Logs) != 0 || s.Right.CurrentHP != 39 {
		t.Errorf("state changed before the turn settled")
	}
	if _, ok := bt.ResolveTurn(ticket); !ok {
		t.Fatalf("ResolveTurn rejected")
	}
	if _, ok := bt.ResolveTurn(ticket); ok {
		t.Errorf("ticket resolved twice")
	}
	if bt.Busy() || len(s.Logs) != 1 {
		t.Errorf("busy=%v logs=%d", bt.Busy(), len(s.Logs))
	}
}

func TestResetCancelsSettlingTurn(t *testing.T) {
	bt, s := twoFighters(39)

	ticket, _ := bt.BeginTurn()
	bt.Reset()
	if _, ok := bt.ResolveTurn(ticket); ok {
		t.Errorf("stale ticket resolved after reset")
	}
	if len(s.Logs) != 0 {
		t.Errorf("logs = %d", len(s.Logs))
	}
}

func TestResetIsIdempotent(t *testing.T) {
	bt, s := twoFighters(10)
	bt.DoTurn()

	if !bt.Reset() {
		t.Fatalf("Reset rejected")
	}
	once := *s
	once.Logs = slices.Clone(s.Logs)
	bt.Reset()

	if s.Left != once.Left || s.Right != once.Right || s.Turn != once.Turn || s.Finished != once.Finished || len(s.Logs) != len(once.Logs) {
		t.Errorf("second reset changed state")
	}
	if s.Right.CurrentHP != 39 || s.Left.CurrentHP != 39 {
		t.Errorf("hp = %d/%d, want full", s.Left.CurrentHP, s.Right.CurrentHP)
	}
	if len(s.Logs) != 0 || s.Turn != models.SideA || s.FirstTurn != models.SideA || s.Finished != models.SideNone {
		t.Errorf("logs=%d turn=%q first=%q finished=%q", len(s.Logs), s.Turn, s.FirstTurn, s.Finished)
	}
}

func TestResetNeedsBothFighters(t *testing.T) {
	bt := New(nil, roster(), resolver())
	if bt.Reset() {
		t.Errorf("Reset accepted with empty slots")
	}
}

func TestMoveTypeSelection(t *testing.T) {
	bt := loaded(t, "bulbasaur", "charmander")

	if err := bt.SetMoveType(models.SideA, "poison"); err != nil {
		t.Fatalf("SetMoveType: %v", err)
	}
	if err := bt.SetMoveType(models.SideA, "fire"); !errors.Is(err, ErrInvalidMoveType) {
		t.Errorf("foreign type err = %v", err)
	}
	next, err := bt.CycleMoveType(models.SideA)
	if err != nil || next != "grass" {
		t.Errorf("CycleMoveType = %q, %v", next, err)
	}
	if err := bt.SetMoveType("C", "grass"); !errors.Is(err, ErrInvalidSide) {
		t.Errorf("invalid side err = %v", err)
	}
	if err := New(nil, roster(), resolver()).SetMoveType(models.SideA, "grass"); !errors.Is(err, ErrEmptySlot) {
		t.Errorf("empty slot err = %v", err)
	}
}

func TestDamageMapFailureIsNeutral(t *testing.T) {
	bt := New(nil, roster(), fakeResolver{err: errors.New("offline")}, WithRandom(NewSequence(0.9, 0.0)))
	ctx := context.Background()
	if err := bt.LoadFighter(ctx, models.SideA, "charmander"); err != nil {
		t.Fatalf("LoadFighter: %v", err)
	}
	if err := bt.LoadFighter(ctx, models.SideB, "bulbasaur"); err != nil {
		t.Fatalf("LoadFighter must not fail on missing type data: %v", err)
	}
	if bt.DamageMap(models.SideB) != nil {
		t.Errorf("expected nil map after failure")
	}
	entry, ok := bt.DoTurn()
	if !ok || entry.Effectiveness != 1 {
		t.Errorf("entry = %+v, ok = %v", entry, ok)
	}
}

func TestStaleDamageMapIsDropped(t *testing.T) {
	bt := loaded(t, "bulbasaur", "charmander")
	if bt.ApplyDamageMap(models.SideA, []string{"fire"}, models.DamageMap{"water": 4}) {
		t.Errorf("map for old types was applied")
	}
	if bt.DamageMap(models.SideA)["fire"] != 2 {
		t.Errorf("current map was replaced: %v", bt.DamageMap(models.SideA))
	}
}

func TestObserverSeesCommittedTurn(t *testing.T) {
	bt, s := twoFighters(39)
	var seen []int
	bt.observers = append(bt.observers, func(got *models.BattleSession) {
		// HP, log and turn flip land together.
		if len(got.Logs) == 1 && (got.Right.CurrentHP != 24 || got.Turn != models.SideB) {
			t.Errorf("observer saw a half-applied turn: hp=%d turn=%q", got.Right.CurrentHP, got.Turn)
		}
		seen = append(seen, len(got.Logs))
	})
	bt.DoTurn()
	if len(seen) != 1 || seen[0] != 1 || s.Turn != models.SideB {
		t.Errorf("observer calls = %v", seen)
	}
}

func TestRestoreAssignsOrderForUnstartedPair(t *testing.T) {
	s := models.NewBattleSession()
	s.Left = models.NewFighter(creature(25, "pikachu", 35, 55, 40, 90, "electric"))
	s.Right = models.NewFighter(creature(4, "charmander", 39, 52, 43, 65, "fire"))

	bt := New(nil, roster(), resolver())
	bt.Restore(s)
	if s.FirstTurn != models.SideA || s.Turn != models.SideA {
		t.Errorf("first/turn = %q/%q", s.FirstTurn, s.Turn)
	}
}
