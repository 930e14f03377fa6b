package models

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMalformedSnapshot is returned when a stored snapshot can't be trusted.
var ErrMalformedSnapshot = errors.New("malformed battle snapshot")

// SavedFighter is the slimmed fighter record kept in a snapshot.
type SavedFighter struct {
	ID        int        `yaml:"id"`
	Name      string     `yaml:"name"`
	Stats     []Stat     `yaml:"stats"`
	Types     []TypeSlot `yaml:"types"`
	Sprites   Sprites    `yaml:"sprites,omitempty"`
	CurrentHP int        `yaml:"current_hp"`
	MoveType  string     `yaml:"move_type,omitempty"`
}

// Snapshot is the persisted layout of a BattleSession.
type Snapshot struct {
	InputA    string        `yaml:"input_a"`
	InputB    string        `yaml:"input_b"`
	FirstTurn Side          `yaml:"first_turn"`
	Turn      Side          `yaml:"turn"`
	Finished  Side          `yaml:"finished"`
	Logs      []TurnLog     `yaml:"logs"`
	Left      *SavedFighter `yaml:"left"`
	Right     *SavedFighter `yaml:"right"`
}

func slim(f Fighter) *SavedFighter {
	if f.Empty() {
		return nil
	}
	p := f.Pokemon
	return &SavedFighter{
		ID:        p.ID,
		Name:      p.Name,
		Stats:     p.Stats,
		Types:     p.Types,
		Sprites:   p.Sprites,
		CurrentHP: f.CurrentHP,
		MoveType:  f.MoveType,
	}
}

func (sf *SavedFighter) valid() bool {
	return sf != nil && sf.ID > 0 && sf.Name != "" && len(sf.Stats) > 0 && len(sf.Types) > 0
}

// restore rebuilds a fighter; an invalid record becomes an empty slot.
func (sf *SavedFighter) restore() Fighter {
	if !sf.valid() {
		return Fighter{}
	}
	p := &Pokemon{
		ID:      sf.ID,
		Name:    sf.Name,
		Stats:   sf.Stats,
		Types:   sf.Types,
		Sprites: sf.Sprites,
	}
	hp := min(max(sf.CurrentHP, 0), p.MaxHP())
	moveType := sf.MoveType
	if !p.HasType(moveType) {
		moveType = p.FirstType()
	}
	return Fighter{Pokemon: p, CurrentHP: hp, MoveType: moveType}
}

// NewSnapshot reduces a session to its persisted form.
func NewSnapshot(s *BattleSession) Snapshot {
	logs := s.Logs
	if logs == nil {
		logs = []TurnLog{}
	}
	return Snapshot{
		InputA:    s.InputA,
		InputB:    s.InputB,
		FirstTurn: s.FirstTurn,
		Turn:      s.Turn,
		Finished:  s.Finished,
		Logs:      logs,
		Left:      slim(s.Left),
		Right:     slim(s.Right),
	}
}

// Session rebuilds a BattleSession from the snapshot.
func (snap Snapshot) Session() *BattleSession {
	s := &BattleSession{
		InputA:    snap.InputA,
		InputB:    snap.InputB,
		FirstTurn: snap.FirstTurn,
		Turn:      snap.Turn,
		Finished:  snap.Finished,
		Logs:      append([]TurnLog(nil), snap.Logs...),
		Left:      snap.Left.restore(),
		Right:     snap.Right.restore(),
	}
	if s.InputA == "" {
		s.InputA = DefaultInputA
	}
	if s.InputB == "" {
		s.InputB = DefaultInputB
	}
	return s
}

func validSideOrNone(s Side) bool {
	return s == SideNone || s.Valid()
}

// Validate checks the side markers and the finished/turn invariant.
func (snap Snapshot) Validate() error {
	for name, s := range map[string]Side{"first_turn": snap.FirstTurn, "turn": snap.Turn, "finished": snap.Finished} {
		if !validSideOrNone(s) {
			return fmt.Errorf("%w: %s has invalid side %q", ErrMalformedSnapshot, name, s)
		}
	}
	if snap.Finished != SideNone && snap.Turn != SideNone {
		return fmt.Errorf("%w: finished battle still has a turn owner", ErrMalformedSnapshot)
	}
	for i, l := range snap.Logs {
		if !l.Attacker.Valid() || !l.Defender.Valid() || l.Attacker == l.Defender {
			return fmt.Errorf("%w: log entry %d has invalid sides", ErrMalformedSnapshot, i)
		}
	}
	return nil
}

// EncodeSnapshot serializes the session in its slimmed form.
func EncodeSnapshot(s *BattleSession) ([]byte, error) {
	return yaml.Marshal(NewSnapshot(s))
}

// DecodeSnapshot parses and validates a stored snapshot.
func DecodeSnapshot(data []byte) (*BattleSession, error) {
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap.Session(), nil
}

// EncodePendingSlots serializes queued fighter selections.
func EncodePendingSlots(p PendingSlots) ([]byte, error) {
	return yaml.Marshal(p)
}

// DecodePendingSlots parses queued fighter selections.
func DecodePendingSlots(data []byte) (PendingSlots, error) {
	var p PendingSlots
	if err := yaml.Unmarshal(data, &p); err != nil {
		return PendingSlots{}, err
	}
	return p, nil
}
