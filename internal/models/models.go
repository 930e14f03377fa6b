package models

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NamedResource is the {name, url} pair the data source uses for references.
type NamedResource struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url,omitempty"`
}

// Stat is one base stat entry, e.g. {"base_stat": 45, "stat": {"name": "hp"}}.
type Stat struct {
	BaseStat int           `json:"base_stat" yaml:"base_stat"`
	Stat     NamedResource `json:"stat" yaml:"stat"`
}

// TypeSlot is one entry of a creature's ordered type list.
type TypeSlot struct {
	Slot int           `json:"slot" yaml:"slot"`
	Type NamedResource `json:"type" yaml:"type"`
}

// AbilitySlot is one entry of a creature's ability list.
type AbilitySlot struct {
	Ability  NamedResource `json:"ability" yaml:"ability"`
	IsHidden bool          `json:"is_hidden" yaml:"is_hidden,omitempty"`
}

// Artwork holds a single image reference.
type Artwork struct {
	FrontDefault string `json:"front_default" yaml:"front_default,omitempty"`
}

// OtherSprites holds the alternate sprite sets; only official artwork is used.
type OtherSprites struct {
	OfficialArtwork Artwork `json:"official-artwork" yaml:"official_artwork,omitempty"`
}

// Sprites holds the sprite references of a creature.
type Sprites struct {
	FrontDefault string       `json:"front_default" yaml:"front_default,omitempty"`
	Other        OtherSprites `json:"other" yaml:"other,omitempty"`
}

// Pokemon is a creature as returned by the data source.
type Pokemon struct {
	ID        int           `json:"id" yaml:"id"`
	Name      string        `json:"name" yaml:"name"`
	Height    int           `json:"height" yaml:"height,omitempty"`
	Weight    int           `json:"weight" yaml:"weight,omitempty"`
	Abilities []AbilitySlot `json:"abilities" yaml:"abilities,omitempty"`
	Types     []TypeSlot    `json:"types" yaml:"types"`
	Stats     []Stat        `json:"stats" yaml:"stats"`
	Sprites   Sprites       `json:"sprites" yaml:"sprites,omitempty"`
}

// Stat names used by the battle.
const (
	StatHP      = "hp"
	StatAttack  = "attack"
	StatDefense = "defense"
	StatSpeed   = "speed"
)

// Stat returns the named base stat, or 0 if the creature doesn't list it.
func (p *Pokemon) Stat(name string) int {
	if p == nil {
		return 0
	}
	for _, s := range p.Stats {
		if s.Stat.Name == name {
			return s.BaseStat
		}
	}
	return 0
}

// MaxHP is the "hp" base stat.
func (p *Pokemon) MaxHP() int {
	return p.Stat(StatHP)
}

// TypeNames returns the creature's types in slot order.
func (p *Pokemon) TypeNames() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.Types))
	for _, t := range p.Types {
		names = append(names, t.Type.Name)
	}
	return names
}

// FirstType returns the primary type, or "" for a typeless record.
func (p *Pokemon) FirstType() string {
	if p == nil || len(p.Types) == 0 {
		return ""
	}
	return p.Types[0].Type.Name
}

// HasType reports whether t is one of the creature's own types.
func (p *Pokemon) HasType(t string) bool {
	return t != "" && slices.Contains(p.TypeNames(), t)
}

// ArtworkURL prefers the official artwork sprite and falls back to the
// well-known artwork location for the id.
func (p *Pokemon) ArtworkURL() string {
	if p == nil {
		return ""
	}
	if u := p.Sprites.Other.OfficialArtwork.FrontDefault; u != "" {
		return u
	}
	return OfficialArtworkURL(p.ID)
}

// DisplayName is the title-cased name, e.g. "mr-mime" -> "Mr-Mime".
func (p *Pokemon) DisplayName() string {
	if p == nil {
		return ""
	}
	return DisplayName(p.Name)
}

// DisplayName title-cases a creature or type name for presentation.
func DisplayName(name string) string {
	// Casers keep state, so one is built per call.
	return cases.Title(language.English).String(name)
}

// OfficialArtworkURL is the sprite repository location of a creature's artwork.
func OfficialArtworkURL(id int) string {
	return fmt.Sprintf("https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/other/official-artwork/%d.png", id)
}

// Side identifies a fighter slot and doubles as the turn-owner token.
// The zero value means "none".
type Side string

const (
	SideNone Side = ""
	SideA    Side = "A"
	SideB    Side = "B"
)

// Valid reports whether s is A or B.
func (s Side) Valid() bool {
	return s == SideA || s == SideB
}

// Other returns the opposing side. It returns SideNone for SideNone.
func (s Side) Other() Side {
	switch s {
	case SideA:
		return SideB
	case SideB:
		return SideA
	}
	return SideNone
}

// ParseSide accepts "a"/"A"/"b"/"B".
func ParseSide(raw string) (Side, error) {
	switch s := Side(strings.ToUpper(strings.TrimSpace(raw))); s {
	case SideA, SideB:
		return s, nil
	}
	return SideNone, fmt.Errorf("invalid side %q (want A or B)", raw)
}

// Fighter is one side's creature plus its battle-only state. A Fighter with
// a nil Pokemon is an empty slot: CurrentHP 0 and no move type.
type Fighter struct {
	Pokemon   *Pokemon
	CurrentHP int
	MoveType  string
}

// Empty reports whether no creature is loaded into the slot.
func (f *Fighter) Empty() bool {
	return f == nil || f.Pokemon == nil
}

// MaxHP is the fighter's full HP, 0 for an empty slot.
func (f *Fighter) MaxHP() int {
	if f.Empty() {
		return 0
	}
	return f.Pokemon.MaxHP()
}

// NewFighter puts p into a slot at full HP with its first type selected.
func NewFighter(p *Pokemon) Fighter {
	return Fighter{Pokemon: p, CurrentHP: p.MaxHP(), MoveType: p.FirstType()}
}

// DamageMap maps an attacking type name to the multiplier the defender takes.
type DamageMap map[string]float64

// Multiplier returns the multiplier for an attacking type, 1 when the map is
// nil or the type is unlisted.
func (m DamageMap) Multiplier(attackType string) float64 {
	if v, ok := m[attackType]; ok {
		return v
	}
	return 1
}

// TurnLog records one resolved turn. Entries are never mutated after being
// appended to a session.
type TurnLog struct {
	Attacker          Side    `yaml:"attacker"`
	Defender          Side    `yaml:"defender"`
	AttackerName      string  `yaml:"attacker_name"`
	DefenderName      string  `yaml:"defender_name"`
	MoveType          string  `yaml:"move_type"`
	Damage            int     `yaml:"damage"`
	Effectiveness     float64 `yaml:"effectiveness"`
	Critical          bool    `yaml:"critical"`
	DefenderRemaining int     `yaml:"defender_remaining"`
}

// BattleSession aggregates everything a battle persists across reloads.
type BattleSession struct {
	Left   Fighter
	Right  Fighter
	InputA string
	InputB string

	FirstTurn Side
	Turn      Side
	Finished  Side
	Logs      []TurnLog
}

// Default identifiers offered when nothing has been entered yet.
const (
	DefaultInputA = "bulbasaur"
	DefaultInputB = "charmander"
)

// NewBattleSession returns an empty session with the default identifiers.
func NewBattleSession() *BattleSession {
	return &BattleSession{InputA: DefaultInputA, InputB: DefaultInputB}
}

// Fighter returns the slot for side, or nil for an invalid side.
func (s *BattleSession) Fighter(side Side) *Fighter {
	switch side {
	case SideA:
		return &s.Left
	case SideB:
		return &s.Right
	}
	return nil
}

// Input returns the raw identifier entered for side.
func (s *BattleSession) Input(side Side) string {
	if side == SideB {
		return s.InputB
	}
	return s.InputA
}

// SetInput stores the raw identifier entered for side.
func (s *BattleSession) SetInput(side Side, raw string) {
	switch side {
	case SideA:
		s.InputA = raw
	case SideB:
		s.InputB = raw
	}
}

// Ready reports whether both slots hold a creature.
func (s *BattleSession) Ready() bool {
	return !s.Left.Empty() && !s.Right.Empty()
}

// NeverStarted reports whether no turn order has been assigned and no turn
// has been taken.
func (s *BattleSession) NeverStarted() bool {
	return s.FirstTurn == SideNone && s.Turn == SideNone && len(s.Logs) == 0 && s.Finished == SideNone
}

// Phase names the state machine state the session is in.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseReady
	PhaseInProgress
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhaseInProgress:
		return "in progress"
	case PhaseFinished:
		return "finished"
	}
	return "uninitialized"
}

// Phase derives the current state from the session fields.
func (s *BattleSession) Phase() Phase {
	switch {
	case !s.Ready():
		return PhaseUninitialized
	case s.Finished != SideNone:
		return PhaseFinished
	case s.Turn != SideNone:
		return PhaseInProgress
	}
	return PhaseReady
}

// PendingSlots is a queued fighter selection per side, keyed "A"/"B".
type PendingSlots struct {
	A string `yaml:"A,omitempty"`
	B string `yaml:"B,omitempty"`
}

// Get returns the identifier queued for side.
func (p PendingSlots) Get(side Side) string {
	if side == SideB {
		return p.B
	}
	if side == SideA {
		return p.A
	}
	return ""
}

// Set queues ident for side.
func (p *PendingSlots) Set(side Side, ident string) {
	switch side {
	case SideA:
		p.A = ident
	case SideB:
		p.B = ident
	}
}

// Empty reports whether nothing is queued.
func (p PendingSlots) Empty() bool {
	return p.A == "" && p.B == ""
}
