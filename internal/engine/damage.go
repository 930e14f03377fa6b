package engine

import (
	"fmt"
	"math"

	"github.com/tatianab/pokebattle/internal/models"
)

// Fixed battle constants.
const (
	Level       = 50
	MovePower   = 60
	CritChance  = 1.0 / 16
	CritBonus   = 1.5
	STABBonus   = 1.5
	MinRoll     = 0.85
	MaxRoll     = 1.00
	FallbackHit = "normal"
)

// ZeroDamagePolicy decides what a hit with 0 effectiveness deals.
type ZeroDamagePolicy int

const (
	// ClampToOne floors every hit at 1 damage, immune or not.
	ClampToOne ZeroDamagePolicy = iota
	// ZeroOnImmune lets a 0-effectiveness hit deal 0 damage.
	ZeroOnImmune
)

func (p ZeroDamagePolicy) String() string {
	if p == ZeroOnImmune {
		return "zero"
	}
	return "clamp"
}

// ParseZeroDamagePolicy accepts "clamp" or "zero"; empty means clamp.
func ParseZeroDamagePolicy(raw string) (ZeroDamagePolicy, error) {
	switch raw {
	case "", "clamp":
		return ClampToOne, nil
	case "zero":
		return ZeroOnImmune, nil
	}
	return ClampToOne, fmt.Errorf("unknown zero-damage policy %q (want clamp or zero)", raw)
}

// DamageResult is the outcome of one attack.
type DamageResult struct {
	Damage        int
	Effectiveness float64
	Critical      bool
}

// Calculator computes single-attack damage.
type Calculator struct {
	Random Random
	Policy ZeroDamagePolicy
}

// BaseDamage is the level/power/stat part of the formula before modifiers.
func BaseDamage(atk, def int) float64 {
	return ((2*Level/5.0+2)*MovePower*(float64(atk)/float64(max(1, def))))/50 + 2
}

// Compute returns the damage attacker deals to defender with a move of
// moveType. defenderMap may be nil; unlisted types are neutral. It draws
// the critical roll first, then the random factor.
func (c Calculator) Compute(attacker, defender *models.Pokemon, defenderMap models.DamageMap, moveType string) DamageResult {
	rng := c.Random
	if rng == nil {
		rng = DefaultRandom()
	}

	atk := attacker.Stat(models.StatAttack)
	def := defender.Stat(models.StatDefense)

	stab := 1.0
	if attacker.HasType(moveType) {
		stab = STABBonus
	}
	eff := 1.0
	if moveType != "" {
		eff = defenderMap.Multiplier(moveType)
	}
	crit := rng.Float64() < CritChance
	roll := MinRoll + rng.Float64()*(MaxRoll-MinRoll)

	critMod := 1.0
	if crit {
		critMod = CritBonus
	}
	damage := int(math.Floor(BaseDamage(atk, def) * stab * eff * critMod * roll))
	if c.Policy == ZeroOnImmune && eff == 0 {
		damage = 0
	} else {
		damage = max(1, damage)
	}
	return DamageResult{Damage: damage, Effectiveness: eff, Critical: crit}
}
