package engine

import (
	"fmt"
	"strings"

	"github.com/tatianab/pokebattle/internal/models"
)

// EffectivenessNote is the flavor text for a multiplier.
func EffectivenessNote(eff float64) string {
	switch {
	case eff > 1:
		return "It's super effective!"
	case eff == 0:
		return "No effect…"
	case eff < 1:
		return "Not very effective."
	}
	return ""
}

// Describe renders one log entry, e.g.
// "Charmander used fire → 24 dmg (CRIT!) • It's super effective! → 21 HP left".
func Describe(l models.TurnLog) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s used %s → %d dmg", l.AttackerName, l.MoveType, l.Damage)
	if l.Critical {
		sb.WriteString(" (CRIT!)")
	}
	if note := EffectivenessNote(l.Effectiveness); note != "" {
		sb.WriteString(" • " + note)
	}
	fmt.Fprintf(&sb, " → %d HP left", l.DefenderRemaining)
	return sb.String()
}

// Outcome summarizes the session state in one line.
func Outcome(s *models.BattleSession) string {
	switch s.Phase() {
	case models.PhaseUninitialized:
		return "Load a fighter on both sides to begin."
	case models.PhaseFinished:
		winner := s.Fighter(s.Finished)
		return fmt.Sprintf("%s (Trainer %s) wins after %d turns!", winner.Pokemon.DisplayName(), s.Finished, len(s.Logs))
	case models.PhaseInProgress:
		return fmt.Sprintf("Trainer %s to move.", s.Turn)
	}
	return "Ready."
}
