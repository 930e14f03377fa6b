package engine

import (
	"testing"

	"github.com/tatianab/pokebattle/internal/models"
)

func TestEffectivenessNote(t *testing.T) {
	tests := map[float64]string{
		4:    "It's super effective!",
		2:    "It's super effective!",
		1:    "",
		0.5:  "Not very effective.",
		0.25: "Not very effective.",
		0:    "No effect…",
	}
	for eff, want := range tests {
		if got := EffectivenessNote(eff); got != want {
			t.Errorf("EffectivenessNote(%v) = %q, want %q", eff, got, want)
		}
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		log  models.TurnLog
		want string
	}{
		{
			models.TurnLog{AttackerName: "Charmander", MoveType: "fire", Damage: 24, Critical: true, Effectiveness: 2, DefenderRemaining: 21},
			"Charmander used fire → 24 dmg (CRIT!) • It's super effective! → 21 HP left",
		},
		{
			models.TurnLog{AttackerName: "Bulbasaur", MoveType: "grass", Damage: 9, Effectiveness: 1, DefenderRemaining: 30},
			"Bulbasaur used grass → 9 dmg → 30 HP left",
		},
	}
	for _, tt := range tests {
		if got := Describe(tt.log); got != tt.want {
			t.Errorf("Describe = %q, want %q", got, tt.want)
		}
	}
}

func TestOutcome(t *testing.T) {
	s := models.NewBattleSession()
	if got := Outcome(s); got != "Load a fighter on both sides to begin." {
		t.Errorf("empty: %q", got)
	}
	s.Left = models.NewFighter(creature(4, "charmander", 39, 52, 43, 65, "fire"))
	s.Right = models.NewFighter(creature(1, "bulbasaur", 45, 49, 49, 45, "grass"))
	s.FirstTurn, s.Turn = models.SideA, models.SideA
	if got := Outcome(s); got != "Trainer A to move." {
		t.Errorf("in progress: %q", got)
	}
	s.Turn, s.Finished = models.SideNone, models.SideA
	s.Logs = make([]models.TurnLog, 3)
	if got := Outcome(s); got != "Charmander (Trainer A) wins after 3 turns!" {
		t.Errorf("finished: %q", got)
	}
}
