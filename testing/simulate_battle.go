package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/tatianab/pokebattle/internal/config"
	"github.com/tatianab/pokebattle/internal/engine"
	"github.com/tatianab/pokebattle/internal/models"
	"github.com/tatianab/pokebattle/internal/narrator"
	"github.com/tatianab/pokebattle/internal/pokeapi"
	"github.com/tatianab/pokebattle/internal/typechart"
)

func main() {
	fighterA := flag.String("a", models.DefaultInputA, "fighter for Trainer A")
	fighterB := flag.String("b", models.DefaultInputB, "fighter for Trainer B")
	seed := flag.Uint64("seed", 0, "random seed (0 picks one from the clock)")
	maxTurns := flag.Int("turns", 100, "stop after this many turns")
	narrate := flag.Bool("narrate", false, "ask Gemini for a recap at the end")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(*seed, *seed))

	client := pokeapi.NewClient(cfg.APIURL, pokeapi.WithTimeout(cfg.HTTPTimeout))
	b := engine.New(nil, client, typechart.NewResolver(client),
		engine.WithRandom(rng),
		engine.WithZeroDamagePolicy(cfg.Policy()),
	)

	fmt.Printf("--- Loading fighters (seed %d) ---\n", *seed)
	if err := b.LoadFighter(ctx, models.SideA, *fighterA); err != nil {
		log.Fatalf("Failed to load Trainer A: %v", err)
	}
	if err := b.LoadFighter(ctx, models.SideB, *fighterB); err != nil {
		log.Fatalf("Failed to load Trainer B: %v", err)
	}
	s := b.Session()
	for _, side := range []models.Side{models.SideA, models.SideB} {
		f := s.Fighter(side)
		fmt.Printf("Trainer %s: %s %v %d HP, speed %d\n", side, f.Pokemon.DisplayName(), f.Pokemon.TypeNames(), f.CurrentHP, f.Pokemon.Stat(models.StatSpeed))
	}
	fmt.Printf("Trainer %s moves first.\n\n", s.FirstTurn)

	for turn := 1; turn <= *maxTurns; turn++ {
		entry, ok := b.DoTurn()
		if !ok {
			break
		}
		fmt.Printf("Turn %d: %s\n", turn, engine.Describe(entry))
	}
	fmt.Printf("\n%s\n", engine.Outcome(s))

	if !*narrate {
		return
	}
	if !cfg.NarrationEnabled() {
		log.Fatalf("Narration needs GEMINI_API_KEY")
	}
	n, err := narrator.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("Failed to create narrator: %v", err)
	}
	defer n.Close()
	recap, err := n.Narrate(ctx, s)
	if err != nil {
		log.Fatalf("Failed to narrate: %v", err)
	}
	fmt.Printf("\n--- Announcer ---\n%s\n", recap)
}
