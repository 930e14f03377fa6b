package main

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tatianab/pokebattle/internal/models"
	"github.com/tatianab/pokebattle/internal/pokeapi"
	"github.com/tatianab/pokebattle/internal/roster"
	"github.com/tatianab/pokebattle/internal/session"
	"github.com/tatianab/pokebattle/internal/storage"
	"github.com/tatianab/pokebattle/internal/typechart"
)

var (
	headStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Bold(true)
	keyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Width(12)
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F"))
)

func (a *app) run(ctx context.Context, args []string) error {
	switch args[0] {
	case "queue":
		if len(args) != 3 {
			return fmt.Errorf("usage: queue <A|B> <name|id|random>")
		}
		return a.queue(ctx, args[1], args[2])
	case "slots":
		return a.slots(args[1:])
	case "roster":
		return a.roster(ctx, args[1:])
	case "dex":
		return a.dex(ctx, args[1:])
	case "tabs":
		tabs, err := storage.ListTabs(a.cfg.SaveDir)
		if err != nil {
			return err
		}
		for _, t := range tabs {
			fmt.Println(t)
		}
		return nil
	}
	return fmt.Errorf("unknown command %q", args[0])
}

// queue checks that ident exists and hands it to the battle tab.
func (a *app) queue(ctx context.Context, rawSide, ident string) error {
	side, err := models.ParseSide(rawSide)
	if err != nil {
		return err
	}
	if strings.EqualFold(ident, "random") {
		id, err := a.client.RandomPokemonID(ctx)
		if err != nil {
			return err
		}
		ident = strconv.Itoa(id)
	}
	p, err := a.client.Pokemon(ctx, ident)
	if err != nil {
		return err
	}
	if err := session.NewSlotQueue(a.store).Set(side, p.ID); err != nil {
		return err
	}
	fmt.Printf("Queued %s (#%d) for Trainer %s. Open the battle with: pokebattle -tab %s\n", p.DisplayName(), p.ID, side, a.tab)
	return nil
}

func (a *app) slots(args []string) error {
	q := session.NewSlotQueue(a.store)
	if len(args) > 0 {
		if args[0] != "clear" {
			return fmt.Errorf("usage: slots [clear]")
		}
		if err := q.Clear(); err != nil {
			return err
		}
		fmt.Println("Cleared queued fighters.")
		return nil
	}
	slots, err := q.Peek()
	if err != nil {
		return err
	}
	for _, side := range []models.Side{models.SideA, models.SideB} {
		v := slots.Get(side)
		if v == "" {
			v = "-"
		}
		fmt.Printf("%s: %s\n", side, v)
	}
	return nil
}

func (a *app) roster(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: roster add|rm|has|ls|queue")
	}
	r, err := roster.Open(ctx, a.cfg.RosterDB)
	if err != nil {
		return err
	}
	defer r.Close()

	switch args[0] {
	case "ls":
		entries, err := r.List(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No Pokémon yet. Go catch some!")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("#%03d %s\n", e.ID, models.DisplayName(e.Name))
		}
		return nil

	case "add", "rm", "has":
		if len(args) != 2 {
			return fmt.Errorf("usage: roster %s <name|id>", args[0])
		}
		p, err := a.client.Pokemon(ctx, args[1])
		if err != nil {
			return err
		}
		switch args[0] {
		case "add":
			added, err := r.Add(ctx, roster.Entry{ID: p.ID, Name: p.Name, Image: p.ArtworkURL()})
			if err != nil {
				return err
			}
			if added {
				fmt.Println(okStyle.Render("Caught " + p.DisplayName() + "!"))
			} else {
				fmt.Printf("%s is already on the roster.\n", p.DisplayName())
			}
		case "rm":
			if err := r.Remove(ctx, p.ID); err != nil {
				return err
			}
			fmt.Printf("Transferred %s.\n", p.DisplayName())
		case "has":
			has, err := r.Has(ctx, p.ID)
			if err != nil {
				return err
			}
			fmt.Println(has)
		}
		return nil

	case "queue":
		if len(args) != 3 {
			return fmt.Errorf("usage: roster queue <A|B> <id>")
		}
		id, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("roster ids are numeric: %w", err)
		}
		e, err := r.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("#%d is not on the roster", id)
		}
		side, err := models.ParseSide(args[1])
		if err != nil {
			return err
		}
		if err := session.NewSlotQueue(a.store).Set(side, e.ID); err != nil {
			return err
		}
		fmt.Printf("Queued %s → Team %s\n", models.DisplayName(e.Name), side)
		return nil
	}
	return fmt.Errorf("unknown roster command %q", args[0])
}

func (a *app) dex(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: dex list [limit] [offset] | dex show <name|id>")
	}
	switch args[0] {
	case "list":
		limit, offset := 20, 0
		var err error
		if len(args) > 1 {
			if limit, err = strconv.Atoi(args[1]); err != nil || limit <= 0 {
				return fmt.Errorf("invalid limit %q", args[1])
			}
		}
		if len(args) > 2 {
			if offset, err = strconv.Atoi(args[2]); err != nil || offset < 0 {
				return fmt.Errorf("invalid offset %q", args[2])
			}
		}
		return a.dexList(ctx, limit, offset)
	case "show":
		if len(args) != 2 {
			return fmt.Errorf("usage: dex show <name|id>")
		}
		return a.dexShow(ctx, args[1])
	}
	return fmt.Errorf("unknown dex command %q", args[0])
}

func (a *app) dexList(ctx context.Context, limit, offset int) error {
	page, err := a.client.ListPokemon(ctx, limit, offset)
	if err != nil {
		return err
	}
	for _, r := range page.Results {
		fmt.Printf("#%03d %s\n", pokeapi.IDFromURL(r.URL), models.DisplayName(r.Name))
	}
	fmt.Printf("\n%d–%d of %d", offset+1, offset+len(page.Results), page.Count)
	if page.Next != nil {
		fmt.Printf(" • next: pokebattle dex list %d %d", limit, offset+limit)
	}
	fmt.Println()
	return nil
}

func row(k, v string) {
	fmt.Println(keyStyle.Render(k) + v)
}

func (a *app) dexShow(ctx context.Context, ident string) error {
	p, err := a.client.Pokemon(ctx, ident)
	if err != nil {
		return err
	}

	fmt.Println(headStyle.Render(fmt.Sprintf("#%03d %s", p.ID, p.DisplayName())))
	row("types", strings.Join(p.TypeNames(), " / "))
	row("height", fmt.Sprintf("%.1f m", float64(p.Height)/10))
	row("weight", fmt.Sprintf("%.1f kg", float64(p.Weight)/10))
	abilities := make([]string, len(p.Abilities))
	for i, ab := range p.Abilities {
		abilities[i] = ab.Ability.Name
	}
	row("abilities", strings.Join(abilities, ", "))
	for _, s := range p.Stats {
		row(s.Stat.Name, strconv.Itoa(s.BaseStat))
	}
	row("artwork", p.ArtworkURL())

	// The rest is best effort: a missing record leaves its row out.
	if dm, err := typechart.NewResolver(a.client).DefensiveMultipliers(ctx, p.TypeNames()); err == nil {
		for _, g := range []struct {
			label string
			keep  func(float64) bool
		}{
			{"weak to", func(v float64) bool { return v > 1 }},
			{"resists", func(v float64) bool { return v > 0 && v < 1 }},
			{"immune to", func(v float64) bool { return v == 0 }},
		} {
			if list := matching(dm, g.keep); list != "" {
				row(g.label, list)
			}
		}
	}
	if sp, err := a.client.Species(ctx, strconv.Itoa(p.ID)); err == nil {
		if text := sp.EnglishFlavorText(); text != "" {
			row("entry", text)
		}
	}
	if stages, err := a.client.EvolutionChainForPokemon(ctx, strconv.Itoa(p.ID)); err == nil && len(stages) > 1 {
		parts := make([]string, len(stages))
		for i, s := range stages {
			parts[i] = models.DisplayName(s.Name)
			if how := s.Describe(); how != "" {
				parts[i] += " (" + how + ")"
			}
		}
		row("evolution", strings.Join(parts, " → "))
	}
	if encounters, err := a.client.EncounterLocations(ctx, strconv.Itoa(p.ID)); err == nil && len(encounters) > 0 {
		areas := make([]string, 0, len(encounters))
		for _, e := range encounters {
			areas = append(areas, e.LocationArea.Name)
		}
		row("found in", strings.Join(areas, ", "))
	}
	return nil
}

// matching lists the types whose multiplier passes keep, e.g. "fire ×2".
func matching(dm models.DamageMap, keep func(float64) bool) string {
	var names []string
	for name, v := range dm {
		if keep(v) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	for i, name := range names {
		if v := dm[name]; v != 0 {
			names[i] = name + " ×" + strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
		}
	}
	return strings.Join(names, ", ")
}
