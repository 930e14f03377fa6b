package pokeapi

import (
	"context"
	"fmt"

	"github.com/tatianab/pokebattle/internal/models"
)

type evolutionDetail struct {
	Trigger   *models.NamedResource `json:"trigger"`
	MinLevel  *int                  `json:"min_level"`
	Item      *models.NamedResource `json:"item"`
	TimeOfDay string                `json:"time_of_day"`
}

type chainLink struct {
	Species          models.NamedResource `json:"species"`
	EvolutionDetails []evolutionDetail    `json:"evolution_details"`
	EvolvesTo        []chainLink          `json:"evolves_to"`
}

type evolutionChainResponse struct {
	ID    int       `json:"id"`
	Chain chainLink `json:"chain"`
}

// EvolutionStage is one creature of a flattened evolution chain, with the
// first condition that evolves into it.
type EvolutionStage struct {
	ID        int
	Name      string
	Trigger   string
	MinLevel  *int
	Item      string
	TimeOfDay string
}

// Describe renders the evolution condition, empty for the base stage.
func (s EvolutionStage) Describe() string {
	switch {
	case s.MinLevel != nil:
		return fmt.Sprintf("level %d", *s.MinLevel)
	case s.Item != "":
		return "use " + s.Item
	case s.TimeOfDay != "" && s.Trigger != "":
		return s.Trigger + " (" + s.TimeOfDay + ")"
	}
	return s.Trigger
}

// EvolutionChain fetches a chain by id and flattens it depth-first.
func (c *Client) EvolutionChain(ctx context.Context, chainID int) ([]EvolutionStage, error) {
	var resp evolutionChainResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/evolution-chain/%d", chainID), &resp); err != nil {
		return nil, fmt.Errorf("load evolution chain %d: %w", chainID, err)
	}
	var out []EvolutionStage
	var walk func(chainLink)
	walk = func(node chainLink) {
		stage := EvolutionStage{ID: IDFromURL(node.Species.URL), Name: node.Species.Name}
		if len(node.EvolutionDetails) > 0 {
			d := node.EvolutionDetails[0]
			if d.Trigger != nil {
				stage.Trigger = d.Trigger.Name
			}
			if d.Item != nil {
				stage.Item = d.Item.Name
			}
			stage.MinLevel = d.MinLevel
			stage.TimeOfDay = d.TimeOfDay
		}
		out = append(out, stage)
		for _, next := range node.EvolvesTo {
			walk(next)
		}
	}
	walk(resp.Chain)
	return out, nil
}

// EvolutionChainForPokemon resolves a creature's species and returns its chain.
func (c *Client) EvolutionChainForPokemon(ctx context.Context, ident string) ([]EvolutionStage, error) {
	species, err := c.Species(ctx, ident)
	if err != nil {
		return nil, err
	}
	id := IDFromURL(species.EvolutionChain.URL)
	if id == 0 {
		return nil, fmt.Errorf("species %q has no evolution chain: %w", ident, ErrNotFound)
	}
	return c.EvolutionChain(ctx, id)
}
