// Package typechart computes combined defensive type multipliers.
package typechart

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/tatianab/pokebattle/internal/models"
	"github.com/tatianab/pokebattle/internal/pokeapi"
)

// Source is the part of the data source the resolver needs.
type Source interface {
	TypeRelations(ctx context.Context, typeName string) (*pokeapi.TypeRelations, error)
	TypeIndex(ctx context.Context) ([]string, error)
}

// excluded are the non-combat pseudo-types left out of every map.
var excluded = map[string]bool{
	"unknown": true,
	"shadow":  true,
}

// Multipliers for each relation kind.
const (
	doubleDamage = 2.0
	halfDamage   = 0.5
	noDamage     = 0.0
)

// Resolver builds DamageMaps from type relations. Results are not cached.
type Resolver struct {
	src Source
}

// NewResolver returns a resolver reading from src.
func NewResolver(src Source) *Resolver {
	return &Resolver{src: src}
}

// DefensiveMultipliers returns the multiplier a creature with the given
// types takes from each attacking type. Relations compose multiplicatively
// across the defender's types, so a zero is never undone.
func (r *Resolver) DefensiveMultipliers(ctx context.Context, types []string) (models.DamageMap, error) {
	if len(types) == 0 {
		return nil, fmt.Errorf("no defending types")
	}

	relations := make([]*pokeapi.TypeRelations, len(types))
	var index []string

	g, gctx := errgroup.WithContext(ctx)
	for i, t := range types {
		g.Go(func() error {
			tr, err := r.src.TypeRelations(gctx, t)
			if err != nil {
				return err
			}
			relations[i] = tr
			return nil
		})
	}
	g.Go(func() error {
		names, err := r.src.TypeIndex(gctx)
		if err != nil {
			return err
		}
		index = names
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve multipliers for %v: %w", types, err)
	}

	return Combine(index, relations), nil
}

// Combine folds relation records into a map over the attacking types in
// index. Relations naming a type outside the index are ignored.
func Combine(index []string, relations []*pokeapi.TypeRelations) models.DamageMap {
	mult := make(models.DamageMap, len(index))
	for _, name := range index {
		if !excluded[name] {
			mult[name] = 1
		}
	}
	apply := func(refs []models.NamedResource, factor float64) {
		for _, ref := range refs {
			if _, ok := mult[ref.Name]; ok {
				mult[ref.Name] *= factor
			}
		}
	}
	for _, tr := range relations {
		if tr == nil {
			continue
		}
		apply(tr.DamageRelations.DoubleDamageFrom, doubleDamage)
		apply(tr.DamageRelations.HalfDamageFrom, halfDamage)
		apply(tr.DamageRelations.NoDamageFrom, noDamage)
	}
	return mult
}
