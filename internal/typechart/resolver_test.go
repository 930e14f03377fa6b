package typechart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tatianab/pokebattle/internal/models"
	"github.com/tatianab/pokebattle/internal/pokeapi"
)

type fakeSource struct {
	mu        sync.Mutex
	relations map[string]pokeapi.DamageRelations
	index     []string
	indexErr  error
	calls     int
}

func (f *fakeSource) TypeRelations(ctx context.Context, name string) (*pokeapi.TypeRelations, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	rel, ok := f.relations[name]
	if !ok {
		return nil, pokeapi.ErrNotFound
	}
	return &pokeapi.TypeRelations{Name: name, DamageRelations: rel}, nil
}

func (f *fakeSource) TypeIndex(ctx context.Context) ([]string, error) {
	return f.index, f.indexErr
}

func refs(names ...string) []models.NamedResource {
	out := make([]models.NamedResource, len(names))
	for i, n := range names {
		out[i] = models.NamedResource{Name: n}
	}
	return out
}

func newFake() *fakeSource {
	return &fakeSource{
		index: []string{"normal", "fire", "water", "grass", "ground", "flying", "ghost", "fighting", "unknown", "shadow"},
		relations: map[string]pokeapi.DamageRelations{
			"grass": {
				DoubleDamageFrom: refs("fire", "flying"),
				HalfDamageFrom:   refs("water", "grass", "ground"),
			},
			"water": {
				DoubleDamageFrom: refs("grass"),
				HalfDamageFrom:   refs("fire", "water"),
			},
			"ghost": {
				DoubleDamageFrom: refs("ghost"),
				NoDamageFrom:     refs("normal", "fighting"),
			},
			"normal": {
				DoubleDamageFrom: refs("fighting"),
				NoDamageFrom:     refs("ghost"),
			},
			"flying": {
				HalfDamageFrom: refs("grass", "fighting"),
				NoDamageFrom:   refs("ground"),
				// A relation to a pseudo-type must not leak into the map.
				DoubleDamageFrom: refs("shadow"),
			},
		},
	}
}

func TestDefensiveMultipliersSingleType(t *testing.T) {
	r := NewResolver(newFake())

	m, err := r.DefensiveMultipliers(context.Background(), []string{"grass"})
	if err != nil {
		t.Fatalf("DefensiveMultipliers: %v", err)
	}
	want := models.DamageMap{
		"normal": 1, "fire": 2, "water": 0.5, "grass": 0.5, "ground": 0.5,
		"flying": 2, "ghost": 1, "fighting": 1,
	}
	if len(m) != len(want) {
		t.Fatalf("map = %v, want %v", m, want)
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("m[%s] = %v, want %v", k, m[k], v)
		}
	}
	for _, pseudo := range []string{"unknown", "shadow"} {
		if _, ok := m[pseudo]; ok {
			t.Errorf("pseudo-type %s should be excluded", pseudo)
		}
	}
}

func TestDefensiveMultipliersComposeAcrossTypes(t *testing.T) {
	r := NewResolver(newFake())

	m, err := r.DefensiveMultipliers(context.Background(), []string{"grass", "water"})
	if err != nil {
		t.Fatalf("DefensiveMultipliers: %v", err)
	}
	// grass doubles fire, water halves it.
	if m["fire"] != 1 {
		t.Errorf("fire = %v, want 1", m["fire"])
	}
	if m["water"] != 0.25 {
		t.Errorf("water = %v, want 0.25", m["water"])
	}
	// No relation from either type.
	if m["normal"] != 1 || m["ghost"] != 1 {
		t.Errorf("unrelated types = %v/%v, want 1", m["normal"], m["ghost"])
	}
}

func TestZeroIsAbsorbing(t *testing.T) {
	r := NewResolver(newFake())

	// ghost is immune to normal; normal takes double from fighting but ghost is immune to it too.
	m, err := r.DefensiveMultipliers(context.Background(), []string{"ghost", "normal"})
	if err != nil {
		t.Fatalf("DefensiveMultipliers: %v", err)
	}
	if m["fighting"] != 0 || m["normal"] != 0 {
		t.Errorf("fighting/normal = %v/%v, want 0", m["fighting"], m["normal"])
	}
	if m["ghost"] != 0 {
		t.Errorf("ghost = %v, want 0 (double then zero)", m["ghost"])
	}
}

func TestDefensiveMultipliersFailures(t *testing.T) {
	ctx := context.Background()

	src := newFake()
	if _, err := NewResolver(src).DefensiveMultipliers(ctx, []string{"grass", "dragon"}); !errors.Is(err, pokeapi.ErrNotFound) {
		t.Errorf("missing type err = %v, want ErrNotFound", err)
	}

	src.indexErr = errors.New("offline")
	if _, err := NewResolver(src).DefensiveMultipliers(ctx, []string{"grass"}); err == nil {
		t.Errorf("expected index failure to surface")
	}

	if _, err := NewResolver(newFake()).DefensiveMultipliers(ctx, nil); err == nil {
		t.Errorf("expected error for empty type list")
	}
}

func TestResultsAreNotCached(t *testing.T) {
	src := newFake()
	r := NewResolver(src)
	for range 2 {
		if _, err := r.DefensiveMultipliers(context.Background(), []string{"grass"}); err != nil {
			t.Fatalf("DefensiveMultipliers: %v", err)
		}
	}
	if src.calls != 2 {
		t.Errorf("relation lookups = %d, want 2", src.calls)
	}
}
