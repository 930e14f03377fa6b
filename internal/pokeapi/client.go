// Package pokeapi is a read-only client for the creature data source.
package pokeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tatianab/pokebattle/internal/models"
)

// DefaultBaseURL is the public data source.
const DefaultBaseURL = "https://pokeapi.co/api/v2"

// ErrNotFound is returned when the data source has no such resource.
var ErrNotFound = errors.New("not found")

// Client fetches creatures and type data. Identical in-flight requests are
// shared between callers; nothing is cached once a request completes.
type Client struct {
	baseURL string
	http    *http.Client
	group   singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets a per-request timeout. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// NewClient returns a client for baseURL (DefaultBaseURL if empty).
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	v, err, _ := c.group.Do(path, func() (any, error) {
		return c.fetch(ctx, path)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(v.([]byte), out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("fetch %s: %w", path, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", path, resp.Status)
	}
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}

// NormalizeIdentifier lower-cases and trims a user-entered name or id.
func NormalizeIdentifier(ident string) string {
	return strings.ToLower(strings.TrimSpace(ident))
}

// Pokemon fetches a creature by name or numeric id, case-insensitively.
func (c *Client) Pokemon(ctx context.Context, ident string) (*models.Pokemon, error) {
	id := NormalizeIdentifier(ident)
	if id == "" {
		return nil, fmt.Errorf("empty identifier: %w", ErrNotFound)
	}
	var p models.Pokemon
	if err := c.getJSON(ctx, "/pokemon/"+url.PathEscape(id), &p); err != nil {
		return nil, fmt.Errorf("load pokemon %q: %w", ident, err)
	}
	return &p, nil
}

// DamageRelations lists the attacking types a defending type relates to.
type DamageRelations struct {
	DoubleDamageFrom []models.NamedResource `json:"double_damage_from"`
	HalfDamageFrom   []models.NamedResource `json:"half_damage_from"`
	NoDamageFrom     []models.NamedResource `json:"no_damage_from"`
}

// TypeRelations is the damage relation record of one type.
type TypeRelations struct {
	Name            string          `json:"name"`
	DamageRelations DamageRelations `json:"damage_relations"`
}

// TypeRelations fetches the damage relations of a type.
func (c *Client) TypeRelations(ctx context.Context, typeName string) (*TypeRelations, error) {
	var tr TypeRelations
	if err := c.getJSON(ctx, "/type/"+url.PathEscape(NormalizeIdentifier(typeName)), &tr); err != nil {
		return nil, fmt.Errorf("load type %q: %w", typeName, err)
	}
	return &tr, nil
}

// ListResponse is a page of named resources.
type ListResponse struct {
	Count    int                    `json:"count"`
	Next     *string                `json:"next"`
	Previous *string                `json:"previous"`
	Results  []models.NamedResource `json:"results"`
}

// TypeIndex returns every known type name.
func (c *Client) TypeIndex(ctx context.Context) ([]string, error) {
	var lr ListResponse
	if err := c.getJSON(ctx, "/type?limit=100", &lr); err != nil {
		return nil, fmt.Errorf("load type index: %w", err)
	}
	names := make([]string, 0, len(lr.Results))
	for _, r := range lr.Results {
		names = append(names, r.Name)
	}
	return names, nil
}

// ListPokemon returns one page of the creature list.
func (c *Client) ListPokemon(ctx context.Context, limit, offset int) (*ListResponse, error) {
	var lr ListResponse
	path := fmt.Sprintf("/pokemon?limit=%d&offset=%d", limit, offset)
	if err := c.getJSON(ctx, path, &lr); err != nil {
		return nil, fmt.Errorf("load list: %w", err)
	}
	return &lr, nil
}

// Species is the subset of a species record the detail view uses.
type Species struct {
	ID             int                  `json:"id"`
	Name           string               `json:"name"`
	EvolutionChain models.NamedResource `json:"evolution_chain"`
	FlavorText     []struct {
		FlavorText string               `json:"flavor_text"`
		Language   models.NamedResource `json:"language"`
	} `json:"flavor_text_entries"`
}

// Species fetches a species record by name or id.
func (c *Client) Species(ctx context.Context, ident string) (*Species, error) {
	var s Species
	if err := c.getJSON(ctx, "/pokemon-species/"+url.PathEscape(NormalizeIdentifier(ident)), &s); err != nil {
		return nil, fmt.Errorf("load species %q: %w", ident, err)
	}
	return &s, nil
}

// EnglishFlavorText returns the first English flavor text, whitespace-folded.
func (s *Species) EnglishFlavorText() string {
	for _, f := range s.FlavorText {
		if f.Language.Name == "en" {
			return strings.Join(strings.Fields(f.FlavorText), " ")
		}
	}
	return ""
}

var trailingID = regexp.MustCompile(`/(\d+)/?$`)

// IDFromURL extracts the trailing numeric id of a resource URL, 0 if absent.
func IDFromURL(u string) int {
	m := trailingID.FindStringSubmatch(u)
	if m == nil {
		return 0
	}
	id, _ := strconv.Atoi(m[1])
	return id
}

// PokemonCount returns the number of known species.
func (c *Client) PokemonCount(ctx context.Context) (int, error) {
	var lr ListResponse
	if err := c.getJSON(ctx, "/pokemon-species?limit=1", &lr); err != nil {
		return 0, fmt.Errorf("load species count: %w", err)
	}
	return lr.Count, nil
}

// RandomPokemonID picks a uniformly random species id starting at 1.
func (c *Client) RandomPokemonID(ctx context.Context) (int, error) {
	n, err := c.PokemonCount(ctx)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("species count is %d: %w", n, ErrNotFound)
	}
	return rand.IntN(n) + 1, nil
}

// EncounterLocation is one area a creature can be found in.
type EncounterLocation struct {
	LocationArea   models.NamedResource `json:"location_area"`
	VersionDetails []struct {
		Version models.NamedResource `json:"version"`
	} `json:"version_details"`
}

// EncounterLocations lists where a creature can be encountered.
func (c *Client) EncounterLocations(ctx context.Context, ident string) ([]EncounterLocation, error) {
	var out []EncounterLocation
	if err := c.getJSON(ctx, "/pokemon/"+url.PathEscape(NormalizeIdentifier(ident))+"/encounters", &out); err != nil {
		return nil, fmt.Errorf("load encounters %q: %w", ident, err)
	}
	return out, nil
}
