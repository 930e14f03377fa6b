// Package tui is the terminal battle screen.
package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tatianab/pokebattle/internal/engine"
	"github.com/tatianab/pokebattle/internal/logging"
	"github.com/tatianab/pokebattle/internal/models"
	"github.com/tatianab/pokebattle/internal/narrator"
	"github.com/tatianab/pokebattle/internal/session"
)

type focus int

const (
	focusA focus = iota
	focusB
	focusArena
	focusCount
)

// Narrator produces commentary for a battle.
type Narrator interface {
	Narrate(ctx context.Context, s *models.BattleSession) (narrator.Narration, error)
}

// Options configures the battle screen.
type Options struct {
	TurnDelay time.Duration
	// Narrator may be nil, which disables narration.
	Narrator Narrator
}

const narrateTimeout = 30 * time.Second

var sides = [2]models.Side{models.SideA, models.SideB}

func index(side models.Side) int {
	if side == models.SideB {
		return 1
	}
	return 0
}

type model struct {
	battle   *engine.Battle
	adapter  *session.Adapter
	narrator Narrator
	delay    time.Duration

	inputs   [2]textinput.Model
	focus    focus
	viewport viewport.Model
	spinner  spinner.Model

	loading   [2]bool
	narrating bool
	// startup counts queued loads still in flight; persistence starts at 0.
	startup int
	queued  models.PendingSlots

	notice    string
	narration string
	width     int
	height    int
}

// NewModel restores the saved battle into b and drains the queued
// selections, which Init then loads.
func NewModel(b *engine.Battle, a *session.Adapter, opts Options) model {
	b.Restore(a.Restore())
	s := b.Session()

	m := model{
		battle:   b,
		adapter:  a,
		narrator: opts.Narrator,
		delay:    opts.TurnDelay,
		viewport: viewport.New(60, 8),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		queued:   a.DrainSlots(),
	}
	for i, side := range sides {
		ti := textinput.New()
		ti.Placeholder = "name or id"
		ti.Prompt = fmt.Sprintf("%s ▸ ", side)
		ti.CharLimit = 40
		ti.Width = 20
		ti.SetValue(s.Input(side))
		m.inputs[i] = ti
	}
	m.inputs[0].Focus()

	for i, side := range sides {
		if m.queued.Get(side) != "" {
			m.startup++
			m.loading[i] = true
		}
	}
	if m.startup == 0 {
		m.hydrate()
	}
	m.refresh()
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	for _, side := range sides {
		if ident := m.queued.Get(side); ident != "" {
			cmds = append(cmds, m.fetchFighter(side, ident, true))
		} else if f := m.battle.Session().Fighter(side); !f.Empty() {
			cmds = append(cmds, m.fetchDamageMap(side, f.Pokemon.TypeNames()))
		}
	}
	if m.busy() {
		cmds = append(cmds, m.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

type fighterLoadedMsg struct {
	side    models.Side
	ident   string
	pokemon *models.Pokemon
	err     error
	startup bool
}

type damageMapMsg struct {
	side   models.Side
	types  []string
	damage models.DamageMap
	err    error
}

type turnSettledMsg struct {
	ticket uint64
}

type narrationMsg struct {
	text string
	err  error
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = max(3, msg.Height-20)
		m.refresh()
		return m, nil

	case fighterLoadedMsg:
		return m.fighterLoaded(msg)

	case damageMapMsg:
		if msg.err != nil {
			logging.Warn("type effectiveness unavailable, using neutral multipliers", msg.err, logging.Fields{
				"side":  string(msg.side),
				"types": msg.types,
			})
			msg.damage = nil
		}
		m.battle.ApplyDamageMap(msg.side, msg.types, msg.damage)
		return m, nil

	case turnSettledMsg:
		if entry, ok := m.battle.ResolveTurn(msg.ticket); ok {
			m.notice = engine.Describe(entry)
		}
		m.refresh()
		return m, nil

	case narrationMsg:
		m.narrating = false
		if msg.err != nil {
			logging.Warn("narration failed", msg.err, nil)
			m.notice = "Narration failed: " + msg.err.Error()
		} else {
			m.narration = msg.text
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateFocused(msg)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab":
		cmd := m.setFocus((m.focus + 1) % focusCount)
		return m, cmd
	case "shift+tab":
		cmd := m.setFocus((m.focus + focusCount - 1) % focusCount)
		return m, cmd
	}

	if m.focus == focusArena {
		return m.arenaKey(msg)
	}
	if msg.Type == tea.KeyEnter {
		return m.submit()
	}
	return m.updateFocused(msg)
}

func (m *model) setFocus(f focus) tea.Cmd {
	m.focus = f
	var cmd tea.Cmd
	for i := range m.inputs {
		if focus(i) == f {
			cmd = m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return cmd
}

// submit loads the focused input's identifier into its side.
func (m model) submit() (tea.Model, tea.Cmd) {
	i := int(m.focus)
	side := sides[i]
	ident := strings.TrimSpace(m.inputs[i].Value())
	if ident == "" {
		m.notice = fmt.Sprintf("Enter a name or id for Trainer %s.", side)
		return m, nil
	}
	if m.loading[i] {
		return m, nil
	}
	m.battle.SetInput(side, ident)
	m.loading[i] = true
	m.notice = fmt.Sprintf("Loading %s…", ident)
	return m, tea.Batch(m.fetchFighter(side, ident, false), m.spinner.Tick)
}

func (m model) fighterLoaded(msg fighterLoadedMsg) (tea.Model, tea.Cmd) {
	i := index(msg.side)
	m.loading[i] = false

	var cmd tea.Cmd
	if msg.err != nil {
		logging.Warn("could not load fighter", msg.err, logging.Fields{
			"side":  string(msg.side),
			"ident": msg.ident,
		})
		m.notice = fmt.Sprintf("Could not load %q for Trainer %s.", msg.ident, msg.side)
		// A restored fighter is still in the slot and needs its map.
		if f := m.battle.Session().Fighter(msg.side); msg.startup && !f.Empty() {
			cmd = m.fetchDamageMap(msg.side, f.Pokemon.TypeNames())
		}
	} else if err := m.battle.ApplyFighter(msg.side, msg.ident, msg.pokemon); err != nil {
		m.notice = err.Error()
	} else {
		m.inputs[i].SetValue(msg.ident)
		m.notice = fmt.Sprintf("Trainer %s sends out %s!", msg.side, msg.pokemon.DisplayName())
		m.narration = ""
		cmd = m.fetchDamageMap(msg.side, msg.pokemon.TypeNames())
	}

	if msg.startup {
		m.startup--
		if m.startup == 0 {
			m.hydrate()
		}
	}
	m.refresh()
	return m, cmd
}

func (m model) arenaKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit

	case " ", "t":
		ticket, ok := m.battle.BeginTurn()
		if !ok {
			if !m.battle.Busy() {
				m.notice = engine.Outcome(m.battle.Session())
			}
			return m, nil
		}
		return m, tea.Batch(m.settle(ticket), m.spinner.Tick)

	case "r":
		if m.battle.Reset() {
			m.notice = "Battle reset."
			m.narration = ""
		} else {
			m.notice = "Load both fighters first."
		}

	case "1", "2":
		side := models.SideA
		if msg.String() == "2" {
			side = models.SideB
		}
		if t, err := m.battle.CycleMoveType(side); err == nil {
			m.notice = fmt.Sprintf("Trainer %s will use %s moves.", side, t)
		}

	case "n":
		return m.narrate()

	default:
		return m.updateFocused(msg)
	}
	m.refresh()
	return m, nil
}

func (m model) narrate() (tea.Model, tea.Cmd) {
	s := m.battle.Session()
	switch {
	case m.narrator == nil:
		m.notice = "Narration is off. Set GEMINI_API_KEY to turn it on."
		return m, nil
	case s.Finished == models.SideNone:
		m.notice = "Finish the battle first."
		return m, nil
	case m.narrating:
		return m, nil
	}
	m.narrating = true
	m.notice = "Asking the announcer…"

	snap := *s
	snap.Logs = slices.Clone(s.Logs)
	n := m.narrator
	return m, tea.Batch(func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), narrateTimeout)
		defer cancel()
		res, err := n.Narrate(ctx, &snap)
		return narrationMsg{text: res.String(), err: err}
	}, m.spinner.Tick)
}

// updateFocused forwards msg to the focused input, or to the log viewport
// in the arena.
func (m model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.focus == focusArena {
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	i := int(m.focus)
	m.inputs[i], cmd = m.inputs[i].Update(msg)
	m.battle.SetInput(sides[i], m.inputs[i].Value())
	return m, cmd
}

func (m model) busy() bool {
	return m.loading[0] || m.loading[1] || m.narrating || m.battle.Busy()
}

func (m model) hydrate() {
	m.adapter.MarkHydrated()
	m.adapter.Persist(m.battle.Session())
}

func (m *model) refresh() {
	m.viewport.SetContent(m.renderLog())
	m.viewport.GotoBottom()
}

func (m model) fetchFighter(side models.Side, ident string, startup bool) tea.Cmd {
	b := m.battle
	return func() tea.Msg {
		p, err := b.FetchFighter(context.Background(), ident)
		return fighterLoadedMsg{side: side, ident: ident, pokemon: p, err: err, startup: startup}
	}
}

func (m model) fetchDamageMap(side models.Side, types []string) tea.Cmd {
	b := m.battle
	return func() tea.Msg {
		dm, err := b.FetchDamageMap(context.Background(), types)
		return damageMapMsg{side: side, types: types, damage: dm, err: err}
	}
}

func (m model) settle(ticket uint64) tea.Cmd {
	return tea.Tick(m.delay, func(time.Time) tea.Msg {
		return turnSettledMsg{ticket: ticket}
	})
}

// Run starts the battle screen and blocks until the user quits.
func Run(b *engine.Battle, a *session.Adapter, opts Options) error {
	p := tea.NewProgram(NewModel(b, a, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
