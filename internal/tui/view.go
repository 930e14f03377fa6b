package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tatianab/pokebattle/internal/engine"
	"github.com/tatianab/pokebattle/internal/models"
)

const (
	cardWidth = 32
	barWidth  = 20
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			Padding(0, 1).
			Width(cardWidth)

	activeCardStyle = cardStyle.
			BorderForeground(lipgloss.Color("#FFA500"))

	winnerCardStyle = cardStyle.
			BorderForeground(lipgloss.Color("#5FD75F"))

	nameStyle = lipgloss.NewStyle().Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			PaddingLeft(1).
			PaddingRight(1)

	narrationStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#FFA500")).
			PaddingLeft(2).
			Italic(true)

	logStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	hpStyles = map[string]lipgloss.Style{
		"ok":  lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F")),
		"mid": lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")),
		"low": lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")),
	}
)

// hpLevel buckets the remaining HP: above half is ok, above a fifth mid.
func hpLevel(cur, maxHP int) string {
	if maxHP <= 0 {
		return "low"
	}
	r := float64(cur) / float64(maxHP)
	switch {
	case r > 0.5:
		return "ok"
	case r > 0.2:
		return "mid"
	}
	return "low"
}

// barCells is how many of width cells are filled. A living fighter always
// shows at least one.
func barCells(cur, maxHP, width int) int {
	if maxHP <= 0 || cur <= 0 {
		return 0
	}
	n := int(math.Round(float64(width) * float64(cur) / float64(maxHP)))
	return min(width, max(1, n))
}

func hpBar(cur, maxHP int) string {
	n := barCells(cur, maxHP, barWidth)
	return hpStyles[hpLevel(cur, maxHP)].Render(strings.Repeat("█", n)) +
		dimStyle.Render(strings.Repeat("░", barWidth-n))
}

func (m model) View() string {
	s := m.battle.Session()

	inputs := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(cardWidth+4).Render(m.inputs[0].View()),
		m.inputs[1].View(),
	)
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderCard(models.SideA),
		m.renderCard(models.SideB),
	)

	status := engine.Outcome(s)
	if m.busy() {
		status = m.spinner.View() + " " + status
	}

	parts := []string{
		titleStyle.Render("POKÉ BATTLE"),
		"",
		inputs,
		cards,
		nameStyle.Render(status),
		m.viewport.View(),
	}
	if m.notice != "" {
		parts = append(parts, noticeStyle.Render(m.notice))
	}
	if m.narration != "" {
		parts = append(parts, narrationStyle.Width(max(cardWidth, m.viewport.Width)).Render(m.narration))
	}
	parts = append(parts, helpStyle.Render(m.help()))

	return "\n" + lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
}

func (m model) help() string {
	if m.focus == focusArena {
		h := "space/t: turn • r: reset • 1/2: move type A/B • ↑/↓: scroll log • tab: inputs • q: quit"
		if m.narrator != nil {
			h += " • n: narrate"
		}
		return h
	}
	return "enter: load • tab: next field • esc: quit"
}

func (m model) renderCard(side models.Side) string {
	s := m.battle.Session()
	f := s.Fighter(side)

	style := cardStyle
	switch side {
	case s.Finished:
		style = winnerCardStyle
	case s.Turn:
		style = activeCardStyle
	}

	header := dimStyle.Render("Trainer " + string(side))
	if f.Empty() {
		body := "(empty slot)"
		if m.loading[index(side)] {
			body = "loading…"
		}
		return style.Render(header + "\n\n" + body)
	}

	p := f.Pokemon
	var sb strings.Builder
	sb.WriteString(header + "\n")
	fmt.Fprintf(&sb, "%s %s\n", nameStyle.Render(p.DisplayName()), dimStyle.Render(fmt.Sprintf("#%03d", p.ID)))
	sb.WriteString(strings.Join(p.TypeNames(), " / ") + "\n\n")
	sb.WriteString(hpBar(f.CurrentHP, f.MaxHP()) + "\n")
	fmt.Fprintf(&sb, "HP %d/%d\n", f.CurrentHP, f.MaxHP())
	fmt.Fprintf(&sb, "ATK %d  DEF %d  SPD %d\n",
		p.Stat(models.StatAttack), p.Stat(models.StatDefense), p.Stat(models.StatSpeed))
	fmt.Fprintf(&sb, "Move: %s", f.MoveType)
	if m.loading[index(side)] {
		sb.WriteString("\n" + dimStyle.Render("loading…"))
	}
	if side == s.Finished {
		sb.WriteString("\n" + nameStyle.Render("Winner!"))
	}
	return style.Render(sb.String())
}

func (m model) renderLog() string {
	s := m.battle.Session()
	if len(s.Logs) == 0 {
		return dimStyle.Render("No turns yet.")
	}
	lines := make([]string, len(s.Logs))
	for i, l := range s.Logs {
		lines[i] = logStyle.Render(fmt.Sprintf("%2d. %s", i+1, engine.Describe(l)))
	}
	return strings.Join(lines, "\n")
}
