package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	levelStyles = map[string]lipgloss.Style{
		LevelHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true),
		LevelMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true),
		LevelLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)
)

func levelBadge(confidence float64) string {
	l := Level(confidence)
	return levelStyles[l].Render(fmt.Sprintf("● %s %.2f", l, confidence))
}

func field(label, value string) string {
	return labelStyle.Render(label+": ") + valueStyle.Render(value)
}

// RenderTerminal returns the report styled for a terminal.
func (r Report) RenderTerminal() string {
	res := r.Result
	var lines []string

	title := "Meeting Intelligence Report"
	if r.Title != "" {
		title += " · " + r.Title
	}
	lines = append(lines, headerStyle.Render(title))
	lines = append(lines, dimStyle.Render(fmt.Sprintf("run %s · %s · source %s",
		orDefault(r.RunID, "-"), r.GeneratedAt.Format("2006-01-02 15:04"), orDefault(res.Stats.Source, "-"))))
	lines = append(lines, strings.Join([]string{
		field("Decisions", fmt.Sprint(len(res.Decisions))),
		field("Actions", fmt.Sprint(len(res.Actions))),
		field("Risks", fmt.Sprint(len(res.Risks))),
	}, "   "))

	if len(res.Decisions) > 0 {
		lines = append(lines, sectionStyle.Render("Decisions"))
		for i, d := range res.Decisions {
			lines = append(lines, fmt.Sprintf("%2d. %s %s", i+1, d.Text, levelBadge(d.Confidence)))
			if len(d.Participants) > 0 {
				lines = append(lines, "    "+dimStyle.Render(strings.Join(d.Participants, ", ")))
			}
		}
	}
	if len(res.Actions) > 0 {
		lines = append(lines, sectionStyle.Render("Action Items"))
		for i, a := range res.Actions {
			lines = append(lines, fmt.Sprintf("%2d. %s %s", i+1, a.Action, levelBadge(a.Confidence)))
			lines = append(lines, "    "+field("owner", orDefault(a.Owner, "Unassigned"))+"  "+
				field("due", orDefault(a.DueDate, "-"))+"  "+field("priority", a.Priority))
		}
	}
	if len(res.Risks) > 0 {
		lines = append(lines, sectionStyle.Render("Risks"))
		for i, rk := range res.Risks {
			lines = append(lines, fmt.Sprintf("%2d. %s %s", i+1, rk.Risk, levelBadge(rk.Confidence)))
			lines = append(lines, "    "+field("category", rk.Category)+"  "+field("priority", rk.Priority)+"  "+
				field("owner", orDefault(rk.Owner, "Unclear")))
		}
	}
	if p := r.Provenance; p != nil && p.PossibleHallucinations > 0 {
		lines = append(lines, levelStyles[LevelLow].Render(
			fmt.Sprintf("%d item(s) have low similarity to the transcript", p.PossibleHallucinations)))
	}

	return containerStyle.Render(strings.Join(lines, "\n")) + "\n"
}

// WriteTerminal writes RenderTerminal to w.
func (r Report) WriteTerminal(w io.Writer) error {
	_, err := io.WriteString(w, r.RenderTerminal())
	return err
}
