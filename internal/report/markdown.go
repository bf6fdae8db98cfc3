package report

import (
	"fmt"
	"io"
	"strings"
)

var badges = map[string]string{
	LevelHigh:   "🟢 High Confidence",
	LevelMedium: "🟡 Medium Confidence",
	LevelLow:    "🔴 Low Confidence",
}

// Badge returns the Markdown confidence badge.
func Badge(confidence float64) string {
	return badges[Level(confidence)]
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// WriteMarkdown renders the "Meeting Intelligence Report".
func (r Report) WriteMarkdown(w io.Writer) error {
	var b strings.Builder
	res := r.Result

	b.WriteString("# Meeting Intelligence Report\n\n")
	if r.Title != "" {
		fmt.Fprintf(&b, "**Transcript:** %s\n\n", r.Title)
	}
	fmt.Fprintf(&b, "**Generated:** %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	if r.RunID != "" {
		fmt.Fprintf(&b, "**Run:** `%s`\n\n", r.RunID)
	}

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Decisions: %d\n- Action items: %d\n- Risks: %d\n",
		len(res.Decisions), len(res.Actions), len(res.Risks))
	if res.Stats.Source != "" {
		fmt.Fprintf(&b, "- Source: %s\n", res.Stats.Source)
	}
	if res.Stats.KeywordOnly {
		b.WriteString("- Intent tagging ran on keywords only\n")
	}
	if p := r.Provenance; p != nil && len(p.Items) > 0 {
		fmt.Fprintf(&b, "- Source coverage: %.0f%%\n", p.Coverage()*100)
		if p.PossibleHallucinations > 0 {
			fmt.Fprintf(&b, "- ⚠️ %d item(s) with low similarity to the transcript\n", p.PossibleHallucinations)
		}
	}
	b.WriteString("\n")

	if len(res.Decisions) > 0 {
		b.WriteString("## Decisions\n\n")
		for i, d := range res.Decisions {
			fmt.Fprintf(&b, "%d. %s (%s) %s\n", i+1, d.Text, orDefault(d.Speaker, "Unknown"), Badge(d.Confidence))
			if d.Rationale != "" {
				fmt.Fprintf(&b, "   - Rationale: %s\n", d.Rationale)
			}
			if len(d.Participants) > 0 {
				fmt.Fprintf(&b, "   - Participants: %s\n", strings.Join(d.Participants, ", "))
			}
		}
		b.WriteString("\n")
	}

	if len(res.Actions) > 0 {
		b.WriteString("## Action Items\n\n")
		for i, a := range res.Actions {
			fmt.Fprintf(&b, "%d. **%s**\n", i+1, a.Action)
			fmt.Fprintf(&b, "   - Owner: %s\n", orDefault(a.Owner, "Unassigned"))
			fmt.Fprintf(&b, "   - Due: %s\n", orDefault(a.DueDate, "No due date"))
			fmt.Fprintf(&b, "   - Priority: %s %s\n\n", strings.ToUpper(orDefault(a.Priority, "medium")), Badge(a.Confidence))
		}
	}

	if len(res.Risks) > 0 {
		b.WriteString("## Risks\n\n")
		for i, rk := range res.Risks {
			fmt.Fprintf(&b, "%d. %s (mentioned by: %s) %s\n", i+1, rk.Risk, orDefault(rk.MentionedBy, "Unknown"), Badge(rk.Confidence))
			fmt.Fprintf(&b, "   - Category: %s, Priority: %s, Owner: %s\n", rk.Category, rk.Priority, orDefault(rk.Owner, "Unclear"))
			for _, m := range rk.Mitigation {
				fmt.Fprintf(&b, "   - Mitigation: %s\n", m)
			}
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
