package brief

import (
	"fmt"
	"strings"

	"github.com/otherjamesbrown/prepbrief/pkg/continuity"
)

// RenderMarkdown formats a drafted brief followed by the history it was
// drafted from.
func RenderMarkdown(b Brief, ctx continuity.Context) string {
	var sb strings.Builder

	headline := b.Headline
	if headline == "" {
		headline = "Meeting brief: " + ctx.Brand
	}
	fmt.Fprintf(&sb, "# %s\n", headline)

	writeList(&sb, "Objectives", b.Objectives)
	writeList(&sb, "Talking points", b.TalkingPoints)
	writeList(&sb, "Follow-ups", b.FollowUps)
	writeList(&sb, "Risks", b.Risks)

	sb.WriteString("\n## History\n\n")
	sb.WriteString(demoteHeadings(ctx.Narrative))
	sb.WriteString("\n")
	return sb.String()
}

func writeList(sb *strings.Builder, title string, items []string) {
	var kept []string
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			kept = append(kept, it)
		}
	}
	if len(kept) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n## %s\n\n", title)
	for _, it := range kept {
		fmt.Fprintf(sb, "- %s\n", it)
	}
}

// demoteHeadings nests the narrative's section headings under ## History.
func demoteHeadings(narrative string) string {
	lines := strings.Split(narrative, "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, "## ") {
			lines[i] = "#" + l
		}
	}
	return strings.Join(lines, "\n")
}
