package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/nutq/internal/domain"
	"github.com/alexanderramin/nutq/internal/flatten"
)

// FormatOccurrences renders occurrences as a table in the order given.
func FormatOccurrences(title string, occ []flatten.Occurrence, now time.Time, loc *time.Location) string {
	if len(occ) == 0 {
		return Header(title) + "\n" + Dim("Nothing here.")
	}
	rows := make([][]string, 0, len(occ))
	for _, o := range occ {
		when, rel := Clock(o.Instant(), loc), ""
		if inst := o.Instant(); inst != nil {
			rel = RelativeDateStyled(*inst, now)
		}
		rows = append(rows, []string{
			StateBadge(o.Progress),
			SchemeBadge(o.SchemeName, o.Color),
			strings.Repeat("  ", o.Indentation) + o.Text,
			o.Type.String(),
			when,
			rel,
			fmt.Sprintf("%s:%d", TruncID(o.ItemID), o.Index),
		})
	}
	return Header(title) + "\n" + RenderTable([]string{"", "SCHEME", "ITEM", "TYPE", "WHEN", "", "ID"}, rows)
}

// FormatForest lists every scheme and its items.
func FormatForest(f domain.Forest, loc *time.Location) string {
	if len(f) == 0 {
		return Dim("No schemes yet. Create one with `nutq scheme add NAME`.")
	}
	var b strings.Builder
	for i, s := range f {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(SchemeBadge(s.Name, s.Color))
		b.WriteString("  " + TruncID(s.ID))
		if s.SyncsExternal {
			b.WriteString("  " + StyleYellow.Render("⇄ calendar"))
		}
		b.WriteString("\n")
		if len(s.Items) == 0 {
			b.WriteString("  " + Dim("(empty)") + "\n")
			continue
		}
		for _, it := range s.Items {
			b.WriteString(formatItemLine(it, loc))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatItemLine(it domain.Item, loc *time.Location) string {
	var parts []string
	if it.Start != nil {
		parts = append(parts, "from "+Clock(it.Start, loc))
	}
	if it.End != nil {
		parts = append(parts, "until "+Clock(it.End, loc))
	}
	if r := DescribeRule(it.Repeats); r != "" {
		parts = append(parts, r)
	}
	done := 0
	for _, v := range it.State {
		if v == domain.ProgressComplete {
			done++
		}
	}
	detail := ""
	if len(parts) > 0 {
		detail = "  " + Dim(strings.Join(parts, ", "))
	}
	return fmt.Sprintf("  %s%s %s  %s%s  %s\n",
		strings.Repeat("  ", it.Indentation),
		TruncID(it.ID),
		it.Text,
		Dim(it.Type().String()),
		detail,
		Dim(fmt.Sprintf("%d/%d", done, len(it.State))),
	)
}

// DescribeRule summarizes a recurrence; non-repeating rules render empty.
func DescribeRule(r domain.RecurrenceRule) string {
	if r.Kind != domain.RepeatBlock {
		return ""
	}
	rem := make([]string, len(r.Remainders))
	for i, v := range r.Remainders {
		rem[i] = fmt.Sprintf("%d", v)
	}
	step := time.Duration(r.Modulus) * r.Unit
	return fmt.Sprintf("×%d every %s at +%s×%s", r.Blocks, step, strings.Join(rem, ","), r.Unit)
}
