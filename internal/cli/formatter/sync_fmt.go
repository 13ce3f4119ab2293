package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/nutq/internal/notify"
	"github.com/alexanderramin/nutq/internal/repository"
)

// FormatPlan summarizes one notification pass.
func FormatPlan(p notify.Plan, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(Header("Notifications"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s scheduled, %s retracted\n",
		Bold(fmt.Sprintf("%d", len(p.Schedule))),
		Bold(fmt.Sprintf("%d", len(p.Retract))))
	if len(p.Schedule) == 0 {
		return strings.TrimRight(b.String(), "\n")
	}
	rows := make([][]string, len(p.Schedule))
	for i, n := range p.Schedule {
		at := n.At
		rows[i] = []string{Clock(&at, loc), n.Title, Dim(n.Body)}
	}
	b.WriteString(RenderTable([]string{"AT", "TITLE", "DETAIL"}, rows))
	return b.String()
}

// FormatDue lists ledger rows whose fire time has passed.
func FormatDue(due []repository.ScheduledNotification, loc *time.Location) string {
	if len(due) == 0 {
		return Dim("Nothing due.")
	}
	rows := make([][]string, len(due))
	for i, n := range due {
		at := n.FireAt
		rows[i] = []string{Clock(&at, loc), n.Title, Dim(n.Body)}
	}
	return RenderTable([]string{"AT", "TITLE", "DETAIL"}, rows)
}

// FormatBackups lists stored snapshots.
func FormatBackups(infos []repository.SnapshotInfo, loc *time.Location) string {
	if len(infos) == 0 {
		return Dim("No snapshots saved yet.")
	}
	rows := make([][]string, len(infos))
	for i, info := range infos {
		rows[i] = []string{Bold(info.Key), Bytes(int64(info.Size)), Clock(info.UpdatedAt, loc)}
	}
	return RenderTable([]string{"KEY", "SIZE", "UPDATED"}, rows)
}
