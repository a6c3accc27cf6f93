package formatter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alexanderramin/planrollup/internal/reference"
	"github.com/alexanderramin/planrollup/internal/report"
	"github.com/alexanderramin/planrollup/internal/store"
)

const (
	rateBarWidth    = 20
	unresolvedShown = 5
	failuresShown   = 20
)

// FormatRun renders the end-of-run report. Sections the run did not
// touch are left out.
func FormatRun(r *report.Run) string {
	sections := []string{
		Header(r.Name) + "  " + Dim(FormatDuration(r.Duration)),
	}
	if r.Input != nil {
		sections = append(sections, formatInput(r.Input))
	}
	if r.Resolution != nil {
		sections = append(sections, FormatResolution(r.Resolution))
	}
	if r.Link != nil {
		sections = append(sections, formatLink(r.Link))
	}
	if r.Persist != nil {
		sections = append(sections, formatPersist(r.Persist))
	}
	if r.Merge != nil {
		sections = append(sections, formatMerge(r.Merge))
	}
	if r.Cleanup != nil {
		sections = append(sections, formatCleanup(r.Cleanup))
	}
	if len(r.Deleted) > 0 {
		sections = append(sections, formatDeleted(r.Deleted))
	}
	if len(r.Failures) > 0 {
		sections = append(sections, formatFailures(r.Failures))
	}
	return strings.Join(sections, "\n\n") + "\n"
}

func formatInput(s *report.InputSummary) string {
	fields := []field{
		{"rows read", count(s.Rows)},
		{"rows dropped", countStyled(s.Dropped)},
		{"weekly units", count(s.Units)},
		{"tasks", count(s.Tasks)},
		{"assignee links", count(s.Assignees)},
		{"company links", count(s.CompanyLinks)},
	}
	if s.WeekMismatch > 0 {
		fields = append(fields, field{"week label mismatches", StyleYellow.Render(count(s.WeekMismatch))})
	}
	content := renderFields(fields)
	if len(s.DroppedRows) > 0 {
		content += "\n\n" + Dim("dropped sheet rows: ") + joinInts(s.DroppedRows, 15)
	}
	return RenderBox("input", content)
}

// FormatResolution renders per-category hit rates and the most frequent
// unresolved labels.
func FormatResolution(t *reference.Tally) string {
	rows := make([][]string, 0, len(reference.Categories))
	var misses []string
	for _, c := range reference.Categories {
		s := t.Stats(c)
		rows = append(rows, []string{
			string(c),
			count(s.Hits),
			countStyled(s.Misses),
			count(s.Absent),
			RenderProgress(s.HitRate(), rateBarWidth),
		})
		top := s.TopUnresolved(unresolvedShown)
		if len(top) == 0 {
			continue
		}
		labels := make([]string, len(top))
		for i, lc := range top {
			labels[i] = fmt.Sprintf("%q (%d)", lc.Label, lc.Count)
		}
		line := Bold(string(c)) + "  " + strings.Join(labels, ", ")
		if more := len(s.Unresolved) - len(top); more > 0 {
			line += Dim(fmt.Sprintf(" and %d more", more))
		}
		misses = append(misses, line)
	}

	content := RenderTable([]string{"CATEGORY", "HITS", "MISSES", "ABSENT", "HIT RATE"}, rows)
	if len(misses) > 0 {
		content += "\n" + Dim("unresolved:") + "\n" + strings.Join(misses, "\n")
	}
	return RenderBox("resolution", strings.TrimRight(content, "\n"))
}

func formatLink(s *report.LinkSummary) string {
	fields := []field{
		{"linked", count(s.Linked)},
		{"already linked", count(s.AlreadyLinked)},
		{"relinked", count(s.Relinked)},
		{"unlinked", countStyled(s.Unlinked)},
		{"quarterly created", count(s.QuarterlyCreated)},
		{"quarterly reused", count(s.QuarterlyReused)},
	}
	for _, reason := range sortedKeys(s.UnlinkedReasons) {
		fields = append(fields, field{"  " + reason, count(s.UnlinkedReasons[reason])})
	}
	return RenderBox("link", renderFields(fields))
}

func formatPersist(s *report.PersistSummary) string {
	return RenderBox("import", renderFields([]field{
		{"weekly plans", count(s.WeeklyInserted)},
		{"tasks", count(s.TasksInserted)},
		{"assignee links", count(s.AssigneesInserted)},
		{"company links", count(s.CompaniesInserted)},
		{"weekly plans failed", countStyled(s.WeeklyFailed)},
		{"children skipped", countStyled(s.ChildrenSkipped)},
	}))
}

func formatMerge(s *report.MergeSummary) string {
	title := "merge"
	if s.DryRun {
		title = "merge (dry run)"
	}
	content := renderFields([]field{
		{"duplicate groups", count(s.Groups)},
		{"groups merged", count(s.Merged)},
		{"weekly plans deleted", count(s.UnitsDeleted)},
		{"tasks moved", count(s.TasksMoved)},
		{"quarterly groups", count(s.QuarterlyGroups)},
		{"quarterly deleted", count(s.QuarterlyDeleted)},
	})
	if len(s.Mismatches) > 0 {
		rows := make([][]string, len(s.Mismatches))
		for i, m := range s.Mismatches {
			rows[i] = []string{m.SurvivorID, m.Before.String(), StyleRed.Render(m.After.String())}
		}
		content += "\n\n" + StyleRed.Render("hour totals changed, nothing deleted:") + "\n" +
			strings.TrimRight(RenderTable([]string{"SURVIVOR", "BEFORE", "AFTER"}, rows), "\n")
	}
	if len(s.Kept) > 0 {
		ids := make([]string, len(s.Kept))
		for i, id := range s.Kept {
			ids[i] = TruncID(id)
		}
		content += "\n\n" + StyleYellow.Render("kept after failed moves: ") + strings.Join(ids, ", ")
	}
	return RenderBox(title, content)
}

func formatCleanup(s *report.CleanupSummary) string {
	title := "cleanup"
	if s.DryRun {
		title = "cleanup (dry run)"
	}
	return RenderBox(title, renderFields([]field{{"weekly plans without tasks", count(s.Empty)}}))
}

func formatDeleted(deleted map[string]int) string {
	var fields []field
	seen := make(map[string]bool)
	for _, table := range store.DependentTables {
		if n, ok := deleted[table]; ok {
			fields = append(fields, field{table, count(n)})
			seen[table] = true
		}
	}
	for _, table := range sortedKeys(deleted) {
		if !seen[table] {
			fields = append(fields, field{table, count(deleted[table])})
		}
	}
	return RenderBox("deleted", renderFields(fields))
}

func formatFailures(failures []report.Failure) string {
	shown := failures
	if len(shown) > failuresShown {
		shown = shown[:failuresShown]
	}
	rows := make([][]string, len(shown))
	for i, f := range shown {
		rows[i] = []string{f.Stage, f.Subject, StyleRed.Render(f.Err)}
	}
	content := strings.TrimRight(RenderTable([]string{"STAGE", "SUBJECT", "ERROR"}, rows), "\n")
	if more := len(failures) - len(shown); more > 0 {
		content += "\n" + Dim(fmt.Sprintf("and %d more", more))
	}
	return RenderBox(fmt.Sprintf("failures (%d)", len(failures)), content)
}

func joinInts(vals []int, limit int) string {
	shown := vals
	if len(shown) > limit {
		shown = shown[:limit]
	}
	parts := make([]string, len(shown))
	for i, v := range shown {
		parts[i] = count(v)
	}
	out := strings.Join(parts, ", ")
	if more := len(vals) - len(shown); more > 0 {
		out += Dim(fmt.Sprintf(" and %d more", more))
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
