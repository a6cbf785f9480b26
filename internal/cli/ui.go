// AngelaMos | 2026
// ui.go

package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/navigation"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/session"
)

const maxCellWidth = 32

// styles are bound to the output writer so piped output stays plain.
type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	warn    lipgloss.Style
	heading lipgloss.Style
	group   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		label:   r.NewStyle().Foreground(lipgloss.Color("252")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("244")),
		warn:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		heading: r.NewStyle().Bold(true).Underline(true),
		group: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(0, 1),
	}
}

func renderIdentity(w io.Writer, s styles, id session.Identity, sess predicateView) {
	tenant := id.Tenant()
	if tenant == "" {
		tenant = "(all tenants)"
	}

	lines := []string{
		s.title.Render(id.Email),
		s.label.Render("role:   ") + id.Role.String(),
		s.label.Render("tenant: ") + tenant,
		s.label.Render("id:     ") + id.ID,
		s.muted.Render(fmt.Sprintf(
			"super admin: %t  org admin: %t  regular user: %t",
			sess.IsSuperAdmin(), sess.IsOrgAdmin(), sess.IsRegularUser(),
		)),
	}
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
}

type predicateView interface {
	IsSuperAdmin() bool
	IsOrgAdmin() bool
	IsRegularUser() bool
}

func renderMenu(w io.Writer, s styles, flat, group []navigation.Entry) {
	lines := make([]string, 0, len(flat)+1)
	lines = append(lines, s.title.Render("Menu"))
	for _, e := range flat {
		lines = append(lines, fmt.Sprintf("  %-16s %s", e.Path, s.label.Render(e.Label)))
	}
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))

	if len(group) == 0 {
		return
	}

	inner := make([]string, 0, len(group)+1)
	inner = append(inner, s.warn.Render("Administration"))
	for _, e := range group {
		inner = append(inner, fmt.Sprintf("%-16s %s", e.Path, e.Label))
	}
	fmt.Fprintln(w, s.group.Render(lipgloss.JoinVertical(lipgloss.Left, inner...)))
}

// renderRows prints rows as an aligned table with id first and the remaining
// columns sorted.
func renderRows(w io.Writer, s styles, title string, rows []map[string]any) {
	fmt.Fprintln(w, s.title.Render(title))
	if len(rows) == 0 {
		fmt.Fprintln(w, s.muted.Render("  no records"))
		return
	}

	columns := columnsOf(rows)
	widths := make([]int, len(columns))
	cells := make([][]string, len(rows))

	for i, col := range columns {
		widths[i] = lipgloss.Width(col)
	}
	for r, row := range rows {
		cells[r] = make([]string, len(columns))
		for i, col := range columns {
			v := cellText(row[col])
			cells[r][i] = v
			widths[i] = max(widths[i], lipgloss.Width(v))
		}
	}

	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = s.heading.Render(pad(col, widths[i]))
	}
	fmt.Fprintln(w, strings.TrimRight(strings.Join(header, "  "), " "))

	for _, row := range cells {
		padded := make([]string, len(row))
		for i, v := range row {
			padded[i] = pad(v, widths[i])
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(padded, "  "), " "))
	}
}

func columnsOf(rows []map[string]any) []string {
	seen := map[string]bool{}
	hasID := false
	var columns []string
	for _, row := range rows {
		for k := range row {
			switch {
			case k == "id":
				hasID = true
			case !seen[k]:
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	if hasID {
		columns = append([]string{"id"}, columns...)
	}
	return columns
}

func cellText(v any) string {
	if v == nil {
		return "-"
	}
	text := fmt.Sprint(v)
	if len(text) > maxCellWidth {
		text = string([]rune(text)[:maxCellWidth-1]) + "…"
	}
	return text
}

func pad(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}
