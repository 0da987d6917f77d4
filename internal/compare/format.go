package compare

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/perf/benchunit"
)

// NoBaselineNote is written in place of a table when there is nothing to
// compare against.
const NoBaselineNote = "No previous baseline; results recorded as the first baseline."

// Format writes the report as plain-text tables, one per unit.
func (r *Report) Format(w io.Writer) error {
	var sb strings.Builder
	if !r.HasBaseline {
		sb.WriteString(NoBaselineNote)
		sb.WriteString("\n\n")
	}

	var units []string
	byUnit := make(map[string][]Row)
	for _, row := range r.Rows {
		if _, ok := byUnit[row.Unit]; !ok {
			units = append(units, row.Unit)
		}
		byUnit[row.Unit] = append(byUnit[row.Unit], row)
	}

	for i, unit := range units {
		if i > 0 {
			sb.WriteString("\n")
		}
		writeUnitTable(&sb, unit, byUnit[unit], r.geomean(unit), r.HasBaseline)
	}

	if len(r.Rows) > 0 {
		fmt.Fprintf(&sb, "\nConfidence %.0f%%, significance alpha=%g. ~ means no significant difference.\n", Confidence*100, r.Alpha)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// String renders the report like Format.
func (r *Report) String() string {
	var sb strings.Builder
	r.Format(&sb)
	return sb.String()
}

func (r *Report) geomean(unit string) *Geomean {
	for i := range r.Geomeans {
		if r.Geomeans[i].Unit == unit {
			return &r.Geomeans[i]
		}
	}
	return nil
}

func writeUnitTable(sb *strings.Builder, unit string, rows []Row, g *Geomean, withOld bool) {
	cls := benchunit.ClassOf(unit)
	var centers []float64
	for _, row := range rows {
		if row.Old != nil {
			centers = append(centers, row.Old.Center)
		}
		if row.New != nil {
			centers = append(centers, row.New.Center)
		}
	}
	scaler := benchunit.CommonScale(centers, cls)

	headers := []string{unit, "old", "new", "delta", ""}
	if !withOld {
		headers = []string{unit, "new"}
	}
	table := [][]string{headers}

	for _, row := range rows {
		newCell := formatStat(scaler, row.New)
		if !withOld {
			table = append(table, []string{row.Name, newCell})
			continue
		}
		oldCell := formatStat(scaler, row.Old)
		delta, test := row.Delta, row.Test
		switch row.Status {
		case "new":
			delta, test = "", "(new)"
		case "removed":
			delta, test = "", "(removed)"
		}
		table = append(table, []string{row.Name, oldCell, newCell, delta, test})
	}
	if g != nil && withOld {
		table = append(table, []string{"geomean", scaler.Format(g.Old), scaler.Format(g.New), g.Delta, ""})
	}

	writeTable(sb, table)
}

func formatStat(scaler benchunit.Scaler, s *Stat) string {
	if s == nil {
		return ""
	}
	return scaler.Format(s.Center) + " ± " + s.Range
}

func formatPct(pct float64) string {
	return fmt.Sprintf("%+.2f%%", pct)
}

// writeTable aligns cells in columns: the first left-aligned, the rest
// right-aligned, except a trailing free-text column.
func writeTable(sb *strings.Builder, table [][]string) {
	if len(table) == 0 {
		return
	}
	cols := len(table[0])
	widths := make([]int, cols)
	for _, row := range table {
		for i, cell := range row {
			if n := len([]rune(cell)); n > widths[i] {
				widths[i] = n
			}
		}
	}

	for _, row := range table {
		var line strings.Builder
		for i, cell := range row {
			if i > 0 {
				line.WriteString("  ")
			}
			pad := strings.Repeat(" ", widths[i]-len([]rune(cell)))
			if i == 0 || (i == cols-1 && cols > 2) {
				line.WriteString(cell + pad)
			} else {
				line.WriteString(pad + cell)
			}
		}
		sb.WriteString(strings.TrimRight(line.String(), " "))
		sb.WriteString("\n")
	}
}
