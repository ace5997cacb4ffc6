package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	cemio "github.com/matzehuels/cem/pkg/io"
	"github.com/matzehuels/cem/pkg/optimization"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // primary
	colorGreen  = lipgloss.Color("35")  // success
	colorYellow = lipgloss.Color("220") // warnings
	colorRed    = lipgloss.Color("167") // errors, tension
	colorBlue   = lipgloss.Color("75")  // commands, compression
	colorWhite  = lipgloss.Color("255") // values
	colorGray   = lipgloss.Color("245") // secondary text
	colorDim    = lipgloss.Color("240") // muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber    = lipgloss.NewStyle().Foreground(colorCyan)
	StyleSuccess   = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
	styleCommand  = lipgloss.NewStyle().Foreground(colorBlue)

	styleTension     = lipgloss.NewStyle().Foreground(colorRed)
	styleCompression = lipgloss.NewStyle().Foreground(colorBlue)
	styleHeader      = lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Padding(0, 1)
	styleCell        = lipgloss.NewStyle().Padding(0, 1)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Println(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printStats prints diagram sizes and the cache status on one line.
func printStats(nodes, edges int, cached bool) {
	status, style := iconFresh, styleComputed
	if cached {
		status, style = iconCached, styleCached
	}
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf("%d nodes · %d edges · ", nodes, edges)) + style.Render(status))
}

func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// =============================================================================
// Tables
// =============================================================================

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }

func fmtVec(v [3]float64) string {
	return fmt.Sprintf("(%s, %s, %s)", fmtFloat(v[0]), fmtFloat(v[1]), fmtFloat(v[2]))
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			return styleCell
		})
}

// edgeTable lists the edges of a form with forces colored by sign.
func edgeTable(doc cemio.FormDoc) *table.Table {
	t := newTable("Edge", "Kind", "Nodes", "Force", "Length")
	for _, e := range doc.Edges {
		force := fmtFloat(e.Force)
		switch {
		case e.Force > 0:
			force = styleTension.Render(force)
		case e.Force < 0:
			force = styleCompression.Render(force)
		}
		t.Row(strconv.Itoa(e.ID), e.Kind, fmt.Sprintf("%d-%d", e.U, e.V), force, fmtFloat(e.Length))
	}
	return t
}

// reactionTable lists the support reactions of a form.
func reactionTable(doc cemio.FormDoc) *table.Table {
	t := newTable("Support", "Position", "Reaction")
	for _, n := range doc.Nodes {
		if !n.Support || n.Reaction == nil {
			continue
		}
		id := strconv.Itoa(n.ID)
		if n.Auxiliary {
			id += " (aux)"
		}
		t.Row(id, fmtVec(n.Position), fmtVec(*n.Reaction))
	}
	return t
}

// printForm prints a solved form: status line, edge forces and reactions.
func printForm(doc cemio.FormDoc, cached bool) {
	st := doc.Status
	if st.Converged {
		printSuccess("Equilibrium found in %s iterations", StyleNumber.Render(strconv.Itoa(st.Iterations)))
	} else {
		printWarning("Not converged after %d iterations (displacement %s)", st.Iterations, fmtFloat(st.Displacement))
	}
	printStats(len(doc.Nodes), len(doc.Edges), cached)
	fmt.Println(edgeTable(doc))
	fmt.Println(reactionTable(doc))
}

// printResult prints the outcome of an optimization run.
func printResult(doc cemio.ResultDoc, params []cemio.ParameterDoc, cached bool) {
	if doc.Status == optimization.StatusSuccess.String() || doc.Status == optimization.StatusObjectiveReached.String() {
		printSuccess("Optimization finished: %s", doc.Status)
	} else {
		printWarning("Optimization stopped: %s", doc.Status)
	}
	if !doc.Converged {
		printWarning("Final form did not converge; raise tmax or check the topology")
	}
	printKeyValue("objective", fmtFloat(doc.Objective))
	printKeyValue("grad norm", fmtFloat(doc.GradNorm))
	printKeyValue("iterations", strconv.Itoa(doc.Iterations))
	printKeyValue("evaluations", strconv.Itoa(doc.Evals))
	printKeyValue("duration", doc.Duration().String())
	printStats(len(doc.Form.Nodes), len(doc.Form.Edges), cached)

	t := newTable("Parameter", "Value", "Lower", "Upper")
	for i, v := range doc.Values {
		name := strconv.Itoa(i)
		if i < len(params) {
			name = parameterName(params[i])
		}
		row := []string{name, fmtFloat(v), "", ""}
		if i < len(doc.Lower) && i < len(doc.Upper) {
			row[2], row[3] = fmtFloat(doc.Lower[i]), fmtFloat(doc.Upper[i])
		}
		t.Row(row...)
	}
	fmt.Println(t)
}

func parameterName(p cemio.ParameterDoc) string {
	switch p.Type {
	case "support":
		return fmt.Sprintf("support(node=%d, axis=%s)", p.Node, string("xyz"[p.Axis%3]))
	case "deviation_force":
		return fmt.Sprintf("force(edge=%d)", p.Edge)
	default:
		return fmt.Sprintf("length(edge=%d)", p.Edge)
	}
}
