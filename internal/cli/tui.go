package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	cemio "github.com/matzehuels/cem/pkg/io"
	"github.com/matzehuels/cem/pkg/optimization"
)

var (
	barFullStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	barEmptyStyle = lipgloss.NewStyle().Foreground(colorDim)
	helpStyle     = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	historyRows = 8
	barWidth    = 30
)

// =============================================================================
// OptimizeModel - live view of an optimization run
// =============================================================================

type progressMsg optimization.Progress

type finishedMsg struct{ err error }

type tickMsg time.Time

// OptimizeModel is the bubbletea model shown by `cem optimize --tui`. It
// plots the objective of every major iteration and cancels the run when the
// user quits.
type OptimizeModel struct {
	Title     string
	MaxIters  int
	History   []optimization.Progress
	Best      float64
	Start     time.Time
	Now       time.Time
	Finished  bool
	Cancelled bool
	Err       error

	cancel context.CancelFunc
}

// NewOptimizeModel creates a model for a run of at most maxIters iterations.
// cancel is called when the user quits before the run finishes.
func NewOptimizeModel(title string, maxIters int, cancel context.CancelFunc) OptimizeModel {
	now := time.Now()
	return OptimizeModel{Title: title, MaxIters: maxIters, Start: now, Now: now, cancel: cancel}
}

func tick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m OptimizeModel) Init() tea.Cmd {
	return tick()
}

func (m OptimizeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.Finished {
				m.Cancelled = true
				if m.cancel != nil {
					m.cancel()
				}
			}
			return m, tea.Quit
		}
	case progressMsg:
		p := optimization.Progress(msg)
		if len(m.History) == 0 || p.Objective < m.Best {
			m.Best = p.Objective
		}
		m.History = append(m.History, p)
	case finishedMsg:
		m.Finished = true
		m.Err = msg.err
		return m, tea.Quit
	case tickMsg:
		m.Now = time.Time(msg)
		return m, tick()
	}
	return m, nil
}

func (m OptimizeModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("q quit"))
	b.WriteString("\n\n")

	iter := 0
	if n := len(m.History); n > 0 {
		iter = m.History[n-1].Iteration
	}
	b.WriteString(progressBar(iter, m.MaxIters))
	b.WriteString(fmt.Sprintf("  %d/%d\n\n", iter, m.MaxIters))

	if len(m.History) > 0 {
		last := m.History[len(m.History)-1]
		printKV(&b, "objective", fmtFloat(last.Objective))
		printKV(&b, "best", fmtFloat(m.Best))
		printKV(&b, "evaluations", strconv.Itoa(last.Evals))
	}
	printKV(&b, "elapsed", m.Now.Sub(m.Start).Round(100*time.Millisecond).String())

	if len(m.History) > 0 {
		b.WriteString("\n")
		b.WriteString(m.historyTable().Render())
		b.WriteString("\n")
	}

	switch {
	case m.Cancelled:
		b.WriteString("\n" + StyleWarning.Render("cancelling...") + "\n")
	case m.Finished && m.Err != nil:
		b.WriteString("\n" + styleIconError.Render(iconError) + " " + m.Err.Error() + "\n")
	case m.Finished:
		b.WriteString("\n" + styleIconSuccess.Render(iconSuccess) + " done\n")
	}
	return b.String()
}

func (m OptimizeModel) historyTable() *table.Table {
	from := max(0, len(m.History)-historyRows)
	rows := make([][]string, 0, historyRows)
	for i := len(m.History) - 1; i >= from; i-- {
		p := m.History[i]
		rows = append(rows, []string{strconv.Itoa(p.Iteration), fmtFloat(p.Objective), strconv.Itoa(p.Evals)})
	}
	return newTable("Iter", "Objective", "Evals").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styleHeader
			case row == 0:
				return styleCell.Foreground(colorWhite)
			default:
				return styleCell.Foreground(colorGray)
			}
		})
}

func progressBar(n, total int) string {
	filled := 0
	if total > 0 {
		filled = min(barWidth, n*barWidth/total)
	}
	return barFullStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))
}

func printKV(b *strings.Builder, key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	b.WriteString(keyStyle.Render(key) + " " + StyleValue.Render(value) + "\n")
}

// optimizeJob runs one optimization, reporting progress to cb.
type optimizeJob func(ctx context.Context, cb func(optimization.Progress)) (cemio.ResultDoc, bool, error)

type jobResult struct {
	doc    cemio.ResultDoc
	cached bool
	err    error
}

// runOptimizeTUI runs job under the interactive progress view. Quitting the
// view cancels the job; the job's error is returned in that case.
func runOptimizeTUI(ctx context.Context, title string, maxIters int, job optimizeJob) (cemio.ResultDoc, bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewOptimizeModel(title, maxIters, cancel), tea.WithOutput(os.Stderr))

	done := make(chan jobResult, 1)
	go func() {
		doc, cached, err := job(ctx, func(pr optimization.Progress) { p.Send(progressMsg(pr)) })
		done <- jobResult{doc, cached, err}
		p.Send(finishedMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return cemio.ResultDoc{}, false, fmt.Errorf("run progress view: %w", err)
	}
	res := <-done
	return res.doc, res.cached, res.err
}
