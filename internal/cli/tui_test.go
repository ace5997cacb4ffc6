package cli

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/cem/pkg/optimization"
)

func update(t *testing.T, m OptimizeModel, msg tea.Msg) (OptimizeModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	om, ok := next.(OptimizeModel)
	require.True(t, ok)
	return om, cmd
}

func TestOptimizeModelTracksProgress(t *testing.T) {
	m := NewOptimizeModel("Optimizing", 10, nil)
	m, _ = update(t, m, progressMsg{Iteration: 1, Objective: 0.5, Evals: 3})
	m, _ = update(t, m, progressMsg{Iteration: 2, Objective: 0.7, Evals: 6})
	m, _ = update(t, m, progressMsg{Iteration: 3, Objective: 0.1, Evals: 9})

	assert.Len(t, m.History, 3)
	assert.Equal(t, 0.1, m.Best)

	view := m.View()
	assert.Contains(t, view, "Optimizing")
	assert.Contains(t, view, "3/10")
	assert.Contains(t, view, "0.1")
}

func TestOptimizeModelQuitCancels(t *testing.T) {
	cancelled := false
	m := NewOptimizeModel("Optimizing", 10, func() { cancelled = true })

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.True(t, cancelled)
	assert.True(t, m.Cancelled)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, m.View(), "cancelling")
}

func TestOptimizeModelFinished(t *testing.T) {
	cancelled := false
	m := NewOptimizeModel("Optimizing", 10, func() { cancelled = true })

	m, cmd := update(t, m, finishedMsg{})
	assert.True(t, m.Finished)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.False(t, cancelled, "quitting after the run does not cancel it")
	assert.False(t, m.Cancelled)
}

func TestOptimizeModelTick(t *testing.T) {
	m := NewOptimizeModel("Optimizing", 10, nil)
	later := m.Start.Add(2 * time.Second)
	m, cmd := update(t, m, tickMsg(later))
	assert.Equal(t, later, m.Now)
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "2s")
}

func TestHistoryTableKeepsLatestRows(t *testing.T) {
	m := NewOptimizeModel("Optimizing", 50, nil)
	for i := 1; i <= 20; i++ {
		m, _ = update(t, m, progressMsg(optimization.Progress{Iteration: i, Objective: float64(i)}))
	}
	rendered := m.historyTable().Render()
	assert.Contains(t, rendered, "20")
	assert.Contains(t, rendered, "13")
	assert.NotContains(t, rendered, " 12 ")
}

func TestProgressBar(t *testing.T) {
	count := func(s, r string) int { return strings.Count(s, r) }

	assert.Equal(t, barWidth, count(progressBar(0, 10), "░"))
	assert.Equal(t, barWidth, count(progressBar(10, 10), "█"))
	assert.Equal(t, barWidth/2, count(progressBar(5, 10), "█"))
	assert.Equal(t, barWidth, count(progressBar(20, 10), "█"), "overshoot is clamped")
	assert.Equal(t, barWidth, count(progressBar(3, 0), "░"))
}
