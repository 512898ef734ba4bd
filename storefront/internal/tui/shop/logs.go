package shop

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/affiliateplus/storefront/storefront/internal/eventbus"
	"github.com/affiliateplus/storefront/storefront/internal/tui"
)

const maxLogLines = 500

type logsModel struct {
	viewport   viewport.Model
	lines      []string
	autoScroll bool
}

func newLogs() logsModel {
	return logsModel{
		viewport:   viewport.New(80, 4),
		autoScroll: true,
	}
}

func (l *logsModel) SetSize(width, height int) {
	l.viewport.Width = width
	l.viewport.Height = height
}

func (l *logsModel) add(rec eventbus.LogRecord) {
	l.lines = append(l.lines, formatRecord(rec))
	if len(l.lines) > maxLogLines {
		l.lines = l.lines[len(l.lines)-maxLogLines:]
	}
	l.viewport.SetContent(strings.Join(l.lines, "\n"))
	if l.autoScroll {
		l.viewport.GotoBottom()
	}
}

func formatRecord(rec eventbus.LogRecord) string {
	level := rec.Level
	line := fmt.Sprintf("  %s %s  %s",
		rec.Time.Format("15:04:05"),
		tui.LogLevelStyle(level).Render(fmt.Sprintf("%-5s", level)),
		rec.Message,
	)
	if rec.Component != "" {
		line += "  " + tui.Dimmed.Render("["+rec.Component+"]")
	}
	if len(rec.Attrs) > 0 {
		keys := make([]string, 0, len(rec.Attrs))
		for k := range rec.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		attrs := make([]string, len(keys))
		for i, k := range keys {
			attrs[i] = fmt.Sprintf("%s=%v", k, rec.Attrs[k])
		}
		line += "  " + tui.Dimmed.Render(strings.Join(attrs, " "))
	}
	return line
}

func (l logsModel) Update(msg tea.Msg) (logsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "j", "down", "k", "up":
			l.autoScroll = false
		}
	}
	var cmd tea.Cmd
	l.viewport, cmd = l.viewport.Update(msg)
	if l.viewport.AtBottom() {
		l.autoScroll = true
	}
	return l, cmd
}

func (l logsModel) View() string {
	return l.viewport.View()
}
