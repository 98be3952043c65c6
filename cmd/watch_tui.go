// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Ardane Systems

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/ardane/linewatch/pkg/lineframe"
	"github.com/ardane/linewatch/pkg/lineproto"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Record log entry
type recordLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for parse errors and dismissals
}

// TUI model
type watchModel struct {
	connInfo      string
	stats         *lineproto.Statistics
	recordLog     []recordLogEntry
	maxLogEntries int
	vp            viewport.Model
	synchronized  bool
	skippedBytes  int
	width         int
	height        int
	quitting      bool
	fatal         error
}

// Messages
type watchTickMsg time.Time
type watchLineMsg struct {
	raw      string
	record   lineproto.Record
	parseErr error
}
type watchDismissMsg struct {
	partial string
}
type watchSyncMsg struct {
	skippedBytes int
}
type watchFatalMsg struct {
	err error
}

func initialWatchModel(connInfo string) watchModel {
	vp := viewport.New(76, 12)
	return watchModel{
		connInfo:      connInfo,
		stats:         lineproto.NewStatistics(),
		recordLog:     make([]recordLogEntry, 0),
		maxLogEntries: 200,
		vp:            vp,
		width:         80,
		height:        24,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(
		watchTickCmd(),
		tea.EnterAltScreen,
	)
}

func watchTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.Width = m.width - 6
		logHeight := m.height - 12
		if logHeight < 5 {
			logHeight = 5
		}
		m.vp.Height = logHeight
		m.refreshLog()

	case watchTickMsg:
		// Update statistics rates
		m.stats.CalculateRates()
		return m, watchTickCmd()

	case watchSyncMsg:
		m.synchronized = true
		m.skippedBytes = msg.skippedBytes
		if msg.skippedBytes > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d bytes", msg.skippedBytes), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}

	case watchLineMsg:
		m.stats.Update(msg.parseErr)
		if msg.parseErr != nil {
			m.addLogEntry(fmt.Sprintf("PARSE ERROR: %v", msg.parseErr), true)
		} else {
			m.addLogEntry(msg.record.String(), false)
		}

	case watchDismissMsg:
		m.stats.AddDismissal()
		m.addLogEntry(fmt.Sprintf("DISMISSED: incomplete line %q", msg.partial), true)

	case watchFatalMsg:
		m.fatal = msg.err
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *watchModel) addLogEntry(message string, isError bool) {
	entry := recordLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.recordLog = append(m.recordLog, entry)

	// Keep only last N entries
	if len(m.recordLog) > m.maxLogEntries {
		m.recordLog = m.recordLog[len(m.recordLog)-m.maxLogEntries:]
	}
	m.refreshLog()
}

func (m *watchModel) refreshLog() {
	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	var content strings.Builder
	for _, entry := range m.recordLog {
		timestamp := entry.timestamp.Format("15:04:05.000")
		if entry.isError {
			content.WriteString(fmt.Sprintf("%s %s\n",
				headerStyle.Render(timestamp),
				errorStyle.Render("✗ "+entry.message),
			))
		} else {
			content.WriteString(fmt.Sprintf("%s %s\n",
				headerStyle.Render(timestamp),
				valueStyle.Render(entry.message),
			))
		}
	}
	m.vp.SetContent(content.String())
	m.vp.GotoBottom()
}

func (m watchModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("LINEWATCH - RECORD WATCH"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("Connection: %s | Press 'q' to quit", m.connInfo)))
	s.WriteString("\n\n")

	// Sync status
	if !m.synchronized {
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
		s.WriteString("\n\n")
	} else {
		s.WriteString(statsValueStyle.Render("✓ Synchronized"))
		if m.skippedBytes > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (skipped %d bytes)", m.skippedBytes)))
		}
		s.WriteString("\n\n")
	}

	// Statistics
	m.stats.CalculateRates()
	var validPercent, errorPercent float64
	if m.stats.TotalLines > 0 {
		validPercent = float64(m.stats.ValidRecords) * 100.0 / float64(m.stats.TotalLines)
		errorPercent = float64(m.stats.ParseErrors) * 100.0 / float64(m.stats.TotalLines)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.TotalLines)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.ValidRecords, validPercent)),
		statsLabelStyle.Render("Parse Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.ParseErrors, errorPercent)),
	))

	if m.stats.Dismissals > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s\n",
			statsLabelStyle.Render("Dismissed:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.Dismissals)),
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Line Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f lines/s", m.stats.LineRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if m.stats.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Recent records
	s.WriteString(statsLabelStyle.Render("Recent Records:"))
	s.WriteString("\n")
	if len(m.recordLog) == 0 {
		s.WriteString(boxStyle.Width(m.width - 4).Render(headerStyle.Render("  (no records yet)")))
	} else {
		s.WriteString(boxStyle.Width(m.width - 4).Render(m.vp.View()))
	}

	return s.String()
}

// runWatchTUI runs the watch command in TUI mode.
func runWatchTUI(framer *lineframe.Framer, dismissals <-chan string, connInfo string) error {
	m := initialWatchModel(connInfo)
	p := tea.NewProgram(m)

	// Dismissal forwarder goroutine
	go func() {
		for partial := range dismissals {
			p.Send(watchDismissMsg{partial: partial})
		}
	}()

	// Framer reader goroutine
	go func() {
		synchronized := false
		err := framer.ReadLines(func(line []byte) {
			if !synchronized {
				synchronized = true
				p.Send(watchSyncMsg{skippedBytes: framer.SkippedBytes()})
			}
			raw := string(line)
			record, parseErr := lineproto.Parse(raw)
			p.Send(watchLineMsg{raw: raw, record: record, parseErr: parseErr})
		})
		p.Send(watchFatalMsg{err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	if m, ok := final.(watchModel); ok && m.fatal != nil {
		return m.fatal
	}
	return nil
}
