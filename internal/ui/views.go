package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/lector/internal/results"
	"github.com/five82/lector/internal/session"
)

const (
	headerLines = 2
	footerLines = 2
)

func (m *Model) contentHeight() int {
	h := m.height - headerLines - footerLines - 2 // panel border
	if h < 3 {
		h = 3
	}
	return h
}

func (m *Model) contentWidth() int {
	w := m.width - 4 // panel border and padding
	if w < 20 {
		w = 20
	}
	return w
}

func (m *Model) resizeViewports() {
	w, h := m.contentWidth(), m.contentHeight()
	if m.detail.Width == 0 {
		m.detail = viewport.New(w, h)
		m.logs = viewport.New(w, h)
		return
	}
	m.detail.Width, m.detail.Height = w, h
	m.logs.Width, m.logs.Height = w, h
}

// refreshDetail renders the current result into the detail viewport.
func (m *Model) refreshDetail() {
	if !m.ready {
		return
	}
	current := m.results.Current
	if current == nil {
		m.detail.SetContent(m.theme.Styles().MutedText.Render("No result selected. Press enter on a result to open it."))
		return
	}
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.AccentText.Render(displayName(*current)))
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render(fmt.Sprintf("id %s  ·  %s", current.ID, formatTimestamp(*current))))
	b.WriteString("\n\n")
	text := current.TextContent
	if strings.TrimSpace(text) == "" {
		text = styles.FaintText.Render("(no text extracted)")
	}
	b.WriteString(lipgloss.NewStyle().Width(m.detail.Width).Render(text))
	m.detail.SetContent(b.String())
}

func (m *Model) refreshLogView() {
	if !m.ready {
		return
	}
	styles := m.theme.Styles()
	lines := make([]string, len(m.logLines))
	for i, line := range m.logLines {
		switch {
		case strings.Contains(line, " ERROR "):
			lines[i] = styles.DangerText.Render(line)
		case strings.Contains(line, " WARN "):
			lines[i] = styles.WarningText.Render(line)
		case strings.Contains(line, " DEBUG "):
			lines[i] = styles.FaintText.Render(line)
		default:
			lines[i] = styles.Text.Render(line)
		}
	}
	atBottom := m.logs.AtBottom()
	m.logs.SetContent(strings.Join(lines, "\n"))
	if atBottom || m.logs.YOffset == 0 {
		m.logs.GotoBottom()
	}
}

func (m Model) renderMain() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderContent(),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	status := m.session.Status.String()
	badge := styles.StatusStyle(status).Render(strings.ToUpper(status))
	who := ""
	if name := m.session.Username(); name != "" {
		who = " " + styles.Text.Render(name)
	}
	pending := ""
	if m.session.Pending || m.results.Pending {
		pending = " " + styles.InfoText.Render("working…")
	}
	offline := ""
	if m.health.IsOffline() {
		offline = " " + styles.DangerText.Render(fmt.Sprintf("offline (%d failed refreshes)", m.health.ConsecutiveFailures))
	}
	line1 := styles.Logo.Render("lector") + "  " + badge + who + pending + offline
	line2 := styles.MutedText.Render(fmt.Sprintf("%s  ·  %s  ·  %d results", m.endpoint, m.view, len(m.results.Results)))
	if !m.results.LastUpdated.IsZero() {
		line2 += styles.FaintText.Render("  ·  updated " + m.results.LastUpdated.Local().Format("15:04:05"))
	}
	return styles.Header.Width(m.width).Render(line1 + "\n" + line2)
}

func (m Model) renderContent() string {
	styles := m.theme.Styles()
	var body string
	switch {
	case m.mode == modeLogin:
		body = m.renderLoginForm()
	case m.mode == modeUpload:
		body = m.renderUploadForm()
	case m.mode == modeConfirmDelete:
		body = m.renderConfirm()
	case m.view == ViewDetail:
		body = m.detail.View()
	case m.view == ViewLogs:
		if m.logPath == "" {
			body = styles.MutedText.Render("File logging is disabled.")
		} else {
			body = m.logs.View()
		}
	default:
		body = m.renderResults()
	}
	panel := styles.Panel
	if m.mode != modeNone {
		panel = styles.Focused
	}
	return panel.Width(m.width - 2).Height(m.contentHeight()).Render(body)
}

func (m Model) renderResults() string {
	styles := m.theme.Styles()
	if !m.session.Authenticated() {
		return styles.MutedText.Render("Not logged in. Press L to log in.")
	}
	if len(m.results.Results) == 0 {
		if m.results.Pending {
			return styles.MutedText.Render("Loading results…")
		}
		return styles.MutedText.Render("No results yet. Press u to upload a PNG, JPEG or PDF.")
	}

	compact := m.width < LayoutCompactWidth
	nameWidth := 28
	previewWidth := m.contentWidth() - nameWidth - 2
	if !compact {
		previewWidth -= 18
	}
	if previewWidth < 10 {
		previewWidth = 10
	}

	rows := m.contentHeight()
	start := 0
	if m.selected >= rows {
		start = m.selected - rows + 1
	}
	end := start + rows
	if end > len(m.results.Results) {
		end = len(m.results.Results)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		r := m.results.Results[i]
		cols := []string{padRight(truncate(displayName(r), nameWidth), nameWidth)}
		if !compact {
			cols = append(cols, padRight(formatTimestamp(r), 16))
		}
		cols = append(cols, truncate(singleLine(r.Preview), previewWidth))
		row := strings.Join(cols, "  ")
		if i == m.selected {
			row = styles.Selected.Render(padRight(row, m.contentWidth()))
		} else {
			row = styles.Text.Render(row)
		}
		b.WriteString(row)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderLoginForm() string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.AccentText.Render("Log in"))
	b.WriteString("\n\n")
	b.WriteString(m.loginInputs[0].View())
	b.WriteString("\n")
	b.WriteString(m.loginInputs[1].View())
	b.WriteString("\n\n")
	if m.session.Status == session.StatusAuthenticating {
		b.WriteString(styles.InfoText.Render("Logging in…"))
	} else if m.session.LastError != "" {
		b.WriteString(styles.DangerText.Render(m.session.LastError))
	} else {
		b.WriteString(styles.FaintText.Render("enter to submit · tab to switch field · esc to cancel"))
	}
	return b.String()
}

func (m Model) renderUploadForm() string {
	styles := m.theme.Styles()
	limit := m.client.Results.Limits().MaxBytes / (1024 * 1024)
	var b strings.Builder
	b.WriteString(styles.AccentText.Render("Extract text from a file"))
	b.WriteString("\n\n")
	b.WriteString(m.uploadInput.View())
	b.WriteString("\n\n")
	if m.results.Pending {
		b.WriteString(styles.InfoText.Render("Processing…"))
	} else {
		b.WriteString(styles.FaintText.Render(fmt.Sprintf("PNG, JPEG or PDF up to %dMB · enter to upload · esc to cancel", limit)))
	}
	return b.String()
}

func (m Model) renderConfirm() string {
	styles := m.theme.Styles()
	return styles.WarningText.Render(fmt.Sprintf("Delete result %s? This cannot be undone.", m.pendingDelete)) +
		"\n\n" + styles.FaintText.Render("y to delete · n to cancel")
}

func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	msg := ""
	switch {
	case m.results.LastError != "":
		msg = styles.DangerText.Render(m.results.LastError)
	case m.session.LastError != "" && m.mode != modeLogin:
		msg = styles.DangerText.Render(m.session.LastError)
	case m.notice != "":
		msg = styles.InfoText.Render(m.notice)
	}
	return styles.Footer.Width(m.width).Render(msg + "\n" + m.help.ShortHelpView(m.keys.ShortHelp()))
}

func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	title := styles.Logo.Render("lector") + styles.MutedText.Render("  keyboard shortcuts")
	body := m.help.FullHelpView(m.keys.FullHelp())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		styles.Focused.Render(title+"\n\n"+body+"\n\n"+styles.FaintText.Render("press any key to close")))
}

func displayName(r results.Result) string {
	if strings.TrimSpace(r.Filename) != "" {
		return r.Filename
	}
	return "result " + r.ID
}

func formatTimestamp(r results.Result) string {
	ts := r.ParsedTimestamp()
	if ts.IsZero() {
		return r.Timestamp
	}
	return ts.Local().Format("2006-01-02 15:04")
}
