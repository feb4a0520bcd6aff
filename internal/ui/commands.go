package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lector/internal/logtail"
	"github.com/five82/lector/internal/results"
	"github.com/five82/lector/internal/transport"
)

// Messages

type tickMsg time.Time

type loginDoneMsg struct {
	username string
	err      error
}

type logoutDoneMsg struct{ err error }

type opKind int

const (
	opList opKind = iota
	opSubmit
	opFetch
	opDelete
)

type opDoneMsg struct {
	op     opKind
	id     string
	result results.Result
	err    error
	// localErr describes failures that happen before the store is involved.
	localErr string
}

type reconnectMsg struct{ endpoint string }

type logsMsg struct {
	lines []string
	err   error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) loginCmd(username, password string) tea.Cmd {
	ctx, sess := m.ctx, m.client.Session
	return func() tea.Msg {
		err := sess.Login(ctx, username, password)
		return loginDoneMsg{username: username, err: err}
	}
}

func (m Model) logoutCmd() tea.Cmd {
	ctx, client := m.ctx, m.client
	return func() tea.Msg {
		return logoutDoneMsg{err: client.Logout(ctx)}
	}
}

func (m Model) listCmd() tea.Cmd {
	ctx, store := m.ctx, m.client.Results
	return func() tea.Msg {
		_, err := store.List(ctx)
		return opDoneMsg{op: opList, err: err}
	}
}

func (m Model) fetchCmd(id string) tea.Cmd {
	ctx, store := m.ctx, m.client.Results
	return func() tea.Msg {
		result, err := store.FetchOne(ctx, id)
		return opDoneMsg{op: opFetch, id: id, result: result, err: err}
	}
}

func (m Model) deleteCmd(id string) tea.Cmd {
	ctx, store := m.ctx, m.client.Results
	return func() tea.Msg {
		return opDoneMsg{op: opDelete, id: id, err: store.DeleteOne(ctx, id)}
	}
}

func (m Model) submitCmd(path string) tea.Cmd {
	ctx, store := m.ctx, m.client.Results
	return func() tea.Msg {
		file, err := results.LoadFile(path, store.Limits().MaxBytes)
		if err != nil {
			return opDoneMsg{op: opSubmit, err: err, localErr: transport.Message(err, "Could not read file")}
		}
		result, err := store.Submit(ctx, file)
		return opDoneMsg{op: opSubmit, id: result.ID, result: result, err: err}
	}
}

func (m Model) reconnectCmd() tea.Cmd {
	ctx, client := m.ctx, m.client
	return func() tea.Msg {
		return reconnectMsg{endpoint: client.Reconnect(ctx)}
	}
}

func (m Model) tailLogsCmd() tea.Cmd {
	path, warnOnly := m.logPath, m.warnOnly
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		entries, err := logtail.Tail(path, LogFetchLimit)
		if err != nil {
			return logsMsg{err: err}
		}
		if warnOnly {
			entries = logtail.AtLeast(entries, "warn")
		}
		lines := make([]string, 0, len(entries))
		for _, e := range entries {
			lines = append(lines, logtail.Format(e))
		}
		return logsMsg{lines: lines}
	}
}
