package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/vyvo/site/backend/pkg/apierr"
	"github.com/vyvo/site/backend/pkg/chat"
	"github.com/vyvo/site/backend/pkg/jobs"
)

var (
	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))
)

func renderStatus(s jobs.Status) string {
	state := s.State
	if state == "" {
		state = "unknown"
	}
	switch s.Outcome() {
	case jobs.OutcomeReady:
		return okStyle.Render("ready")
	case jobs.OutcomeFailed:
		msg := state
		if s.Message != "" {
			msg = fmt.Sprintf("%s: %s", state, s.Message)
		}
		return errorStyle.Render(msg)
	default:
		return pendingStyle.Render(state)
	}
}

func renderAPIError(err error) error {
	if apiErr, ok := apierr.As(err); ok {
		return fmt.Errorf("%s (%s, status %d)", apiErr.Message, apiErr.Code, apiErr.Status)
	}
	return err
}

func renderBotReply(r chat.Reply) string {
	var out string
	for _, seg := range r.Segments() {
		if seg.Href == "" {
			out += seg.Text
			continue
		}
		if seg.Text == seg.Href {
			out += lipgloss.NewStyle().Underline(true).Render(seg.Href)
			continue
		}
		out += seg.Text + " " + dimStyle.Render("<"+seg.Href+">")
	}
	if !r.OK() {
		return errorStyle.Render("bot") + " " + out
	}
	return labelStyle.Render("bot") + " " + out
}
