package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"feedbackexplorer/internal/domain"
	"feedbackexplorer/internal/service"
	"feedbackexplorer/internal/session"
	"feedbackexplorer/internal/status"
)

// Run starts the full-screen UI and blocks until the user quits or ctx ends.
func Run(ctx context.Context, explorer *service.Explorer) error {
	p := tea.NewProgram(New(ctx, explorer), tea.WithAltScreen(), tea.WithContext(ctx))

	// Observers fire from Update as well as from background commands, so the
	// send must not block the event loop.
	notify := func() { go p.Send(changedMsg{}) }
	unsubs := []func(){
		explorer.Session.Subscribe(func(session.Event) { notify() }),
		explorer.Ingest.Subscribe(func(domain.UploadJob) { notify() }),
		explorer.Tracker.Subscribe(func(status.Availability) { notify() }),
	}
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
