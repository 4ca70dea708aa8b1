package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/FrenchMajesty/semantic-search/pkg/config"
)

// Run starts the full-screen UI and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, svc Service, overrides config.Overrides, defaults config.ConnectionConfig) error {
	p := tea.NewProgram(
		New(ctx, svc, overrides, defaults),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running tui: %w", err)
	}
	return nil
}
