package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Mez0/TempBox/internal/tui"
)

// runTUI wires the full live pipeline and hands the terminal to the
// inbox UI until the user quits.
func runTUI(cmd *cobra.Command) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.start(cmd.Context()); err != nil {
		return err
	}
	defer a.stop()

	model, err := tui.New(a.controller, a.publisher)
	if err != nil {
		return fmt.Errorf("build ui: %w", err)
	}

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
