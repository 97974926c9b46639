package dashboard

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/statusbeat/statusbeat/internal/client"
	"github.com/statusbeat/statusbeat/internal/store"
)

// Run starts the dashboard and blocks until the user quits. The bridge is
// attached from a goroutine because the subscriptions deliver their first
// snapshot synchronously, and Send only completes once the program's event
// loop is running.
func Run(monitors *store.MonitorStore, cli *client.Client) error {
	program := tea.NewProgram(NewModel(cli), tea.WithAltScreen())

	bridge := NewBridge(program)
	detachCh := make(chan func(), 1)
	go func() {
		detachCh <- bridge.Attach(monitors, cli)
	}()
	defer func() {
		if detach := <-detachCh; detach != nil {
			detach()
		}
	}()

	_, err := program.Run()
	return err
}
