package dashboard

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/statusbeat/statusbeat/internal/client"
	"github.com/statusbeat/statusbeat/internal/model"
	"github.com/statusbeat/statusbeat/internal/store"
)

// Bridge forwards store and connection callbacks to the Bubble Tea program
// via program.Send(), which is goroutine-safe. The subscriptions fire from
// the store's writer and the client's consumer goroutine; the program's
// update loop serializes them.
type Bridge struct {
	program *tea.Program
}

// NewBridge creates a bridge that forwards events to the given program.
func NewBridge(program *tea.Program) *Bridge {
	return &Bridge{program: program}
}

// Attach subscribes the bridge to the store and the client. The returned
// func removes every subscription.
func (b *Bridge) Attach(monitors *store.MonitorStore, cli *client.Client) func() {
	unsubMonitors := monitors.Subscribe(func(snapshot []model.Monitor) {
		b.program.Send(MonitorsMsg{Monitors: snapshot})
	})
	unsubStats := monitors.SubscribeStats(func(stats store.AggregateStats) {
		b.program.Send(StatsMsg{Stats: stats})
	})
	unsubState := cli.OnStateChange(func(state client.State) {
		b.program.Send(ConnStateMsg{State: state})
	})

	return func() {
		unsubMonitors()
		unsubStats()
		unsubState()
	}
}
