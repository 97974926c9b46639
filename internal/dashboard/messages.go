package dashboard

import (
	"github.com/statusbeat/statusbeat/internal/client"
	"github.com/statusbeat/statusbeat/internal/model"
	"github.com/statusbeat/statusbeat/internal/store"
)

// MonitorsMsg carries a fresh store snapshot into the TUI.
type MonitorsMsg struct {
	Monitors []model.Monitor
}

// StatsMsg carries recomputed aggregate statistics.
type StatsMsg struct {
	Stats store.AggregateStats
}

// ConnStateMsg carries a connection lifecycle transition.
type ConnStateMsg struct {
	State client.State
}

// InfoMsg carries server metadata.
type InfoMsg struct {
	Info model.Info
}

// refreshedMsg reports the outcome of a manual refresh request.
type refreshedMsg struct {
	err error
}
