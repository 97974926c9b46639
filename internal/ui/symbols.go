package ui

// Unicode symbols for monitor status indicators.
const (
	SymbolUp          = "✓" // Monitor up
	SymbolDown        = "✗" // Monitor down
	SymbolPending     = "○" // No heartbeat yet
	SymbolPaused      = "⊘" // Monitor inactive
	SymbolMaintenance = "◐" // Under maintenance
	SymbolConnected   = "●" // Connection indicator
)

// StatusSymbol maps a monitor's state to its display glyph.
func StatusSymbol(isUp, hasHistory, active, maintenance bool) string {
	switch {
	case maintenance:
		return SymbolMaintenance
	case !active:
		return SymbolPaused
	case !hasHistory:
		return SymbolPending
	case isUp:
		return SymbolUp
	default:
		return SymbolDown
	}
}
