// Package ui provides the terminal building blocks shared by the dashboard
// and the one-shot status output: the color palette, monitor status symbols,
// ping sparklines, and styled tables.
//
// Colors are ANSI codes for broad terminal compatibility:
//
//	ColorSuccess   (green)  - Monitor up
//	ColorError     (red)    - Monitor down
//	ColorWarning   (yellow) - Pending / maintenance
//	ColorInfo      (cyan)   - Informational text
//	ColorMuted     (gray)   - Secondary text
//	ColorSecondary (blue)   - Accents
//
// Symbols map monitor status to a single glyph, and RenderSparkline turns a
// heartbeat ping history into a compact block-character graph.
package ui
