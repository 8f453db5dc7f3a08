// Package widgets provides the panels rendered by the wifi-pulse TUI and the
// status text shared with the plain and daemon outputs.
package widgets

// Colors used by the connectivity panel.
const (
	ColorBorder  = "#7C3AED"
	ColorAccent  = "#A78BFA"
	ColorDim     = "#9CA3AF"
	ColorWifi    = "#10B981"
	ColorNotWifi = "#F59E0B"
	ColorOffline = "#EF4444"
)
