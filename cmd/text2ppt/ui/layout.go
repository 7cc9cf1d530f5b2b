package ui

// Layout constants for panel sizing
const (
	// Viewport padding
	ViewportHorizontalPadding = 4
	ViewportVerticalPadding   = 8

	// Sidebar split
	SidebarRatio    = 0.3
	SidebarMinWidth = 24
	SidebarMaxWidth = 40
	PaneDivider     = 1

	// Panel borders and spacing
	PanelBorderWidth = 2
	PanelPaddingH    = 2

	// Chrome
	HeaderHeight     = 1
	FooterHeight     = 1
	ThumbnailHeight  = 3
	ComposerMinLines = 3
	ComposerMaxLines = 8

	// Responsive breakpoints
	MinimumTerminalWidth = 60
	CompactModeWidth     = 100

	MinContentWidth = 40
	ModalWidth      = 56
)

// LayoutConfig provides computed layout dimensions based on terminal size
type LayoutConfig struct {
	TerminalWidth  int
	TerminalHeight int
	IsCompact      bool
}

// NewLayoutConfig creates a layout configuration for the given terminal size
func NewLayoutConfig(width, height int) LayoutConfig {
	return LayoutConfig{
		TerminalWidth:  width,
		TerminalHeight: height,
		IsCompact:      width < CompactModeWidth,
	}
}

// ContentWidth returns the usable content width for a viewport
func (l LayoutConfig) ContentWidth() int {
	return max(l.TerminalWidth-ViewportHorizontalPadding, MinContentWidth)
}

// ContentHeight returns the usable content height for a viewport
func (l LayoutConfig) ContentHeight() int {
	return max(l.TerminalHeight-ViewportVerticalPadding, 1)
}

// SidebarWidths splits the terminal into sidebar and main pane. In compact
// mode the sidebar takes the whole width when shown.
func (l LayoutConfig) SidebarWidths() (sidebar, main int) {
	if l.IsCompact {
		return l.TerminalWidth, l.TerminalWidth
	}
	sidebar = int(float64(l.TerminalWidth) * SidebarRatio)
	sidebar = min(max(sidebar, SidebarMinWidth), SidebarMaxWidth)
	main = l.TerminalWidth - sidebar - PaneDivider
	return sidebar, main
}

// SlideHeight returns the slide card height for the viewer page.
func (l LayoutConfig) SlideHeight(fullscreen bool) int {
	h := l.TerminalHeight - HeaderHeight - FooterHeight - PanelBorderWidth
	if !fullscreen {
		h -= ThumbnailHeight
	}
	return max(h, 3)
}

// PanelContentWidth returns the content width inside a bordered panel
func PanelContentWidth(panelWidth int) int {
	return max(panelWidth-PanelBorderWidth-(PanelPaddingH*2), 1)
}
