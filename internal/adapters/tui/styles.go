package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary   = lipgloss.Color("#7C3AED") // Purple
	Secondary = lipgloss.Color("#10B981") // Green
	Muted     = lipgloss.Color("#6B7280") // Gray
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Error     = lipgloss.Color("#EF4444") // Red
	White     = lipgloss.Color("#FFFFFF")

	App      = lipgloss.NewStyle().Padding(1, 2)
	Title    = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	Subtitle = lipgloss.NewStyle().Foreground(Muted).Italic(true)

	// Node styles by position relative to head.
	NodeHead    = lipgloss.NewStyle().Bold(true).Foreground(Secondary)
	NodeApplied = lipgloss.NewStyle()
	NodeRedo    = lipgloss.NewStyle().Foreground(Warning)
	NodeOther   = lipgloss.NewStyle().Foreground(Muted)
	NodeCursor  = lipgloss.NewStyle().Background(Primary).Foreground(White).Bold(true)

	TreeBranch = lipgloss.NewStyle().Foreground(Muted)
	MarkHead   = "@ "
	MarkNode   = "o "

	ErrorMsg = lipgloss.NewStyle().Foreground(Error)
	Success  = lipgloss.NewStyle().Foreground(Secondary)

	HelpKey       = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	HelpDesc      = lipgloss.NewStyle().Foreground(Muted)
	HelpSeparator = lipgloss.NewStyle().Foreground(Muted).SetString(" • ")
)
