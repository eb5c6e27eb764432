// Package ui отображает экраны курьера в терминале.
package ui

import (
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmeshcher/livreur-console/internal/theme"
)

// Styles хранит стили, построенные из действующих цветов темы.
// Реализует theme.Applier.
type Styles struct {
	mu     sync.RWMutex
	colors theme.Colors
	dark   bool

	title   lipgloss.Style
	muted   lipgloss.Style
	text    lipgloss.Style
	accent  lipgloss.Style
	panel   lipgloss.Style
	badge   lipgloss.Style
	success lipgloss.Style
	danger  lipgloss.Style
	button  lipgloss.Style
}

// NewStyles создаёт стили палитры по умолчанию.
func NewStyles() *Styles {
	s := &Styles{}
	s.Apply(theme.Palettes[theme.DefaultPalette], false)
	return s
}

// Apply перестраивает стили по цветам темы и выставляет признак тёмного фона.
func (s *Styles) Apply(colors theme.Colors, dark bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.colors = colors
	s.dark = dark
	lipgloss.SetHasDarkBackground(dark)

	primary := lipgloss.Color(colors.Primary)
	accent := lipgloss.Color(colors.Accent)
	text := lipgloss.Color(colors.Text)
	muted := lipgloss.Color(colors.TextMuted)
	border := lipgloss.Color(colors.Border)
	bg := lipgloss.Color(colors.Background)

	s.title = lipgloss.NewStyle().Foreground(primary).Bold(true)
	s.muted = lipgloss.NewStyle().Foreground(muted)
	s.text = lipgloss.NewStyle().Foreground(text)
	s.accent = lipgloss.NewStyle().Foreground(accent).Bold(true)
	s.panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
	s.badge = lipgloss.NewStyle().Foreground(bg).Background(primary).Padding(0, 1)
	s.success = lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A")).Bold(true)
	s.danger = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")).Bold(true)
	s.button = lipgloss.NewStyle().Foreground(primary).Underline(true)
}

// Colors возвращает применённые цвета.
func (s *Styles) Colors() theme.Colors {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.colors
}

// Dark сообщает, применён ли тёмный режим.
func (s *Styles) Dark() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dark
}

var _ theme.Applier = (*Styles)(nil)
