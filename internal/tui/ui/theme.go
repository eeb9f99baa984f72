package ui

import "github.com/gdamore/tcell/v2"

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor          tcell.Color
	FgColor          tcell.Color
	BorderColor      tcell.Color
	BorderFocusColor tcell.Color
	TableHeaderFg    tcell.Color
	TableHeaderBg    tcell.Color
	TableCursorFg    tcell.Color
	TableCursorBg    tcell.Color
	MenuKeyColor     tcell.Color
	TitleColor       tcell.Color
	AccentColor      tcell.Color
	MutedColor       tcell.Color
	OnlineColor      tcell.Color
	WarnColor        tcell.Color
	ErrColor         tcell.Color
}

// DefaultTheme returns the dark clinic theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:          tcell.ColorBlack,
		FgColor:          tcell.ColorLightGray,
		BorderColor:      tcell.ColorTeal,
		BorderFocusColor: tcell.ColorAqua,
		TableHeaderFg:    tcell.ColorWhite,
		TableHeaderBg:    tcell.ColorBlack,
		TableCursorFg:    tcell.ColorBlack,
		TableCursorBg:    tcell.ColorAqua,
		MenuKeyColor:     tcell.ColorTeal,
		TitleColor:       tcell.ColorFuchsia,
		AccentColor:      tcell.ColorOrange,
		MutedColor:       tcell.ColorGray,
		OnlineColor:      tcell.ColorGreen,
		WarnColor:        tcell.ColorOrange,
		ErrColor:         tcell.ColorOrangeRed,
	}
}
