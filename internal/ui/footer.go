package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/lullaby-cli/internal/player"
	"github.com/rivo/tview"
)

// stateSource is the part of the controller the footer reads.
type stateSource interface {
	Snapshot() player.PlaybackState
}

type StatusRenderer struct {
	source        stateSource
	isMuted       bool
	animFrame     int
	maxAnimFrame  int
	tickCount     int
	ticksPerFrame int

	primaryColor string
}

// NewStatusRenderer renders the footer status for source.
func NewStatusRenderer(source stateSource) *StatusRenderer {
	return &StatusRenderer{
		source:        source,
		maxAnimFrame:  4,
		ticksPerFrame: 8, // 8 spinner ticks per status frame
	}
}

func (s *StatusRenderer) SetMuted(muted bool) {
	s.isMuted = muted
}

func (s *StatusRenderer) SetPrimaryColor(color string) {
	s.primaryColor = color
}

func (s *StatusRenderer) AdvanceAnimation() {
	s.tickCount++
	if s.tickCount >= s.ticksPerFrame {
		s.tickCount = 0
		s.animFrame = (s.animFrame + 1) % s.maxAnimFrame
	}
}

func (s *StatusRenderer) Render() string {
	if s.source == nil {
		return s.renderIdle()
	}
	return s.renderState(s.source.Snapshot())
}

func (s *StatusRenderer) renderState(state player.PlaybackState) string {
	switch state.Status {
	case player.StatusLoading:
		return s.renderLoading()
	case player.StatusReady:
		return s.renderReady(state)
	case player.StatusPlaying:
		if state.IsBuffering {
			return s.renderBuffering()
		}
		return s.renderPlaying(state)
	case player.StatusPaused:
		return s.renderPaused(state)
	case player.StatusEnded:
		return s.renderEnded()
	case player.StatusError:
		return s.renderError(state)
	default:
		return s.renderIdle()
	}
}

func (s *StatusRenderer) renderIdle() string {
	if s.isMuted {
		return "○ IDLE │ [red]MUTED[-] │ Select a sound"
	}
	return "○ IDLE │ Select a sound"
}

func (s *StatusRenderer) renderLoading() string {
	circles := []string{"◐", "◓", "◑", "◒"}
	return fmt.Sprintf("%s LOADING", circles[s.animFrame])
}

func (s *StatusRenderer) renderBuffering() string {
	circles := []string{"◐", "◓", "◑", "◒"}
	return fmt.Sprintf("%s BUFFERING", circles[s.animFrame])
}

func (s *StatusRenderer) renderReady(state player.PlaybackState) string {
	parts := []string{"◌ READY"}
	if tier := state.ActiveTier.Short(); tier != "" {
		parts = append(parts, tier)
	}
	return joinParts(parts)
}

func (s *StatusRenderer) renderPlaying(state player.PlaybackState) string {
	dots := []string{"●", "◉", "○", "◉"}
	dot := dots[s.animFrame]

	if s.primaryColor != "" {
		dot = fmt.Sprintf("[%s]%s[-]", s.primaryColor, dot)
	}

	parts := []string{dot + " PLAYING"}

	if s.isMuted {
		parts = append(parts, "[red]MUTED[-]")
	}
	if tier := state.ActiveTier.Short(); tier != "" {
		parts = append(parts, tier)
	}
	if state.Looping {
		parts = append(parts, "↻ LOOP")
	}

	parts = append(parts, s.formatBufferHealth(state.BufferFill))

	return joinParts(parts)
}

func (s *StatusRenderer) renderPaused(state player.PlaybackState) string {
	parts := []string{PauseIcon + " PAUSED"}

	if s.isMuted {
		parts = append(parts, "[red]MUTED[-]")
	}
	if tier := state.ActiveTier.Short(); tier != "" {
		parts = append(parts, tier)
	}

	return joinParts(parts)
}

func (s *StatusRenderer) renderEnded() string {
	return "■ ENDED │ Enter to replay"
}

func (s *StatusRenderer) renderError(state player.PlaybackState) string {
	label := errorLabel(state.LastError)
	if label == "" {
		label = "ERROR"
	}
	return fmt.Sprintf("✗ %s", label)
}

func errorLabel(kind player.ErrorKind) string {
	switch kind {
	case player.ErrorNetwork:
		return "NETWORK ERROR"
	case player.ErrorDecode:
		return "UNSUPPORTED FORMAT"
	case player.ErrorSourceUnavailable:
		return "UNAVAILABLE"
	case player.ErrorContextBootstrap:
		return "AUDIO LOCKED"
	case player.ErrorLoadTimeout:
		return "LOAD TIMEOUT"
	default:
		return ""
	}
}

func (s *StatusRenderer) formatBufferHealth(percent int) string {
	signalBars := []string{"▁", "▂", "▃", "▅", "▇"}
	const numBars = 5

	filled := (percent * numBars) / 100
	if filled > numBars {
		filled = numBars
	}

	var bar strings.Builder
	for i := 0; i < numBars; i++ {
		if i < filled {
			bar.WriteString(signalBars[i])
		} else {
			bar.WriteString("▁")
		}
	}

	return bar.String()
}

func joinParts(parts []string) string {
	return strings.Join(parts, " │ ")
}

func (ui *UI) getPlaybackHint(keyColor string) string {
	state := ui.controller.Snapshot()

	switch state.Status {
	case player.StatusPaused, player.StatusReady:
		return fmt.Sprintf("[%s]Enter[-] play  [%s]Space[-] resume", keyColor, keyColor)
	case player.StatusPlaying, player.StatusLoading:
		return fmt.Sprintf("[%s]Space[-] pause  [%s]x[-] stop  [%s]←/→[-] seek", keyColor, keyColor, keyColor)
	default:
		return fmt.Sprintf("[%s]Enter[-] play", keyColor)
	}
}

func (ui *UI) getHelpText() string {
	keyColor := ui.colors.helpHotkey.String()
	playbackHint := ui.getPlaybackHint(keyColor)

	muteText := "mute"
	if ui.isMuted {
		muteText = "unmute"
	}

	return fmt.Sprintf(" %s  [%s]+/-[-] vol  [%s]m[-] %s  [%s]/[-] search  [%s]s[-] settings  [%s]?[-] help  [%s]q[-] quit ",
		playbackHint, keyColor, keyColor, muteText, keyColor, keyColor, keyColor, keyColor)
}

func (ui *UI) handleFooterResize(width int) {
	isWide := width >= FooterBreakpoint
	wasWide := ui.lastFooterWidth >= FooterBreakpoint

	if ui.lastFooterWidth > 0 && isWide != wasWide && ui.contentLayout != nil {
		newHeight := FooterHeightWide
		if !isWide {
			newHeight = FooterHeightNarrow
		}
		ui.contentLayout.ResizeItem(ui.helpPanel, newHeight, 0)
	}
	ui.lastFooterWidth = width
}

func (ui *UI) drawWideFooter(screen tcell.Screen, x, y, width, height int, helpText, statusText string) {
	helpWidth := width * 3 / 5
	statusWidth := width - helpWidth

	for row := y; row < y+height; row++ {
		for col := x; col < x+helpWidth; col++ {
			screen.SetContent(col, row, ' ', nil, tcell.StyleDefault.Background(ui.colors.helpBackground))
		}
	}

	for row := y; row < y+height; row++ {
		for col := x + helpWidth; col < x+width; col++ {
			screen.SetContent(col, row, ' ', nil, tcell.StyleDefault.Background(ui.colors.background))
		}
	}

	centerY := y + height/2
	tview.Print(screen, helpText, x, centerY, helpWidth, tview.AlignCenter, ui.colors.helpForeground)
	tview.Print(screen, statusText, x+helpWidth, centerY, statusWidth-2, tview.AlignRight, ui.colors.foreground)
}

func (ui *UI) drawNarrowFooter(screen tcell.Screen, x, y, width, height int, helpText, statusText string) {
	helpHeight := height / 2
	if helpHeight < 1 {
		helpHeight = 1
	}
	statusHeight := height - helpHeight
	helpBoxEnd := y + helpHeight

	for row := y; row < helpBoxEnd; row++ {
		for col := x; col < x+width; col++ {
			screen.SetContent(col, row, ' ', nil, tcell.StyleDefault.Background(ui.colors.helpBackground))
		}
	}

	for row := helpBoxEnd; row < y+height; row++ {
		for col := x; col < x+width; col++ {
			screen.SetContent(col, row, ' ', nil, tcell.StyleDefault.Background(ui.colors.background))
		}
	}

	helpTextY := y + helpHeight/2
	tview.Print(screen, helpText, x, helpTextY, width, tview.AlignCenter, ui.colors.helpForeground)

	if statusHeight > 0 {
		statusTextY := helpBoxEnd + statusHeight/2
		tview.Print(screen, statusText, x, statusTextY, width-2, tview.AlignRight, ui.colors.foreground)
	}
}

func (ui *UI) createFooter() *tview.Box {
	box := tview.NewBox().SetBackgroundColor(ui.colors.background)

	box.SetDrawFunc(func(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
		ui.handleFooterResize(width)

		helpText := ui.getHelpText()
		statusText := " " + ui.statusRenderer.Render() + " "

		isWide := width >= FooterBreakpoint
		usedHeight := height
		if isWide && height > FooterHeightWide {
			usedHeight = FooterHeightWide
		}

		if isWide {
			ui.drawWideFooter(screen, x, y, width, usedHeight, helpText, statusText)
		} else {
			ui.drawNarrowFooter(screen, x, y, width, height, helpText, statusText)
		}

		return x, y, width, height
	})

	return box
}
