package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/lullaby-cli/internal/config"
	"github.com/glebovdev/lullaby-cli/internal/player"
	"github.com/rivo/tview"
)

func friendlyErrorMessage(err error) string {
	switch {
	case errors.Is(err, player.ErrUnknownTrack):
		return "This sound is no longer in the catalog."
	case errors.Is(err, player.ErrClosed):
		return "The player is shutting down."
	}

	errStr := err.Error()
	if strings.Contains(errStr, "no such host") {
		return "Unable to connect to server.\nPlease check your internet connection."
	}
	if strings.Contains(errStr, "connection refused") {
		return "Connection refused by server.\nThe service may be temporarily unavailable."
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return "Connection timed out.\nPlease check your internet connection."
	}
	if strings.Contains(errStr, "status 404") {
		return "Sound not found (404)."
	}

	if idx := strings.Index(errStr, ": dial"); idx > 0 {
		return errStr[:idx]
	}
	if len(errStr) > 100 {
		return errStr[:100] + "..."
	}
	return errStr
}

func (ui *UI) showError(err error) {
	ui.showPlaybackErrorModal(friendlyErrorMessage(err))
}

// centered wraps frame in a flex that centers it on screen.
func (ui *UI) centered(frame tview.Primitive, width, height int) *tview.Flex {
	modal := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(frame, height, 0, true).
			AddItem(nil, 0, 1, false),
			width, 0, true).
		AddItem(nil, 0, 1, false)
	modal.SetBackgroundColor(ui.colors.background)
	return modal
}

func (ui *UI) hintView(text string) *tview.TextView {
	hint := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true).
		SetText(text)
	hint.SetTextColor(tcell.ColorDarkGray)
	hint.SetBackgroundColor(ui.colors.modalBackground)
	return hint
}

func (ui *UI) showPlaybackErrorModal(message string) {
	doDismiss := func() {
		ui.pages.RemovePage("error-modal")
		ui.app.SetFocus(ui.trackList)
	}

	doRetry := func() {
		doDismiss()
		if state := ui.controller.Snapshot(); state.HasTrack() {
			go ui.play(state.TrackID)
		}
	}

	messageView := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true).
		SetWordWrap(true).
		SetText(fmt.Sprintf("\n[::b]Playback Error[::-]\n\n%s", tview.Escape(message)))
	messageView.SetTextColor(ui.colors.foreground)
	messageView.SetBackgroundColor(ui.colors.modalBackground)

	content := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(messageView, 0, 1, false).
		AddItem(ui.hintView("[::d]Press [::b]R[::d] to retry  •  Press [::b]Esc[::d] to dismiss[::-]"), 1, 0, false).
		AddItem(nil, 1, 0, false)
	content.SetBackgroundColor(ui.colors.modalBackground)

	frame := tview.NewFrame(content).
		SetBorders(0, 0, 1, 1, 1, 1)
	frame.SetBorder(true).
		SetBorderColor(ui.colors.highlight).
		SetBackgroundColor(ui.colors.modalBackground).
		SetTitle(" Error ").
		SetTitleColor(ui.colors.highlight).
		SetTitleAlign(tview.AlignCenter)

	modalHeight := 10
	if lines := strings.Count(message, "\n") + 1 + len(message)/44; lines > 2 {
		modalHeight += lines - 2
	}
	if modalHeight > 15 {
		modalHeight = 15
	}

	modal := ui.centered(frame, 50, modalHeight)
	modal.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEscape, tcell.KeyEnter:
			doDismiss()
			return nil
		case tcell.KeyRune:
			if event.Rune() == 'r' || event.Rune() == 'R' {
				doRetry()
				return nil
			}
		}
		return event
	})

	ui.pages.RemovePage("error-modal")
	ui.pages.AddPage("error-modal", modal, true, true)
	ui.app.SetFocus(modal)
}

func (ui *UI) showHelpModal() {
	keyColor := ui.colors.helpHotkey.String()

	configPath, _ := config.GetConfigPath()

	k := func(key string) string { return fmt.Sprintf("[%s]%s[-]", keyColor, key) }

	lines := []string{
		"[::b]KEYBOARD SHORTCUTS[::-]",
		"",
		k("PLAYBACK"),
		"  " + k("Enter") + "      Play / pause selected sound",
		"  " + k("Space") + "      Pause / Resume",
		"  " + k("x") + "          Stop",
		"  " + k("←") + " / " + k("→") + "      Seek -10s / +10s",
		"  " + k("l") + "          Loop on / off",
		"",
		k("VOLUME"),
		"  " + k("+") + " / " + k("-") + "      Volume up / down",
		"  " + k("m") + "          Mute / Unmute",
		"",
		k("SOUNDS"),
		"  " + k("↑") + " / " + k("↓") + "      Navigate list",
		"  " + k("f") + "          Toggle favorite",
		"  " + k("v") + "          All / Favorites / Recent",
		"  " + k("/") + "          Search",
		"",
		k("APPLICATION"),
		"  " + k("s") + "          Settings",
		"  " + k("?") + "          Show this help",
		"  " + k("a") + "          About " + config.AppName,
		"  " + k("q") + " / " + k("Esc") + "    Quit",
		"",
		k("CONFIG") + ": " + configPath,
	}

	ui.showInfoModal("Help", strings.Join(lines, "\n"))
}

func (ui *UI) showAboutModal() {
	linkColor := "skyblue"
	dimColor := "gray"

	source := "built-in synthesized sounds"
	if ui.tracks.IsRemote() {
		source = "remote catalog"
	}

	aboutText := fmt.Sprintf(`[::b]%s[::-]
[%s]%s[-]

Version: %s
Author:  %s ([%s:::%s]%s[-:::-])
Project: [%s:::%s]%s[-:::-]
License: MIT

───────────────────────────────────────────

[%s]Playing from[-] [::b]%s[::-]
%d sounds available`,
		config.AppName,
		dimColor, config.AppTagline,
		config.AppVersion,
		config.AppAuthor, linkColor, config.AppAuthorURL, config.AppAuthorURLShort,
		linkColor, config.AppProjectURL, config.AppProjectShort,
		dimColor, source,
		ui.tracks.TrackCount())

	ui.showInfoModal("About", aboutText)
}

func (ui *UI) showInfoModal(title, message string) {
	doDismiss := func() {
		ui.pages.RemovePage("modal")
		ui.app.SetFocus(ui.trackList)
	}

	messageView := tview.NewTextView().
		SetTextAlign(tview.AlignLeft).
		SetDynamicColors(true).
		SetWordWrap(true).
		SetText("\n" + message)
	messageView.SetTextColor(ui.colors.foreground)
	messageView.SetBackgroundColor(ui.colors.modalBackground)

	content := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(messageView, 0, 1, false).
		AddItem(nil, 2, 0, false).
		AddItem(ui.hintView("[::d]Press any key to close[::-]"), 1, 0, false).
		AddItem(nil, 1, 0, false)
	content.SetBackgroundColor(ui.colors.modalBackground)

	frame := tview.NewFrame(content).
		SetBorders(1, 0, 1, 1, 2, 2)
	frame.SetBorder(true).
		SetBorderColor(ui.colors.borders).
		SetBackgroundColor(ui.colors.modalBackground).
		SetTitle(" " + title + " ").
		SetTitleColor(ui.colors.highlight).
		SetTitleAlign(tview.AlignCenter)

	lines := strings.Count(message, "\n") + 1
	modalHeight := lines + 10
	if modalHeight > 38 {
		modalHeight = 38
	}

	modal := ui.centered(frame, 50, modalHeight)
	modal.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		doDismiss()
		return nil
	})

	ui.pages.AddPage("modal", modal, true, true)
	ui.app.SetFocus(modal)
}

// showSearch opens the filter prompt. The list narrows as the query is
// typed; Esc clears it.
func (ui *UI) showSearch() {
	input := tview.NewInputField().
		SetLabel(" / ").
		SetText(ui.tracks.Filter()).
		SetFieldWidth(0)
	input.SetLabelColor(ui.colors.highlight).
		SetFieldBackgroundColor(ui.colors.modalBackground).
		SetFieldTextColor(ui.colors.foreground).
		SetBackgroundColor(ui.colors.modalBackground)

	input.SetChangedFunc(func(text string) {
		ui.applyFilter(text)
	})

	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEscape {
			ui.applyFilter("")
		}
		ui.pages.RemovePage("search")
		ui.app.SetFocus(ui.trackList)
	})

	frame := tview.NewFrame(input).SetBorders(0, 0, 0, 0, 1, 1)
	frame.SetBorder(true).
		SetBorderColor(ui.colors.highlight).
		SetBackgroundColor(ui.colors.modalBackground).
		SetTitle(" Search ").
		SetTitleColor(ui.colors.highlight)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().
			AddItem(nil, 0, 1, false).
			AddItem(frame, 50, 0, true).
			AddItem(nil, 0, 1, false), 3, 0, true).
		AddItem(nil, 2, 0, false)

	ui.pages.AddPage("search", layout, true, true)
	ui.app.SetFocus(input)
}
