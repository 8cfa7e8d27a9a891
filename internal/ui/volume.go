package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/lullaby-cli/internal/config"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const volumeBarHeight = 10

// volumeLevels returns how many bar lines are lit for volume.
func volumeLevels(volume, height int) (filled, empty int) {
	volume = config.ClampVolume(volume)
	filled = (volume * height) / 100
	return filled, height - filled
}

// nextVolume computes the volume after a step. A step while muted restores
// the saved level instead of moving it.
func nextVolume(current, saved int, muted bool, delta int) int {
	if muted {
		return saved
	}
	return config.ClampVolume(current + delta)
}

// muteVolume returns the level to remember when muting. A zero level
// remembers the default so unmuting is audible.
func muteVolume(current int) int {
	if current == 0 {
		return config.DefaultVolume
	}
	return current
}

func (ui *UI) volumeTextView(text string, color tcell.Color) *tview.TextView {
	tv := tview.NewTextView()
	tv.SetText(text)
	tv.SetTextAlign(tview.AlignRight)
	tv.SetTextColor(color)
	tv.SetBackgroundColor(ui.colors.background)
	return tv
}

func (ui *UI) buildVolumeBar(container *tview.Flex) {
	ui.mu.Lock()
	displayVolume := ui.currentVolume
	isMuted := ui.isMuted
	if isMuted {
		displayVolume = ui.config.Volume
	}
	ui.mu.Unlock()

	filledLines, emptyLines := volumeLevels(displayVolume, volumeBarHeight)

	barColor := ui.colors.highlight
	if isMuted {
		barColor = config.GetColor(ui.config.Theme.MutedVolume)
	}

	line := func(bar string, color tcell.Color, label *tview.TextView) *tview.Flex {
		row := tview.NewFlex().SetDirection(tview.FlexColumn)
		row.SetBackgroundColor(ui.colors.background)
		if label == nil {
			label = ui.volumeTextView("    ", ui.colors.foreground)
		}
		row.AddItem(label, 4, 0, false)
		row.AddItem(ui.volumeTextView(bar, color), 0, 1, false)
		return row
	}

	container.AddItem(ui.volumeTextView("   max", ui.colors.foreground), 1, 0, false)

	for i := 0; i < emptyLines; i++ {
		container.AddItem(line(" ░░", ui.colors.foreground, nil), 1, 0, false)
	}

	for i := 0; i < filledLines; i++ {
		var label *tview.TextView
		if i == 0 {
			label = ui.volumeTextView(fmt.Sprintf("%d%%", displayVolume), barColor)
			if isMuted {
				label.SetTextStyle(tcell.StyleDefault.
					Foreground(barColor).
					Background(ui.colors.background).
					Attributes(tcell.AttrStrikeThrough))
			}
		}
		container.AddItem(line(" ██", barColor, label), 1, 0, false)
	}

	container.AddItem(ui.volumeTextView("   min", ui.colors.foreground), 1, 0, false)
	container.AddItem(nil, 0, 1, false)
}

func (ui *UI) createGraphicalVolumeBar() *tview.Flex {
	volumeContainer := tview.NewFlex().SetDirection(tview.FlexRow)
	volumeContainer.SetBackgroundColor(ui.colors.background)
	ui.buildVolumeBar(volumeContainer)
	return volumeContainer
}

func (ui *UI) updateVolumeDisplay() {
	if ui.volumeView != nil {
		ui.volumeView.Clear()
		ui.buildVolumeBar(ui.volumeView)
	}
}

func (ui *UI) adjustVolume(delta int) {
	ui.mu.Lock()
	wasMuted := ui.isMuted
	ui.currentVolume = nextVolume(ui.currentVolume, ui.config.Volume, ui.isMuted, delta)
	ui.isMuted = false
	ui.statusRenderer.SetMuted(false)
	volume := ui.currentVolume
	ui.mu.Unlock()

	ui.controller.SetVolume(volumeFraction(volume))
	ui.updateVolumeDisplay()

	if wasMuted {
		log.Debug().Msgf("Auto-unmuted, restored volume to %d%%", volume)
		return
	}
	ui.SaveConfig()
	log.Debug().Msgf("Volume adjusted to %d%%", volume)
}

func (ui *UI) toggleMute() {
	ui.mu.Lock()
	if ui.isMuted {
		ui.currentVolume = ui.config.Volume
		ui.isMuted = false
		log.Debug().Msgf("Unmuted, restored volume to %d%%", ui.currentVolume)
	} else {
		ui.config.Volume = muteVolume(ui.currentVolume)
		ui.currentVolume = 0
		ui.isMuted = true
		log.Debug().Msgf("Muted, saved volume %d%%", ui.config.Volume)
	}
	ui.statusRenderer.SetMuted(ui.isMuted)
	volume := ui.currentVolume
	ui.mu.Unlock()

	ui.controller.SetVolume(volumeFraction(volume))
	ui.updateVolumeDisplay()
	ui.SaveConfig()
}
