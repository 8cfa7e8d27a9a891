package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/lullaby-cli/internal/player"
	"github.com/glebovdev/lullaby-cli/internal/service"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const (
	colFavorite = iota
	colPlaying
	colName
	colCategory
	colDuration
)

const maxNameWidth = 35

func (ui *UI) createTrackListTable() *tview.Table {
	table := tview.NewTable().
		SetBorders(false).
		SetSeparator(' ').
		SetSelectable(true, false).
		SetFixed(1, 0)

	table.SetBorder(true).
		SetTitle(ui.trackListTitle()).
		SetBorderColor(ui.colors.borders).
		SetTitleColor(ui.colors.foreground).
		SetBackgroundColor(ui.colors.background).
		SetBorderPadding(1, 0, 1, 1)

	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(ui.colors.background).
		Background(ui.colors.highlight))

	header := func(text string) *tview.TableCell {
		return tview.NewTableCell(text).
			SetTextColor(ui.colors.trackListHeaderForeground).
			SetBackgroundColor(ui.colors.trackListHeaderBackground).
			SetSelectable(false)
	}

	table.SetCell(0, colFavorite, header(" ").SetMaxWidth(2))
	table.SetCell(0, colPlaying, header(" ").SetMaxWidth(2))
	table.SetCell(0, colName, header("Name").SetExpansion(1))
	table.SetCell(0, colCategory, header("Category").SetExpansion(1))
	table.SetCell(0, colDuration, header("Duration").SetAlign(tview.AlignRight))

	trackCount := ui.tracks.TrackCount()
	for i := 0; i < trackCount; i++ {
		ui.setTrackRow(table, i+1, i)
	}

	// Track selected ID for preserving selection after refresh
	table.SetSelectionChangedFunc(func(row, column int) {
		if t := ui.tracks.GetTrack(row - 1); t != nil {
			ui.selectedTrackID = t.ID
		}
	})

	return table
}

func (ui *UI) trackListTitle() string {
	title := fmt.Sprintf("%s (%d)", ui.tracks.View(), ui.tracks.TrackCount())
	if filter := ui.tracks.Filter(); filter != "" {
		title += fmt.Sprintf(" /%s", tview.Escape(filter))
	}
	return title
}

func (ui *UI) setTrackRow(table *tview.Table, row int, trackIndex int) {
	t := ui.tracks.GetTrack(trackIndex)
	if t == nil {
		return
	}

	favIcon := " "
	if ui.tracks.IsFavorite(t.ID) {
		favIcon = "★"
	}
	table.SetCell(row, colFavorite, tview.NewTableCell(favIcon).
		SetTextColor(ui.colors.foreground).
		SetMaxWidth(2))

	state := ui.controller.Snapshot()
	playIcon := " "
	if state.TrackID == t.ID {
		playIcon = playingIcon(state.Status)
	}
	table.SetCell(row, colPlaying, tview.NewTableCell(playIcon).
		SetTextColor(ui.colors.foreground).
		SetMaxWidth(2))

	table.SetCell(row, colName, tview.NewTableCell(tview.Escape(t.Name)).
		SetTextColor(ui.colors.foreground).
		SetMaxWidth(maxNameWidth).
		SetExpansion(2))

	table.SetCell(row, colCategory, tview.NewTableCell(t.Category.Label()).
		SetTextColor(ui.colors.foreground).
		SetMaxWidth(20).
		SetExpansion(1))

	table.SetCell(row, colDuration, tview.NewTableCell(formatClock(t.Duration())).
		SetTextColor(ui.colors.foreground).
		SetAlign(tview.AlignRight))
}

// playingIcon is the marker shown next to the engine's current track.
func playingIcon(status player.Status) string {
	switch status {
	case player.StatusPaused, player.StatusReady:
		return PauseIcon
	case player.StatusPlaying, player.StatusLoading:
		return "➤"
	case player.StatusError:
		return "✗"
	default:
		return " "
	}
}

func (ui *UI) selectAndShowTrack(index int) {
	t := ui.tracks.GetTrack(index)
	if t == nil {
		return
	}

	ui.trackList.Select(index+1, 0)
	ui.showTrack(t)

	log.Debug().Msgf("Showing track info (without playing): %s", t.Name)
}

func (ui *UI) selectedTrackIndex() int {
	row, _ := ui.trackList.GetSelection()
	if row <= 0 || row > ui.tracks.TrackCount() {
		return -1
	}
	return row - 1
}

func (ui *UI) toggleFavorite() {
	index := ui.selectedTrackIndex()
	if index < 0 {
		return
	}

	t := ui.tracks.GetTrack(index)
	if t == nil {
		return
	}

	on := ui.tracks.ToggleFavorite(t.ID)

	if ui.tracks.View() == service.ViewFavorites {
		ui.refreshTrackTable()
	} else if favCell := ui.trackList.GetCell(index+1, colFavorite); favCell != nil {
		if on {
			favCell.SetText("★")
		} else {
			favCell.SetText(" ")
		}
	}

	log.Debug().Msgf("Toggled favorite for track: %s (%v)", t.Name, on)
}

func (ui *UI) cycleView() {
	view := ui.tracks.CycleView()
	ui.refreshTrackTable()
	log.Debug().Msgf("Track view: %s", view)
}

func (ui *UI) applyFilter(query string) {
	ui.tracks.SetFilter(query)
	ui.refreshTrackTable()
}

// refreshTrackTable rebuilds the rows after the visible list changed and
// restores the selection by id.
func (ui *UI) refreshTrackTable() {
	if ui.trackList == nil {
		return
	}

	trackCount := ui.tracks.TrackCount()

	for row := ui.trackList.GetRowCount() - 1; row > trackCount; row-- {
		ui.trackList.RemoveRow(row)
	}
	for i := 0; i < trackCount; i++ {
		ui.setTrackRow(ui.trackList, i+1, i)
	}

	selected := 0
	if ui.selectedTrackID != "" {
		if index := ui.tracks.FindIndexByID(ui.selectedTrackID); index >= 0 {
			selected = index
		}
	}
	if trackCount > 0 {
		ui.trackList.Select(selected+1, 0)
	}

	ui.trackList.SetTitle(ui.trackListTitle())

	log.Debug().Int("count", trackCount).Msg("Track table refreshed")
}

func (ui *UI) updateTrackListPlayingIndicator() {
	if ui.trackList == nil {
		return
	}

	state := ui.controller.Snapshot()

	trackCount := ui.tracks.TrackCount()
	for i := 0; i < trackCount; i++ {
		t := ui.tracks.GetTrack(i)
		if t == nil {
			continue
		}
		row := i + 1

		playing := state.TrackID == t.ID
		if playCell := ui.trackList.GetCell(row, colPlaying); playCell != nil {
			icon := " "
			if playing {
				icon = playingIcon(state.Status)
			}
			playCell.SetText(icon)
		}

		nameCell := ui.trackList.GetCell(row, colName)
		if nameCell == nil {
			continue
		}

		name := tview.Escape(t.Name)
		if playing && state.Status == player.StatusPlaying {
			nameCell.SetText(withIndicator(name, ui.getPlayingIndicator()))
		} else {
			nameCell.SetText(name)
		}
	}
}

// withIndicator appends the spinner to name, truncating name to fit the
// column.
func withIndicator(name, indicator string) string {
	runes := []rune(name)
	maxLen := maxNameWidth - len([]rune(indicator)) - 1
	if len(runes) > maxLen {
		runes = append(runes[:maxLen-3], []rune("...")...)
	}
	return string(runes) + " " + indicator
}
