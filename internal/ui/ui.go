package ui

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/lullaby-cli/internal/catalog"
	"github.com/glebovdev/lullaby-cli/internal/config"
	"github.com/glebovdev/lullaby-cli/internal/player"
	"github.com/glebovdev/lullaby-cli/internal/service"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const (
	VolumeStep             = 5
	SeekStep               = 10 * time.Second
	HeaderHeight           = 3
	FooterHeightWide       = 3 // Wide: 1 row with padding (top + text + bottom)
	FooterHeightNarrow     = 6 // Narrow: 2 rows × 3 lines each
	PlayerPanelHeight      = 12
	TimelineWidth          = 36
	FooterBreakpoint       = 130 // Width threshold for responsive footer
	MinLoadingDisplayTime  = 1200 * time.Millisecond
	MinStatusDisplayTime   = 300 * time.Millisecond
	CatalogRefreshInterval = 5 * time.Minute
	catalogLoadTimeout     = 15 * time.Second
)

// PauseIcon uses platform-specific character (Windows renders ⏸ as emoji)
var PauseIcon = func() string {
	if runtime.GOOS == "windows" {
		return "❚❚"
	}
	return "⏸"
}()

type UI struct {
	app             *tview.Application
	tracks          *service.TrackService
	controller      *player.Controller
	currentTrack    *catalog.Track
	trackList       *tview.Table
	helpPanel       *tview.Box
	contentLayout   *tview.Flex
	playerPanel     *tview.Flex
	timelineView    *tview.TextView
	detailsView     *tview.TextView
	volumeView      *tview.Flex
	mainLayout      *tview.Flex
	loadingScreen   *tview.Flex
	loadingText     *tview.TextView
	progressBar     *tview.TextView
	pages           *tview.Pages
	stopUpdates     chan struct{}
	selectedTrackID string
	currentVolume   int
	isMuted         bool
	config          *config.Config
	lastFooterWidth int // Track width to detect layout changes
	mu              sync.Mutex
	animationFrame  int
	playingSpinner  *PlayingSpinner
	statusRenderer  *StatusRenderer
	colors          struct {
		background                tcell.Color
		foreground                tcell.Color
		borders                   tcell.Color
		highlight                 tcell.Color
		headerBackground          tcell.Color
		trackListHeaderBackground tcell.Color
		trackListHeaderForeground tcell.Color
		helpBackground            tcell.Color
		helpForeground            tcell.Color
		helpHotkey                tcell.Color
		categoryTagBackground     tcell.Color
		modalBackground           tcell.Color
	}
}

func NewUI(controller *player.Controller, tracks *service.TrackService, cfg *config.Config) *UI {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	ui := &UI{
		app:           tview.NewApplication(),
		controller:    controller,
		tracks:        tracks,
		stopUpdates:   make(chan struct{}),
		currentVolume: cfg.Volume,
		isMuted:       false,
		config:        cfg,
	}

	ui.colors.background = config.GetColor(cfg.Theme.Background)
	ui.colors.foreground = config.GetColor(cfg.Theme.Foreground)
	ui.colors.borders = config.GetColor(cfg.Theme.Borders)
	ui.colors.highlight = config.GetColor(cfg.Theme.Highlight)
	ui.colors.headerBackground = config.GetColor(cfg.Theme.HeaderBackground)
	ui.colors.trackListHeaderBackground = config.GetColor(cfg.Theme.TrackListHeaderBackground)
	ui.colors.trackListHeaderForeground = config.GetColor(cfg.Theme.TrackListHeaderForeground)
	ui.colors.helpBackground = config.GetColor(cfg.Theme.HelpBackground)
	ui.colors.helpForeground = config.GetColor(cfg.Theme.HelpForeground)
	ui.colors.helpHotkey = config.GetColor(cfg.Theme.HelpHotkey)
	ui.colors.categoryTagBackground = config.GetColor(cfg.Theme.CategoryTagBackground)
	ui.colors.modalBackground = config.GetColor(cfg.Theme.ModalBackground)

	controller.SetVolume(volumeFraction(cfg.Volume))
	log.Debug().Msgf("Loaded volume from config: %d%%", cfg.Volume)

	ui.statusRenderer = NewStatusRenderer(controller)
	ui.statusRenderer.SetPrimaryColor(ui.colors.highlight.String())

	controller.OnChange(ui.onStateChange)

	return ui
}

func volumeFraction(volume int) float64 {
	return float64(config.ClampVolume(volume)) / 100
}

func (ui *UI) SaveConfig() {
	ui.mu.Lock()
	if !ui.isMuted {
		ui.config.Volume = ui.currentVolume
	}
	ui.mu.Unlock()

	if err := ui.config.Save(); err != nil {
		log.Error().Err(err).Msg("Failed to save config")
	}
}

func (ui *UI) safeCloseChannel() {
	ui.mu.Lock()
	defer ui.mu.Unlock()

	if ui.stopUpdates != nil {
		select {
		case <-ui.stopUpdates:
			// Already closed
		default:
			close(ui.stopUpdates)
		}
		ui.stopUpdates = nil
	}
}

func (ui *UI) stop() {
	ui.tracks.StopPeriodicRefresh()
	ui.controller.Stop()
	ui.safeCloseChannel()
	ui.app.Stop()
}

// Shutdown stops the UI gracefully from external callers (e.g., signal handlers).
func (ui *UI) Shutdown() {
	ui.app.QueueUpdateDraw(func() {
		ui.stop()
	})
}

func (ui *UI) Run() error {
	ui.setupLoadingScreen()
	ui.app.SetRoot(ui.loadingScreen, true)
	ui.configureScreen()

	go ui.loadAndInitUI()

	return ui.app.Run()
}

func (ui *UI) configureScreen() {
	bgStyle := tcell.StyleDefault.Background(ui.colors.background)
	ui.app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		screen.SetStyle(bgStyle)
		screen.Clear()
		return false
	})

	var titleSet sync.Once
	ui.app.SetAfterDrawFunc(func(screen tcell.Screen) {
		titleSet.Do(func() { screen.SetTitle(config.AppName) })
	})
}

func (ui *UI) setupLoadingScreen() {
	ui.loadingText = tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetText("Loading sounds... (1/3)")
	ui.loadingText.SetTextColor(ui.colors.foreground).
		SetBackgroundColor(ui.colors.background)

	ui.progressBar = tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetText(renderProgressBar(0))
	ui.progressBar.SetTextColor(ui.colors.highlight).
		SetBackgroundColor(ui.colors.background)

	content := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(ui.loadingText, 1, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(ui.progressBar, 1, 0, false)
	content.SetBackgroundColor(ui.colors.background)

	ui.loadingScreen = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(content, 3, 0, false).
		AddItem(nil, 0, 1, false)

	ui.loadingScreen.SetBackgroundColor(ui.colors.background)
}

func renderProgressBar(percent int) string {
	const width = 30
	filled := (percent * width) / 100
	empty := width - filled
	return strings.Repeat("█", filled) + strings.Repeat("░", empty)
}

func (ui *UI) animateProgress(fromPercent, toPercent int, duration time.Duration) {
	steps := toPercent - fromPercent
	if steps <= 0 {
		return
	}
	stepDuration := duration / time.Duration(steps)
	lastBar := renderProgressBar(fromPercent)

	for p := fromPercent + 1; p <= toPercent; p++ {
		time.Sleep(stepDuration)
		if bar := renderProgressBar(p); bar != lastBar {
			ui.app.QueueUpdateDraw(func() {
				ui.progressBar.SetText(bar)
			})
			lastBar = bar
		}
	}
}

// loadAndInitUI runs the staged startup: remote catalog, device detection,
// then the main layout.
func (ui *UI) loadAndInitUI() {
	const totalStages = 3
	stagePercent := func(stage int) int { return (stage * 100) / totalStages }

	startTime := time.Now()

	animDone := make(chan struct{})
	go func() {
		ui.animateProgress(stagePercent(0), stagePercent(1), MinStatusDisplayTime)
		close(animDone)
	}()

	if ui.config.CatalogURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), catalogLoadTimeout)
		if err := ui.tracks.Refresh(ctx); err != nil {
			log.Warn().Err(err).Msg("Remote catalog unavailable, using built-in sounds")
		}
		cancel()
	}
	log.Debug().Msgf("Loaded %d tracks in %v", ui.tracks.TrackCount(), time.Since(startTime))

	<-animDone

	ui.app.QueueUpdateDraw(func() {
		ui.loadingText.SetText("Detecting device... (2/3)")
	})

	ctx, cancel := context.WithTimeout(context.Background(), catalogLoadTimeout)
	profile := ui.controller.Redetect(ctx)
	cancel()
	log.Debug().Str("device", profile.Kind()).Str("network", profile.Network.String()).Msg("Device profile")

	ui.animateProgress(stagePercent(1), stagePercent(2), MinStatusDisplayTime)

	ui.app.QueueUpdateDraw(func() {
		ui.loadingText.SetText("Building interface... (3/3)")
	})

	ui.setupUI()
	ui.tracks.StartPeriodicRefresh(CatalogRefreshInterval, ui.onTracksRefreshed)

	ui.animateProgress(stagePercent(2), stagePercent(3), MinStatusDisplayTime)

	// Floor, not ceiling: wait only if real work finished early.
	if elapsed := time.Since(startTime); elapsed < MinLoadingDisplayTime {
		time.Sleep(MinLoadingDisplayTime - elapsed)
	}
	log.Debug().Msgf("Total loading time: %v", time.Since(startTime))

	ui.app.QueueUpdateDraw(func() {
		ui.app.SetRoot(ui.pages, true).EnableMouse(true)
		ui.app.SetFocus(ui.trackList)
		ui.startAnimation()

		last := ui.config.LastTrack
		if last == "" {
			ui.selectAndShowTrack(0)
			return
		}

		index := ui.tracks.FindIndexByID(last)
		if index < 0 {
			log.Debug().Msgf("Last track '%s' not found, showing first track", last)
			ui.selectAndShowTrack(0)
			return
		}

		if ui.config.Autostart {
			log.Debug().Msgf("Autostart enabled, playing last track: %s", last)
			ui.trackList.Select(index+1, 0)
			ui.onTrackSelected(index)
		} else {
			ui.selectAndShowTrack(index)
		}
	})
}

func (ui *UI) setupUI() {
	header := ui.createHeader()

	ui.playerPanel = tview.NewFlex().SetDirection(tview.FlexRow)
	ui.playerPanel.SetBackgroundColor(ui.colors.background)

	ui.trackList = ui.createTrackListTable()

	ui.helpPanel = ui.createFooter()

	ui.contentLayout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(header, HeaderHeight, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(ui.playerPanel, PlayerPanelHeight, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(ui.trackList, 0, 1, true).
		AddItem(ui.helpPanel, FooterHeightWide, 0, false)
	ui.contentLayout.SetBackgroundColor(ui.colors.background)

	wrapper := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(nil, 3, 0, false).
		AddItem(ui.contentLayout, 0, 1, true).
		AddItem(nil, 3, 0, false)
	wrapper.SetBackgroundColor(ui.colors.background)

	ui.mainLayout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 1, 0, false).
		AddItem(wrapper, 0, 1, true).
		AddItem(nil, 1, 0, false)
	ui.mainLayout.SetBackgroundColor(ui.colors.background)

	ui.pages = tview.NewPages().
		AddPage("main", ui.mainLayout, true, true)
	ui.pages.SetBackgroundColor(ui.colors.background)

	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if ui.modalOpen() {
			return event
		}
		return ui.globalInputHandler(event)
	})
}

func (ui *UI) modalOpen() bool {
	for _, name := range []string{"modal", "error-modal", "search", "settings"} {
		if ui.pages.HasPage(name) {
			return true
		}
	}
	return false
}

func (ui *UI) createHeader() tview.Primitive {
	titleView := tview.NewTextView()
	titleView.SetText(" " + config.AppName)
	titleView.SetTextAlign(tview.AlignLeft)
	titleView.SetTextColor(ui.colors.foreground)
	titleView.SetBackgroundColor(ui.colors.headerBackground)

	versionView := tview.NewTextView()
	versionView.SetText("v" + config.AppVersion + " ")
	versionView.SetTextAlign(tview.AlignRight)
	versionView.SetTextColor(ui.colors.foreground)
	versionView.SetBackgroundColor(ui.colors.headerBackground)

	textFlex := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(titleView, 0, 1, false).
		AddItem(versionView, 10, 0, false)
	textFlex.SetBackgroundColor(ui.colors.headerBackground)

	topSpacer := tview.NewBox().SetBackgroundColor(ui.colors.headerBackground)
	bottomSpacer := tview.NewBox().SetBackgroundColor(ui.colors.headerBackground)
	leftSpacer := tview.NewBox().SetBackgroundColor(ui.colors.headerBackground)
	rightSpacer := tview.NewBox().SetBackgroundColor(ui.colors.headerBackground)

	textWithPadding := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(leftSpacer, 1, 0, false).
		AddItem(textFlex, 0, 1, false).
		AddItem(rightSpacer, 1, 0, false)
	textWithPadding.SetBackgroundColor(ui.colors.headerBackground)

	headerFlex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(topSpacer, 1, 0, false).
		AddItem(textWithPadding, 1, 0, false).
		AddItem(bottomSpacer, 1, 0, false)
	headerFlex.SetBackgroundColor(ui.colors.headerBackground)

	return headerFlex
}

func (ui *UI) onTrackSelected(index int) {
	t := ui.tracks.GetTrack(index)
	if t == nil {
		return
	}

	if ui.controller.Snapshot().TrackID != t.ID {
		ui.tracks.MarkPlayed(t.ID)
	}

	ui.showTrack(t)
	ui.refreshTrackTable()

	log.Info().Msgf("Play requested for track: %s", t.Name)
	go ui.play(t.ID)
}

// play runs off the UI goroutine: starting a track may wait on the audio
// device.
func (ui *UI) play(id string) {
	err := ui.controller.Play(context.Background(), id)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	log.Error().Err(err).Msg("Failed to play track")
	ui.app.QueueUpdateDraw(func() {
		ui.showError(err)
	})
}

func (ui *UI) togglePause() {
	state := ui.controller.Snapshot()
	if !state.HasTrack() {
		row, _ := ui.trackList.GetSelection()
		if row > 0 && row <= ui.tracks.TrackCount() {
			ui.onTrackSelected(row - 1)
		}
		return
	}

	switch state.Status {
	case player.StatusPlaying, player.StatusLoading:
		ui.controller.Pause()
	default:
		go ui.play(state.TrackID)
	}
}

func (ui *UI) showTrack(t *catalog.Track) {
	ui.currentTrack = t
	ui.playerPanel.Clear()
	ui.playerPanel.AddItem(ui.createContentPanel(), 0, 1, false)
	ui.updateNowPlaying(ui.controller.Snapshot())
}

func (ui *UI) createCategoryTags(t *catalog.Track) *tview.Flex {
	container := tview.NewFlex().SetDirection(tview.FlexColumn)
	container.SetBackgroundColor(ui.colors.background)

	container.AddItem(tview.NewBox().SetBackgroundColor(ui.colors.background), 1, 0, false)

	var tags []string
	if label := t.Category.Label(); label != "" {
		tags = append(tags, label)
	}
	if t.Subcategory != "" {
		tags = append(tags, t.Subcategory)
	}

	if len(tags) == 0 {
		none := tview.NewTextView()
		none.SetText("N/A")
		none.SetTextColor(ui.colors.foreground)
		none.SetBackgroundColor(ui.colors.background)
		container.AddItem(none, 3, 0, false)
		return container
	}

	for i, g := range tags {
		tag := tview.NewTextView()
		tag.SetText(" " + g + " ")
		tag.SetTextColor(ui.colors.foreground)
		tag.SetBackgroundColor(ui.colors.categoryTagBackground)
		tag.SetTextAlign(tview.AlignCenter)

		container.AddItem(tag, tview.TaggedStringWidth(g)+2, 0, false)

		if i < len(tags)-1 {
			spacer := tview.NewBox().SetBackgroundColor(ui.colors.background)
			container.AddItem(spacer, 1, 0, false)
		}
	}

	container.AddItem(tview.NewBox().SetBackgroundColor(ui.colors.background), 0, 1, false)

	return container
}

func (ui *UI) newLabel(text string) *tview.TextView {
	label := tview.NewTextView()
	label.SetText(text)
	label.SetTextColor(ui.colors.foreground)
	label.SetBackgroundColor(ui.colors.background)
	label.SetWrap(false)
	return label
}

func (ui *UI) createContentPanel() *tview.Flex {
	t := ui.currentTrack

	nameView := tview.NewTextView()
	nameView.SetDynamicColors(true)
	nameView.SetText(fmt.Sprintf(" [%s]%s[-]",
		ui.colors.highlight.String(),
		tview.Escape(t.Name)))
	nameView.SetTextColor(ui.colors.highlight)
	nameView.SetBackgroundColor(ui.colors.background)
	nameView.SetWrap(false)
	nameView.SetTextStyle(tcell.StyleDefault.Background(ui.colors.background).Attributes(tcell.AttrBold))

	categoryView := ui.createCategoryTags(t)

	descriptionView := tview.NewTextView()
	descriptionView.SetDynamicColors(true)
	descriptionView.SetText(fmt.Sprintf(" [%s]%s[-]",
		ui.colors.foreground.String(),
		tview.Escape(t.Description)))
	descriptionView.SetTextColor(ui.colors.foreground)
	descriptionView.SetBackgroundColor(ui.colors.background)
	descriptionView.SetWrap(true)

	ui.timelineView = tview.NewTextView()
	ui.timelineView.SetDynamicColors(true)
	ui.timelineView.SetTextColor(ui.colors.foreground)
	ui.timelineView.SetBackgroundColor(ui.colors.background)
	ui.timelineView.SetWrap(false)

	ui.detailsView = tview.NewTextView()
	ui.detailsView.SetDynamicColors(true)
	ui.detailsView.SetTextColor(ui.colors.foreground)
	ui.detailsView.SetBackgroundColor(ui.colors.background)
	ui.detailsView.SetWrap(false)

	infoSpacer := tview.NewBox().SetBackgroundColor(ui.colors.background)

	infoContent := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ui.newLabel(" Sound:"), 1, 0, false).
		AddItem(nameView, 1, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(ui.newLabel(" Category:"), 1, 0, false).
		AddItem(categoryView, 1, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(descriptionView, 2, 0, false).
		AddItem(ui.timelineView, 1, 0, false).
		AddItem(ui.detailsView, 1, 0, false).
		AddItem(infoSpacer, 0, 1, false)
	infoContent.SetBackgroundColor(ui.colors.background)

	ui.volumeView = ui.createGraphicalVolumeBar()

	contentFlex := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(infoContent, 0, 1, false).
		AddItem(ui.volumeView, 7, 0, false)
	contentFlex.SetBackgroundColor(ui.colors.background)

	contentWithPadding := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(nil, 4, 0, false).
		AddItem(contentFlex, 0, 1, false).
		AddItem(nil, 4, 0, false)
	contentWithPadding.SetBackgroundColor(ui.colors.background)

	return contentWithPadding
}

// updateNowPlaying refreshes the timeline and details rows. The panel only
// reflects engine state while it shows the engine's current track.
func (ui *UI) updateNowPlaying(state player.PlaybackState) {
	if ui.timelineView == nil || ui.currentTrack == nil {
		return
	}

	if state.TrackID != ui.currentTrack.ID {
		idle := player.PlaybackState{Duration: ui.currentTrack.Duration(), ActiveTier: state.ActiveTier, Looping: state.Looping}
		ui.timelineView.SetText(" " + renderTimeline(idle, TimelineWidth, ui.colors.highlight.String()))
		ui.detailsView.SetText(" " + ui.renderDetails(idle))
		return
	}

	ui.timelineView.SetText(" " + renderTimeline(state, TimelineWidth, ui.colors.highlight.String()))
	ui.detailsView.SetText(" " + ui.renderDetails(state))
}

func (ui *UI) renderDetails(state player.PlaybackState) string {
	loop := "off"
	if state.Looping {
		loop = "on"
	}

	parts := []string{fmt.Sprintf("Quality: %s", state.ActiveTier.Short())}
	if state.HasTrack() && state.Status != player.StatusError {
		parts = append(parts, fmt.Sprintf("Buffer: %s %d%%", ui.statusRenderer.formatBufferHealth(state.BufferFill), state.BufferFill))
	}
	parts = append(parts, fmt.Sprintf("Loop: %s", loop))
	return joinParts(parts)
}

// renderTimeline draws "mm:ss ━━━━──── mm:ss" with the elapsed part in color.
func renderTimeline(state player.PlaybackState, width int, color string) string {
	if width < 1 {
		width = 1
	}
	filled := int(state.Progress() * float64(width))
	if filled > width {
		filled = width
	}

	elapsed := strings.Repeat("━", filled)
	if color != "" && filled > 0 {
		elapsed = fmt.Sprintf("[%s]%s[-]", color, elapsed)
	}

	return fmt.Sprintf("%s %s%s %s",
		formatClock(state.CurrentTime),
		elapsed,
		strings.Repeat("─", width-filled),
		formatClock(state.Duration))
}

// formatClock formats d as m:ss, or h:mm:ss from one hour up.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h, m, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

type PlayingSpinner struct {
	Frames []string
	FPS    time.Duration
}

func NewPlayingSpinner() *PlayingSpinner {
	return &PlayingSpinner{
		Frames: []string{"⣾ ", "⣽ ", "⣻ ", "⢿ ", "⡿ ", "⣟ ", "⣯ ", "⣷ "},
		FPS:    time.Second / 10,
	}
}

func (ui *UI) getPlayingIndicator() string {
	if ui.playingSpinner == nil {
		ui.playingSpinner = NewPlayingSpinner()
	}

	ui.mu.Lock()
	frame := ui.animationFrame
	ui.mu.Unlock()

	return ui.playingSpinner.Frames[frame%len(ui.playingSpinner.Frames)]
}

// startAnimation drives the spinner, the footer and the timeline until the
// UI stops.
func (ui *UI) startAnimation() {
	if ui.playingSpinner == nil {
		ui.playingSpinner = NewPlayingSpinner()
	}

	ui.mu.Lock()
	stop := ui.stopUpdates
	ui.mu.Unlock()
	if stop == nil {
		return
	}

	go func() {
		animationTicker := time.NewTicker(ui.playingSpinner.FPS)
		defer animationTicker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-animationTicker.C:
				ui.mu.Lock()
				ui.animationFrame++
				ui.mu.Unlock()

				ui.statusRenderer.AdvanceAnimation()

				ui.app.QueueUpdateDraw(func() {
					ui.updateTrackListPlayingIndicator()
				})
			}
		}
	}()
}

func (ui *UI) onStateChange(state player.PlaybackState) {
	go ui.app.QueueUpdateDraw(func() {
		ui.updateNowPlaying(state)
		ui.updateTrackListPlayingIndicator()
	})
}

func (ui *UI) onTracksRefreshed() {
	ui.app.QueueUpdateDraw(func() {
		ui.refreshTrackTable()
	})
}

// Notify shows a playback failure. It is safe to call from any goroutine.
func (ui *UI) Notify(kind player.ErrorKind, message string) {
	log.Debug().Str("kind", kind.String()).Msg("Showing playback error")
	go ui.app.QueueUpdateDraw(func() {
		if ui.pages == nil {
			return
		}
		ui.showPlaybackErrorModal(message)
	})
}

func (ui *UI) globalInputHandler(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q', 'Q':
			ui.stop()
			return nil
		case ' ':
			ui.togglePause()
			ui.updateTrackListPlayingIndicator()
			return nil
		case 'x', 'X':
			ui.controller.Stop()
			return nil
		case 'l', 'L':
			looping := ui.controller.ToggleLoop()
			log.Debug().Msgf("Loop: %v", looping)
			return nil
		case 'f', 'F':
			ui.toggleFavorite()
			return nil
		case 'v', 'V':
			ui.cycleView()
			return nil
		case '/':
			ui.showSearch()
			return nil
		case 's', 'S':
			ui.showSettingsModal()
			return nil
		case '+', '=':
			ui.adjustVolume(VolumeStep)
			return nil
		case '-', '_':
			ui.adjustVolume(-VolumeStep)
			return nil
		case 'm', 'M':
			ui.toggleMute()
			return nil
		case '?':
			ui.showHelpModal()
			return nil
		case 'a', 'A':
			ui.showAboutModal()
			return nil
		}
	case tcell.KeyEnter:
		row, _ := ui.trackList.GetSelection()
		if row > 0 && row <= ui.tracks.TrackCount() {
			ui.onTrackSelected(row - 1)
		}
		return nil
	case tcell.KeyEscape:
		if ui.tracks.Filter() != "" {
			ui.applyFilter("")
			return nil
		}
		ui.stop()
		return nil
	case tcell.KeyRight:
		ui.controller.SeekBy(SeekStep)
		return nil
	case tcell.KeyLeft:
		ui.controller.SeekBy(-SeekStep)
		return nil
	}
	return event
}
