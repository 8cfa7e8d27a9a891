package ui

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/lullaby-cli/internal/config"
	"github.com/glebovdev/lullaby-cli/internal/device"
	"github.com/glebovdev/lullaby-cli/internal/quality"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

// EngineSettings is the part of the playback controller the settings surface
// drives.
type EngineSettings interface {
	SetQualitySettings(s quality.Settings)
	SetNetworkAdaptive(on bool)
	SetCrossfade(d time.Duration)
	SetPreload(on bool)
}

// ApplyEngineSettings pushes the quality and engine preferences of cfg into
// the controller.
func ApplyEngineSettings(eng EngineSettings, cfg *config.Config) {
	eng.SetQualitySettings(cfg.Quality)
	eng.SetNetworkAdaptive(cfg.Engine.NetworkAdaptive)
	eng.SetCrossfade(cfg.Engine.Crossfade())
	eng.SetPreload(cfg.Engine.Preload)
}

// settingsValues is the editable state of the settings form.
type settingsValues struct {
	Quality   quality.Settings
	Engine    config.Engine
	Crossfade string
}

func settingsFromConfig(cfg *config.Config) settingsValues {
	return settingsValues{
		Quality:   cfg.Quality,
		Engine:    cfg.Engine,
		Crossfade: strconv.FormatFloat(cfg.Engine.CrossfadeSeconds, 'f', -1, 64),
	}
}

// parseCrossfade parses a fade-in length in seconds, clamped to
// [0, MaxCrossfadeSeconds].
func parseCrossfade(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("crossfade must be a number of seconds: %w", err)
	}
	if math.IsNaN(v) {
		return 0, fmt.Errorf("crossfade must be a number of seconds, got %q", strings.TrimSpace(s))
	}
	switch {
	case v < 0:
		v = 0
	case v > config.MaxCrossfadeSeconds:
		v = config.MaxCrossfadeSeconds
	}
	return v, nil
}

// applySettings stores values in cfg, saves it and updates the engine.
func applySettings(eng EngineSettings, cfg *config.Config, values settingsValues) error {
	crossfade, err := parseCrossfade(values.Crossfade)
	if err != nil {
		return err
	}

	cfg.Quality = values.Quality.Normalize()
	cfg.Engine = values.Engine
	cfg.Engine.CrossfadeSeconds = crossfade

	ApplyEngineSettings(eng, cfg)

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	log.Debug().
		Bool("auto", cfg.Quality.AutoSelect).
		Str("tier", string(cfg.Quality.PreferredTier)).
		Bool("adaptive", cfg.Engine.NetworkAdaptive).
		Float64("crossfade", cfg.Engine.CrossfadeSeconds).
		Bool("preload", cfg.Engine.Preload).
		Msg("Settings saved")
	return nil
}

func describeProfile(p device.Profile) string {
	advanced := "no"
	if p.SupportsAdvancedAudioContext {
		advanced = "yes"
	}
	return fmt.Sprintf("Device: %s │ Network: %s │ Advanced audio: %s", p.Kind(), p.Network, advanced)
}

func (ui *UI) showSettingsModal() {
	values := settingsFromConfig(ui.config)
	tiers := quality.Tiers()

	tierOptions := make([]string, len(tiers))
	current := 0
	for i, tier := range tiers {
		tierOptions[i] = tier.String()
		if tier == values.Quality.PreferredTier {
			current = i
		}
	}

	doDismiss := func() {
		ui.pages.RemovePage("settings")
		ui.app.SetFocus(ui.trackList)
	}

	form := tview.NewForm()
	form.AddCheckbox("Auto quality", values.Quality.AutoSelect, func(checked bool) {
		values.Quality.AutoSelect = checked
	})
	form.AddDropDown("Preferred quality", tierOptions, current, func(option string, index int) {
		if index >= 0 && index < len(tiers) {
			values.Quality.PreferredTier = tiers[index]
		}
	})
	form.AddCheckbox("Network adaptive", values.Engine.NetworkAdaptive, func(checked bool) {
		values.Engine.NetworkAdaptive = checked
	})
	form.AddInputField("Crossfade (s)", values.Crossfade, 8, func(text string, last rune) bool {
		_, err := strconv.ParseFloat(text, 64)
		return err == nil || text == "" || text == "."
	}, func(text string) {
		values.Crossfade = text
	})
	form.AddCheckbox("Preload whole sound", values.Engine.Preload, func(checked bool) {
		values.Engine.Preload = checked
	})

	form.AddButton("Save", func() {
		if err := applySettings(ui.controller, ui.config, values); err != nil {
			log.Error().Err(err).Msg("Failed to apply settings")
			doDismiss()
			ui.showError(err)
			return
		}
		doDismiss()
	})
	form.AddButton("Cancel", doDismiss)
	form.SetCancelFunc(doDismiss)

	form.SetBackgroundColor(ui.colors.modalBackground)
	form.SetFieldBackgroundColor(ui.colors.background)
	form.SetFieldTextColor(ui.colors.foreground)
	form.SetLabelColor(ui.colors.foreground)
	form.SetButtonBackgroundColor(ui.colors.categoryTagBackground)
	form.SetButtonTextColor(ui.colors.foreground)

	state := ui.controller.Snapshot()
	profileView := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true).
		SetText(fmt.Sprintf("%s\nActive quality: %s",
			describeProfile(ui.controller.Profile()),
			state.ActiveTier))
	profileView.SetTextColor(ui.colors.foreground)
	profileView.SetBackgroundColor(ui.colors.modalBackground)

	content := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(form, 0, 1, true).
		AddItem(profileView, 2, 0, false).
		AddItem(ui.hintView("[::d]Tab to move  •  Esc to cancel[::-]"), 1, 0, false)
	content.SetBackgroundColor(ui.colors.modalBackground)

	frame := tview.NewFrame(content).SetBorders(1, 0, 0, 0, 2, 2)
	frame.SetBorder(true).
		SetBorderColor(ui.colors.borders).
		SetBackgroundColor(ui.colors.modalBackground).
		SetTitle(" Settings ").
		SetTitleColor(ui.colors.highlight).
		SetTitleAlign(tview.AlignCenter)

	modal := ui.centered(frame, 64, 20)
	modal.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			doDismiss()
			return nil
		}
		return event
	})

	ui.pages.AddPage("settings", modal, true, true)
	ui.app.SetFocus(form)
}

// ReloadConfig adopts settings edited outside the UI. It is safe to call
// from any goroutine.
func (ui *UI) ReloadConfig(cfg *config.Config) {
	ui.app.QueueUpdateDraw(func() {
		ui.config.Quality = cfg.Quality
		ui.config.Engine = cfg.Engine
		ui.config.Autostart = cfg.Autostart
		log.Debug().Msg("Adopted external config change")
	})
}
