package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/glebovdev/lullaby-cli/internal/cache"
	"github.com/glebovdev/lullaby-cli/internal/catalog"
	"github.com/glebovdev/lullaby-cli/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const catalogFetchTimeout = 15 * time.Second

func newTracksCommand(cc *commandContext) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "tracks [query]",
		Short: "List available sounds",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tracks, err := service.NewTrackService(catalogFetcher(cc.config), cc.config)
			if err != nil {
				return err
			}
			refreshCatalog(cmd.Context(), tracks, cc.config.CatalogURL)

			var list []catalog.Track
			switch {
			case category != "":
				c := catalog.Category(strings.ToLower(category))
				if !c.Valid() {
					return fmt.Errorf("unknown category %q (want one of %s)", category, categoryNames())
				}
				list = tracks.ByCategory(c)
			case len(args) == 1:
				list = tracks.Search(args[0])
			default:
				list = tracks.Visible()
			}

			out := cmd.OutOrStdout()
			writeTrackTable(out, list, tracks.IsFavorite)

			source := "built-in"
			if tracks.IsRemote() {
				source = "remote"
			}
			fmt.Fprintf(out, "\n%d of %d sounds (%s catalog)\n", len(list), tracks.TrackCount(), source)

			if assets, err := cache.NewCache(); err == nil {
				if stats, err := assets.Stats(); err == nil {
					fmt.Fprintf(out, "Cache: %s\n", stats)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only list sounds in this category")
	return cmd
}

// refreshCatalog loads the remote catalog when one is configured. Failures
// leave the built-in catalog in place.
func refreshCatalog(ctx context.Context, tracks *service.TrackService, url string) {
	if url == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, catalogFetchTimeout)
	defer cancel()
	if err := tracks.Refresh(ctx); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Using built-in catalog")
	}
}

func categoryNames() string {
	names := make([]string, 0, len(catalog.Categories()))
	for _, c := range catalog.Categories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func trackRows(tracks []catalog.Track, isFavorite func(id string) bool) [][]string {
	rows := make([][]string, 0, len(tracks))
	for _, t := range tracks {
		fav := ""
		if isFavorite != nil && isFavorite(t.ID) {
			fav = "★"
		}
		rows = append(rows, []string{fav, t.ID, t.Name, t.Category.Label(), formatLength(t.Duration())})
	}
	return rows
}

func writeTrackTable(w io.Writer, tracks []catalog.Track, isFavorite func(id string) bool) {
	fmt.Fprintln(w, renderTable(
		[]string{"", "ID", "Name", "Category", "Length"},
		trackRows(tracks, isFavorite),
		[]columnAlignment{alignCenter, alignLeft, alignLeft, alignLeft, alignRight},
	))
}

// formatLength renders a track length as m:ss, or "-" when unknown.
func formatLength(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	total := int(d.Round(time.Second).Seconds())
	if total >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
