package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/balhun/ISSTracker/internal/config"
	"github.com/balhun/ISSTracker/internal/scene"
	"github.com/balhun/ISSTracker/internal/telemetry"
	"github.com/balhun/ISSTracker/internal/tle"
	"github.com/balhun/ISSTracker/internal/track"
)

func (c *cli) orbitCmd() *cobra.Command {
	var start string
	cmd := &cobra.Command{
		Use:   "orbit",
		Short: "Print the predicted ground track as GeoJSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at := time.Now()
			if start != "" {
				t, err := time.Parse(time.RFC3339, start)
				if err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
				at = t
			}
			return c.printOrbit(cmd.Context(), cmd.OutOrStdout(), at)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "start of the track (RFC3339, default now)")
	return cmd
}

func (c *cli) snapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print one telemetry reading, rounded as on the map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.printSnapshot(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func httpClient(cfg config.Config) *http.Client {
	return &http.Client{Timeout: cfg.HTTPTimeout}
}

// printOrbit fetches elements, samples the track from start and writes the
// orbit layer as a GeoJSON feature collection.
func (c *cli) printOrbit(ctx context.Context, w io.Writer, start time.Time) error {
	es, err := tle.NewFetcher(c.cfg.TLEURL, httpClient(c.cfg)).FetchElementSet(ctx)
	if err != nil {
		return err
	}

	sampler := track.NewSampler(c.cfg.Orbit, c.logger)
	o, err := sampler.Orbit(ctx, es, start)
	if err != nil {
		return err
	}
	c.logger.Info("orbit sampled",
		"norad_id", o.NORADID,
		"points", o.Points,
		"segments", len(o.Segments),
		"skipped", o.Skipped,
	)

	fc := scene.GeoJSON(scene.Compose(nil, o, scene.DefaultOptions()))
	return writeJSON(w, fc)
}

// printSnapshot fetches one reading and writes the info panel values.
func (c *cli) printSnapshot(ctx context.Context, w io.Writer) error {
	snap, err := telemetry.NewClient(c.cfg.TelemetryURL, httpClient(c.cfg)).Fetch(ctx)
	if err != nil {
		return err
	}
	return writeJSON(w, scene.InfoFor(snap))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
