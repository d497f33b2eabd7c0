package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotx/internal/formatter"
	"github.com/desertthunder/spotx/internal/services"
	"github.com/desertthunder/spotx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Now prints the active track and the upcoming queue.
func (r *Runner) Now(ctx context.Context, cmd *cli.Command) error {
	player, err := r.playerFor(ctx, cmd)
	if err != nil {
		return err
	}

	snap, err := player.CurrentlyPlaying(ctx)
	switch {
	case errors.Is(err, shared.ErrNoContent):
		snap = nil
	case err != nil:
		return explain(err)
	default:
		upcoming, err := player.Queue(ctx)
		if err != nil && !errors.Is(err, shared.ErrNoContent) {
			return explain(err)
		}
		snap.Upcoming = upcoming
	}

	switch format := cmd.String("format"); format {
	case "text":
		return r.writeBytes(formatter.SnapshotToText(snap))
	case "markdown", "md":
		return r.writeBytes(formatter.SnapshotToMarkdown(snap))
	case "csv":
		data, err := formatter.QueueToCSV(snap)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	case "json":
		return r.writeJSON(snap, true)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// Devices lists live devices merged with the ones remembered from earlier runs, and
// remembers the live ones.
func (r *Runner) Devices(ctx context.Context, cmd *cli.Command) error {
	player, err := r.playerFor(ctx, cmd)
	if err != nil {
		return err
	}

	live, err := player.Devices(ctx)
	if err != nil && !errors.Is(err, shared.ErrNoContent) {
		return explain(err)
	}

	remembered, err := r.devices.List()
	if err != nil {
		return err
	}
	if err := r.devices.Remember(live); err != nil {
		r.logger.Warn("failed to remember devices", "error", err)
	}

	merged := services.MergeDevices(live, remembered)

	switch format := cmd.String("format"); format {
	case "text":
		return r.writeBytes(formatter.DevicesToText(merged))
	case "csv":
		data, err := formatter.DevicesToCSV(merged)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	case "json":
		return r.writeJSON(merged, true)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// DevicesForget removes a device from the cache.
func (r *Runner) DevicesForget(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: device id", shared.ErrMissingArgument)
	}
	if err := r.open(); err != nil {
		return err
	}

	if err := r.devices.Forget(id); err != nil {
		return err
	}
	return r.writePlain("✓ Forgot device %s\n", id)
}

// Playlists lists the account's playlists with their context URIs.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	player, err := r.playerFor(ctx, cmd)
	if err != nil {
		return err
	}

	playlists, err := player.Playlists(ctx)
	if err != nil {
		return explain(err)
	}

	if limit := cmd.Int("limit"); limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}

	if err := r.writePlain("Found %d playlists:\n\n", len(playlists)); err != nil {
		return err
	}
	return r.writeBytes(formatter.PlaylistsToText(playlists))
}

// command runs one playback command and reports the resulting track.
func (r *Runner) command(ctx context.Context, cmd *cli.Command, done string, issue func(services.Player, string) error) error {
	player, err := r.playerFor(ctx, cmd)
	if err != nil {
		return err
	}

	if err := issue(player, cmd.String("device")); err != nil {
		return explain(err)
	}
	r.writePlain("✓ %s\n", done)

	if settle := r.config.Session.SettleDelay(); settle > 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(settle):
		}
	}

	snap, err := player.CurrentlyPlaying(ctx)
	if err != nil {
		r.logger.Debug("could not read back playback state", "error", err)
		return nil
	}
	if snap.Active != nil {
		r.writePlain("♪ %s\n", formatter.TrackLine(*snap.Active))
	}
	return nil
}

// Play resumes playback, optionally starting a context with shuffle on.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	contextURI := cmd.String("context")
	shuffle := cmd.Bool("shuffle")

	return r.command(ctx, cmd, "Playing", func(p services.Player, device string) error {
		if shuffle {
			if err := p.SetShuffle(ctx, true, device); err != nil {
				return err
			}
		}
		return p.Play(ctx, device, contextURI)
	})
}

func (r *Runner) Pause(ctx context.Context, cmd *cli.Command) error {
	player, err := r.playerFor(ctx, cmd)
	if err != nil {
		return err
	}
	if err := player.Pause(ctx, cmd.String("device")); err != nil {
		return explain(err)
	}
	return r.writePlain("✓ Paused\n")
}

func (r *Runner) Next(ctx context.Context, cmd *cli.Command) error {
	return r.command(ctx, cmd, "Skipped", func(p services.Player, device string) error {
		return p.Next(ctx, device)
	})
}

func (r *Runner) Previous(ctx context.Context, cmd *cli.Command) error {
	return r.command(ctx, cmd, "Went back", func(p services.Player, device string) error {
		return p.Previous(ctx, device)
	})
}
