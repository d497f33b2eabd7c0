package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotx/internal/session"
	"github.com/desertthunder/spotx/internal/shared"
	"github.com/desertthunder/spotx/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// Session runs the live view until the user quits, the process is interrupted or the
// credential can no longer be renewed.
func (r *Runner) Session(ctx context.Context, cmd *cli.Command) error {
	identity, err := r.identity(cmd)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with the view
	logPath, err := r.config.LogPath()
	if err != nil {
		return err
	}
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	if cmd.Bool("debug") {
		shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	}
	r.SetLogger(shared.WithLogger(fileLogger, "session", shared.GenerateID()))

	player, err := r.player(ctx, identity)
	if err != nil {
		return err
	}

	opts := session.LoopOpts{
		Player:            player,
		Logger:            r.logger,
		TickInterval:      r.config.Session.Tick(),
		StaleAfter:        r.config.Session.StaleAfter(),
		SettleDelay:       r.config.Session.SettleDelay(),
		MinRenderInterval: r.config.Session.MinRender(),
		DeviceID:          cmd.String("device"),
	}

	r.logger.Info("session starting", "identity", identity, "plain", cmd.Bool("plain"))

	if cmd.Bool("plain") {
		err = r.runPlain(ctx, opts)
	} else {
		err = r.runTea(ctx, opts)
	}
	return explain(err)
}

// runTea drives the full-screen bubbletea view. The loop owns quitting: when it returns the
// program is told to exit.
func (r *Runner) runTea(ctx context.Context, opts session.LoopOpts) error {
	keys := ui.NewKeyChannel(64)
	program := tea.NewProgram(ui.NewModel(keys), tea.WithAltScreen(), tea.WithContext(ctx))

	opts.Renderer = ui.NewTeaRenderer(program)
	opts.Keys = keys
	loop := session.NewLoop(opts)

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- loop.Run(loopCtx)
		program.Quit()
	}()

	_, teaErr := program.Run()
	cancel()
	err := <-loopErr

	if teaErr != nil && !errors.Is(teaErr, tea.ErrProgramKilled) {
		return fmt.Errorf("error running view: %w", teaErr)
	}
	return err
}

// runPlain writes line output and reads single keys from a raw terminal.
func (r *Runner) runPlain(ctx context.Context, opts session.LoopOpts) error {
	keys, err := ui.NewRawKeys(r.input)
	if err != nil {
		return err
	}
	defer keys.Close()

	opts.Renderer = ui.NewPlainRenderer(r.output, term.IsTerminal(int(r.input.Fd())))
	opts.Keys = keys
	return session.NewLoop(opts).Run(ctx)
}
