package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/auth"
	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/repositories"
	"github.com/desertthunder/spotx/internal/services"
	"github.com/desertthunder/spotx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The store and lifecycle are opened on first use so commands that never touch them (setup
// of a fresh config, help) do not create a database.
type Runner struct {
	config     *shared.Config
	configPath string
	db         *sql.DB
	ownsDB     bool
	creds      *repositories.CredentialRepository
	devices    *repositories.DeviceRepository
	lifecycle  *auth.Lifecycle
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      *os.File
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	// DB, when set, is used instead of the configured database file. It must be migrated.
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      *os.File
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, sessionCommand, nowCommand, devicesCommand, playlistsCommand,
		playCommand, pauseCommand, nextCommand, prevCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Load reads the configuration named by --config before any command runs. A missing file
// keeps the defaults so "setup" can create it.
func (r *Runner) Load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	if path == "" {
		return ctx, nil
	}
	r.configPath = path

	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return ctx, nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return ctx, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}
	r.config = config
	return ctx, nil
}

// SetLogger replaces the logger, used while a full-screen view owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	// rebuilt with the new logger on next use
	r.lifecycle = nil
}

// open connects the store and builds the credential lifecycle on first use.
func (r *Runner) open() error {
	if r.lifecycle != nil {
		return nil
	}

	if r.db == nil {
		path, err := r.config.DatabasePath()
		if err != nil {
			return err
		}
		r.logger.Debug("opening store", "path", path)

		db, err := shared.OpenStore(path)
		if err != nil {
			return err
		}
		r.db = db
		r.ownsDB = true
	}

	r.creds = repositories.NewCredentialRepository(r.db)
	r.devices = repositories.NewDeviceRepository(r.db)
	r.lifecycle = auth.NewLifecycle(auth.LifecycleOpts{
		Store:   r.creds,
		Renewer: &auth.OAuthRenewer{TokenURL: r.config.Gateway.TokenURL, HTTPClient: r.httpClient},
		Margin:  r.config.Session.ExpiryMargin(),
		Logger:  r.logger,
	})
	return nil
}

// Close releases the store when the runner opened it.
func (r *Runner) Close() error {
	if r.db == nil || !r.ownsDB {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// identity resolves the account to act for: --user, or the only stored identity.
func (r *Runner) identity(cmd *cli.Command) (string, error) {
	if user := cmd.String("user"); user != "" {
		return user, nil
	}

	if err := r.open(); err != nil {
		return "", err
	}

	ids, err := r.creds.ListIdentities()
	if err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: no signed-in identity, run 'spotx auth login'", shared.ErrNotFound)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: several identities stored (%v), pass --user", shared.ErrMissingArgument, ids)
	}
}

// clientPair returns the OAuth client registration from the config.
func (r *Runner) clientPair() (*models.ClientSecretPair, error) {
	pair := &models.ClientSecretPair{
		ClientID:     r.config.Credentials.Spotify.ClientID,
		ClientSecret: r.config.Credentials.Spotify.ClientSecret,
	}
	if err := pair.Validate(); err != nil {
		return nil, fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrMissingCredentials)
	}
	return pair, nil
}

// player builds a gateway whose requests are authorized through the lifecycle for identity.
func (r *Runner) player(ctx context.Context, identity string) (*services.SpotifyPlayer, error) {
	if err := r.open(); err != nil {
		return nil, err
	}

	gw := r.config.Gateway
	return services.NewSpotifyPlayer(services.SpotifyPlayerOpts{
		BaseURL:           gw.APIBaseURL,
		HTTPClient:        services.NewAuthorizedClient(r.lifecycle.TokenSource(ctx, identity), gw.Timeout()),
		MaxRetries:        gw.MaxRetries,
		Backoff:           gw.RetryBackoff(),
		RequestsPerSecond: gw.RequestsPerSecond,
		QueueLength:       r.config.Session.QueueLength,
		Logger:            shared.WithLogger(r.logger, "identity", identity),
	}), nil
}

// playerFor resolves the identity and builds its gateway.
func (r *Runner) playerFor(ctx context.Context, cmd *cli.Command) (*services.SpotifyPlayer, error) {
	identity, err := r.identity(cmd)
	if err != nil {
		return nil, err
	}
	return r.player(ctx, identity)
}

// explain adds a hint to errors a user can act on.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, shared.ErrNoDevice):
		return fmt.Errorf("%w (start playback on a device or pass --device)", err)
	case errors.Is(err, shared.ErrRenewalRejected):
		return fmt.Errorf("%w (run 'spotx auth login' to sign in again)", err)
	}
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
