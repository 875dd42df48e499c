// Package main provides the player entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/sonicbox/internal/api/connect"
	"github.com/osa030/sonicbox/internal/app/catalog"
	"github.com/osa030/sonicbox/internal/app/playback"
	"github.com/osa030/sonicbox/internal/app/session"
	"github.com/osa030/sonicbox/internal/infra/announcer"
	"github.com/osa030/sonicbox/internal/infra/audio"
	"github.com/osa030/sonicbox/internal/infra/cast"
	"github.com/osa030/sonicbox/internal/infra/config"
	"github.com/osa030/sonicbox/internal/infra/logger"
	"github.com/osa030/sonicbox/internal/infra/subsonic"
)

var (
	app        = kingpin.New("sonicbox", "Subsonic music player with remote control")
	configPath = app.Flag("config", "Path to config file").Default("config/sonicbox.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// play command (default)
	playCmd  = app.Command("play", "Start the player and the control server (default)").Default()
	autoPlay = playCmd.Flag("autoplay", "Start the first song once the catalog is loaded").Bool()

	// catalog commands
	pingCmd      = app.Command("ping", "Check the server connection")
	songsCmd     = app.Command("songs", "List random songs")
	songsCount   = songsCmd.Flag("count", "Number of songs").Default("20").Int()
	albumsCmd    = app.Command("albums", "List albums")
	albumsCount  = albumsCmd.Flag("count", "Number of albums").Default("10").Int()
	albumsMode   = albumsCmd.Flag("mode", "Listing mode (newest, recent)").Default("newest").Enum("newest", "recent")
	playlistsCmd = app.Command("playlists", "List playlists")
	albumCmd     = app.Command("album", "Show album details")
	albumID      = albumCmd.Arg("id", "Album ID").Required().String()
	playlistCmd  = app.Command("playlist", "Show playlist details")
	playlistID   = playlistCmd.Arg("id", "Playlist ID").Required().String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	if command != playCmd.FullCommand() && *logfile == "" {
		// Keep catalog listings readable
		loggerConfig.Output = "stderr"
		if !*verbose {
			loggerConfig.Level = "warn"
		}
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	client := subsonic.New(subsonic.Config{Timeout: cfg.Timeout()})

	switch command {
	case pingCmd.FullCommand():
		err = runPing(ctx, client, cfg)
	case songsCmd.FullCommand():
		err = runSongs(ctx, client, cfg, *songsCount)
	case albumsCmd.FullCommand():
		err = runAlbums(ctx, client, cfg, *albumsCount, *albumsMode)
	case playlistsCmd.FullCommand():
		err = runPlaylists(ctx, client, cfg)
	case albumCmd.FullCommand():
		err = runAlbum(ctx, client, cfg, *albumID)
	case playlistCmd.FullCommand():
		err = runPlaylist(ctx, client, cfg, *playlistID)
	default:
		// Run player (defer ensures shutdown hook is called)
		err = run(cfg, client)
	}

	if err != nil {
		zlog.Error().Msgf("Error: %v", err)
		os.Exit(1)
	}
}

// run executes the player. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config, client *subsonic.Client) error {
	ctx := context.Background()

	// Optional providers
	ann, err := announcer.NewFromConfig(cfg.Announcers)
	if err != nil {
		return errors.Wrap(err, "invalid announcer config")
	}
	router, err := cast.New(cfg.Cast.Type, cfg.Cast.Settings)
	if err != nil {
		return errors.Wrap(err, "invalid cast config")
	}

	var demo *catalog.StaticSource
	if cfg.Demo.Enabled {
		demo = catalog.NewStaticSource(cfg.DemoCatalog())
	} else {
		waitForServer(ctx, client, cfg.Credentials())
	}

	player := audio.NewPlayer(audio.Config{
		SampleRate:   cfg.Audio.SampleRate,
		BufferSize:   time.Duration(cfg.Audio.BufferMs) * time.Millisecond,
		Volume:       cfg.Audio.Volume,
		TickInterval: time.Duration(cfg.Audio.TickIntervalMs) * time.Millisecond,
	})

	// Create session manager
	sessionMgr, err := session.NewManager(session.Config{
		Credentials: cfg.Credentials(),
		Demo:        cfg.Demo.Enabled,
		AutoPlay:    cfg.Playback.AutoPlay || *autoPlay,
		Announce:    cfg.Playback.Announce,
		ArtworkSize: cfg.Catalog.ArtworkSize,
		Catalog: catalog.LoaderConfig{
			SongCount:  cfg.Catalog.SongCount,
			AlbumCount: cfg.Catalog.AlbumCount,
			AlbumMode:  cfg.AlbumMode(),
		},
		Playback: playback.Config{
			AnnouncementClearDelay: cfg.AnnouncementClearDelay(),
		},
	}, session.Deps{
		Client:    client,
		Backend:   player,
		Announcer: ann,
		Cast:      router,
		Demo:      demo,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create session manager")
	}

	// Create RPC service
	controlService := apiconnect.NewControlService(sessionMgr)
	controlPath, controlHandler := apiconnect.NewControlServiceHandler(
		controlService,
		connect.WithInterceptors(apiconnect.NewTokenAuthInterceptor(cfg.Server.Token)),
	)

	// Create HTTP mux
	mux := http.NewServeMux()
	mux.Handle(controlPath, controlHandler)

	// Create server with h2c (HTTP/2 cleartext) support
	serverAddr := cfg.Server.Addr
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	// Start session
	go func() {
		if err := sessionMgr.Start(ctx); err != nil {
			zlog.Error().Msgf("Failed to start session: %v", err)
		}
	}()

	// Start server
	go func() {
		zlog.Info().Msgf("Starting control server: addr=%s", serverAddr)
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal, session end, or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case <-sessionMgr.Done():
		zlog.Info().Msg("Session ended, shutting down...")
	case err := <-serverErrCh:
		sessionMgr.Close()
		return errors.Wrap(err, "server error")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close session manager first to terminate active streams
	sessionMgr.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Player stopped")

	// Execute shutdown hook if configured
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// waitForServer pings the server with retries to ride out transient
// failures during startup. An unreachable server is not fatal; the catalog
// simply stays empty until the next reload.
func waitForServer(ctx context.Context, client *subsonic.Client, creds subsonic.Credentials) {
	maxRetries := 5
	baseDelay := 1 * time.Second

	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			delay := baseDelay * time.Duration(1<<uint(i-1))
			zlog.Info().Msgf("Retrying server ping in %v...", delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}

		if client.Ping(ctx, creds) {
			zlog.Info().Msgf("Server reachable: url=%s", creds.BaseURL())
			return
		}
		zlog.Warn().Msgf("Server ping failed (attempt %d/%d): url=%s", i+1, maxRetries, creds.BaseURL())
	}
	zlog.Warn().Msg("Server unreachable, starting with an empty catalog")
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
