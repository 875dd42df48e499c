// Package main provides the remote control CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/sonicbox/internal/api/connect"
	controlv1 "github.com/osa030/sonicbox/internal/api/controlv1"
)

var (
	app    = kingpin.New("sonicctl", "sonicbox remote control")
	server = app.Flag("server", "Player address").Default("http://127.0.0.1:8080").String()
	token  = app.Flag("token", "Control token (or set SONICBOX_CONTROL_TOKEN env)").Envar("SONICBOX_CONTROL_TOKEN").String()

	// status command
	statusCmd = app.Command("status", "Show player status")

	// songs command
	songsCmd = app.Command("songs", "List the song sequence")

	// play command
	playCmd     = app.Command("play", "Play a song from the sequence")
	playTrackID = playCmd.Arg("track-id", "Track ID").Required().String()

	// transport commands
	toggleCmd = app.Command("toggle", "Toggle play/pause").Alias("pause")
	nextCmd   = app.Command("next", "Play the next song")
	prevCmd   = app.Command("prev", "Play the previous song").Alias("previous")
	seekCmd   = app.Command("seek", "Seek to a percentage of the song")
	seekPct   = seekCmd.Arg("percent", "Position in percent (0-100)").Required().Float64()

	// extras
	announceCmd = app.Command("announce", "Announce the current song")
	castCmd     = app.Command("cast", "Send the current stream to the cast target")
	reloadCmd   = app.Command("reload", "Reload the catalog")

	// configure command
	configureCmd      = app.Command("configure", "Switch server credentials or demo mode")
	configureURL      = configureCmd.Flag("url", "Server URL").String()
	configureUser     = configureCmd.Flag("username", "User name").String()
	configurePassword = configureCmd.Flag("password", "Password").Envar("SUBSONIC_PASSWORD").String()
	configureDemo     = configureCmd.Flag("demo", "Use the demo catalog").Bool()

	// watch command
	watchCmd = app.Command("watch", "Follow playback notifications")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Check control token
	if *token == "" {
		fmt.Println("Error: control token is required (use --token or SONICBOX_CONTROL_TOKEN env)")
		os.Exit(1)
	}

	// Create client
	client := apiconnect.NewControlClient(http.DefaultClient, *server, *token)

	ctx := context.Background()

	// Execute command
	var err error
	switch command {
	case statusCmd.FullCommand():
		err = status(ctx, client)
	case songsCmd.FullCommand():
		err = songs(ctx, client)
	case playCmd.FullCommand():
		err = printPlayback(client.Play(ctx, *playTrackID))
	case toggleCmd.FullCommand():
		err = printPlayback(client.TogglePlayPause(ctx))
	case nextCmd.FullCommand():
		err = printPlayback(client.Next(ctx))
	case prevCmd.FullCommand():
		err = printPlayback(client.Previous(ctx))
	case seekCmd.FullCommand():
		err = printPlayback(client.Seek(ctx, *seekPct))
	case announceCmd.FullCommand():
		if err = client.Announce(ctx); err == nil {
			fmt.Println("Announcement requested")
		}
	case castCmd.FullCommand():
		if err = client.Cast(ctx); err == nil {
			fmt.Println("Casting started")
		}
	case reloadCmd.FullCommand():
		err = printReload(client.Reload(ctx))
	case configureCmd.FullCommand():
		err = printReload(client.Configure(ctx, &controlv1.ConfigureRequest{
			URL:      *configureURL,
			Username: *configureUser,
			Password: *configurePassword,
			Demo:     *configureDemo,
		}))
	case watchCmd.FullCommand():
		err = watch(ctx, client)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func status(ctx context.Context, client *apiconnect.ControlClient) error {
	s, err := client.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Println("\n=== PLAYER STATUS ===")
	fmt.Printf("Session ID: %s\n", s.SessionID)
	fmt.Printf("Source: %s\n", s.Source)
	fmt.Printf("Catalog: %s songs, %s albums, %s playlists\n",
		humanize.Comma(int64(s.Songs)), humanize.Comma(int64(s.Albums)), humanize.Comma(int64(s.Playlists)))
	if !s.LoadedAt.IsZero() {
		fmt.Printf("Loaded: %s\n", humanize.Time(s.LoadedAt))
	}
	fmt.Printf("Cast available: %v\n", s.CastAvailable)

	fmt.Println()
	printStatus(s.Playback)
	fmt.Println()
	return nil
}

func songs(ctx context.Context, client *apiconnect.ControlClient) error {
	resp, err := client.ListSongs(ctx)
	if err != nil {
		return err
	}

	for i, t := range resp.Songs {
		fmt.Printf("  %3s  %-24s %s - %s\n", humanize.Ordinal(i+1), t.ID, t.Artist, t.Title)
	}
	fmt.Printf("\n%s songs\n", humanize.Comma(int64(len(resp.Songs))))
	return nil
}

func printPlayback(resp *controlv1.PlaybackResponse, err error) error {
	if err != nil {
		return err
	}
	printStatus(resp.Playback)
	return nil
}

func printReload(resp *controlv1.ReloadResponse, err error) error {
	if err != nil {
		return err
	}
	fmt.Printf("Catalog loaded: %s songs, %s albums, %s playlists\n",
		humanize.Comma(int64(resp.Songs)), humanize.Comma(int64(resp.Albums)), humanize.Comma(int64(resp.Playlists)))
	return nil
}

func printStatus(p controlv1.PlaybackStatus) {
	fmt.Printf("%s", formatState(p.State))
	if p.Track == nil {
		fmt.Println("  (no track)")
		return
	}
	fmt.Printf("  %s - %s  [%s / %s]\n", p.Track.Artist, p.Track.Title, p.Position, p.Duration)
	if p.Track.Album != "" {
		fmt.Printf("  Album: %s\n", p.Track.Album)
	}
	if p.AnnouncementFailed {
		fmt.Println("  Announcement failed")
	}
}

func formatState(state string) string {
	switch state {
	case "playing":
		return "▶️  Playing"
	case "paused":
		return "⏸  Paused"
	case "stopped":
		return "⏹  Stopped"
	default:
		return "❓ Unknown"
	}
}

func watch(ctx context.Context, client *apiconnect.ControlClient) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := client.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	fmt.Println("Watching notifications. Press Ctrl+C to exit.")

	// Handle shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nUnsubscribing...")
		cancel()
	}()

	for stream.Receive() {
		printNotification(stream.Msg())
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func printNotification(n *controlv1.Notification) {
	// Progress events arrive twice a second; keep them on one line
	if n.Type == "progress" {
		fmt.Printf("\r  %s / %s", n.Playback.Position, n.Playback.Duration)
		return
	}

	fmt.Printf("\n[Sequence: %d] === %s ===\n", n.SequenceNo, n.Type)
	printStatus(n.Playback)
	if n.Error != "" {
		fmt.Printf("  Error: %s\n", n.Error)
	}
}
