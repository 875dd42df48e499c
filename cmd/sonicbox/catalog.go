package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"

	"github.com/osa030/sonicbox/internal/app/playback"
	"github.com/osa030/sonicbox/internal/domain/album"
	"github.com/osa030/sonicbox/internal/domain/track"
	"github.com/osa030/sonicbox/internal/infra/config"
	"github.com/osa030/sonicbox/internal/infra/subsonic"
)

var errDemoMode = errors.New("catalog commands need a server; demo mode is enabled")

func liveCredentials(cfg *config.Config) (subsonic.Credentials, error) {
	if cfg.Demo.Enabled {
		return subsonic.Credentials{}, errDemoMode
	}
	return cfg.Credentials(), nil
}

func runPing(ctx context.Context, client *subsonic.Client, cfg *config.Config) error {
	creds, err := liveCredentials(cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	if !client.Ping(ctx, creds) {
		return errors.Newf("server did not answer: url=%s", creds.BaseURL())
	}
	fmt.Printf("OK: %s answered in %s\n", creds.BaseURL(), time.Since(start).Round(time.Millisecond))
	return nil
}

func runSongs(ctx context.Context, client *subsonic.Client, cfg *config.Config, count int) error {
	creds, err := liveCredentials(cfg)
	if err != nil {
		return err
	}

	songs := client.RandomSongs(ctx, creds, count)
	printTracks(songs)
	fmt.Printf("\n%s songs\n", humanize.Comma(int64(len(songs))))
	return nil
}

func runAlbums(ctx context.Context, client *subsonic.Client, cfg *config.Config, count int, mode string) error {
	creds, err := liveCredentials(cfg)
	if err != nil {
		return err
	}

	albums := client.RecentAlbums(ctx, creds, count, album.ListMode(mode))
	for _, a := range albums {
		fmt.Printf("  %-24s %s - %s (%s)\n", a.ID, a.Artist, a.Title, pluralSongs(a.SongCount))
	}
	fmt.Printf("\n%s albums\n", humanize.Comma(int64(len(albums))))
	return nil
}

func runPlaylists(ctx context.Context, client *subsonic.Client, cfg *config.Config) error {
	creds, err := liveCredentials(cfg)
	if err != nil {
		return err
	}

	playlists := client.Playlists(ctx, creds)
	for _, p := range playlists {
		fmt.Printf("  %-24s %s by %s (%s, %s)\n", p.ID, p.Name, p.Owner,
			pluralSongs(p.SongCount), playback.FormatTime(p.Duration.Seconds()))
	}
	fmt.Printf("\n%s playlists\n", humanize.Comma(int64(len(playlists))))
	return nil
}

func runAlbum(ctx context.Context, client *subsonic.Client, cfg *config.Config, id string) error {
	creds, err := liveCredentials(cfg)
	if err != nil {
		return err
	}

	a, ok := client.AlbumDetails(ctx, creds, id)
	if !ok {
		return errors.Newf("album not found: %s", id)
	}

	fmt.Printf("%s - %s", a.Artist, a.Title)
	if a.Year > 0 {
		fmt.Printf(" (%d)", a.Year)
	}
	fmt.Printf("\nCover: %s\n\n", creds.ArtworkURL(a.CoverArt, cfg.Catalog.ArtworkSize))
	printTracks(a.Tracks)
	return nil
}

func runPlaylist(ctx context.Context, client *subsonic.Client, cfg *config.Config, id string) error {
	creds, err := liveCredentials(cfg)
	if err != nil {
		return err
	}

	p, ok := client.PlaylistDetails(ctx, creds, id)
	if !ok {
		return errors.Newf("playlist not found: %s", id)
	}

	fmt.Printf("%s by %s\nCover: %s\n\n", p.Name, p.Owner, creds.ArtworkURL(p.CoverArt, cfg.Catalog.ArtworkSize))
	printTracks(p.Tracks)
	if p.IsPartial() {
		fmt.Printf("\nshowing %s of %s songs\n", humanize.Comma(int64(len(p.Tracks))), humanize.Comma(int64(p.SongCount)))
	}
	return nil
}

func printTracks(tracks []track.Track) {
	for i, t := range tracks {
		duration := "-:--"
		if t.HasDuration() {
			duration = playback.FormatTime(t.Duration.Seconds())
		}
		fmt.Printf("  %3s  %-24s %-40s %s\n", humanize.Ordinal(i+1), t.ID, t.DisplayName(), duration)
	}
}

func pluralSongs(n int) string {
	return humanize.Comma(int64(n)) + " " + humanize.PluralWord(n, "song", "")
}
