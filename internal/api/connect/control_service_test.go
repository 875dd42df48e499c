package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	controlv1 "github.com/osa030/sonicbox/internal/api/controlv1"
	"github.com/osa030/sonicbox/internal/app/catalog"
	"github.com/osa030/sonicbox/internal/app/playback"
	"github.com/osa030/sonicbox/internal/app/session"
	"github.com/osa030/sonicbox/internal/domain/track"
	"github.com/osa030/sonicbox/internal/infra/subsonic"
)

const testToken = "secret"

type fakeBackend struct {
	events chan playback.BackendEvent
}

func (b *fakeBackend) Load(context.Context, string) error   { return nil }
func (b *fakeBackend) Play() error                          { return nil }
func (b *fakeBackend) Pause() error                         { return nil }
func (b *fakeBackend) Seek(float64) error                   { return nil }
func (b *fakeBackend) Events() <-chan playback.BackendEvent { return b.events }
func (b *fakeBackend) Close() error                         { return nil }

func newTestServer(t *testing.T) (*session.Manager, *ControlClient) {
	mgr, srv := startServer(t)
	return mgr, NewControlClient(srv.Client(), srv.URL, testToken)
}

func startServer(t *testing.T) (*session.Manager, *httptest.Server) {
	t.Helper()

	demo := catalog.NewStaticSource([]track.Track{
		{ID: "t1", Title: "One", Artist: "A", Duration: 200 * time.Second},
		{ID: "t2", Title: "Two", Artist: "B"},
	}, nil, nil)

	mgr, err := session.NewManager(session.Config{
		Demo:        true,
		Credentials: subsonic.Credentials{URL: "https://music.example.com", Username: "alice"},
	}, session.Deps{
		Backend: &fakeBackend{events: make(chan playback.BackendEvent)},
		Demo:    demo,
	})
	require.NoError(t, err)
	require.NoError(t, mgr.Start(context.Background()))

	path, handler := NewControlServiceHandler(
		NewControlService(mgr),
		connect.WithInterceptors(NewTokenAuthInterceptor(testToken)),
	)
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		mgr.Close()
		srv.Close()
	})

	return mgr, srv
}

func TestControlService_Status(t *testing.T) {
	_, client := newTestServer(t)

	status, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "demo", status.Source)
	assert.Equal(t, 2, status.Songs)
	assert.Equal(t, "stopped", status.Playback.State)
	assert.NotEmpty(t, status.SessionID)
	assert.False(t, status.LoadedAt.IsZero())

	songs, err := client.ListSongs(context.Background())
	require.NoError(t, err)
	require.Len(t, songs.Songs, 2)
	assert.Equal(t, "t1", songs.Songs[0].ID)
	assert.Equal(t, "https://placehold.co/300x300?text=No+Art", songs.Songs[0].CoverArtURL)
}

func TestControlService_Transport(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	resp, err := client.Play(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "playing", resp.Playback.State)
	require.NotNil(t, resp.Playback.Track)
	assert.Equal(t, "t1", resp.Playback.Track.ID)
	assert.Equal(t, "3:20", resp.Playback.Duration)

	resp, err = client.Seek(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, "1:40", resp.Playback.Position)

	resp, err = client.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t2", resp.Playback.Track.ID)

	resp, err = client.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t1", resp.Playback.Track.ID)

	resp, err = client.Previous(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t2", resp.Playback.Track.ID)

	resp, err = client.TogglePlayPause(ctx)
	require.NoError(t, err)
	assert.Equal(t, "paused", resp.Playback.State)

	reload, err := client.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, reload.Songs)
}

func TestControlService_ErrorCodes(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		code connect.Code
	}{
		{
			name: "unknown track",
			call: func() error { _, err := client.Play(ctx, "missing"); return err },
			code: connect.CodeNotFound,
		},
		{
			name: "empty track id",
			call: func() error { _, err := client.Play(ctx, ""); return err },
			code: connect.CodeInvalidArgument,
		},
		{
			name: "announce without announcer",
			call: func() error { return client.Announce(ctx) },
			code: connect.CodeUnavailable,
		},
		{
			name: "cast without router",
			call: func() error { return client.Cast(ctx) },
			code: connect.CodeUnavailable,
		},
		{
			name: "configure without url",
			call: func() error {
				_, err := client.Configure(ctx, &controlv1.ConfigureRequest{Username: "bob"})
				return err
			},
			code: connect.CodeInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.code, connect.CodeOf(err))
		})
	}
}

func TestControlService_Configure(t *testing.T) {
	mgr, client := newTestServer(t)

	resp, err := client.Configure(context.Background(), &controlv1.ConfigureRequest{Demo: true})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Songs)
	assert.Equal(t, "https://music.example.com", mgr.Credentials().URL)
}

func TestControlService_Unauthenticated(t *testing.T) {
	_, srv := startServer(t)

	for _, token := range []string{"", "wrong"} {
		client := NewControlClient(srv.Client(), srv.URL, token)

		_, err := client.Status(context.Background())
		require.Error(t, err)
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

		stream, err := client.Subscribe(context.Background())
		if err == nil {
			assert.False(t, stream.Receive())
			err = stream.Err()
			_ = stream.Close()
		}
		require.Error(t, err)
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	}
}

func TestControlService_Subscribe(t *testing.T) {
	mgr, client := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := client.Subscribe(ctx)
	require.NoError(t, err)
	// The handler returns only once the request context ends, so cancel
	// before draining the stream.
	defer func() {
		cancel()
		_ = stream.Close()
	}()

	require.True(t, stream.Receive())
	assert.Equal(t, NotificationTypeInitialState, stream.Msg().Type)
	assert.Equal(t, "stopped", stream.Msg().Playback.State)

	require.Eventually(t, func() bool {
		return mgr.GetNotificationManager().SubscriberCount() == 1
	}, time.Second, 10*time.Millisecond)

	_, err = client.Play(context.Background(), "t2")
	require.NoError(t, err)

	require.True(t, stream.Receive())
	n := stream.Msg()
	assert.Equal(t, "track_started", n.Type)
	require.NotNil(t, n.Playback.Track)
	assert.Equal(t, "t2", n.Playback.Track.ID)
	assert.NotZero(t, n.SequenceNo)
}

func TestToConnectError(t *testing.T) {
	tests := []struct {
		err  error
		code connect.Code
	}{
		{session.ErrTrackNotFound, connect.CodeNotFound},
		{playback.ErrNoTracks, connect.CodeFailedPrecondition},
		{session.ErrNoDemoCatalog, connect.CodeFailedPrecondition},
		{playback.ErrCastUnavailable, connect.CodeUnavailable},
		{errors.Wrap(playback.ErrClosed, "closed"), connect.CodeUnavailable},
		{errors.Mark(errors.New("decoder failed"), playback.ErrBackend), connect.CodeAborted},
		{errors.New("boom"), connect.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.code, connect.CodeOf(toConnectError(tt.err)))
		})
	}
}

func TestJSONCodec(t *testing.T) {
	codec := jsonCodec{}
	assert.Equal(t, "json", codec.Name())

	var req controlv1.PlayRequest
	require.NoError(t, codec.Unmarshal(nil, &req))
	require.NoError(t, codec.Unmarshal([]byte(`{"track_id":"t9"}`), &req))
	assert.Equal(t, "t9", req.TrackID)

	assert.Error(t, codec.Unmarshal([]byte(`{`), &req))
}
