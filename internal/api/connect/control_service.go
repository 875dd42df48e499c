package connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	controlv1 "github.com/osa030/sonicbox/internal/api/controlv1"
	"github.com/osa030/sonicbox/internal/app/playback"
	"github.com/osa030/sonicbox/internal/app/session"
	"github.com/osa030/sonicbox/internal/infra/subsonic"
)

// NotificationTypeInitialState is the type of the first notification sent
// to a new subscriber.
const NotificationTypeInitialState = "initial_state"

// ControlServiceHandler is the server side of the control service.
type ControlServiceHandler interface {
	Status(context.Context, *connect.Request[controlv1.Empty]) (*connect.Response[controlv1.StatusResponse], error)
	ListSongs(context.Context, *connect.Request[controlv1.Empty]) (*connect.Response[controlv1.ListSongsResponse], error)
	Play(context.Context, *connect.Request[controlv1.PlayRequest]) (*connect.Response[controlv1.PlaybackResponse], error)
	TogglePlayPause(context.Context, *connect.Request[controlv1.Empty]) (*connect.Response[controlv1.PlaybackResponse], error)
	Next(context.Context, *connect.Request[controlv1.Empty]) (*connect.Response[controlv1.PlaybackResponse], error)
	Previous(context.Context, *connect.Request[controlv1.Empty]) (*connect.Response[controlv1.PlaybackResponse], error)
	Seek(context.Context, *connect.Request[controlv1.SeekRequest]) (*connect.Response[controlv1.PlaybackResponse], error)
	Announce(context.Context, *connect.Request[controlv1.Empty]) (*connect.Response[controlv1.Empty], error)
	Cast(context.Context, *connect.Request[controlv1.Empty]) (*connect.Response[controlv1.Empty], error)
	Reload(context.Context, *connect.Request[controlv1.Empty]) (*connect.Response[controlv1.ReloadResponse], error)
	Configure(context.Context, *connect.Request[controlv1.ConfigureRequest]) (*connect.Response[controlv1.ReloadResponse], error)
	Subscribe(context.Context, *connect.Request[controlv1.Empty], *connect.ServerStream[controlv1.Notification]) error
}

// NewControlServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler.
func NewControlServiceHandler(svc ControlServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(controlv1.ProcedureStatus, connect.NewUnaryHandler(controlv1.ProcedureStatus, svc.Status, opts...))
	mux.Handle(controlv1.ProcedureListSongs, connect.NewUnaryHandler(controlv1.ProcedureListSongs, svc.ListSongs, opts...))
	mux.Handle(controlv1.ProcedurePlay, connect.NewUnaryHandler(controlv1.ProcedurePlay, svc.Play, opts...))
	mux.Handle(controlv1.ProcedureTogglePlayPause, connect.NewUnaryHandler(controlv1.ProcedureTogglePlayPause, svc.TogglePlayPause, opts...))
	mux.Handle(controlv1.ProcedureNext, connect.NewUnaryHandler(controlv1.ProcedureNext, svc.Next, opts...))
	mux.Handle(controlv1.ProcedurePrevious, connect.NewUnaryHandler(controlv1.ProcedurePrevious, svc.Previous, opts...))
	mux.Handle(controlv1.ProcedureSeek, connect.NewUnaryHandler(controlv1.ProcedureSeek, svc.Seek, opts...))
	mux.Handle(controlv1.ProcedureAnnounce, connect.NewUnaryHandler(controlv1.ProcedureAnnounce, svc.Announce, opts...))
	mux.Handle(controlv1.ProcedureCast, connect.NewUnaryHandler(controlv1.ProcedureCast, svc.Cast, opts...))
	mux.Handle(controlv1.ProcedureReload, connect.NewUnaryHandler(controlv1.ProcedureReload, svc.Reload, opts...))
	mux.Handle(controlv1.ProcedureConfigure, connect.NewUnaryHandler(controlv1.ProcedureConfigure, svc.Configure, opts...))
	mux.Handle(controlv1.ProcedureSubscribe, connect.NewServerStreamHandler(controlv1.ProcedureSubscribe, svc.Subscribe, opts...))

	return "/" + controlv1.ServiceName + "/", mux
}

// ControlService implements the ControlService RPC.
type ControlService struct {
	session *session.Manager
}

// NewControlService creates a new ControlService.
func NewControlService(session *session.Manager) *ControlService {
	return &ControlService{session: session}
}

// Ensure ControlService implements the interface.
var _ ControlServiceHandler = (*ControlService)(nil)

// Status returns the current session status.
func (s *ControlService) Status(
	ctx context.Context,
	req *connect.Request[controlv1.Empty],
) (*connect.Response[controlv1.StatusResponse], error) {
	status := s.session.GetStatus()

	return connect.NewResponse(&controlv1.StatusResponse{
		SessionID:     status.SessionID,
		Source:        status.Source,
		Playback:      status.PlaybackInfo,
		Songs:         status.Songs,
		Albums:        status.Albums,
		Playlists:     status.Playlists,
		LoadedAt:      s.session.Catalog().LoadedAt(),
		CastAvailable: status.CastAvailable,
	}), nil
}

// ListSongs returns the song sequence used for navigation.
func (s *ControlService) ListSongs(
	ctx context.Context,
	req *connect.Request[controlv1.Empty],
) (*connect.Response[controlv1.ListSongsResponse], error) {
	songs := s.session.Songs()
	resp := &controlv1.ListSongsResponse{Songs: make([]controlv1.Track, 0, len(songs))}
	for _, t := range songs {
		resp.Songs = append(resp.Songs, s.session.BuildTrack(t))
	}
	return connect.NewResponse(resp), nil
}

// Play starts a track from the song sequence.
func (s *ControlService) Play(
	ctx context.Context,
	req *connect.Request[controlv1.PlayRequest],
) (*connect.Response[controlv1.PlaybackResponse], error) {
	if req.Msg.TrackID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("track_id is required"))
	}
	return s.playbackResponse(s.session.Play(ctx, req.Msg.TrackID))
}

// TogglePlayPause toggles between playing and paused.
func (s *ControlService) TogglePlayPause(
	ctx context.Context,
	req *connect.Request[controlv1.Empty],
) (*connect.Response[controlv1.PlaybackResponse], error) {
	return s.playbackResponse(s.session.TogglePlayPause(ctx))
}

// Next plays the next track.
func (s *ControlService) Next(
	ctx context.Context,
	req *connect.Request[controlv1.Empty],
) (*connect.Response[controlv1.PlaybackResponse], error) {
	return s.playbackResponse(s.session.Next(ctx))
}

// Previous plays the previous track.
func (s *ControlService) Previous(
	ctx context.Context,
	req *connect.Request[controlv1.Empty],
) (*connect.Response[controlv1.PlaybackResponse], error) {
	return s.playbackResponse(s.session.Previous(ctx))
}

// Seek moves the playhead.
func (s *ControlService) Seek(
	ctx context.Context,
	req *connect.Request[controlv1.SeekRequest],
) (*connect.Response[controlv1.PlaybackResponse], error) {
	return s.playbackResponse(s.session.Seek(req.Msg.Percent))
}

// Announce requests an announcement for the current track. The outcome is
// delivered as a notification.
func (s *ControlService) Announce(
	ctx context.Context,
	req *connect.Request[controlv1.Empty],
) (*connect.Response[controlv1.Empty], error) {
	if err := s.session.Announce(); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&controlv1.Empty{}), nil
}

// Cast routes the current stream to the cast target.
func (s *ControlService) Cast(
	ctx context.Context,
	req *connect.Request[controlv1.Empty],
) (*connect.Response[controlv1.Empty], error) {
	if err := s.session.Cast(ctx); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&controlv1.Empty{}), nil
}

// Reload fetches the catalog again.
func (s *ControlService) Reload(
	ctx context.Context,
	req *connect.Request[controlv1.Empty],
) (*connect.Response[controlv1.ReloadResponse], error) {
	result, err := s.session.Reload(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(reloadResponse(result)), nil
}

// Configure replaces the credentials and reloads the catalog.
func (s *ControlService) Configure(
	ctx context.Context,
	req *connect.Request[controlv1.ConfigureRequest],
) (*connect.Response[controlv1.ReloadResponse], error) {
	msg := req.Msg
	if !msg.Demo && (msg.URL == "" || msg.Username == "") {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("url and username are required"))
	}

	creds := subsonic.Credentials{URL: msg.URL, Username: msg.Username, Password: msg.Password}
	if msg.Demo && msg.URL == "" {
		creds = s.session.Credentials()
	}
	if err := s.session.UpdateCredentials(ctx, creds, msg.Demo); err != nil {
		return nil, toConnectError(err)
	}

	status := s.session.GetStatus()
	return connect.NewResponse(&controlv1.ReloadResponse{
		Songs:     status.Songs,
		Albums:    status.Albums,
		Playlists: status.Playlists,
	}), nil
}

// Subscribe streams playback notifications, starting with the current state.
func (s *ControlService) Subscribe(
	ctx context.Context,
	req *connect.Request[controlv1.Empty],
	stream *connect.ServerStream[controlv1.Notification],
) error {
	notifManager := s.session.GetNotificationManager()

	subscriptionID, err := notifManager.SubscribeWithInitial(stream, func() *controlv1.Notification {
		return &controlv1.Notification{
			Type:     NotificationTypeInitialState,
			Playback: s.session.BuildPlaybackStatus(s.session.Playback()),
		}
	})
	if err != nil {
		return err
	}
	zlog.Debug().Msgf("control: subscriber attached: id=%s", subscriptionID)

	// Wait for context cancellation or session end
	select {
	case <-ctx.Done():
	case <-s.session.Done():
	}

	notifManager.Unsubscribe(subscriptionID)
	return nil
}

func (s *ControlService) playbackResponse(err error) (*connect.Response[controlv1.PlaybackResponse], error) {
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&controlv1.PlaybackResponse{
		Playback: s.session.BuildPlaybackStatus(s.session.Playback()),
	}), nil
}

func reloadResponse(r session.ReloadResult) *controlv1.ReloadResponse {
	return &controlv1.ReloadResponse{
		Songs:     r.Songs,
		Albums:    r.Albums,
		Playlists: r.Playlists,
	}
}

// toConnectError maps domain errors to connect codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, session.ErrTrackNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, playback.ErrNoTrack),
		errors.Is(err, playback.ErrNoTracks),
		errors.Is(err, session.ErrNoDemoCatalog):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, playback.ErrCastUnavailable),
		errors.Is(err, playback.ErrAnnouncerUnavailable),
		errors.Is(err, playback.ErrClosed),
		errors.Is(err, session.ErrClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, playback.ErrBackend):
		return connect.NewError(connect.CodeAborted, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
