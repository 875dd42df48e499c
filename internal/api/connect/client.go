package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	controlv1 "github.com/osa030/sonicbox/internal/api/controlv1"
)

// ControlClient is a client for the control service.
type ControlClient struct {
	status          *connect.Client[controlv1.Empty, controlv1.StatusResponse]
	listSongs       *connect.Client[controlv1.Empty, controlv1.ListSongsResponse]
	play            *connect.Client[controlv1.PlayRequest, controlv1.PlaybackResponse]
	togglePlayPause *connect.Client[controlv1.Empty, controlv1.PlaybackResponse]
	next            *connect.Client[controlv1.Empty, controlv1.PlaybackResponse]
	previous        *connect.Client[controlv1.Empty, controlv1.PlaybackResponse]
	seek            *connect.Client[controlv1.SeekRequest, controlv1.PlaybackResponse]
	announce        *connect.Client[controlv1.Empty, controlv1.Empty]
	cast            *connect.Client[controlv1.Empty, controlv1.Empty]
	reload          *connect.Client[controlv1.Empty, controlv1.ReloadResponse]
	configure       *connect.Client[controlv1.ConfigureRequest, controlv1.ReloadResponse]
	subscribe       *connect.Client[controlv1.Empty, controlv1.Notification]
}

// NewControlClient creates a client for the control service at baseURL.
// A non-empty token is sent with every request.
func NewControlClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *ControlClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	if token != "" {
		opts = append(opts, connect.WithInterceptors(NewTokenClientInterceptor(token)))
	}

	return &ControlClient{
		status:          connect.NewClient[controlv1.Empty, controlv1.StatusResponse](httpClient, baseURL+controlv1.ProcedureStatus, opts...),
		listSongs:       connect.NewClient[controlv1.Empty, controlv1.ListSongsResponse](httpClient, baseURL+controlv1.ProcedureListSongs, opts...),
		play:            connect.NewClient[controlv1.PlayRequest, controlv1.PlaybackResponse](httpClient, baseURL+controlv1.ProcedurePlay, opts...),
		togglePlayPause: connect.NewClient[controlv1.Empty, controlv1.PlaybackResponse](httpClient, baseURL+controlv1.ProcedureTogglePlayPause, opts...),
		next:            connect.NewClient[controlv1.Empty, controlv1.PlaybackResponse](httpClient, baseURL+controlv1.ProcedureNext, opts...),
		previous:        connect.NewClient[controlv1.Empty, controlv1.PlaybackResponse](httpClient, baseURL+controlv1.ProcedurePrevious, opts...),
		seek:            connect.NewClient[controlv1.SeekRequest, controlv1.PlaybackResponse](httpClient, baseURL+controlv1.ProcedureSeek, opts...),
		announce:        connect.NewClient[controlv1.Empty, controlv1.Empty](httpClient, baseURL+controlv1.ProcedureAnnounce, opts...),
		cast:            connect.NewClient[controlv1.Empty, controlv1.Empty](httpClient, baseURL+controlv1.ProcedureCast, opts...),
		reload:          connect.NewClient[controlv1.Empty, controlv1.ReloadResponse](httpClient, baseURL+controlv1.ProcedureReload, opts...),
		configure:       connect.NewClient[controlv1.ConfigureRequest, controlv1.ReloadResponse](httpClient, baseURL+controlv1.ProcedureConfigure, opts...),
		subscribe:       connect.NewClient[controlv1.Empty, controlv1.Notification](httpClient, baseURL+controlv1.ProcedureSubscribe, opts...),
	}
}

// Status calls ControlService.Status.
func (c *ControlClient) Status(ctx context.Context) (*controlv1.StatusResponse, error) {
	return unary(ctx, c.status, &controlv1.Empty{})
}

// ListSongs calls ControlService.ListSongs.
func (c *ControlClient) ListSongs(ctx context.Context) (*controlv1.ListSongsResponse, error) {
	return unary(ctx, c.listSongs, &controlv1.Empty{})
}

// Play calls ControlService.Play.
func (c *ControlClient) Play(ctx context.Context, trackID string) (*controlv1.PlaybackResponse, error) {
	return unary(ctx, c.play, &controlv1.PlayRequest{TrackID: trackID})
}

// TogglePlayPause calls ControlService.TogglePlayPause.
func (c *ControlClient) TogglePlayPause(ctx context.Context) (*controlv1.PlaybackResponse, error) {
	return unary(ctx, c.togglePlayPause, &controlv1.Empty{})
}

// Next calls ControlService.Next.
func (c *ControlClient) Next(ctx context.Context) (*controlv1.PlaybackResponse, error) {
	return unary(ctx, c.next, &controlv1.Empty{})
}

// Previous calls ControlService.Previous.
func (c *ControlClient) Previous(ctx context.Context) (*controlv1.PlaybackResponse, error) {
	return unary(ctx, c.previous, &controlv1.Empty{})
}

// Seek calls ControlService.Seek.
func (c *ControlClient) Seek(ctx context.Context, percent float64) (*controlv1.PlaybackResponse, error) {
	return unary(ctx, c.seek, &controlv1.SeekRequest{Percent: percent})
}

// Announce calls ControlService.Announce.
func (c *ControlClient) Announce(ctx context.Context) error {
	_, err := unary(ctx, c.announce, &controlv1.Empty{})
	return err
}

// Cast calls ControlService.Cast.
func (c *ControlClient) Cast(ctx context.Context) error {
	_, err := unary(ctx, c.cast, &controlv1.Empty{})
	return err
}

// Reload calls ControlService.Reload.
func (c *ControlClient) Reload(ctx context.Context) (*controlv1.ReloadResponse, error) {
	return unary(ctx, c.reload, &controlv1.Empty{})
}

// Configure calls ControlService.Configure.
func (c *ControlClient) Configure(ctx context.Context, req *controlv1.ConfigureRequest) (*controlv1.ReloadResponse, error) {
	return unary(ctx, c.configure, req)
}

// Subscribe opens the notification stream.
func (c *ControlClient) Subscribe(ctx context.Context) (*connect.ServerStreamForClient[controlv1.Notification], error) {
	return c.subscribe.CallServerStream(ctx, connect.NewRequest(&controlv1.Empty{}))
}

func unary[Req, Res any](ctx context.Context, client *connect.Client[Req, Res], msg *Req) (*Res, error) {
	resp, err := client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
