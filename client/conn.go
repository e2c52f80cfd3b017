package client

import (
	"context"
	"time"

	"github.com/1broseidon/starry/internal/gfx"
	"github.com/1broseidon/starry/internal/ipc"
)

// geometry is a window manager move or resize.
type geometry struct {
	x, y, w, h int
}

// transport is what a Window needs from its backing display.
type transport interface {
	update(local gfx.Rect, view gfx.ROI) error
	configure(x, y, w, h int) error
	setTitle(title string) error
	poll(timeout time.Duration) ([]Event, error)
	takeGeometry() (geometry, bool)
	done() <-chan struct{}
	err() error
	close() error
}

// remote is a window session on a starry server.
type remote struct {
	conn *ipc.WindowConn
}

func dialRemote(ctx context.Context, socketPath string, req ipc.ConnectPayload, timeout time.Duration) (*remote, *ipc.ConnectedPayload, error) {
	conn, connected, err := ipc.DialWindow(ctx, socketPath, req, ipc.DialOptions{Timeout: timeout})
	if err != nil {
		return nil, nil, err
	}
	return &remote{conn: conn}, connected, nil
}

func (r *remote) update(local gfx.Rect, view gfx.ROI) error {
	return r.conn.Update(ipc.NewUpdatePayload(local, view))
}

func (r *remote) configure(x, y, w, h int) error {
	return r.conn.Configure(ipc.ConfigurePayload{X: x, Y: y, W: w, H: h})
}

func (r *remote) setTitle(title string) error {
	return r.conn.SetTitle(title)
}

func (r *remote) poll(timeout time.Duration) ([]Event, error) {
	return r.conn.PollEvents(timeout)
}

func (r *remote) takeGeometry() (geometry, bool) {
	g, ok := r.conn.TakeGeometry()
	return geometry{x: g.X, y: g.Y, w: g.W, h: g.H}, ok
}

func (r *remote) done() <-chan struct{} { return r.conn.Closed() }
func (r *remote) err() error            { return r.conn.Err() }
func (r *remote) close() error          { return r.conn.Close() }
