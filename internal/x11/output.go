package x11

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/starry/internal/gfx"
	"github.com/1broseidon/starry/internal/platform"
)

// putImageHeader is the fixed part of a PutImage request.
const putImageHeader = 24

// OutputOptions describes the nested output window.
type OutputOptions struct {
	Display string
	Width   int
	Height  int
	Title   string
}

// Output is a platform.Device backed by a fixed-size X11 window. Writes
// land in a BGRA shadow buffer; Present pushes dirty rects to the server
// and Expose repaints from the shadow.
type Output struct {
	conn  *Connection
	win   *xwindow.Window
	gc    xproto.Gcontext
	depth byte
	info  platform.Info

	maxRequest int

	mu     sync.Mutex
	shadow []byte
	closed bool
}

// OpenOutput connects to the X server and maps the output window.
func OpenOutput(opts OutputOptions) (*Output, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("x11 output needs a positive size, got %dx%d", opts.Width, opts.Height)
	}

	conn, err := NewConnection(opts.Display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	out, err := newOutput(conn, opts)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return out, nil
}

func newOutput(conn *Connection, opts OutputOptions) (*Output, error) {
	xu := conn.XUtil

	win, err := xwindow.Generate(xu)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate window id: %w", err)
	}
	mask := xproto.EventMaskExposure |
		xproto.EventMaskKeyPress | xproto.EventMaskKeyRelease |
		xproto.EventMaskButtonPress | xproto.EventMaskButtonRelease |
		xproto.EventMaskPointerMotion | xproto.EventMaskStructureNotify
	win.Create(conn.Root, 0, 0, opts.Width, opts.Height,
		xproto.CwBackPixel|xproto.CwEventMask, 0, uint32(mask))

	gc, err := xproto.NewGcontextId(xu.Conn())
	if err != nil {
		return nil, fmt.Errorf("failed to allocate graphics context: %w", err)
	}
	if err := xproto.CreateGCChecked(xu.Conn(), gc, xproto.Drawable(win.Id), 0, nil).Check(); err != nil {
		return nil, fmt.Errorf("failed to create graphics context: %w", err)
	}

	title := opts.Title
	if title == "" {
		title = "starry"
	}
	if err := ewmh.WmNameSet(xu, win.Id, title); err != nil {
		icccm.WmNameSet(xu, win.Id, title)
	}
	icccm.WmNormalHintsSet(xu, win.Id, &icccm.NormalHints{
		Flags:     icccm.SizeHintPMinSize | icccm.SizeHintPMaxSize,
		MinWidth:  uint(opts.Width),
		MinHeight: uint(opts.Height),
		MaxWidth:  uint(opts.Width),
		MaxHeight: uint(opts.Height),
	})
	icccm.WmProtocolsSet(xu, win.Id, []string{"WM_DELETE_WINDOW"})
	win.Map()

	stride := opts.Width * gfx.BytesPerPixel
	return &Output{
		conn:  conn,
		win:   win,
		gc:    gc,
		depth: conn.RootDepth(),
		info: platform.Info{
			Name:          fmt.Sprintf("x11:%d", xu.Conn().DisplayNumber),
			Width:         opts.Width,
			Height:        opts.Height,
			Stride:        stride,
			BytesPerPixel: gfx.BytesPerPixel,
			Order:         platform.OrderBGRA,
		},
		maxRequest: conn.MaxRequestBytes(),
		shadow:     make([]byte, stride*opts.Height),
	}, nil
}

func (o *Output) Info() platform.Info {
	return o.info
}

// XUtil exposes the connection for hotkey registration.
func (o *Output) XUtil() *xgbutil.XUtil {
	return o.conn.XUtil
}

// Window is the output window id.
func (o *Output) Window() xproto.Window {
	return o.win.Id
}

// WriteAt copies into the shadow buffer.
func (o *Output) WriteAt(p []byte, off int64) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return 0, fmt.Errorf("x11 output is closed")
	}
	if off < 0 || off+int64(len(p)) > int64(len(o.shadow)) {
		return 0, fmt.Errorf("write of %d bytes at offset %d outside output (%d bytes)", len(p), off, len(o.shadow))
	}
	return copy(o.shadow[off:], p), nil
}

// Present pushes rects of the shadow buffer to the window.
func (o *Output) Present(rects []gfx.Rect) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	for _, r := range rects {
		if err := o.putRect(r); err != nil {
			return err
		}
	}
	return nil
}

// putRect sends r in bands of rows that each fit one request.
func (o *Output) putRect(r gfx.Rect) error {
	r = r.Intersection(gfx.NewRect(0, 0, o.info.Width, o.info.Height))
	if r.Empty() {
		return nil
	}
	rows := bandRows(r.W, o.maxRequest)
	if rows <= 0 {
		return fmt.Errorf("row of %d pixels exceeds the X request limit of %d bytes", r.W, o.maxRequest)
	}

	for y := r.Y; y < r.Bottom(); y += rows {
		band := gfx.NewRect(r.X, y, r.W, min(rows, r.Bottom()-y))
		data := packRect(o.shadow, o.info.Stride, band)
		xproto.PutImage(o.conn.XUtil.Conn(), xproto.ImageFormatZPixmap, xproto.Drawable(o.win.Id), o.gc,
			uint16(band.W), uint16(band.H), int16(band.X), int16(band.Y), 0, o.depth, data)
	}
	return nil
}

// bandRows is how many rows of width w fit in one PutImage request.
func bandRows(w, maxRequest int) int {
	if w <= 0 {
		return 0
	}
	return (maxRequest - putImageHeader) / (w * gfx.BytesPerPixel)
}

// packRect copies r out of a strided buffer into a tight one.
func packRect(buf []byte, stride int, r gfx.Rect) []byte {
	rowBytes := r.W * gfx.BytesPerPixel
	out := make([]byte, rowBytes*r.H)
	for row := 0; row < r.H; row++ {
		off := (r.Y+row)*stride + r.X*gfx.BytesPerPixel
		copy(out[row*rowBytes:(row+1)*rowBytes], buf[off:off+rowBytes])
	}
	return out
}

// Expose re-presents a rect from the shadow buffer.
func (o *Output) Expose(r gfx.Rect) {
	o.Present([]gfx.Rect{r})
}

// Close destroys the window and disconnects.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	xproto.FreeGC(o.conn.XUtil.Conn(), o.gc)
	o.win.Destroy()
	o.conn.Close()
	return nil
}
