package capture

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/screenreel/internal/logger"
	"github.com/bryanchriswhite/screenreel/internal/target"
	xdraw "golang.org/x/image/draw"
)

// X11Engine delivers frames from an X11 window or monitor by polling
// xproto.GetImage at the configured frame rate on its own goroutine.
type X11Engine struct {
	conn   *xgb.Conn
	root   xproto.Window
	screen *xproto.ScreenInfo

	cursorAvailable bool
}

// NewX11Engine wraps an existing X11 connection, typically shared with the
// target resolver. The XFixes extension is probed for cursor capture.
func NewX11Engine(conn *xgb.Conn) (*X11Engine, error) {
	if conn == nil {
		return nil, fmt.Errorf("nil X11 connection")
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	e := &X11Engine{
		conn:   conn,
		root:   screen.Root,
		screen: screen,
	}

	log := logger.WithComponent("x11-engine")
	if err := xfixes.Init(conn); err != nil {
		log.Warn().Err(err).Msg("XFixes extension not available, cursor capture disabled")
	} else if _, err := xfixes.QueryVersion(conn, 4, 0).Reply(); err != nil {
		log.Warn().Err(err).Msg("XFixes version query failed, cursor capture disabled")
	} else {
		e.cursorAvailable = true
	}

	return e, nil
}

// x11Handle is the per-capture control. Stop may be called from the frame
// callback or from any other goroutine.
type x11Handle struct {
	stopped  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func (h *x11Handle) Stop() {
	h.stopped.Store(true)
	h.stopOnce.Do(func() { close(h.stopCh) })
}

func (h *x11Handle) Done() <-chan struct{} {
	return h.done
}

// Begin starts frame delivery. Callbacks run on the delivery goroutine,
// strictly sequentially, until Stop is called, the callback errors, or the
// target disappears.
func (e *X11Engine) Begin(tgt target.Target, opts Options, cb Callbacks) (Handle, error) {
	if opts.FrameRate <= 0 {
		return nil, fmt.Errorf("invalid frame rate %d", opts.FrameRate)
	}
	if cb.OnFrameArrived == nil {
		return nil, fmt.Errorf("frame-arrival callback is not set")
	}

	h := &x11Handle{
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go e.deliver(tgt, opts, cb, h)
	return h, nil
}

func (e *X11Engine) deliver(tgt target.Target, opts Options, cb Callbacks, h *x11Handle) {
	defer close(h.done)

	log := logger.WithComponent("x11-engine")
	log.Debug().
		Str("target", tgt.Label()).
		Int("frame_rate", opts.FrameRate).
		Msg("Frame delivery started")

	ticker := time.NewTicker(time.Second / time.Duration(opts.FrameRate))
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			log.Debug().Msg("Frame delivery stopped")
			return
		case <-ticker.C:
		}
		if h.stopped.Load() {
			return
		}

		frame, err := e.grab(tgt, opts)
		if err != nil {
			// A failed grab means the target went away under us (window
			// destroyed, monitor layout changed).
			log.Info().Err(err).Str("target", tgt.Label()).Msg("Capture target unavailable")
			if cb.OnClosed != nil {
				cb.OnClosed()
			}
			return
		}

		if err := cb.OnFrameArrived(frame, h); err != nil {
			log.Debug().Err(err).Msg("Frame callback ended delivery")
			return
		}
	}
}

// grab captures one frame of the target at its session dimensions.
func (e *X11Engine) grab(tgt target.Target, opts Options) (*image.RGBA, error) {
	switch t := tgt.(type) {
	case *target.Monitor:
		return e.grabMonitor(t, opts)
	case *target.Window:
		return e.grabWindow(t, opts)
	default:
		return nil, fmt.Errorf("unsupported target kind %s", tgt.Kind())
	}
}

func (e *X11Engine) grabMonitor(m *target.Monitor, opts Options) (*image.RGBA, error) {
	reply, err := xproto.GetImage(
		e.conn,
		xproto.ImageFormatZPixmap,
		xproto.Drawable(e.root),
		int16(m.X), int16(m.Y),
		uint16(m.Width()), uint16(m.Height()),
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get monitor image: %w", err)
	}

	frame := bgraToRGBA(reply.Data, m.Width(), m.Height())
	if opts.CaptureCursor && e.cursorAvailable {
		e.compositeCursor(frame, m.X, m.Y)
	}
	if opts.DrawBorder {
		drawBorder(frame)
	}
	return frame, nil
}

func (e *X11Engine) grabWindow(w *target.Window, opts Options) (*image.RGBA, error) {
	attrs, err := xproto.GetWindowAttributes(e.conn, w.ID).Reply()
	if err != nil {
		return nil, fmt.Errorf("window gone: %w", err)
	}
	if attrs.MapState != xproto.MapStateViewable {
		return nil, fmt.Errorf("window is no longer viewable")
	}

	geom, err := xproto.GetGeometry(e.conn, xproto.Drawable(w.ID)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get window geometry: %w", err)
	}

	reply, err := xproto.GetImage(
		e.conn,
		xproto.ImageFormatZPixmap,
		xproto.Drawable(w.ID),
		0, 0,
		geom.Width, geom.Height,
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get window image: %w", err)
	}

	frame := bgraToRGBA(reply.Data, int(geom.Width), int(geom.Height))

	if opts.CaptureCursor && e.cursorAvailable {
		// Cursor coordinates are in root space; shift them into the window.
		if tr, err := xproto.TranslateCoordinates(e.conn, e.root, w.ID, 0, 0).Reply(); err == nil {
			e.compositeCursor(frame, -int(tr.DstX), -int(tr.DstY))
		}
	}
	if opts.DrawBorder {
		drawBorder(frame)
	}

	// The window may have been resized since resolution; the encoder was
	// opened with the original dimensions, so scale drifted frames back.
	if frame.Bounds().Dx() != w.Width() || frame.Bounds().Dy() != w.Height() {
		scaled := image.NewRGBA(image.Rect(0, 0, w.Width(), w.Height()))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), frame, frame.Bounds(), xdraw.Src, nil)
		frame = scaled
	}
	return frame, nil
}

// bgraToRGBA converts X11 ZPixmap data (BGRA on little-endian depth 24/32
// visuals) into an RGBA image.
func bgraToRGBA(data []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	n := width * height * 4
	if n > len(data) {
		n = len(data)
	}
	for i := 0; i+3 < n; i += 4 {
		img.Pix[i] = data[i+2]
		img.Pix[i+1] = data[i+1]
		img.Pix[i+2] = data[i]
		img.Pix[i+3] = 255
	}
	return img
}

// borderThickness and borderColor match the capture highlight drawn by the
// compositor APIs this tool imitates.
const borderThickness = 3

var borderColor = [4]uint8{255, 193, 7, 255}

// drawBorder paints a highlight frame along the image edges, in place.
func drawBorder(img *image.RGBA) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	t := borderThickness
	if t*2 > w || t*2 > h {
		return
	}

	setPx := func(x, y int) {
		off := y*img.Stride + x*4
		img.Pix[off] = borderColor[0]
		img.Pix[off+1] = borderColor[1]
		img.Pix[off+2] = borderColor[2]
		img.Pix[off+3] = borderColor[3]
	}

	for y := 0; y < h; y++ {
		if y < t || y >= h-t {
			for x := 0; x < w; x++ {
				setPx(x, y)
			}
			continue
		}
		for x := 0; x < t; x++ {
			setPx(x, y)
			setPx(w-1-x, y)
		}
	}
}
