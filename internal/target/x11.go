package target

import (
	"fmt"
	"strconv"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xinerama"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/screenreel/internal/logger"
)

// Resolver looks up windows and monitors on an X11 display.
type Resolver struct {
	conn           *xgb.Conn
	root           xproto.Window
	screen         *xproto.ScreenInfo
	xineramaActive bool
}

// NewResolver connects to the X server and probes the Xinerama extension
// for multi-monitor enumeration.
func NewResolver() (*Resolver, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	r := &Resolver{
		conn:   conn,
		root:   screen.Root,
		screen: screen,
	}

	log := logger.WithComponent("target-resolver")
	if err := xinerama.Init(conn); err != nil {
		log.Warn().Err(err).Msg("Xinerama extension not available, assuming a single monitor")
	} else {
		active, err := xinerama.IsActive(conn).Reply()
		if err == nil && active.State != 0 {
			r.xineramaActive = true
		}
	}

	return r, nil
}

// Close releases the X11 connection.
func (r *Resolver) Close() {
	r.conn.Close()
}

// Conn exposes the underlying X11 connection so the capture engine can share it.
func (r *Resolver) Conn() *xgb.Conn {
	return r.conn
}

// Root returns the root window of the default screen.
func (r *Resolver) Root() xproto.Window {
	return r.root
}

// ListWindows returns all named application windows, preferring the EWMH
// client list and falling back to a QueryTree walk.
func (r *Resolver) ListWindows() ([]*Window, error) {
	ids, err := r.clientList()
	if err != nil {
		logger.WithComponent("target-resolver").Debug().
			Err(err).
			Msg("EWMH client list unavailable, falling back to QueryTree")
		tree, err := xproto.QueryTree(r.conn, r.root).Reply()
		if err != nil {
			return nil, fmt.Errorf("failed to query window tree: %w", err)
		}
		ids = tree.Children
	}

	windows := make([]*Window, 0, len(ids))
	for _, id := range ids {
		win, err := r.windowInfo(id)
		if err != nil {
			continue
		}
		if win.Title == "" {
			continue
		}
		windows = append(windows, win)
	}
	return windows, nil
}

// ResolveWindow finds the first window whose title contains the query.
func (r *Resolver) ResolveWindow(titleContains string) (*Window, error) {
	windows, err := r.ListWindows()
	if err != nil {
		return nil, err
	}
	for _, win := range windows {
		if matchesTitle(win.Title, titleContains) {
			return win, nil
		}
	}
	return nil, &NotFoundError{Kind: KindWindow, Query: titleContains}
}

// ListMonitors enumerates the connected monitors. Index 0 is treated as the
// primary. Without Xinerama the whole root screen is reported as one monitor.
func (r *Resolver) ListMonitors() ([]*Monitor, error) {
	if !r.xineramaActive {
		return []*Monitor{{
			Index:   0,
			Primary: true,
			width:   int(r.screen.WidthInPixels),
			height:  int(r.screen.HeightInPixels),
		}}, nil
	}

	reply, err := xinerama.QueryScreens(r.conn).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query Xinerama screens: %w", err)
	}

	monitors := make([]*Monitor, 0, len(reply.ScreenInfo))
	for i, s := range reply.ScreenInfo {
		monitors = append(monitors, &Monitor{
			Index:   i,
			X:       int(s.XOrg),
			Y:       int(s.YOrg),
			Primary: i == 0,
			width:   int(s.Width),
			height:  int(s.Height),
		})
	}
	return monitors, nil
}

// ResolveMonitor finds a monitor by index.
func (r *Resolver) ResolveMonitor(index int) (*Monitor, error) {
	monitors, err := r.ListMonitors()
	if err != nil {
		return nil, err
	}
	for _, m := range monitors {
		if m.Index == index {
			return m, nil
		}
	}
	return nil, &NotFoundError{Kind: KindMonitor, Query: strconv.Itoa(index)}
}

// PrimaryMonitor returns the primary monitor.
func (r *Resolver) PrimaryMonitor() (*Monitor, error) {
	monitors, err := r.ListMonitors()
	if err != nil {
		return nil, err
	}
	for _, m := range monitors {
		if m.Primary {
			return m, nil
		}
	}
	return nil, &NotFoundError{Kind: KindMonitor, Query: "primary"}
}

// clientList reads the EWMH _NET_CLIENT_LIST property from the root window.
func (r *Resolver) clientList() ([]xproto.Window, error) {
	atom, err := r.getAtom("_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}

	reply, err := xproto.GetProperty(
		r.conn, false, r.root, atom,
		xproto.GetPropertyTypeAny, 0, (1<<32)-1,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get _NET_CLIENT_LIST property: %w", err)
	}
	if reply.ValueLen == 0 {
		return nil, fmt.Errorf("_NET_CLIENT_LIST is empty")
	}

	ids := make([]xproto.Window, 0, reply.ValueLen)
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		ids = append(ids, xproto.Window(uint32(reply.Value[i])|
			uint32(reply.Value[i+1])<<8|
			uint32(reply.Value[i+2])<<16|
			uint32(reply.Value[i+3])<<24))
	}
	return ids, nil
}

// windowInfo resolves the title and current pixel dimensions of a window.
func (r *Resolver) windowInfo(id xproto.Window) (*Window, error) {
	geom, err := xproto.GetGeometry(r.conn, xproto.Drawable(id)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get window geometry: %w", err)
	}

	return &Window{
		ID:     id,
		Title:  r.windowTitle(id),
		width:  int(geom.Width),
		height: int(geom.Height),
	}, nil
}

// windowTitle reads _NET_WM_NAME (UTF-8) with a WM_NAME fallback.
func (r *Resolver) windowTitle(id xproto.Window) string {
	if atom, err := r.getAtom("_NET_WM_NAME"); err == nil {
		reply, err := xproto.GetProperty(
			r.conn, false, id, atom,
			xproto.GetPropertyTypeAny, 0, (1<<32)-1,
		).Reply()
		if err == nil && len(reply.Value) > 0 {
			return string(reply.Value)
		}
	}

	reply, err := xproto.GetProperty(
		r.conn, false, id, xproto.AtomWmName,
		xproto.GetPropertyTypeAny, 0, (1<<32)-1,
	).Reply()
	if err != nil {
		return ""
	}
	return string(reply.Value)
}

func (r *Resolver) getAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(r.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to intern atom %s: %w", name, err)
	}
	return reply.Atom, nil
}
