package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/bryanchriswhite/screenreel/internal/logger"
	"github.com/bryanchriswhite/screenreel/internal/session"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Status is the recording snapshot served over HTTP and pushed to
// websocket subscribers.
type Status struct {
	State   string  `json:"state"`
	Target  string  `json:"target"`
	Output  string  `json:"output"`
	Elapsed float64 `json:"elapsed_seconds"`
	FPS     float64 `json:"fps"`
	Frames  uint64  `json:"frames"`
}

// Server exposes the recording status of a running session. It never
// touches the session directly; the recorder feeds it snapshots from the
// progress callback so the capture path stays free of server locks.
type Server struct {
	router   *mux.Router
	upgrader websocket.Upgrader

	mu     sync.Mutex
	status Status
	subs   map[chan Status]struct{}
}

// NewServer creates a status server for a recording of the given target
// and output path.
func NewServer(targetLabel, outputPath string) *Server {
	s := &Server{
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
		status: Status{
			State:  session.StateCreated.String(),
			Target: targetLabel,
			Output: outputPath,
		},
		subs: make(map[chan Status]struct{}),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/status/stream", s.handleStatusStream)
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start serves on addr until the listener fails. Run it on its own
// goroutine; recording must not depend on the server being reachable.
func (s *Server) Start(addr string) error {
	log := logger.WithComponent("api")
	log.Info().Str("addr", addr).Msg("Status server listening")
	return http.ListenAndServe(addr, s.router)
}

// ReportProgress updates the published snapshot. Called from the capture
// goroutine on every frame.
func (s *Server) ReportProgress(state session.State, p session.Progress) {
	s.mu.Lock()
	s.status.State = state.String()
	s.status.Elapsed = p.Elapsed.Seconds()
	s.status.FPS = p.FPS
	s.status.Frames = p.Frames
	status := s.status
	for ch := range s.subs {
		select {
		case ch <- status:
		default:
			// Slow subscriber, skip this update rather than stall capture.
		}
	}
	s.mu.Unlock()
}

// ReportState updates only the state field, for transitions that happen
// between frames (stopping, stopped, failed).
func (s *Server) ReportState(state session.State) {
	s.mu.Lock()
	s.status.State = state.String()
	status := s.status
	for ch := range s.subs {
		select {
		case ch <- status:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Server) subscribe() chan Status {
	ch := make(chan Status, 8)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan Status) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := s.status
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	updates := s.subscribe()
	defer s.unsubscribe(updates)

	// Send the current snapshot immediately so clients do not wait a
	// full frame interval for their first update.
	s.mu.Lock()
	current := s.status
	s.mu.Unlock()
	if err := conn.WriteJSON(current); err != nil {
		return
	}

	for status := range updates {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(status); err != nil {
			log.Debug().Err(err).Msg("WebSocket write failed, dropping subscriber")
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
