package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"contagion-lab/internal/domain"
	"contagion-lab/internal/observability"
	"contagion-lab/internal/series"
)

// Stream event types
const (
	EventProgress = "progress"
	EventResult   = "result"
	EventError    = "error"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamReadTimeout  = 30 * time.Second
)

// StreamEvent is one message of the series stream. Exactly one of
// Progress, Result and Error is set, matching Type.
type StreamEvent struct {
	Type     string               `json:"type"`
	Progress *series.Progress     `json:"progress,omitempty"`
	Result   *domain.SeriesResult `json:"result,omitempty"`
	Error    string               `json:"error,omitempty"`
	Status   int                  `json:"status,omitempty"` // HTTP-equivalent code of Error
}

// newUpgrader accepts same-origin requests, plus the listed origins.
// "*" accepts any origin.
func newUpgrader(allowed []string) *websocket.Upgrader {
	u := &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	if len(allowed) == 0 {
		return u
	}

	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(strings.TrimSuffix(o, "/"))] = true
	}
	u.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || set["*"] {
			return true
		}
		if set[strings.ToLower(origin)] {
			return true
		}
		parsed, err := url.Parse(origin)
		return err == nil && strings.EqualFold(parsed.Host, r.Host)
	}
	return u
}

// streamSession serializes writes to one websocket connection.
type streamSession struct {
	conn   *websocket.Conn
	cancel context.CancelFunc
	log    logrus.FieldLogger

	mu       sync.Mutex
	writeErr error
}

func (ss *streamSession) send(ev StreamEvent) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.writeErr != nil {
		return ss.writeErr
	}
	ss.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	if err := ss.conn.WriteJSON(ev); err != nil {
		ss.writeErr = err
		ss.cancel()
		return err
	}
	return nil
}

func (ss *streamSession) progress(p series.Progress) {
	if err := ss.send(StreamEvent{Type: EventProgress, Progress: &p}); err != nil {
		ss.log.WithError(err).Debug("stream write failed, cancelling series")
	}
}

// handleSeriesStream runs one series per connection. The client sends a
// series config as its first message; the server answers with one
// progress event per completed magnitude, then a result or error event,
// then closes the connection.
func (s *Server) handleSeriesStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	observability.StreamOpened()
	s.mu.Lock()
	s.streams++
	s.mu.Unlock()
	defer func() {
		observability.StreamClosed()
		s.mu.Lock()
		s.streams--
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ss := &streamSession{conn: conn, cancel: cancel, log: s.log}

	conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	var cfg domain.SeriesConfig
	if err := conn.ReadJSON(&cfg); err != nil {
		ss.send(StreamEvent{Type: EventError, Error: "decode series config: " + err.Error(), Status: http.StatusBadRequest})
		return
	}
	conn.SetReadDeadline(time.Time{})

	// A client that closes early cancels the sweep
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	result, err := s.runner.Run(ctx, s.seriesConfig(cfg), ss.progress)
	if err != nil {
		ss.send(StreamEvent{Type: EventError, Error: err.Error(), Status: statusFor(err)})
		s.log.WithError(err).Debug("streamed series failed")
		return
	}

	s.mu.Lock()
	s.sweeps++
	s.mu.Unlock()

	if err := ss.send(StreamEvent{Type: EventResult, Result: result}); err != nil {
		return
	}

	ss.mu.Lock()
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	ss.mu.Unlock()
}
