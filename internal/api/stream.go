package api

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/BTreeMap/FarmGenius/internal/app"
	"github.com/BTreeMap/FarmGenius/internal/uibus"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	streamBuffer = 128
)

// SignalState is the first frame of every stream: a full page snapshot.
const SignalState uibus.SignalType = "state"

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(s.opts.AllowedOrigins) == 0 {
				return true
			}
			return slices.Contains(s.opts.AllowedOrigins, origin)
		},
	}
}

// streamHandler pushes the page's UI signals to the browser until either
// side goes away or the page is evicted.
func (s *Server) streamHandler(c *gin.Context) {
	page := pageFrom(c)
	up := s.upgrader()
	conn, err := up.Upgrade(c.Writer, c.Request, http.Header{ClientIDHeader: []string{page.ID()}})
	if err != nil {
		slog.Warn("Server.streamHandler: upgrade failed", "client", page.ID(), "error", err)
		return
	}
	signals, cancel := page.Bus().Subscribe(streamBuffer)
	defer cancel()

	closed := make(chan struct{})
	go readPump(conn, page, closed)
	writePump(conn, page, signals, closed)
}

// readPump discards client frames, keeping the page alive, and closes done
// when the connection ends.
func readPump(conn *websocket.Conn, page *app.Page, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		page.Touch()
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("readPump: connection closed", "client", page.ID(), "error", err)
			}
			return
		}
		page.Touch()
	}
}

func writePump(conn *websocket.Conn, page *app.Page, signals <-chan uibus.Signal, closed <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	first := uibus.Signal{Type: SignalState, At: time.Now(), Payload: page.Snapshot()}
	if err := writeSignal(conn, first); err != nil {
		return
	}
	slog.Debug("writePump: streaming", "client", page.ID())

	for {
		select {
		case sig, ok := <-signals:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "page closed"))
				return
			}
			if err := writeSignal(conn, sig); err != nil {
				slog.Debug("writePump: write failed", "client", page.ID(), "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func writeSignal(conn *websocket.Conn, sig uibus.Signal) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(sig)
}
