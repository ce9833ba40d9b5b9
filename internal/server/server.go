// Package server drives a session from a periodic scheduler and bridges it
// to WebSocket UI clients. All session access is serialized here.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rustyeddy/tradesim/ledger"
	"github.com/rustyeddy/tradesim/session"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	writeWait    = 10 * time.Second
	maxMessage   = 4096
	clientBuffer = 32
)

// Result answers a single Command.
type Result struct {
	Type   string                    `json:"type"`
	Op     string                    `json:"op"`
	OK     bool                      `json:"ok"`
	Error  string                    `json:"error,omitempty"`
	Record *ledger.TransactionRecord `json:"record,omitempty"`
}

// SnapshotMessage is broadcast after every tick and every accepted command.
type SnapshotMessage struct {
	Type string `json:"type"`
	session.Snapshot
	Change decimal.NullDecimal `json:"change"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

type Server struct {
	mu       sync.Mutex
	sess     *session.Session
	change   decimal.NullDecimal
	interval time.Duration
	log      *zap.Logger
	upgrader websocket.Upgrader

	cmu     sync.Mutex
	clients map[*client]struct{}
}

func New(sess *session.Session, interval time.Duration, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		sess:     sess,
		interval: interval,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Apply runs cmd against the session.
func (s *Server) Apply(cmd Command) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := Result{Type: "result", Op: cmd.Op}

	var (
		rec ledger.TransactionRecord
		err error
	)
	switch cmd.Op {
	case "buy":
		rec, err = s.sess.Buy(cmd.Amount)
	case "short":
		rec, err = s.sess.Short(cmd.Amount)
	case "exit":
		rec, err = s.sess.Exit()
	case "fund":
		rec, err = s.sess.AddFunds(cmd.Amount)
	case "reset":
		s.sess.Reset()
		res.OK = true
		return res
	default:
		res.Error = "unknown_op"
		return res
	}

	if err != nil {
		res.Error = ledger.Kind(err)
		return res
	}
	res.OK = true
	res.Record = &rec
	return res
}

// Tick advances the market by one candle and broadcasts the new snapshot.
func (s *Server) Tick() {
	s.mu.Lock()
	s.sess.Tick()
	if change, ok := s.sess.PriceChange(); ok {
		s.change = decimal.NewNullDecimal(change)
	}
	msg := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(msg)
}

// Run ticks every interval until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Tick()
		}
	}
}

// Snapshot returns the current view.
func (s *Server) Snapshot() SnapshotMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotMessageLocked()
}

func (s *Server) snapshotMessageLocked() SnapshotMessage {
	return SnapshotMessage{Type: "snapshot", Snapshot: s.sess.Snapshot(), Change: s.change}
}

func (s *Server) snapshotLocked() []byte {
	b, err := json.Marshal(s.snapshotMessageLocked())
	if err != nil {
		s.log.Error("marshal snapshot", zap.Error(err))
		return nil
	}
	return b
}

func (s *Server) snapshotBytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/snapshot", s.handleSnapshot)
	return mux
}

// ListenAndServe serves the UI bridge and runs the scheduler until ctx is
// done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	go func() {
		_ = s.Run(ctx)
	}()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
		s.closeClients()
	}()

	s.log.Info("listening", zap.String("addr", addr), zap.Duration("interval", s.interval))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return nil
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Snapshot()); err != nil {
		s.log.Warn("write snapshot", zap.Error(err))
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxMessage)

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	s.addClient(c)
	go s.writeLoop(c)

	s.deliver(c, s.snapshotBytes())
	s.readLoop(c)
	s.removeClient(c)
}

func (s *Server) readLoop(c *client) {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("websocket read", zap.Error(err))
			}
			return
		}

		var res Result
		cmd, err := ParseCommand(msg)
		if err != nil {
			res = Result{Type: "result", Error: "bad_command"}
		} else {
			res = s.Apply(cmd)
		}

		b, err := json.Marshal(res)
		if err != nil {
			s.log.Error("marshal result", zap.Error(err))
			continue
		}
		s.deliver(c, b)
		if res.OK {
			s.broadcast(s.snapshotBytes())
		}
	}
}

func (s *Server) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.log.Debug("websocket write", zap.Error(err))
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (s *Server) addClient(c *client) {
	s.cmu.Lock()
	defer s.cmu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Server) removeClient(c *client) {
	s.cmu.Lock()
	defer s.cmu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// deliver queues msg for c. A client whose buffer is full misses the
// message rather than stalling the scheduler.
func (s *Server) deliver(c *client, msg []byte) {
	if msg == nil {
		return
	}
	s.cmu.Lock()
	defer s.cmu.Unlock()
	if _, ok := s.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		s.log.Debug("client buffer full, dropping message")
	}
}

func (s *Server) broadcast(msg []byte) {
	if msg == nil {
		return
	}
	s.cmu.Lock()
	defer s.cmu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (s *Server) closeClients() {
	s.cmu.Lock()
	defer s.cmu.Unlock()
	for c := range s.clients {
		_ = c.conn.Close()
	}
}

// Clients reports the number of connected UI clients.
func (s *Server) Clients() int {
	s.cmu.Lock()
	defer s.cmu.Unlock()
	return len(s.clients)
}
