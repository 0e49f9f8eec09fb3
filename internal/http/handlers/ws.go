package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"transferbook/internal/domain"
	"transferbook/internal/domain/models"
	"transferbook/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 8192
	sendBuffer     = 64
)

// NewUpgrader returns a websocket upgrader that accepts the given origins.
func NewUpgrader(origins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     CheckOrigin(origins),
	}
}

// Envelope is the message shape in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Field   string          `json:"field,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type selectPayload struct {
	Result   models.SearchResult `json:"result"`
	Position *models.Position    `json:"position"`
	Reason   string              `json:"reason"`
}

type wsClient struct {
	sess *services.Session
	conn *websocket.Conn
	send chan []byte
	log  *zap.Logger

	once sync.Once
	done chan struct{}
}

// GET /api/sessions/:id/ws streams state and suggestion changes and accepts
// search, clear and select messages for the session's address fields.
func (h SessionHandler) Stream(c *gin.Context) {
	sess := session(c)
	up := h.Upgrader
	if up == nil {
		up = NewUpgrader(nil)
	}
	conn, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log().Warn("ws upgrade failed", zap.String("session_id", sess.ID), zap.Error(err))
		return
	}

	cl := &wsClient{
		sess: sess,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		log:  h.log().With(zap.String("session_id", sess.ID)),
		done: make(chan struct{}),
	}
	stop := sess.Watch(func(ev services.Event) { cl.push(ev) })
	cl.push(services.Event{Type: services.EventState, Payload: sess.Wizard.Snapshot()})

	go cl.writePump()
	cl.readPump()
	stop()
	cl.close()
}

func (cl *wsClient) close() {
	cl.once.Do(func() { close(cl.done) })
}

// push never blocks the wizard; a client that cannot keep up is dropped.
func (cl *wsClient) push(ev services.Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		cl.log.Error("ws encode failed", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	select {
	case <-cl.done:
	case cl.send <- msg:
	default:
		cl.log.Warn("ws send buffer full, closing")
		cl.close()
	}
}

func (cl *wsClient) fail(field string, err error) {
	code := "error"
	var geo domain.GeolocationError
	if errors.As(err, &geo) {
		code = "geolocation_" + string(geo.Reason)
	}
	cl.push(services.Event{Type: "error", Field: field, Payload: gin.H{"code": code, "message": domain.UserMessage(err)}})
}

func (cl *wsClient) readPump() {
	defer cl.conn.Close()
	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := cl.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				cl.log.Info("ws read ended", zap.Error(err))
			}
			return
		}
		select {
		case <-cl.done:
			return
		default:
		}
		cl.handle(env)
	}
}

func (cl *wsClient) handle(env Envelope) {
	switch env.Type {
	case "search":
		var p queryRequest
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			cl.fail(env.Field, domain.ValidationError{Field: "payload", Msg: "invalid search payload"})
			return
		}
		if err := cl.sess.Query(env.Field, p.Query); err != nil {
			cl.fail(env.Field, err)
		}
	case "clear":
		if err := cl.sess.ClearSuggestions(env.Field); err != nil {
			cl.fail(env.Field, err)
		}
	case "select":
		var p selectPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			cl.fail(env.Field, domain.ValidationError{Field: "payload", Msg: "invalid select payload"})
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := cl.sess.SelectSuggestion(ctx, env.Field, p.Result, p.Position, p.Reason); err != nil {
			cl.fail(env.Field, err)
		}
	case "state":
		cl.push(services.Event{Type: services.EventState, Payload: cl.sess.Wizard.Snapshot()})
	default:
		cl.fail(env.Field, domain.ValidationError{Field: "type", Msg: "unknown message type " + env.Type})
	}
}

func (cl *wsClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case <-cl.done:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				cl.close()
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cl.close()
				return
			}
		}
	}
}

// CheckOrigin builds the upgrader origin check from the CORS list.
func CheckOrigin(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}
