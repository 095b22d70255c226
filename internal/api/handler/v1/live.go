package v1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eventpass/eventpass-api/internal/api/handler/v1/response"
	"github.com/eventpass/eventpass-api/internal/domain"
	"github.com/eventpass/eventpass-api/internal/metrics"
	"github.com/eventpass/eventpass-api/internal/service"
)

const (
	liveWriteWait      = 10 * time.Second
	livePongWait       = 60 * time.Second
	livePingPeriod     = livePongWait * 9 / 10
	liveSendBuffer     = 16
	liveBroadcastQueue = 256
)

type EventFinder interface {
	GetBySlug(ctx context.Context, slug string) (domain.Event, error)
}

type liveClient struct {
	conn    *websocket.Conn
	eventID uuid.UUID
	send    chan []byte
}

// LiveHub pushes ticket availability to websocket subscribers of an event.
// Run owns the subscriber map; everything else talks to it via channels.
type LiveHub struct {
	events   EventFinder
	upgrader websocket.Upgrader

	subscribers map[uuid.UUID]map[*liveClient]struct{}
	register    chan *liveClient
	unregister  chan *liveClient
	broadcast   chan domain.Availability
	done        chan struct{}
}

func NewLiveHub(events EventFinder, allowedOrigins []string) *LiveHub {
	return &LiveHub{
		events: events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		subscribers: make(map[uuid.UUID]map[*liveClient]struct{}),
		register:    make(chan *liveClient),
		unregister:  make(chan *liveClient),
		broadcast:   make(chan domain.Availability, liveBroadcastQueue),
		done:        make(chan struct{}),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Run serves the hub until ctx is cancelled, then disconnects every subscriber.
func (h *LiveHub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.subscribers {
				for c := range clients {
					h.drop(c)
				}
			}
			return
		case c := <-h.register:
			if h.subscribers[c.eventID] == nil {
				h.subscribers[c.eventID] = make(map[*liveClient]struct{})
			}
			h.subscribers[c.eventID][c] = struct{}{}
			metrics.LiveSubscriberJoined()
		case c := <-h.unregister:
			if _, ok := h.subscribers[c.eventID][c]; ok {
				h.drop(c)
			}
		case a := <-h.broadcast:
			msg, err := json.Marshal(a)
			if err != nil {
				zap.L().Error("failed to encode availability", zap.Error(err))
				continue
			}
			for c := range h.subscribers[a.EventID] {
				select {
				case c.send <- msg:
				default:
					// Slow consumer.
					h.drop(c)
				}
			}
		}
	}
}

func (h *LiveHub) drop(c *liveClient) {
	clients := h.subscribers[c.eventID]
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.subscribers, c.eventID)
	}
	close(c.send)
	metrics.LiveSubscriberLeft()
}

// Notify queues an availability update without blocking. Updates are
// dropped when the hub is saturated; clients catch up on the next one.
func (h *LiveHub) Notify(a domain.Availability) {
	select {
	case h.broadcast <- a:
	default:
		zap.L().Warn("live feed saturated, dropping availability update",
			zap.String("ticket_type_id", a.TicketTypeID.String()))
	}
}

// HandleLiveFeed godoc
// @Summary      Live ticket availability of an event
// @Description  Upgrades to a websocket that receives an availability message after every reservation on the event.
// @Tags         events
// @Param        slug  path  string  true  "event slug"
// @Success      101   {object}  domain.Availability
// @Failure      404   {object}  response.Err
// @Failure      500   {object}  response.Err
// @Router       /events/{slug}/live [get]
func (h *LiveHub) HandleLiveFeed(ctx *gin.Context) {
	slug := ctx.Param("slug")

	event, err := h.events.GetBySlug(ctx.Request.Context(), slug)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("event", "slug", slug))
			return
		}

		err = fmt.Errorf("v1.HandleLiveFeed -> h.events.GetBySlug -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		// The upgrader has already written the error response.
		zap.L().Warn("websocket upgrade failed", zap.String("slug", slug), zap.Error(err))
		return
	}

	c := &liveClient{
		conn:    conn,
		eventID: event.ID,
		send:    make(chan []byte, liveSendBuffer),
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(h)
}

func (c *liveClient) writePump() {
	ticker := time.NewTicker(livePingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only watches for the connection going away; the feed is one way.
func (c *liveClient) readPump(h *LiveHub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(livePongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("live feed connection closed", zap.Error(err))
			}
			return
		}
	}
}
