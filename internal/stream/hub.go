// Package stream fans committed engine events out to websocket subscribers.
// This is the live feed external indexers replay for charting; the durable
// copy lives in the engine_events table.
package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

type Envelope struct {
	Kind    string    `json:"kind"`
	Payload any       `json:"payload"`
	SentAt  time.Time `json:"sent_at"`
}

type Hub struct {
	Logger     *zap.Logger
	BufferSize int

	mu   sync.Mutex
	next int
	subs map[int]chan []byte
}

func (h *Hub) bufferSize() int {
	if h.BufferSize > 0 {
		return h.BufferSize
	}
	return 64
}

// Publish broadcasts one event. Slow subscribers drop messages instead of
// blocking the engine; the journal table remains the complete record.
func (h *Hub) Publish(kind string, payload any) {
	raw, err := json.Marshal(Envelope{Kind: kind, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("stream marshal failed", zap.String("kind", kind), zap.Error(err))
		}
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- raw:
		default:
			if h.Logger != nil {
				h.Logger.Debug("stream subscriber lagging, dropping event", zap.Int("subscriber", id))
			}
		}
	}
}

func (h *Hub) subscribe() (int, chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[int]chan []byte)
	}
	h.next++
	id := h.next
	ch := make(chan []byte, h.bufferSize())
	h.subs[id] = ch
	return id, ch
}

func (h *Hub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

func (h *Hub) Register(r *gin.Engine) {
	r.GET("/api/v1/stream", h.handle)
}

// @Summary Live engine event stream
// @Tags stream
// @Router /api/v1/stream [get]
func (h *Hub) handle(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("websocket accept failed", zap.Error(err))
		}
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	id, ch := h.subscribe()
	defer h.unsubscribe(id)
	if h.Logger != nil {
		h.Logger.Info("stream subscriber connected", zap.Int("subscriber", id))
	}

	ctx := c.Request.Context()

	// Reads are drained so pings and client close frames are processed.
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-ch:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := conn.Write(writeCtx, websocket.MessageText, raw)
			cancel()
			if err != nil {
				if h.Logger != nil {
					h.Logger.Info("stream subscriber disconnected", zap.Int("subscriber", id))
				}
				return
			}
		}
	}
}
