package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

const wsWriteTimeout = 10 * time.Second

// stampedEvent is an Event plus the monotonically increasing sequence
// number a WSHub subscriber resumes from via the "cursor" query parameter,
// the same cursor/backlog shape the teacher's POS-finality stream uses.
type stampedEvent struct {
	Event
	Seq uint64 `json:"seq"`
}

// WSHub is a Notifier that also serves a resumable websocket stream of the
// events it receives, mirroring rpc.Server's handlePOSFinalityWS/
// streamPOSFinality: a bounded backlog replayed from a client-supplied
// cursor, followed by live fan-out to a per-connection channel.
type WSHub struct {
	mu          sync.Mutex
	backlog     []stampedEvent
	backlogSize int
	nextSeq     uint64
	subscribers map[chan stampedEvent]bool
}

// NewWSHub builds a hub retaining up to backlogSize past events for
// late-joining subscribers to catch up on.
func NewWSHub(backlogSize int) *WSHub {
	if backlogSize <= 0 {
		backlogSize = 256
	}
	return &WSHub{
		backlogSize: backlogSize,
		subscribers: make(map[chan stampedEvent]bool),
	}
}

// Notify implements Notifier: it appends to the backlog and fans out to
// every live subscriber, dropping the event for any subscriber whose
// channel is full rather than blocking the caller.
func (h *WSHub) Notify(e Event) {
	h.mu.Lock()
	h.nextSeq++ // sequence numbers start at 1, so cursor 0 precedes every event
	stamped := stampedEvent{Event: e, Seq: h.nextSeq}
	h.backlog = append(h.backlog, stamped)
	if len(h.backlog) > h.backlogSize {
		h.backlog = h.backlog[len(h.backlog)-h.backlogSize:]
	}
	for ch := range h.subscribers {
		select {
		case ch <- stamped:
		default:
		}
	}
	h.mu.Unlock()
}

// subscribe registers ch for live fan-out and returns the backlog entries
// after cursor (0 meaning "from the start of what's retained").
func (h *WSHub) subscribe(ch chan stampedEvent, cursor uint64) []stampedEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[ch] = true
	var catchUp []stampedEvent
	for _, e := range h.backlog {
		if e.Seq > cursor {
			catchUp = append(catchUp, e)
		}
	}
	return catchUp
}

func (h *WSHub) unsubscribe(ch chan stampedEvent) {
	h.mu.Lock()
	delete(h.subscribers, ch)
	h.mu.Unlock()
}

// HandleWS upgrades the request to a websocket and streams events from the
// optional "cursor" query parameter onward, same route shape as
// handlePOSFinalityWS.
func (h *WSHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	cursor := parseCursor(r.URL.Query().Get("cursor"))
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	if err := h.stream(r.Context(), conn, cursor); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (h *WSHub) stream(ctx context.Context, conn *websocket.Conn, cursor uint64) error {
	ch := make(chan stampedEvent, 64)
	backlog := h.subscribe(ch, cursor)
	defer h.unsubscribe(ch)

	for _, e := range backlog {
		if err := writeEvent(ctx, conn, e); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			if e.Seq <= cursor {
				continue // already delivered via backlog replay
			}
			if err := writeEvent(ctx, conn, e); err != nil {
				return err
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, e stampedEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

func parseCursor(raw string) uint64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
