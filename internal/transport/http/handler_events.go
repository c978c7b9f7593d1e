package httptransport

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"treasure-raffle/internal/app/hunt"
	"treasure-raffle/internal/stream"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

var (
	ssePingInterval = 15 * time.Second
	sseRetry        = 3 * time.Second
)

// HuntEventsHandler streams board updates for one hunt. The connection
// holds a board watch for its lifetime so the hunt keeps being polled.
func HuntEventsHandler(hunts *hunt.Service, hub *stream.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		huntID, ok := uintParam(r, "hunt_id")
		if !ok {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_hunt_id")
			return
		}
		buf := hub.Buffer(hunt.Topic(huntID))
		ch := buf.Subscribe()
		defer buf.Unsubscribe(ch)

		release, err := hunts.Watch(huntID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		defer release()
		serveSSE(w, r, buf, ch, "board")
	}
}

// FlowEventsHandler streams transaction flow status changes.
func FlowEventsHandler(hub *stream.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buf := hub.Buffer(hunt.FlowsTopic)
		ch := buf.Subscribe()
		defer buf.Unsubscribe(ch)
		serveSSE(w, r, buf, ch, "flow")
	}
}

// serveSSE replays after Last-Event-ID, or sends the latest snapshot event
// on a fresh connection, then forwards live events until the client leaves.
func serveSSE(w http.ResponseWriter, r *http.Request, buf *stream.Buffer, ch chan stream.Event, snapshot string) {
	flusher, err := stream.Open(w, sseRetry)
	if errors.Is(err, stream.ErrStreamUnsupported) {
		WriteHTTPError(w, http.StatusInternalServerError, stream.ErrStreamUnsupported.Error())
		return
	}
	if err != nil {
		return
	}

	metricSSEConnectionsTotal.Add(1)
	metricSSEConnectionsActive.Add(1)
	defer metricSSEConnectionsActive.Add(-1)

	topic := buf.Topic()
	log.Info().
		Str("request_id", chimw.GetReqID(r.Context())).
		Str("topic", topic).
		Msg("sse stream opened")

	var replay []stream.Event
	if lastEventID := r.Header.Get("Last-Event-ID"); lastEventID != "" {
		replay = buf.ReplayAfter(lastEventID)
	} else if ev, ok := buf.Latest(snapshot); ok {
		replay = []stream.Event{ev}
	}
	var sent int64
	for _, ev := range replay {
		if err := stream.WriteSSE(w, ev); err != nil {
			return
		}
		sent = eventSeq(ev)
		logSSEEvent(r, topic, "replay", ev)
	}
	flusher.Flush()

	ticker := time.NewTicker(ssePingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Info().
				Str("request_id", chimw.GetReqID(r.Context())).
				Str("topic", topic).
				Err(r.Context().Err()).
				Msg("sse stream closed")
			return
		case ev, ok := <-ch:
			if !ok {
				log.Info().
					Str("request_id", chimw.GetReqID(r.Context())).
					Str("topic", topic).
					Msg("sse stream channel closed")
				return
			}
			// Already delivered by the replay.
			if eventSeq(ev) <= sent {
				continue
			}
			if err := stream.WriteSSE(w, ev); err != nil {
				return
			}
			logSSEEvent(r, topic, "live", ev)
			flusher.Flush()
		case <-ticker.C:
			now := time.Now().UnixMilli()
			ping := stream.Event{
				Event:    "ping",
				Topic:    topic,
				ServerTS: now,
				Data:     map[string]any{"ts": now},
			}
			if err := stream.WriteSSE(w, ping); err != nil {
				return
			}
			logSSEEvent(r, topic, "ping", ping)
			flusher.Flush()
		}
	}
}

func eventSeq(ev stream.Event) int64 {
	n, _ := strconv.ParseInt(ev.EventID, 10, 64)
	return n
}

func logSSEEvent(r *http.Request, topic, source string, ev stream.Event) {
	evt := log.Info()
	if ev.Event == "ping" {
		evt = log.Debug()
	}
	evt.
		Str("request_id", chimw.GetReqID(r.Context())).
		Str("topic", topic).
		Str("event", ev.Event).
		Str("event_id", ev.EventID).
		Str("source", source).
		Int64("server_ts", ev.ServerTS).
		Msg("sse event sent")
}
