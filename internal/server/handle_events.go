package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const ssePingInterval = 30 * time.Second

func handleEvents(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e := entryFrom(r)

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		ch := broker.Subscribe(e.ID())
		defer broker.Unsubscribe(e.ID(), ch)

		// Subscribing first means no transition between this snapshot and
		// the stream is lost; at worst one state is sent twice.
		initial, _ := json.Marshal(newStateResponse(e.Session().State()))
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", EventState, initial)
		flusher.Flush()

		ping := time.NewTicker(ssePingInterval)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-e.Done():
				for _, msg := range closing(e, ch) {
					fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type, msg.Data)
				}
				flusher.Flush()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type, msg.Data)
				flusher.Flush()
				if msg.Type == EventClosed {
					return
				}
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
