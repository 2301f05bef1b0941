package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/smokyabdulrahman/mawaqit/internal/controller"
)

// events streams the view model as server-sent events: the current snapshot
// first, then one event per change. Slow readers only see the latest model.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		failure(w, http.StatusInternalServerError, "Streaming unsupported", nil)
		return
	}

	updates := make(chan controller.ViewModel, 1)
	unsubscribe := s.src.Subscribe(func(vm controller.ViewModel) {
		select {
		case updates <- vm:
		default:
			// Replace the pending model with the newer one.
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- vm:
			default:
			}
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, s.src.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case vm := <-updates:
			if err := writeEvent(w, vm); err != nil {
				s.log.Debug().Err(err).Msg("event stream closed")
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, vm controller.ViewModel) error {
	data, err := json.Marshal(vm)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: view\ndata: %s\n\n", data)
	return err
}
