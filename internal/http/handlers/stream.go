package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"service-delivery/internal/domain"
	"service-delivery/internal/logx"
	"service-delivery/internal/realtime"
)

// SubscriberHeader carries the caller-chosen subscriber id. Authentication
// happens in front of the service.
const SubscriberHeader = "X-Subscriber-ID"

const defaultHeartbeat = 15 * time.Second

// StreamHandler serves delivery events as Server-Sent Events.
type StreamHandler struct {
	usecase   streamUsecase
	logger    logx.Logger
	heartbeat time.Duration
}

// NewStreamHandler creates a StreamHandler. A non-positive heartbeat uses 15s.
func NewStreamHandler(logger logx.Logger, uc streamUsecase, heartbeat time.Duration) *StreamHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &StreamHandler{usecase: uc, logger: logger, heartbeat: heartbeat}
}

// Events handles GET /deliveries/{id}/events.
//
// Connection signals go out as "event: connection", domain events as
// "event: <kind>" with the topic sequence number as the SSE id. The stream ends
// when the hub disconnects the subscriber or the client goes away.
func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r)
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error(), "invalid")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(h.logger, w, r, http.StatusInternalServerError, "streaming unsupported", "internal")
		return
	}

	subID := strings.TrimSpace(r.Header.Get(SubscriberHeader))
	if subID == "" {
		subID = uuid.NewString()
	}

	sub, err := h.usecase.Subscribe(r.Context(), id, subID)
	switch {
	case errors.Is(err, realtime.ErrSubscriberExists):
		writeError(h.logger, w, r, http.StatusConflict, err.Error(), "subscriber_exists")
		return
	case errors.Is(err, realtime.ErrHubClosed):
		writeError(h.logger, w, r, http.StatusServiceUnavailable, err.Error(), "unavailable")
		return
	case err != nil:
		writeAppError(h.logger, w, r, err)
		return
	}
	defer sub.Close()

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	hdr.Set(SubscriberHeader, subID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s := sseWriter{w: w, flusher: flusher}
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	events, signals := sub.Events(), sub.Signals()

	// the connected signal is already buffered; send it before the snapshot
	select {
	case sig, ok := <-signals:
		if !ok || h.onSignal(s, sig, events) {
			h.finish(id, sub)
			return
		}
	default:
	}

	for {
		select {
		case <-r.Context().Done():
			h.finish(id, sub)
			return
		case sig, ok := <-signals:
			if !ok || h.onSignal(s, sig, events) {
				h.finish(id, sub)
				return
			}
		case e, ok := <-events:
			if !ok {
				// the disconnect signal is sent before the channels close
				for sig := range signals {
					_ = s.signal(sig)
				}
				h.finish(id, sub)
				return
			}
			if err := s.event(e); err != nil {
				h.finish(id, sub)
				return
			}
		case <-ticker.C:
			if err := s.comment("ping"); err != nil {
				h.finish(id, sub)
				return
			}
		}
	}
}

// onSignal writes sig and reports whether the stream is over. On disconnect the
// events still buffered are flushed first so the final one is not lost.
func (h *StreamHandler) onSignal(s sseWriter, sig realtime.Signal, events <-chan domain.Event) bool {
	if sig.State != realtime.Disconnected {
		return s.signal(sig) != nil
	}
	for e := range events {
		if err := s.event(e); err != nil {
			return true
		}
	}
	_ = s.signal(sig)
	return true
}

func (h *StreamHandler) finish(id string, sub *realtime.Subscription) {
	st := sub.Stats()
	h.logger.Debug("event stream closed",
		logx.String("delivery_id", id),
		logx.String("subscriber_id", sub.ID()),
		logx.Any("sent", st.Sent),
		logx.Any("dropped", st.Dropped),
	)
}

type sseWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func (s sseWriter) event(e domain.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\nid: %d\ndata: %s\n\n", e.Kind, e.Seq, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s sseWriter) signal(sig realtime.Signal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: connection\ndata: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s sseWriter) comment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
