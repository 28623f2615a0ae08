package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"service-delivery/internal/domain"
	"service-delivery/internal/logx"
	"service-delivery/internal/validation"
)

// DeliveryHandler handles HTTP commands on delivery resources.
type DeliveryHandler struct {
	usecase deliveryUsecase
	logger  logx.Logger
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(logger logx.Logger, uc deliveryUsecase) *DeliveryHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &DeliveryHandler{usecase: uc, logger: logger}
}

// Register handles POST /deliveries.
// 201 for a new delivery, 200 when the order already has one.
func (h *DeliveryHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerDeliveryRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	if err := validation.CheckInput(req); err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}

	snap, created, err := h.usecase.Register(r.Context(), req.toModel())
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(h.logger, w, r, status, registerDeliveryResponse{Created: created, Delivery: snap})
}

// Get handles GET /deliveries/{id}.
func (h *DeliveryHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(id string) (domain.Snapshot, error) {
		return h.usecase.Get(r.Context(), id)
	})
}

// QR handles GET /deliveries/{id}/qr.
func (h *DeliveryHandler) QR(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	p, err := h.usecase.QRPayload(r.Context(), id)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	h.writePayload(w, r, p)
}

// CollectItem handles POST /deliveries/{id}/collections.
func (h *DeliveryHandler) CollectItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req collectItemRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	if err := validation.CheckInput(req); err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	h.respond(w, r, func() (domain.Snapshot, error) {
		return h.usecase.CollectItem(r.Context(), id, req.ProductID, req.ShopID)
	})
}

// StartTransit handles POST /deliveries/{id}/transit.
func (h *DeliveryHandler) StartTransit(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(id string) (domain.Snapshot, error) {
		return h.usecase.StartTransit(r.Context(), id)
	})
}

// ReportLocation handles POST /deliveries/{id}/location.
func (h *DeliveryHandler) ReportLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req locationRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	if err := validation.CheckInput(req); err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	h.respond(w, r, func() (domain.Snapshot, error) {
		return h.usecase.ReportLocation(r.Context(), id, req.toModel())
	})
}

// StopTracking handles POST /deliveries/{id}/tracking/stop.
func (h *DeliveryHandler) StopTracking(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(id string) (domain.Snapshot, error) {
		return h.usecase.StopTracking(r.Context(), id)
	})
}

// ResumeTracking handles POST /deliveries/{id}/tracking/resume.
func (h *DeliveryHandler) ResumeTracking(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(id string) (domain.Snapshot, error) {
		return h.usecase.ResumeTracking(r.Context(), id)
	})
}

// Validate handles POST /deliveries/{id}/validate. The body is either the
// structured payload, {"payload": "<scanned text>"} or the scanned text itself.
func (h *DeliveryHandler) Validate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "cannot read body", "invalid")
		return
	}

	raw := body
	var wrapped validateRequest
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &wrapped); err == nil && wrapped.Payload != nil {
			raw = []byte(*wrapped.Payload)
		}
	}

	p, err := validation.ParsePayload(raw)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	h.respond(w, r, func() (domain.Snapshot, error) {
		return h.usecase.Validate(r.Context(), id, p)
	})
}

// RotateCode handles POST /deliveries/{id}/code/rotate.
func (h *DeliveryHandler) RotateCode(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	p, err := h.usecase.RotateCode(r.Context(), id)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	h.writePayload(w, r, p)
}

func (h *DeliveryHandler) pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := idFromURL(r)
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error(), "invalid")
		return "", false
	}
	return id, true
}

func (h *DeliveryHandler) withID(w http.ResponseWriter, r *http.Request, fn func(id string) (domain.Snapshot, error)) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	h.respond(w, r, func() (domain.Snapshot, error) { return fn(id) })
}

func (h *DeliveryHandler) respond(w http.ResponseWriter, r *http.Request, fn func() (domain.Snapshot, error)) {
	snap, err := fn()
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, snap)
}

func (h *DeliveryHandler) writePayload(w http.ResponseWriter, r *http.Request, p validation.Payload) {
	resp, err := payloadToResponse(p)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, resp)
}
