package assistant

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/clinicware/assistant-platform/pkg/logging"
)

// Handler wires HTTP requests to the assistant dispatcher.
type Handler struct {
	dispatcher Dispatcher
	logger     *logging.Logger
}

// NewHandler creates an assistant handler.
func NewHandler(dispatcher Dispatcher, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode chat request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Message) == "" {
		http.Error(w, "userId and message are required", http.StatusBadRequest)
		return
	}

	reply, err := h.dispatcher.HandleMessage(r.Context(), req)
	if err != nil {
		h.logger.Error("failed to process chat message", "error", err)
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, reply)
}

// StartBooking handles POST /api/chat/book.
func (h *Handler) StartBooking(w http.ResponseWriter, r *http.Request) {
	var req BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode booking request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.DoctorID) == "" {
		http.Error(w, "userId and doctorId are required", http.StatusBadRequest)
		return
	}

	reply, err := h.dispatcher.StartBooking(r.Context(), req)
	if err != nil {
		h.logger.Error("failed to start booking", "error", err)
		http.Error(w, "Failed to start booking", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
