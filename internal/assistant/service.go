package assistant

import "context"

// Reply is the caller-facing result of handling a chat message.
type Reply struct {
	Response    string   `json:"response"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// MessageRequest is an inbound chat message.
type MessageRequest struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

// BookingRequest starts a booking dialogue for a chosen doctor.
type BookingRequest struct {
	UserID   string `json:"userId"`
	DoctorID string `json:"doctorId"`
}

// Service is the assistant engine the HTTP layer and orchestrator talk to.
type Service interface {
	// HandleMessage routes one user message through the reply tiers and
	// always returns a usable reply; internal failures degrade, they do
	// not propagate.
	HandleMessage(ctx context.Context, req MessageRequest) Reply

	// StartBooking begins the appointment dialogue for the given doctor.
	StartBooking(ctx context.Context, req BookingRequest) Reply
}
