// Package queue defines message payloads exchanged over the message broker
// and the consumer that turns them into the booking log.
package queue

// BookingOutcomeQueue is the durable queue booking outcomes are sent to.
const BookingOutcomeQueue = "booking.outcome"

// BookingOutcomeEvent is published once per submitted asset group, whether
// the upstream accepted it or not.  It carries enough for downstream
// consumers to log or notify without calling the upstream API again.  The
// patron is identified by name only; the library card is not included.
type BookingOutcomeEvent struct {
	SessionID  string `json:"session_id,omitempty"`
	GroupID    string `json:"group_id"`
	GroupName  string `json:"group_name"`
	AssetID    string `json:"asset_id"`
	Date       string `json:"date"`
	Hour       int    `json:"hour"`
	StartTime  string `json:"start_time"`
	PatronName string `json:"patron_name"`
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	SettledAt  string `json:"settled_at"`
}
