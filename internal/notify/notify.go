// Package notify implements the notification dispatch surface: events
// fired to a new request's possible approvers and when a request reaches
// a final status after processing. Modeled on the event-emission idiom of
// native/governance's EventType* constants emitted alongside state
// transitions, but decoupled from any particular transport.
package notify

import (
	"log/slog"

	"ctrlplane/internal/ids"
)

// Event names a notifiable occurrence in the request lifecycle.
type Event struct {
	Kind      string
	RequestID ids.ID
	UserID    ids.ID // recipient
}

const (
	EventRequestCreated   = "request.created"
	EventNowApprovable    = "request.now_approvable"
	EventRequestFinalized = "request.finalized"
)

// Notifier dispatches events to their recipients. The control plane ships
// a logging implementation (LogNotifier) and a websocket stream (WSHub);
// an email/webhook transport is an external collaborator.
type Notifier interface {
	Notify(Event)
}

// LogNotifier logs each event at info level — the default implementation.
type LogNotifier struct{}

func (LogNotifier) Notify(e Event) {
	slog.Info("notify", "kind", e.Kind, "request_id", e.RequestID, "user_id", e.UserID)
}

// Fanout dispatches an event to every recipient in users.
func Fanout(n Notifier, kind string, requestID ids.ID, users []ids.ID) {
	for _, u := range users {
		n.Notify(Event{Kind: kind, RequestID: requestID, UserID: u})
	}
}
