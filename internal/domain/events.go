package domain

import (
	"encoding/json"
	"strings"
)

// ============================================================
// Realtime change events
// ============================================================

// Collections whose changes affect aggregations.
const (
	CollectionTransactions = "transactions"
	CollectionCategories   = "categories"
)

// Actions carried by change events.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// ChangeEvent mirrors the document store's realtime message.
// Events hold strings such as
// "databases.financio_db.collections.transactions.documents.abc123.create".
type ChangeEvent struct {
	Events  []string        `json:"events"`
	Payload json.RawMessage `json:"payload"`
}

// EventName builds the canonical event string for a document change.
func EventName(database, collection, documentID, action string) string {
	return "databases." + database + ".collections." + collection + ".documents." + documentID + "." + action
}

// NewChangeEvent builds an event for a document owned by userID.
func NewChangeEvent(database, collection, documentID, action, userID string) ChangeEvent {
	payload, _ := json.Marshal(map[string]string{"$id": documentID, "userId": userID})
	return ChangeEvent{
		Events:  []string{EventName(database, collection, documentID, action)},
		Payload: payload,
	}
}

// Collection returns the collection named by the first parseable event.
func (e ChangeEvent) Collection() string {
	for _, ev := range e.Events {
		parts := strings.Split(ev, ".")
		for i := 0; i+1 < len(parts); i++ {
			if parts[i] == "collections" {
				return parts[i+1]
			}
		}
	}
	return ""
}

// HasAction reports whether any event string ends in the given action.
func (e ChangeEvent) HasAction(action string) bool {
	suffix := "." + action
	for _, ev := range e.Events {
		if strings.HasSuffix(ev, suffix) {
			return true
		}
	}
	return false
}

// IsMutation reports whether the event is a create, update or delete.
func (e ChangeEvent) IsMutation() bool {
	return e.HasAction(ActionCreate) || e.HasAction(ActionUpdate) || e.HasAction(ActionDelete)
}

// AffectsAggregation reports whether the event must invalidate aggregations.
func (e ChangeEvent) AffectsAggregation() bool {
	switch e.Collection() {
	case CollectionTransactions, CollectionCategories:
		return e.IsMutation()
	}
	return false
}

// OwnerID reads the document owner from the payload.
func (e ChangeEvent) OwnerID() string {
	if len(e.Payload) == 0 {
		return ""
	}
	var doc struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(e.Payload, &doc); err != nil {
		return ""
	}
	return doc.UserID
}
