package websocket

import (
	"encoding/json"
	"time"
)

// ConfigChangeEvent tells connected dashboards and external read-through
// caches that a rule, holiday or extension mutated and which entity to
// invalidate.
type ConfigChangeEvent struct {
	Type       string    `json:"type"` // always "config_change"
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Action     string    `json:"action"`
	ChangedAt  time.Time `json:"changed_at"`
}

// NotifyConfigChange broadcasts a configuration-change event to all connected
// clients. Non-blocking: a mutation never waits on slow consumers.
func (h *Hub) NotifyConfigChange(entityType, entityID, action string) {
	payload, err := json.Marshal(ConfigChangeEvent{
		Type:       "config_change",
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ChangedAt:  time.Now().UTC(),
	})
	if err != nil {
		return
	}

	select {
	case h.Broadcast <- payload:
	default:
	}
}
