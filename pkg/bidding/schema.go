package bidding

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by instance name so several
// engines can share one Redis server.
//
// Key pattern: ideabid:{instance_name}:{entity}:{id}
// Channel pattern: ideabid:{instance_name}:events:{channel_id}

// SessionKey returns the Redis key for a session hash.
// Pattern: ideabid:{instance_name}:session:{session_id}
func SessionKey(instanceName, sessionID string) string {
	return fmt.Sprintf("ideabid:%s:session:%s", instanceName, sessionID)
}

// SessionMessagesKey returns the Redis key for a session's message log (a LIST of JSON).
// Pattern: ideabid:{instance_name}:session:{session_id}:messages
func SessionMessagesKey(instanceName, sessionID string) string {
	return fmt.Sprintf("ideabid:%s:session:%s:messages", instanceName, sessionID)
}

// SessionIndexKey returns the Redis key for the set of known session ids.
// Pattern: ideabid:{instance_name}:sessions
func SessionIndexKey(instanceName string) string {
	return fmt.Sprintf("ideabid:%s:sessions", instanceName)
}

// BudgetKey returns the Redis key for a persona's budget hash (fields: total, remaining).
// Pattern: ideabid:{instance_name}:budget:{persona_id}
func BudgetKey(instanceName, personaID string) string {
	return fmt.Sprintf("ideabid:%s:budget:%s", instanceName, personaID)
}

// EventsChannel returns the Pub/Sub channel for a realtime channel id.
// The orchestrator uses the session id as the channel id.
// Pattern: ideabid:{instance_name}:events:{channel_id}
func EventsChannel(instanceName, channelID string) string {
	return fmt.Sprintf("ideabid:%s:events:%s", instanceName, channelID)
}
