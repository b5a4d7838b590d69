// Package bidding provides the shared domain types and Redis schema for the idea
// bidding engine.
//
// # Overview
//
// A Session is one simulated deliberation over an Idea. A fixed roster of Personas
// speaks and bids through forward-only phases:
//
//	warmup → discussion → bidding → prediction → result
//
// Every utterance is a Message appended to the session log, and every message, phase
// change and completion is published as an Event for external realtime transports.
//
// Each Persona spends from a BudgetEntry that is shared across every session running
// in the process (or, with Redis, across processes). Deductions are atomic.
//
// # Redis Schema
//
// All Redis keys follow the pattern: ideabid:{instance_name}:{entity}:{id}
//
// Sessions: ideabid:{instance_name}:session:{session_id} (hash)
// Session log: ideabid:{instance_name}:session:{session_id}:messages (list of JSON)
// Session index: ideabid:{instance_name}:sessions (set)
// Budgets: ideabid:{instance_name}:budget:{persona_id} (hash: total, remaining)
//
// Pub/Sub channels: ideabid:{instance_name}:events:{channel_id}
//
// # Usage Example
//
//	client, err := bidding.NewClient(&redis.Options{Addr: "localhost:6379"}, "default")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sub, err := client.SubscribeEvents(ctx, sessionID)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer sub.Close()
//
//	for event := range sub.Events() {
//		fmt.Println(event.Type, event.Phase)
//	}
package bidding
