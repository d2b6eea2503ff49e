package mq

import (
	"context"
	"encoding/json"
	"log"

	"tessera/models"
	"tessera/rdx"
)

const reservationChannel = "reservation-events"

// Emit publishes a reservation event to Redis. Subscribers (the
// websocket fan-out worker) pick it up asynchronously; a failed
// publish is logged, never surfaced to the write path.
func Emit(ctx context.Context, event models.ReservationEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Emit] Failed to marshal event: %v", err)
		return
	}
	if err := rdx.Conn.Publish(ctx, reservationChannel, data).Err(); err != nil {
		log.Printf("[Emit] Failed to publish event to Redis: %v", err)
	}
}

// StartEventWorker forwards published reservation events to the given
// sink until the process exits. The sink is the websocket broadcaster.
func StartEventWorker(sink func(models.ReservationEvent)) {
	ctx := context.Background()
	sub := rdx.Conn.Subscribe(ctx, reservationChannel)
	ch := sub.Channel()

	log.Println("[EventWorker] Listening for reservation events...")

	for msg := range ch {
		var event models.ReservationEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Printf("[EventWorker] Failed to parse event: %v", err)
			continue
		}
		sink(event)
	}
}
