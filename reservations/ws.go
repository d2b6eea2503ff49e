package reservations

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"tessera/db"
	"tessera/middleware"
	"tessera/models"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins — adjust for production if needed
		return true
	},
}

var (
	subscribers = make(map[string][]*websocket.Conn)
	mu          sync.Mutex
)

// ReservableWS streams reservation events touching one reservable,
// addressed by slug. Clients refresh their timeline views when a
// message arrives. Subscriptions are keyed by reservable id, the same
// key events carry.
func ReservableWS(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, err := middleware.ValidateJWT(r.Header.Get("Authorization")); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	var item models.Reservable
	err := db.ReservablesCollection.FindOne(ctx, bson.M{"slug": ps.ByName("slug")}).Decode(&item)
	cancel()
	if err != nil {
		http.Error(w, "reservable not found", http.StatusNotFound)
		return
	}
	reservableID := item.ReservableID

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "WebSocket upgrade failed", http.StatusBadRequest)
		return
	}

	mu.Lock()
	subscribers[reservableID] = append(subscribers[reservableID], conn)
	mu.Unlock()

	for {
		// This keeps the connection alive until the client disconnects
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}

	// Clean up on disconnect
	mu.Lock()
	conns := subscribers[reservableID]
	newList := make([]*websocket.Conn, 0, len(conns))
	for _, c := range conns {
		if c != conn {
			newList = append(newList, c)
		}
	}
	subscribers[reservableID] = newList
	mu.Unlock()

	conn.Close()
}

// Broadcast fans a reservation event out to every subscriber of every
// reservable it touches. Used as the event worker sink.
func Broadcast(event models.ReservationEvent) {
	val, err := json.Marshal(event)
	if err != nil {
		return
	}
	for _, rid := range event.Reservables {
		broadcast(rid, val)
	}
}

func broadcast(key string, val []byte) {
	mu.Lock()
	defer mu.Unlock()

	conns := subscribers[key]
	newList := conns[:0]

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, val); err == nil {
			newList = append(newList, conn)
		} else {
			conn.Close()
		}
	}

	subscribers[key] = newList
}
