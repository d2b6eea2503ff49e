package grants

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"tessera/db"
	"tessera/models"
	"tessera/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

// CreateGrant gives an actor a capability on a reservable. Admin only
// (routes wrap this in RequireAdmin).
func CreateGrant(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var g models.CapabilityGrant
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if g.ActorID == "" || g.ReservableID == "" || !ValidCapability(g.Capability) {
		http.Error(w, "missing or unknown fields", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := Grant(ctx, db.GrantsCollection, g); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"ok": true, "grant": g})
}

func DeleteGrant(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var g models.CapabilityGrant
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if g.ActorID == "" || g.ReservableID == "" || !ValidCapability(g.Capability) {
		http.Error(w, "missing or unknown fields", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := Revoke(ctx, db.GrantsCollection, g); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListGrants returns the grants for one actor, optionally narrowed to
// a reservable.
func ListGrants(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actorID := ps.ByName("actorid")
	if actorID == "" {
		http.Error(w, "missing actorid", http.StatusBadRequest)
		return
	}

	filter := bson.M{"actorid": actorID}
	if rid := r.URL.Query().Get("reservableid"); rid != "" {
		filter["reservableid"] = rid
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	cur, err := db.GrantsCollection.Find(ctx, filter)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer cur.Close(ctx)

	var out []models.CapabilityGrant
	if err := cur.All(ctx, &out); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"grants": out})
}
