package reservables

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tessera/db"
	"tessera/models"
	"tessera/rdx"
	"tessera/utils"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ListReservables returns the catalog, optionally filtered by set slug
// and reservable type.
func ListReservables(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	filter := bson.M{}
	q := r.URL.Query()
	if setSlug := q.Get("set"); setSlug != "" {
		var set models.ReservableSet
		err := db.ReservableSetsCollection.FindOne(ctx, bson.M{"slug": setSlug}).Decode(&set)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				utils.RespondWithJSON(w, http.StatusOK, utils.M{"reservables": []models.Reservable{}})
				return
			}
			utils.RespondWithError(w, http.StatusInternalServerError, "db error")
			return
		}
		filter["reservableid"] = bson.M{"$in": set.Reservables}
	}
	if rtype := q.Get("type"); rtype != "" {
		filter["type"] = rtype
	}

	cur, err := db.ReservablesCollection.Find(ctx, filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	defer cur.Close(ctx)

	items := []models.Reservable{}
	if err := cur.All(ctx, &items); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"reservables": items})
}

// ListSetReservables returns the reservables of one set, addressed by
// the set slug in the path.
func ListSetReservables(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var set models.ReservableSet
	err := db.ReservableSetsCollection.FindOne(ctx, bson.M{"slug": ps.ByName("slug")}).Decode(&set)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.RespondWithError(w, http.StatusNotFound, "set not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	filter := bson.M{"reservableid": bson.M{"$in": set.Reservables}}
	if rtype := r.URL.Query().Get("type"); rtype != "" {
		filter["type"] = rtype
	}
	cur, err := db.ReservablesCollection.Find(ctx, filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	defer cur.Close(ctx)

	items := []models.Reservable{}
	if err := cur.All(ctx, &items); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"reservables": items})
}

func GetReservable(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var item models.Reservable
	err := db.ReservablesCollection.FindOne(ctx, bson.M{"slug": ps.ByName("slug")}).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.RespondWithError(w, http.StatusNotFound, "reservable not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, item)
}

func CreateReservable(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var item models.Reservable
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if item.Name == "" || item.Type == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "name and type are required")
		return
	}
	item.ReservableID = uuid.NewString()
	if item.Slug == "" {
		item.Slug = utils.Slugify(item.Name)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := db.ReservablesCollection.InsertOne(ctx, item); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, item)
}

func UpdateReservable(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var payload models.Reservable
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"name":         payload.Name,
		"type":         payload.Type,
		"requirements": payload.Requirements,
	}}
	result, err := db.ReservablesCollection.UpdateOne(ctx, bson.M{"slug": ps.ByName("slug")}, update)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	if result.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "reservable not found")
		return
	}
	rdx.InvalidateTimelines()
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true})
}

// DeleteReservable removes a reservable and pulls its id out of every
// set and reservation referencing it. Reservations left with no
// reservables stay behind for the prune endpoint.
func DeleteReservable(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var item models.Reservable
	err := db.ReservablesCollection.FindOne(ctx, bson.M{"slug": ps.ByName("slug")}).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.RespondWithError(w, http.StatusNotFound, "reservable not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	if _, err := db.ReservablesCollection.DeleteOne(ctx, bson.M{"reservableid": item.ReservableID}); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	pull := bson.M{"$pull": bson.M{"reservables": item.ReservableID}}
	if _, err := db.ReservableSetsCollection.UpdateMany(ctx, bson.M{}, pull); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	if _, err := db.ReservationsCollection.UpdateMany(ctx, bson.M{"reservables": item.ReservableID}, pull); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	if _, err := db.GrantsCollection.DeleteMany(ctx, bson.M{"reservableid": item.ReservableID}); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	rdx.InvalidateTimelines()
	w.WriteHeader(http.StatusNoContent)
}
