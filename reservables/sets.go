package reservables

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tessera/db"
	"tessera/models"
	"tessera/utils"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func ListSets(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cur, err := db.ReservableSetsCollection.Find(ctx, bson.M{})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	defer cur.Close(ctx)

	sets := []models.ReservableSet{}
	if err := cur.All(ctx, &sets); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"sets": sets})
}

func GetSet(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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
	utils.RespondWithJSON(w, http.StatusOK, set)
}

func CreateSet(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var set models.ReservableSet
	if err := json.NewDecoder(r.Body).Decode(&set); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if set.Name == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "name is required")
		return
	}
	set.SetID = uuid.NewString()
	if set.Slug == "" {
		set.Slug = utils.Slugify(set.Name)
	}
	if set.Reservables == nil {
		set.Reservables = []string{}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := db.ReservableSetsCollection.InsertOne(ctx, set); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, set)
}

func UpdateSet(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var payload models.ReservableSet
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"name":        payload.Name,
		"reservables": payload.Reservables,
	}}
	result, err := db.ReservableSetsCollection.UpdateOne(ctx, bson.M{"slug": ps.ByName("slug")}, update)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	if result.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "set not found")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true})
}

func DeleteSet(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	result, err := db.ReservableSetsCollection.DeleteOne(ctx, bson.M{"slug": ps.ByName("slug")})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	if result.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "set not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
