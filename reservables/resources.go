package reservables

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"tessera/db"
	"tessera/models"
	"tessera/utils"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

func ListResources(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	filter := bson.M{}
	if rtype := r.URL.Query().Get("type"); rtype != "" {
		filter["type"] = rtype
	}

	cur, err := db.ResourcesCollection.Find(ctx, filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	defer cur.Close(ctx)

	resources := []models.Resource{}
	if err := cur.All(ctx, &resources); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"resources": resources})
}

func CreateResource(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var res models.Resource
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if res.Name == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "name is required")
		return
	}
	res.ResourceID = uuid.NewString()
	if res.Slug == "" {
		res.Slug = utils.Slugify(res.Name)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := db.ResourcesCollection.InsertOne(ctx, res); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, res)
}

// DeleteResource also drops the matching requirement entries so no
// reservable keeps demanding a resource that no longer exists.
func DeleteResource(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var res models.Resource
	if err := db.ResourcesCollection.FindOne(ctx, bson.M{"slug": ps.ByName("slug")}).Decode(&res); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "resource not found")
		return
	}

	if _, err := db.ResourcesCollection.DeleteOne(ctx, bson.M{"resourceid": res.ResourceID}); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	pull := bson.M{"$pull": bson.M{"requirements": bson.M{"resourceid": res.ResourceID}}}
	if _, err := db.ReservablesCollection.UpdateMany(ctx, bson.M{}, pull); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
