package reservations

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"tessera/db"
	"tessera/globals"
	"tessera/grants"
	"tessera/models"
	"tessera/mq"
	"tessera/overlap"
	"tessera/policy"
	"tessera/rdx"
	"tessera/utils"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"
)

var engine *policy.Engine

func init() {
	engine = policy.NewEngine(
		overlap.NewMongoStore(db.ReservationsCollection),
		grants.NewMongoChecker(db.GrantsCollection),
	)
	if os.Getenv("BASE_CAPABILITY") == "manage_reservations" {
		engine.BaseCapability = policy.CapManage
	}
}

type reservationPayload struct {
	Reason      string                  `json:"reason"`
	Start       time.Time               `json:"start"`
	End         time.Time               `json:"end"`
	Reservables []string                `json:"reservables"`
	Demands     []models.ResourceDemand `json:"demands,omitempty"`
}

func requesterID(r *http.Request) string {
	id, _ := r.Context().Value(globals.UserIDKey).(string)
	return id
}

// writeDecision maps a policy outcome onto the response. Validation
// failures are the caller's fault, everything else is a refusal.
func writeDecision(w http.ResponseWriter, d policy.Decision, err error) bool {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		utils.RespondWithError(w, http.StatusBadRequest, ve.Error())
		return false
	}
	if err != nil {
		log.Printf("policy evaluation failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "policy check failed")
		return false
	}
	if !d.Allowed {
		utils.RespondWithJSON(w, http.StatusForbidden, d)
		return false
	}
	return true
}

func CreateReservation(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actorID := requesterID(r)
	if actorID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var payload reservationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	decision, err := engine.CanCreateOrUpdate(ctx, policy.Request{
		ActorID:     actorID,
		Reservables: payload.Reservables,
		Start:       payload.Start,
		End:         payload.End,
	})
	if !writeDecision(w, decision, err) {
		return
	}

	res := models.Reservation{
		ReservationID: uuid.NewString(),
		Reason:        payload.Reason,
		Start:         payload.Start.UTC(),
		End:           payload.End.UTC(),
		Owners:        []string{actorID},
		Reservables:   payload.Reservables,
		Demands:       payload.Demands,
		CreatedAt:     time.Now().Unix(),
	}
	if _, err := db.ReservationsCollection.InsertOne(ctx, res); err != nil {
		log.Printf("insert reservation: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	afterWrite("created", res, actorID)
	utils.RespondWithJSON(w, http.StatusCreated, res)
}

func UpdateReservation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actorID := requesterID(r)
	if actorID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var payload reservationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	existing, err := load(ctx, ps.ByName("id"))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.RespondWithError(w, http.StatusNotFound, "reservation not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	decision, err := engine.CanCreateOrUpdate(ctx, policy.Request{
		ActorID:     actorID,
		Reservables: payload.Reservables,
		Start:       payload.Start,
		End:         payload.End,
		Existing:    &existing,
	})
	if !writeDecision(w, decision, err) {
		return
	}

	existing.Reason = payload.Reason
	existing.Start = payload.Start.UTC()
	existing.End = payload.End.UTC()
	existing.Reservables = payload.Reservables
	existing.Demands = payload.Demands

	_, err = db.ReservationsCollection.ReplaceOne(ctx,
		bson.M{"reservationid": existing.ReservationID}, existing)
	if err != nil {
		log.Printf("update reservation %s: %v", existing.ReservationID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	afterWrite("updated", existing, actorID)
	utils.RespondWithJSON(w, http.StatusOK, existing)
}

// DeleteReservation removes a reservation. Owners may always delete
// their own; anyone else needs manage_reservations on every reservable
// the reservation touches.
func DeleteReservation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actorID := requesterID(r)
	if actorID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	existing, err := load(ctx, ps.ByName("id"))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.RespondWithError(w, http.StatusNotFound, "reservation not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	if !utils.Contains(existing.Owners, actorID) {
		ok := true
		for _, rid := range existing.Reservables {
			has, cerr := engine.Checker.HasCapability(ctx, actorID, policy.CapManage, rid)
			if cerr != nil {
				utils.RespondWithError(w, http.StatusInternalServerError, "policy check failed")
				return
			}
			if !has {
				ok = false
				break
			}
		}
		if !ok {
			utils.RespondWithJSON(w, http.StatusForbidden,
				policy.Decision{Code: policy.ReasonNotOwner, Reason: "only owners or managers may delete"})
			return
		}
	}

	_, err = db.ReservationsCollection.DeleteOne(ctx, bson.M{"reservationid": existing.ReservationID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	afterWrite("deleted", existing, actorID)
	w.WriteHeader(http.StatusNoContent)
}

func GetReservation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := load(ctx, ps.ByName("id"))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.RespondWithError(w, http.StatusNotFound, "reservation not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}

// GetReservations lists reservations, optionally narrowed to one
// reservable and a half-open time window (from/to, RFC 3339).
// With mine=true the list is restricted to reservations the caller
// owns, which requires a valid token.
func GetReservations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	filter := bson.M{}
	q := r.URL.Query()
	if rid := q.Get("reservable"); rid != "" {
		filter["reservables"] = rid
	}
	if q.Get("mine") == "true" {
		actorID := requesterID(r)
		if actorID == "" {
			utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		filter["owners"] = actorID
	}
	if from, err := time.Parse(time.RFC3339, q.Get("from")); err == nil {
		filter["end"] = bson.M{"$gt": from}
	}
	if to, err := time.Parse(time.RFC3339, q.Get("to")); err == nil {
		filter["start"] = bson.M{"$lt": to}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	opts := mongoopts.Find().SetSort(bson.D{{Key: "start", Value: 1}, {Key: "end", Value: 1}})
	cur, err := db.ReservationsCollection.Find(ctx, filter, opts)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	defer cur.Close(ctx)

	reservations := []models.Reservation{}
	if err := cur.All(ctx, &reservations); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"reservations": reservations})
}

// MyReservationsInSet lists the caller's reservations touching the
// given set, narrowed to one reservable type ("all" disables the type
// filter).
func MyReservationsInSet(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actorID := requesterID(r)
	if actorID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var set models.ReservableSet
	err := db.ReservableSetsCollection.FindOne(ctx, bson.M{"slug": ps.ByName("slug")}).Decode(&set)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"reservations": []models.Reservation{}})
		return
	}

	filter := bson.M{"reservableid": bson.M{"$in": set.Reservables}}
	if rtype := ps.ByName("type"); rtype != "" && rtype != "all" {
		filter["type"] = rtype
	}
	cur, err := db.ReservablesCollection.Find(ctx, filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	var items []models.Reservable
	if err := cur.All(ctx, &items); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ReservableID)
	}

	opts := mongoopts.Find().SetSort(bson.D{{Key: "start", Value: 1}, {Key: "end", Value: 1}})
	rcur, err := db.ReservationsCollection.Find(ctx,
		bson.M{"owners": actorID, "reservables": bson.M{"$in": ids}}, opts)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	defer rcur.Close(ctx)

	reservations := []models.Reservation{}
	if err := rcur.All(ctx, &reservations); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"reservations": reservations})
}

// PruneReservations deletes reservations that no longer reference any
// reservable. Those come from reservable deletions and only clutter
// the timeline queries. Admin only.
func PruneReservations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := bson.M{"$or": []bson.M{
		{"reservables": bson.M{"$size": 0}},
		{"reservables": bson.M{"$exists": false}},
	}}
	result, err := db.ReservationsCollection.DeleteMany(ctx, filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	rdx.InvalidateTimelines()
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"pruned": result.DeletedCount})
}

func load(ctx context.Context, id string) (models.Reservation, error) {
	var res models.Reservation
	err := db.ReservationsCollection.FindOne(ctx, bson.M{"reservationid": id}).Decode(&res)
	return res, err
}

func afterWrite(action string, res models.Reservation, actorID string) {
	rdx.InvalidateTimelines()
	mq.Emit(context.Background(), models.ReservationEvent{
		Action:        action,
		ReservationID: res.ReservationID,
		Reservables:   res.Reservables,
		ActorID:       actorID,
	})
}
