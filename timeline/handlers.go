package timeline

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tessera/db"
	"tessera/models"
	"tessera/overlap"
	"tessera/rdx"
	"tessera/timegrid"
	"tessera/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

// TimeView renders the occupancy timeline for every reservable of the
// given set and type. Query params: start (any accepted time format,
// defaults to now), zoom (level index, clamped).
func TimeView(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	setSlug := ps.ByName("slug")
	reservableType := ps.ByName("type")

	grid := timegrid.NewGrid(nil, nil)
	zoom := 1
	if z := r.URL.Query().Get("zoom"); z != "" {
		if parsed, err := strconv.Atoi(z); err == nil {
			zoom = parsed
		}
	}
	zoom = grid.ClampZoom(zoom)
	requested := grid.ParseTimeString(r.URL.Query().Get("start"))
	windowStart := grid.RoundTime(requested, grid.Levels[zoom].TimeRange)

	// Rendered views are cached briefly; writes invalidate.
	if data, ok := rdx.CachedTimeline(setSlug, reservableType, windowStart.Unix(), zoom); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	reservables, err := reservablesForView(ctx, setSlug, reservableType, r.URL.Query().Get("ids"))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	renderer := NewRenderer(grid, overlap.NewMongoStore(db.ReservationsCollection))
	view, err := renderer.Render(ctx, reservables, requested, zoom)
	if err != nil {
		if ctx.Err() != nil {
			utils.RespondWithError(w, http.StatusGatewayTimeout, "timeline query timed out")
			return
		}
		log.Printf("Timeline render failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}

	payload, err := json.Marshal(view)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to encode response")
		return
	}
	rdx.CacheTimeline(setSlug, reservableType, windowStart.Unix(), zoom, payload)

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

func reservablesForView(ctx context.Context, setSlug, reservableType, ids string) ([]models.Reservable, error) {
	var set models.ReservableSet
	if err := db.ReservableSetsCollection.FindOne(ctx, bson.M{"slug": setSlug}).Decode(&set); err != nil {
		// Unknown set renders as an empty timeline, same as the
		// legacy behavior.
		return nil, nil
	}

	candidates := set.Reservables
	if ids != "" {
		// Explicit ids narrow the view but never escape the set.
		requested := strings.Split(ids, ",")
		narrowed := make([]string, 0, len(requested))
		for _, id := range requested {
			if utils.Contains(set.Reservables, id) {
				narrowed = append(narrowed, id)
			}
		}
		candidates = narrowed
	}

	filter := bson.M{"reservableid": bson.M{"$in": candidates}}
	if reservableType != "" && reservableType != "all" {
		filter["type"] = reservableType
	}
	cur, err := db.ReservablesCollection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var reservables []models.Reservable
	if err := cur.All(ctx, &reservables); err != nil {
		return nil, err
	}
	return reservables, nil
}
