// Package grants stores per-actor, per-reservable capability grants
// and exposes the capability checker the policy engine consumes.
package grants

import (
	"context"
	"fmt"
	"time"

	"tessera/models"
	"tessera/policy"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const lookupTimeout = 5 * time.Second

// MongoChecker answers capability checks from the grants collection.
type MongoChecker struct {
	Coll *mongo.Collection
}

func NewMongoChecker(coll *mongo.Collection) *MongoChecker {
	return &MongoChecker{Coll: coll}
}

func (c *MongoChecker) HasCapability(ctx context.Context, actorID string, cap policy.Capability, reservableID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	err := c.Coll.FindOne(ctx, bson.M{
		"actorid":      actorID,
		"reservableid": reservableID,
		"capability":   cap.String(),
	}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("grant lookup: %w", err)
	}
	return true, nil
}

// Grant upserts one capability grant.
func Grant(ctx context.Context, coll *mongo.Collection, g models.CapabilityGrant) error {
	filter := bson.M{
		"actorid":      g.ActorID,
		"reservableid": g.ReservableID,
		"capability":   g.Capability,
	}
	if _, err := coll.ReplaceOne(ctx, filter, g, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("grant upsert: %w", err)
	}
	return nil
}

// Revoke removes one capability grant; revoking a grant that does not
// exist is not an error.
func Revoke(ctx context.Context, coll *mongo.Collection, g models.CapabilityGrant) error {
	filter := bson.M{
		"actorid":      g.ActorID,
		"reservableid": g.ReservableID,
		"capability":   g.Capability,
	}
	if _, err := coll.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("grant delete: %w", err)
	}
	return nil
}

// ValidCapability guards the HTTP surface against unknown capability
// names before they reach the store.
func ValidCapability(name string) bool {
	switch name {
	case policy.CapReserve.String(), policy.CapDoubleReserve.String(), policy.CapManage.String():
		return true
	}
	return false
}
