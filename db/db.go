package db

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ResourcesCollection      *mongo.Collection
	ReservablesCollection    *mongo.Collection
	ReservableSetsCollection *mongo.Collection
	ReservationsCollection   *mongo.Collection
	GrantsCollection         *mongo.Collection
	UserCollection           *mongo.Collection
	Client                   *mongo.Client
)

// Initialize MongoDB connection
func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	var err error
	Client, err = mongo.Connect(context.TODO(), options.Client().ApplyURI(uri))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	database := Client.Database("tessera")
	ResourcesCollection = database.Collection("resources")
	ReservablesCollection = database.Collection("reservables")
	ReservableSetsCollection = database.Collection("reservablesets")
	ReservationsCollection = database.Collection("reservations")
	GrantsCollection = database.Collection("grants")
	UserCollection = database.Collection("users")

	ensureIndexes()
}

// The overlap query sorts on (start, end); keep that path indexed.
func ensureIndexes() {
	_, err := ReservationsCollection.Indexes().CreateOne(context.TODO(), mongo.IndexModel{
		Keys: bson.D{{Key: "start", Value: 1}, {Key: "end", Value: 1}},
	})
	if err != nil {
		log.Printf("Failed to create reservation index: %v", err)
	}

	_, err = GrantsCollection.Indexes().CreateOne(context.TODO(), mongo.IndexModel{
		Keys:    bson.D{{Key: "actorid", Value: 1}, {Key: "reservableid", Value: 1}, {Key: "capability", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		log.Printf("Failed to create grants index: %v", err)
	}
}
