package models

import "time"

// Resource is an atomic countable unit a reservable is backed by,
// e.g. a projector or a lab bench seat.
type Resource struct {
	ResourceID string `json:"resourceid" bson:"resourceid"`
	Slug       string `json:"slug" bson:"slug"`
	Type       string `json:"type" bson:"type"`
	Name       string `json:"name" bson:"name"`
}

// ResourceRequirement says a reservable consumes n units of a resource.
type ResourceRequirement struct {
	ResourceID string `json:"resourceid" bson:"resourceid"`
	N          int    `json:"n" bson:"n"`
}

// Reservable is the thing end users actually book (a room, a machine).
type Reservable struct {
	ReservableID string                `json:"reservableid" bson:"reservableid"`
	Slug         string                `json:"slug" bson:"slug"`
	Type         string                `json:"type" bson:"type"`
	Name         string                `json:"name" bson:"name"`
	Requirements []ResourceRequirement `json:"requirements,omitempty" bson:"requirements,omitempty"`
}

// ReservableSet groups reservables for scoped queries
// ("all meeting rooms in building A").
type ReservableSet struct {
	SetID       string   `json:"setid" bson:"setid"`
	Slug        string   `json:"slug" bson:"slug"`
	Name        string   `json:"name" bson:"name"`
	Reservables []string `json:"reservables" bson:"reservables"`
}

// ResourceDemand is an extra per-reservation resource claim.
type ResourceDemand struct {
	ResourceID string `json:"resourceid" bson:"resourceid"`
	N          int    `json:"n" bson:"n"`
}

type Reservation struct {
	ReservationID string           `json:"reservationid" bson:"reservationid"`
	Reason        string           `json:"reason" bson:"reason"`
	Start         time.Time        `json:"start" bson:"start"`
	End           time.Time        `json:"end" bson:"end"`
	Owners        []string         `json:"owners" bson:"owners"`
	Reservables   []string         `json:"reservables" bson:"reservables"`
	Demands       []ResourceDemand `json:"demands,omitempty" bson:"demands,omitempty"`
	CreatedAt     int64            `json:"createdAt" bson:"createdAt"`
}

// CapabilityGrant gives an actor one capability on one reservable.
// Capability is one of "reserve", "double_reserve", "manage_reservations".
type CapabilityGrant struct {
	ActorID      string `json:"actorid" bson:"actorid"`
	ReservableID string `json:"reservableid" bson:"reservableid"`
	Capability   string `json:"capability" bson:"capability"`
}

type User struct {
	UserID        string    `json:"userid" bson:"userid"`
	Username      string    `json:"username" bson:"username"`
	Email         string    `json:"email,omitempty" bson:"email,omitempty"`
	Password      string    `json:"password,omitempty" bson:"password"`
	Role          []string  `json:"role" bson:"role"`
	RefreshToken  string    `json:"-" bson:"refresh_token,omitempty"`
	RefreshExpiry time.Time `json:"-" bson:"refresh_expiry,omitempty"`
	LastLogin     time.Time `json:"-" bson:"last_login,omitempty"`
}

// ReservationEvent is published on every reservation write so live
// timeline clients can refresh.
type ReservationEvent struct {
	Action        string   `json:"action"` // created, updated, deleted
	ReservationID string   `json:"reservationid"`
	Reservables   []string `json:"reservables"`
	ActorID       string   `json:"actorid"`
}
