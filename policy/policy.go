// Package policy decides whether a reservation write is permitted.
// It is a pure decision function over the supplied request plus two
// collaborators: the capability checker and the overlap store. It
// never persists anything; callers persist after an Allow, ideally
// inside a transaction boundary that makes the read-then-write atomic.
package policy

import (
	"context"
	"fmt"
	"time"

	"tessera/models"
	"tessera/overlap"
)

// Capability is a typed capability kind. Checks go through the Checker
// interface, never through capability-name strings.
type Capability int

const (
	CapReserve Capability = iota
	CapDoubleReserve
	CapManage
)

func (c Capability) String() string {
	switch c {
	case CapReserve:
		return "reserve"
	case CapDoubleReserve:
		return "double_reserve"
	case CapManage:
		return "manage_reservations"
	}
	return "unknown"
}

// Checker is the external capability-grant collaborator. A lookup
// error fails the whole write path closed; the engine never treats a
// failed lookup as Allow.
type Checker interface {
	HasCapability(ctx context.Context, actorID string, cap Capability, reservableID string) (bool, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, actorID string, cap Capability, reservableID string) (bool, error)

func (f CheckerFunc) HasCapability(ctx context.Context, actorID string, cap Capability, reservableID string) (bool, error) {
	return f(ctx, actorID, cap, reservableID)
}

// ReasonCode is machine-checkable; the Reason string is for humans.
type ReasonCode string

const (
	ReasonInsufficientPrivileges ReasonCode = "insufficient_privileges"
	ReasonNotOwner               ReasonCode = "not_owner"
	ReasonDoubleBooking          ReasonCode = "double_booking_denied"
)

type Decision struct {
	Allowed bool       `json:"allowed"`
	Code    ReasonCode `json:"code,omitempty"`
	Reason  string     `json:"reason,omitempty"`
}

func allow() Decision { return Decision{Allowed: true} }

func deny(code ReasonCode, reason string) Decision {
	return Decision{Allowed: false, Code: code, Reason: reason}
}

// Request carries one proposed create or update. Existing is nil on
// create; on update it is the stored reservation being modified.
type Request struct {
	ActorID     string
	Reservables []string
	Start       time.Time
	End         time.Time
	Existing    *models.Reservation
}

// Engine evaluates write requests. BaseCapability is the capability
// ordinary booking requires; the two legacy permission revisions
// disagreed on whether that is "reserve" or "manage_reservations", so
// it is configuration rather than a hard-coded pick.
type Engine struct {
	Store          overlap.Store
	Checker        Checker
	BaseCapability Capability
}

func NewEngine(store overlap.Store, checker Checker) *Engine {
	return &Engine{Store: store, Checker: checker, BaseCapability: CapReserve}
}

// CanCreateOrUpdate runs the decision chain:
// validate shape, manage override, base capability, overlap query,
// ownership (update only), double-booking gate.
//
// An actor holding manage_reservations on every proposed reservable is
// allowed unconditionally. The overlap set is re-read from the store
// on every call; stale overlap data is never reused.
func (e *Engine) CanCreateOrUpdate(ctx context.Context, req Request) (Decision, error) {
	if !req.Start.Before(req.End) {
		return Decision{}, models.Invalid("start", "start must be before end")
	}
	if len(req.Reservables) == 0 {
		return Decision{}, models.Invalid("reservables", "at least one reservable is required")
	}

	manages, err := e.hasOnAll(ctx, req.ActorID, CapManage, req.Reservables)
	if err != nil {
		return Decision{}, err
	}
	if manages {
		return allow(), nil
	}

	base, err := e.hasOnAll(ctx, req.ActorID, e.BaseCapability, req.Reservables)
	if err != nil {
		return Decision{}, err
	}
	if !base {
		return deny(ReasonInsufficientPrivileges, "insufficient privileges"), nil
	}

	excludeID := ""
	if req.Existing != nil {
		excludeID = req.Existing.ReservationID
	}
	seq, err := e.Store.FindOverlapping(ctx, req.Start, req.End, req.Reservables, excludeID)
	if err != nil {
		return Decision{}, err
	}
	overlapping, err := overlap.Collect(ctx, seq)
	if err != nil {
		return Decision{}, err
	}

	if req.Existing != nil && !isOwner(req.ActorID, req.Existing) {
		return deny(ReasonNotOwner, "must be owner to modify"), nil
	}

	if len(overlapping) > 0 {
		contested := overlap.SharedReservables(overlapping, req.Reservables)
		ok, err := e.hasOnAll(ctx, req.ActorID, CapDoubleReserve, contested)
		if err != nil {
			return Decision{}, err
		}
		if !ok {
			return deny(ReasonDoubleBooking, "double booking not allowed"), nil
		}
	}

	return allow(), nil
}

func (e *Engine) hasOnAll(ctx context.Context, actorID string, cap Capability, reservableIDs []string) (bool, error) {
	for _, id := range reservableIDs {
		ok, err := e.Checker.HasCapability(ctx, actorID, cap, id)
		if err != nil {
			return false, fmt.Errorf("capability lookup for %s on %s: %w", cap, id, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func isOwner(actorID string, res *models.Reservation) bool {
	for _, owner := range res.Owners {
		if owner == actorID {
			return true
		}
	}
	return false
}
