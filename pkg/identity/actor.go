package identity

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidActor indicates a missing or malformed actor identity.
var ErrInvalidActor = errors.New("invalid actor")

// ActorKind distinguishes who initiated an operation.
type ActorKind string

const (
	ActorCustomer ActorKind = "customer"
	ActorStaff    ActorKind = "staff"
)

// Actor is the authenticated identity behind a core operation. Core services
// take it as an explicit parameter; nothing is read from ambient request state.
type Actor struct {
	Kind ActorKind
	ID   uuid.UUID
}

// NewCustomerActor builds a customer actor.
func NewCustomerActor(id uuid.UUID) (Actor, error) {
	if id == uuid.Nil {
		return Actor{}, fmt.Errorf("%w: empty customer id", ErrInvalidActor)
	}
	return Actor{Kind: ActorCustomer, ID: id}, nil
}

// NewStaffActor builds a staff actor.
func NewStaffActor(id uuid.UUID) (Actor, error) {
	if id == uuid.Nil {
		return Actor{}, fmt.Errorf("%w: empty staff id", ErrInvalidActor)
	}
	return Actor{Kind: ActorStaff, ID: id}, nil
}

// IsStaff reports whether the actor is a staff member.
func (actor Actor) IsStaff() bool {
	return actor.Kind == ActorStaff
}

// StaffID returns the staff identifier when the actor is staff, nil otherwise.
func (actor Actor) StaffID() *uuid.UUID {
	if !actor.IsStaff() {
		return nil
	}
	id := actor.ID
	return &id
}
