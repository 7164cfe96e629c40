package gormstore

import (
	"context"
	"errors"
	"fmt"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/pawloft/daycare/internal/booking"
	"github.com/pawloft/daycare/internal/checkout"
	"github.com/pawloft/daycare/pkg/ledger"
)

const (
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19

	errorOperationStore = "store"
)

// core hosts every entity method over one gorm handle. The exported wrapper
// types bind it to the per-domain Store interfaces, whose WithTx signatures
// differ.
type core struct {
	db *gorm.DB
}

// LedgerStore adapts core to ledger.Store.
type LedgerStore struct {
	core
}

// BookingStore adapts core to booking.Store.
type BookingStore struct {
	core
}

// CheckoutStore adapts core to checkout.Store.
type CheckoutStore struct {
	core
}

// New returns the three domain store views over one database handle.
func New(db *gorm.DB) (*LedgerStore, *BookingStore, *CheckoutStore) {
	shared := core{db: db}
	return &LedgerStore{core: shared}, &BookingStore{core: shared}, &CheckoutStore{core: shared}
}

// WithTx executes fn within a transaction.
func (store *LedgerStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &LedgerStore{core: core{db: transaction}})
	})
}

// WithTx executes fn within a transaction.
func (store *BookingStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx booking.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &BookingStore{core: core{db: transaction}})
	})
}

// WithTx executes fn within a transaction.
func (store *CheckoutStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx checkout.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &CheckoutStore{core: core{db: transaction}})
	})
}

// Ledger exposes the wallet/points primitives bound to the same handle, so a
// checkout transaction moves money inside its own unit of work.
func (store *CheckoutStore) Ledger() ledger.Store {
	return &LedgerStore{core: store.core}
}

func wrapStoreError(subject string, code string, err error) error {
	return ledger.WrapError(errorOperationStore, subject, code, err)
}

func parseUUID(subject string, raw string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, wrapStoreError(subject, "invalid_uuid", fmt.Errorf("%q: %w", raw, err))
	}
	return parsed, nil
}

func uuidPtrToString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	value := id.String()
	return &value
}

func stringPtrToUUID(subject string, raw *string) (*uuid.UUID, error) {
	if raw == nil {
		return nil, nil
	}
	parsed, err := parseUUID(subject, *raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}

type sqlSum struct {
	Total int64
}

type sqlCount struct {
	Total int64
}
