package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/pawloft/daycare/pkg/identity"
)

// stubStore is an in-memory Store for service tests. WithTx is a plain
// passthrough; conditional-decrement semantics are modeled directly.
type stubStore struct {
	wallets            map[uuid.UUID]*Wallet
	points             map[uuid.UUID]int64
	walletTransactions []WalletTransaction
	pointsTransactions []PointsTransaction
	walletAudits       []AuditRecord
}

func newStubStore() *stubStore {
	return &stubStore{
		wallets: map[uuid.UUID]*Wallet{},
		points:  map[uuid.UUID]int64{},
	}
}

func (store *stubStore) addCustomer(customerID uuid.UUID, balanceCents int64, points int64) {
	store.wallets[customerID] = &Wallet{
		CustomerID:   customerID,
		BalanceCents: AmountCents(balanceCents),
		Tier:         TierStandard,
	}
	store.points[customerID] = points
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return fn(ctx, store)
}

func (store *stubStore) GetWallet(_ context.Context, customerID uuid.UUID) (Wallet, error) {
	wallet, ok := store.wallets[customerID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return *wallet, nil
}

func (store *stubStore) DebitWallet(_ context.Context, customerID uuid.UUID, amountCents int64) (int64, error) {
	wallet, ok := store.wallets[customerID]
	if !ok {
		return 0, ErrWalletNotFound
	}
	if wallet.BalanceCents.Int64() < amountCents {
		return 0, ErrInsufficientWalletBalance
	}
	wallet.BalanceCents -= AmountCents(amountCents)
	return wallet.BalanceCents.Int64(), nil
}

func (store *stubStore) CreditWallet(_ context.Context, customerID uuid.UUID, amountCents int64) (int64, error) {
	wallet, ok := store.wallets[customerID]
	if !ok {
		return 0, ErrWalletNotFound
	}
	wallet.BalanceCents += AmountCents(amountCents)
	return wallet.BalanceCents.Int64(), nil
}

func (store *stubStore) AppendWalletTransaction(_ context.Context, transaction WalletTransaction) error {
	store.walletTransactions = append(store.walletTransactions, transaction)
	return nil
}

func (store *stubStore) SumWalletLoads(_ context.Context, customerID uuid.UUID, fromUnixUTC int64, toUnixUTC int64) (int64, error) {
	var sum int64
	for _, transaction := range store.walletTransactions {
		if transaction.CustomerID != customerID || transaction.Type != WalletTransactionLoad {
			continue
		}
		if transaction.CreatedUnixUTC >= fromUnixUTC && transaction.CreatedUnixUTC < toUnixUTC {
			sum += transaction.AmountCents.Int64()
		}
	}
	return sum, nil
}

func (store *stubStore) ListWalletTransactions(_ context.Context, customerID uuid.UUID, limit int) ([]WalletTransaction, error) {
	var transactions []WalletTransaction
	for index := len(store.walletTransactions) - 1; index >= 0 && len(transactions) < limit; index-- {
		if store.walletTransactions[index].CustomerID == customerID {
			transactions = append(transactions, store.walletTransactions[index])
		}
	}
	return transactions, nil
}

func (store *stubStore) GetPointsBalance(_ context.Context, customerID uuid.UUID) (int64, error) {
	balance, ok := store.points[customerID]
	if !ok {
		return 0, ErrCustomerNotFound
	}
	return balance, nil
}

func (store *stubStore) DebitPoints(_ context.Context, customerID uuid.UUID, amount int64) (int64, error) {
	balance, ok := store.points[customerID]
	if !ok {
		return 0, ErrCustomerNotFound
	}
	if balance < amount {
		return 0, ErrInsufficientPoints
	}
	store.points[customerID] = balance - amount
	return store.points[customerID], nil
}

func (store *stubStore) CreditPoints(_ context.Context, customerID uuid.UUID, amount int64) (int64, error) {
	balance, ok := store.points[customerID]
	if !ok {
		return 0, ErrCustomerNotFound
	}
	store.points[customerID] = balance + amount
	return store.points[customerID], nil
}

func (store *stubStore) AppendPointsTransaction(_ context.Context, transaction PointsTransaction) error {
	store.pointsTransactions = append(store.pointsTransactions, transaction)
	return nil
}

func (store *stubStore) ListPointsTransactions(_ context.Context, customerID uuid.UUID, limit int) ([]PointsTransaction, error) {
	var transactions []PointsTransaction
	for index := len(store.pointsTransactions) - 1; index >= 0 && len(transactions) < limit; index-- {
		if store.pointsTransactions[index].CustomerID == customerID {
			transactions = append(transactions, store.pointsTransactions[index])
		}
	}
	return transactions, nil
}

func (store *stubStore) AppendWalletAudit(_ context.Context, record AuditRecord) error {
	store.walletAudits = append(store.walletAudits, record)
	return nil
}

func mustNewService(test *testing.T, store Store) *Service {
	test.Helper()
	service, err := NewService(store, func() int64 { return 1_700_000_000 })
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
}

func mustPositiveAmount(test *testing.T, raw int64) PositiveAmountCents {
	test.Helper()
	amount, err := NewPositiveAmountCents(raw)
	if err != nil {
		test.Fatalf("positive amount %d: %v", raw, err)
	}
	return amount
}

func mustMetadata(test *testing.T, raw string) MetadataJSON {
	test.Helper()
	metadata, err := NewMetadataJSON(raw)
	if err != nil {
		test.Fatalf("metadata %q: %v", raw, err)
	}
	return metadata
}

func mustCustomerActor(test *testing.T, id uuid.UUID) identity.Actor {
	test.Helper()
	actor, err := identity.NewCustomerActor(id)
	if err != nil {
		test.Fatalf("customer actor: %v", err)
	}
	return actor
}

func mustStaffActor(test *testing.T) identity.Actor {
	test.Helper()
	actor, err := identity.NewStaffActor(uuid.New())
	if err != nil {
		test.Fatalf("staff actor: %v", err)
	}
	return actor
}
