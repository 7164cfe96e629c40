package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pawloft/daycare/pkg/ledger"
)

const (
	errorSubjectWallet      = "wallet"
	errorSubjectPoints      = "points"
	errorSubjectTransaction = "transaction"

	errorCodeGet        = "get"
	errorCodeDebit      = "debit"
	errorCodeCredit     = "credit"
	errorCodeInsert     = "insert"
	errorCodeList       = "list"
	errorCodeSumLoads   = "sum_loads"
	errorCodeInvalid    = "invalid"
	errorCodeDuplicate  = "duplicate"
	errorCodeUpdate     = "update"
	errorCodeCount      = "count"
	errorCodeRatingSet  = "rating_set"
	errorCodeTransition = "transition"
)

func (store core) GetWallet(ctx context.Context, customerID uuid.UUID) (ledger.Wallet, error) {
	var model Wallet
	err := store.db.WithContext(ctx).
		Where("customer_id = ?", customerID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeGet, ledger.ErrWalletNotFound)
		}
		return ledger.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeGet, err)
	}
	return mapWallet(model)
}

// DebitWallet decrements the balance only while it still covers the amount.
// The guard in the WHERE clause is the authority on sufficiency under
// concurrent spends, not any balance the caller read earlier.
func (store core) DebitWallet(ctx context.Context, customerID uuid.UUID, amountCents int64) (int64, error) {
	result := store.db.WithContext(ctx).
		Model(&Wallet{}).
		Where("customer_id = ? AND balance_cents >= ?", customerID.String(), amountCents).
		Updates(map[string]interface{}{
			"balance_cents": gorm.Expr("balance_cents - ?", amountCents),
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, wrapStoreError(errorSubjectWallet, errorCodeDebit, result.Error)
	}
	if result.RowsAffected == 0 {
		wallet, err := store.GetWallet(ctx, customerID)
		if err != nil {
			return 0, err
		}
		return wallet.BalanceCents.Int64(), wrapStoreError(errorSubjectWallet, errorCodeDebit, ledger.ErrInsufficientWalletBalance)
	}
	wallet, err := store.GetWallet(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return wallet.BalanceCents.Int64(), nil
}

func (store core) CreditWallet(ctx context.Context, customerID uuid.UUID, amountCents int64) (int64, error) {
	result := store.db.WithContext(ctx).
		Model(&Wallet{}).
		Where("customer_id = ?", customerID.String()).
		Updates(map[string]interface{}{
			"balance_cents": gorm.Expr("balance_cents + ?", amountCents),
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, wrapStoreError(errorSubjectWallet, errorCodeCredit, result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, wrapStoreError(errorSubjectWallet, errorCodeCredit, ledger.ErrWalletNotFound)
	}
	wallet, err := store.GetWallet(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return wallet.BalanceCents.Int64(), nil
}

func (store core) AppendWalletTransaction(ctx context.Context, transaction ledger.WalletTransaction) error {
	model := WalletTransaction{
		TransactionID:     transaction.TransactionID.String(),
		CustomerID:        transaction.CustomerID.String(),
		Type:              transaction.Type.String(),
		AmountCents:       transaction.AmountCents.Int64(),
		BalanceAfterCents: transaction.BalanceAfterCents.Int64(),
		BookingID:         uuidPtrToString(transaction.BookingID),
		PaymentID:         uuidPtrToString(transaction.PaymentID),
		Description:       transaction.Description,
		Metadata:          datatypesJSON(transaction.MetadataJSON),
		CreatedAt:         time.Unix(transaction.CreatedUnixUTC, 0).UTC(),
	}
	if model.TransactionID == uuid.Nil.String() {
		model.TransactionID = uuid.NewString()
	}
	if transaction.CreatedUnixUTC == 0 {
		model.CreatedAt = time.Now().UTC()
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeInsert, err)
	}
	return nil
}

func (store core) SumWalletLoads(ctx context.Context, customerID uuid.UUID, fromUnixUTC int64, toUnixUTC int64) (int64, error) {
	var sum sqlSum
	err := store.db.WithContext(ctx).
		Model(&WalletTransaction{}).
		Select("coalesce(sum(amount_cents),0) as total").
		Where("customer_id = ? AND type = ?", customerID.String(), ledger.WalletTransactionLoad.String()).
		Where("created_at >= ? AND created_at < ?", time.Unix(fromUnixUTC, 0).UTC(), time.Unix(toUnixUTC, 0).UTC()).
		Scan(&sum).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectWallet, errorCodeSumLoads, err)
	}
	return sum.Total, nil
}

func (store core) ListWalletTransactions(ctx context.Context, customerID uuid.UUID, limit int) ([]ledger.WalletTransaction, error) {
	var rows []WalletTransaction
	err := store.db.WithContext(ctx).
		Where("customer_id = ?", customerID.String()).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectTransaction, errorCodeList, err)
	}
	transactions := make([]ledger.WalletTransaction, 0, len(rows))
	for _, row := range rows {
		transaction, err := mapWalletTransaction(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
		}
		transactions = append(transactions, transaction)
	}
	return transactions, nil
}

func (store core) GetPointsBalance(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var model Customer
	err := store.db.WithContext(ctx).
		Where("customer_id = ?", customerID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, wrapStoreError(errorSubjectPoints, errorCodeGet, ledger.ErrCustomerNotFound)
		}
		return 0, wrapStoreError(errorSubjectPoints, errorCodeGet, err)
	}
	return model.PointsBalance, nil
}

// DebitPoints mirrors DebitWallet: the conditional UPDATE is the sufficiency
// check.
func (store core) DebitPoints(ctx context.Context, customerID uuid.UUID, amount int64) (int64, error) {
	result := store.db.WithContext(ctx).
		Model(&Customer{}).
		Where("customer_id = ? AND points_balance >= ?", customerID.String(), amount).
		Update("points_balance", gorm.Expr("points_balance - ?", amount))
	if result.Error != nil {
		return 0, wrapStoreError(errorSubjectPoints, errorCodeDebit, result.Error)
	}
	if result.RowsAffected == 0 {
		balance, err := store.GetPointsBalance(ctx, customerID)
		if err != nil {
			return 0, err
		}
		return balance, wrapStoreError(errorSubjectPoints, errorCodeDebit, ledger.ErrInsufficientPoints)
	}
	return store.GetPointsBalance(ctx, customerID)
}

func (store core) CreditPoints(ctx context.Context, customerID uuid.UUID, amount int64) (int64, error) {
	result := store.db.WithContext(ctx).
		Model(&Customer{}).
		Where("customer_id = ?", customerID.String()).
		Update("points_balance", gorm.Expr("points_balance + ?", amount))
	if result.Error != nil {
		return 0, wrapStoreError(errorSubjectPoints, errorCodeCredit, result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, wrapStoreError(errorSubjectPoints, errorCodeCredit, ledger.ErrCustomerNotFound)
	}
	return store.GetPointsBalance(ctx, customerID)
}

func (store core) AppendPointsTransaction(ctx context.Context, transaction ledger.PointsTransaction) error {
	model := PointsTransaction{
		TransactionID: transaction.TransactionID.String(),
		CustomerID:    transaction.CustomerID.String(),
		Type:          transaction.Type.String(),
		Amount:        transaction.Amount,
		BalanceAfter:  transaction.BalanceAfter,
		BookingID:     uuidPtrToString(transaction.BookingID),
		PaymentID:     uuidPtrToString(transaction.PaymentID),
		Description:   transaction.Description,
		CreatedAt:     time.Unix(transaction.CreatedUnixUTC, 0).UTC(),
	}
	if model.TransactionID == uuid.Nil.String() {
		model.TransactionID = uuid.NewString()
	}
	if transaction.CreatedUnixUTC == 0 {
		model.CreatedAt = time.Now().UTC()
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeInsert, err)
	}
	return nil
}

func (store core) ListPointsTransactions(ctx context.Context, customerID uuid.UUID, limit int) ([]ledger.PointsTransaction, error) {
	var rows []PointsTransaction
	err := store.db.WithContext(ctx).
		Where("customer_id = ?", customerID.String()).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectTransaction, errorCodeList, err)
	}
	transactions := make([]ledger.PointsTransaction, 0, len(rows))
	for _, row := range rows {
		transaction, err := mapPointsTransaction(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
		}
		transactions = append(transactions, transaction)
	}
	return transactions, nil
}

func (store core) AppendWalletAudit(ctx context.Context, record ledger.AuditRecord) error {
	model := AuditLog{
		AuditID:    record.AuditID.String(),
		StaffID:    record.StaffID.String(),
		Action:     record.Action,
		EntityKind: record.EntityKind,
		EntityID:   record.EntityID.String(),
		Detail:     record.Detail,
		CreatedAt:  time.Unix(record.CreatedUnixUTC, 0).UTC(),
	}
	if record.AuditID == uuid.Nil {
		model.AuditID = uuid.NewString()
	}
	if record.CreatedUnixUTC == 0 {
		model.CreatedAt = time.Now().UTC()
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapStoreError(errorSubjectAudit, errorCodeInsert, err)
	}
	return nil
}

func mapWallet(model Wallet) (ledger.Wallet, error) {
	customerID, err := parseUUID(errorSubjectWallet, model.CustomerID)
	if err != nil {
		return ledger.Wallet{}, err
	}
	return ledger.Wallet{
		CustomerID:               customerID,
		BalanceCents:             ledger.AmountCents(model.BalanceCents),
		Tier:                     ledger.WalletTier(model.Tier),
		AutoReloadThresholdCents: model.AutoReloadThresholdCents,
		AutoReloadAmountCents:    model.AutoReloadAmountCents,
	}, nil
}

func mapWalletTransaction(row WalletTransaction) (ledger.WalletTransaction, error) {
	transactionID, err := parseUUID(errorSubjectTransaction, row.TransactionID)
	if err != nil {
		return ledger.WalletTransaction{}, err
	}
	customerID, err := parseUUID(errorSubjectTransaction, row.CustomerID)
	if err != nil {
		return ledger.WalletTransaction{}, err
	}
	transactionType, err := ledger.ParseWalletTransactionType(row.Type)
	if err != nil {
		return ledger.WalletTransaction{}, err
	}
	bookingID, err := stringPtrToUUID(errorSubjectTransaction, row.BookingID)
	if err != nil {
		return ledger.WalletTransaction{}, err
	}
	paymentID, err := stringPtrToUUID(errorSubjectTransaction, row.PaymentID)
	if err != nil {
		return ledger.WalletTransaction{}, err
	}
	return ledger.WalletTransaction{
		TransactionID:     transactionID,
		CustomerID:        customerID,
		Type:              transactionType,
		AmountCents:       ledger.AmountCents(row.AmountCents),
		BalanceAfterCents: ledger.AmountCents(row.BalanceAfterCents),
		BookingID:         bookingID,
		PaymentID:         paymentID,
		Description:       row.Description,
		MetadataJSON:      string(row.Metadata),
		CreatedUnixUTC:    row.CreatedAt.Unix(),
	}, nil
}

func mapPointsTransaction(row PointsTransaction) (ledger.PointsTransaction, error) {
	transactionID, err := parseUUID(errorSubjectTransaction, row.TransactionID)
	if err != nil {
		return ledger.PointsTransaction{}, err
	}
	customerID, err := parseUUID(errorSubjectTransaction, row.CustomerID)
	if err != nil {
		return ledger.PointsTransaction{}, err
	}
	bookingID, err := stringPtrToUUID(errorSubjectTransaction, row.BookingID)
	if err != nil {
		return ledger.PointsTransaction{}, err
	}
	paymentID, err := stringPtrToUUID(errorSubjectTransaction, row.PaymentID)
	if err != nil {
		return ledger.PointsTransaction{}, err
	}
	var transactionType ledger.PointsTransactionType
	switch ledger.PointsTransactionType(row.Type) {
	case ledger.PointsTransactionPurchase, ledger.PointsTransactionRedemption:
		transactionType = ledger.PointsTransactionType(row.Type)
	default:
		return ledger.PointsTransaction{}, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, errors.New("unknown points transaction type "+row.Type))
	}
	return ledger.PointsTransaction{
		TransactionID:  transactionID,
		CustomerID:     customerID,
		Type:           transactionType,
		Amount:         row.Amount,
		BalanceAfter:   row.BalanceAfter,
		BookingID:      bookingID,
		PaymentID:      paymentID,
		Description:    row.Description,
		CreatedUnixUTC: row.CreatedAt.Unix(),
	}, nil
}

func datatypesJSON(raw string) datatypes.JSON {
	if raw == "" {
		return datatypes.JSON([]byte(`{}`))
	}
	return datatypes.JSON([]byte(raw))
}
