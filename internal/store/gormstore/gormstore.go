package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/AuroraPeakLabs/points/pkg/points"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19

	errorOperationStore     = "store"
	errorSubjectProgram     = "program"
	errorSubjectWallet      = "wallet"
	errorSubjectItem        = "item"
	errorSubjectPolicy      = "policy"
	errorSubjectTransaction = "transaction"
	errorCodeGet            = "get"
	errorCodeList           = "list"
	errorCodeCreate         = "create"
	errorCodeDuplicate      = "duplicate"
	errorCodeUpdate         = "update"
	errorCodeAppend         = "append"
	errorCodeInvalid        = "invalid"
)

// Store implements points.Store using GORM. Wallet and item reads lock the
// selected rows so read-check-write sequences inside WithTx cannot lose
// updates under concurrent operations.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Models lists every table the store owns, in migration order.
func Models() []interface{} {
	return []interface{}{
		&Program{},
		&Wallet{},
		&RewardItem{},
		&Policy{},
		&Transaction{},
		&TransactionItem{},
	}
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore points.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) GetProgram(ctx context.Context, programID points.ProgramID) (points.Program, error) {
	var model Program
	err := store.db.WithContext(ctx).
		Where("program_id = ?", programID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return points.Program{}, wrapStoreError(errorSubjectProgram, errorCodeGet, points.ErrProgramNotFound)
		}
		return points.Program{}, wrapStoreError(errorSubjectProgram, errorCodeGet, err)
	}
	return mapProgram(model)
}

func (store *Store) GetWallet(ctx context.Context, walletID points.WalletID) (points.Wallet, error) {
	var model Wallet
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("wallet_id = ?", walletID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return points.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeGet, points.ErrWalletNotFound)
		}
		return points.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeGet, err)
	}
	return mapWallet(model)
}

func (store *Store) GetWalletByUser(ctx context.Context, programID points.ProgramID, userID points.UserID) (points.Wallet, error) {
	var model Wallet
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("program_id = ? AND user_id = ?", programID.String(), userID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return points.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeGet, points.ErrWalletNotFound)
		}
		return points.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeGet, err)
	}
	return mapWallet(model)
}

func (store *Store) ListWalletsByProgram(ctx context.Context, programID points.ProgramID) ([]points.Wallet, error) {
	var rows []Wallet
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("program_id = ?", programID.String()).
		Order("user_id").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectWallet, errorCodeList, err)
	}
	wallets := make([]points.Wallet, 0, len(rows))
	for _, row := range rows {
		wallet, err := mapWallet(row)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, wallet)
	}
	return wallets, nil
}

func (store *Store) CreateWallet(ctx context.Context, wallet points.Wallet) (points.Wallet, error) {
	model := Wallet{
		WalletID:      wallet.WalletID.String(),
		ProgramID:     wallet.ProgramID.String(),
		UserID:        wallet.UserID.String(),
		PersonalPoint: wallet.PersonalPoint,
		GivingBudget:  wallet.GivingBudget,
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err) {
		return points.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeDuplicate, points.ErrWalletExists)
	}
	if err != nil {
		return points.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeCreate, err)
	}
	return mapWallet(model)
}

func (store *Store) CreateWallets(ctx context.Context, wallets []points.Wallet) ([]points.Wallet, error) {
	if len(wallets) == 0 {
		return nil, nil
	}
	models := make([]Wallet, 0, len(wallets))
	for _, wallet := range wallets {
		models = append(models, Wallet{
			WalletID:      wallet.WalletID.String(),
			ProgramID:     wallet.ProgramID.String(),
			UserID:        wallet.UserID.String(),
			PersonalPoint: wallet.PersonalPoint,
			GivingBudget:  wallet.GivingBudget,
		})
	}
	err := store.db.WithContext(ctx).Create(&models).Error
	if isUniqueViolation(err) {
		return nil, wrapStoreError(errorSubjectWallet, errorCodeDuplicate, points.ErrWalletExists)
	}
	if err != nil {
		return nil, wrapStoreError(errorSubjectWallet, errorCodeCreate, err)
	}
	created := make([]points.Wallet, 0, len(models))
	for _, model := range models {
		wallet, err := mapWallet(model)
		if err != nil {
			return nil, err
		}
		created = append(created, wallet)
	}
	return created, nil
}

func (store *Store) UpdateWalletBalances(ctx context.Context, walletID points.WalletID, personalPoint int64, givingBudget int64) error {
	if personalPoint < 0 || givingBudget < 0 {
		return wrapStoreError(errorSubjectWallet, errorCodeInvalid, points.ErrInvalidBalance)
	}
	result := store.db.WithContext(ctx).
		Model(&Wallet{}).
		Where("wallet_id = ?", walletID.String()).
		Updates(map[string]interface{}{
			"personal_point": personalPoint,
			"giving_budget":  givingBudget,
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectWallet, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectWallet, errorCodeUpdate, points.ErrWalletNotFound)
	}
	return nil
}

func (store *Store) GetItemsByIDs(ctx context.Context, itemIDs []points.ItemID) ([]points.RewardItem, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	rawIDs := make([]string, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		rawIDs = append(rawIDs, itemID.String())
	}
	var rows []RewardItem
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("item_id IN ?", rawIDs).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectItem, errorCodeList, err)
	}
	items := make([]points.RewardItem, 0, len(rows))
	for _, row := range rows {
		item, err := mapRewardItem(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (store *Store) UpdateItemQuantity(ctx context.Context, update points.ItemQuantityUpdate) error {
	if update.RemainingQuantity < 0 {
		return wrapStoreError(errorSubjectItem, errorCodeInvalid, points.ErrInvalidBalance)
	}
	result := store.db.WithContext(ctx).
		Model(&RewardItem{}).
		Where("item_id = ?", update.ItemID.String()).
		Update("remaining_quantity", update.RemainingQuantity)
	if result.Error != nil {
		return wrapStoreError(errorSubjectItem, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectItem, errorCodeUpdate, points.ErrItemNotFound)
	}
	return nil
}

func (store *Store) UpdateItemQuantities(ctx context.Context, updates []points.ItemQuantityUpdate) error {
	for _, update := range updates {
		if err := store.UpdateItemQuantity(ctx, update); err != nil {
			return err
		}
	}
	return nil
}

func (store *Store) ListActivePolicies(ctx context.Context, programID points.ProgramID) ([]points.Policy, error) {
	var rows []Policy
	err := store.db.WithContext(ctx).
		Where("program_id = ? AND is_active = ?", programID.String(), true).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectPolicy, errorCodeList, err)
	}
	policies := make([]points.Policy, 0, len(rows))
	for _, row := range rows {
		policy, err := mapPolicy(row)
		if err != nil {
			return nil, err
		}
		policies = append(policies, policy)
	}
	return policies, nil
}

func (store *Store) AppendTransaction(ctx context.Context, record points.Transaction) (points.Transaction, error) {
	model, err := buildTransactionModel(record)
	if err != nil {
		return points.Transaction{}, err
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return points.Transaction{}, wrapStoreError(errorSubjectTransaction, errorCodeAppend, err)
	}
	return mapTransaction(model)
}

func (store *Store) AppendTransactions(ctx context.Context, records []points.Transaction) ([]points.Transaction, error) {
	if len(records) == 0 {
		return nil, nil
	}
	models := make([]Transaction, 0, len(records))
	for _, record := range records {
		model, err := buildTransactionModel(record)
		if err != nil {
			return nil, err
		}
		models = append(models, model)
	}
	if err := store.db.WithContext(ctx).Create(&models).Error; err != nil {
		return nil, wrapStoreError(errorSubjectTransaction, errorCodeAppend, err)
	}
	created := make([]points.Transaction, 0, len(models))
	for _, model := range models {
		record, err := mapTransaction(model)
		if err != nil {
			return nil, err
		}
		created = append(created, record)
	}
	return created, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return points.WrapError(errorOperationStore, subject, code, err)
}

func buildTransactionModel(record points.Transaction) (Transaction, error) {
	var sourceWalletID *string
	if record.SourceWalletID != nil {
		value := record.SourceWalletID.String()
		sourceWalletID = &value
	}
	var metadata datatypes.JSON
	if len(record.PolicyBreakdown) > 0 {
		encoded, err := json.Marshal(record.PolicyBreakdown)
		if err != nil {
			return Transaction{}, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
		}
		metadata = datatypes.JSON(encoded)
	}
	items := make([]TransactionItem, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, TransactionItem{
			ItemID:             item.ItemID.String(),
			Quantity:           item.Quantity,
			TotalPointsForLine: item.TotalPointsForLine,
		})
	}
	createdAt := time.Unix(record.CreatedUnixUTC, 0).UTC()
	if record.CreatedUnixUTC == 0 {
		createdAt = time.Now().UTC()
	}
	return Transaction{
		ProgramID:           record.ProgramID.String(),
		Type:                string(record.Type),
		Amount:              record.Amount,
		SourceWalletID:      sourceWalletID,
		DestinationWalletID: record.DestinationWalletID.String(),
		Metadata:            metadata,
		CreatedAt:           createdAt,
		Items:               items,
	}, nil
}

func mapProgram(model Program) (points.Program, error) {
	programID, err := points.NewProgramID(model.ProgramID)
	if err != nil {
		return points.Program{}, wrapStoreError(errorSubjectProgram, errorCodeInvalid, err)
	}
	return points.Program{
		ProgramID: programID,
		Name:      model.Name,
		Status:    points.ProgramStatus(model.Status),
	}, nil
}

func mapWallet(model Wallet) (points.Wallet, error) {
	walletID, err := points.NewWalletID(model.WalletID)
	if err != nil {
		return points.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeInvalid, err)
	}
	programID, err := points.NewProgramID(model.ProgramID)
	if err != nil {
		return points.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeInvalid, err)
	}
	userID, err := points.NewUserID(model.UserID)
	if err != nil {
		return points.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeInvalid, err)
	}
	return points.Wallet{
		WalletID:      walletID,
		ProgramID:     programID,
		UserID:        userID,
		PersonalPoint: model.PersonalPoint,
		GivingBudget:  model.GivingBudget,
	}, nil
}

func mapRewardItem(model RewardItem) (points.RewardItem, error) {
	itemID, err := points.NewItemID(model.ItemID)
	if err != nil {
		return points.RewardItem{}, wrapStoreError(errorSubjectItem, errorCodeInvalid, err)
	}
	programID, err := points.NewProgramID(model.ProgramID)
	if err != nil {
		return points.RewardItem{}, wrapStoreError(errorSubjectItem, errorCodeInvalid, err)
	}
	return points.RewardItem{
		ItemID:                itemID,
		ProgramID:             programID,
		Name:                  model.Name,
		RequiredPointsPerUnit: model.RequiredPointsPerUnit,
		RemainingQuantity:     model.RemainingQuantity,
	}, nil
}

func mapPolicy(model Policy) (points.Policy, error) {
	programID, err := points.NewProgramID(model.ProgramID)
	if err != nil {
		return points.Policy{}, wrapStoreError(errorSubjectPolicy, errorCodeInvalid, err)
	}
	return points.Policy{
		PolicyID:      model.PolicyID,
		ProgramID:     programID,
		Type:          points.PolicyType(model.Type),
		UnitValue:     model.UnitValue,
		PointsPerUnit: model.PointsPerUnit,
		Active:        model.IsActive,
	}, nil
}

func mapTransaction(model Transaction) (points.Transaction, error) {
	programID, err := points.NewProgramID(model.ProgramID)
	if err != nil {
		return points.Transaction{}, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
	}
	destinationWalletID, err := points.NewWalletID(model.DestinationWalletID)
	if err != nil {
		return points.Transaction{}, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
	}
	var sourceWalletID *points.WalletID
	if model.SourceWalletID != nil {
		parsed, err := points.NewWalletID(*model.SourceWalletID)
		if err != nil {
			return points.Transaction{}, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
		}
		sourceWalletID = &parsed
	}
	var breakdown map[points.PolicyType]int64
	if len(model.Metadata) > 0 {
		if err := json.Unmarshal(model.Metadata, &breakdown); err != nil {
			return points.Transaction{}, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
		}
	}
	items := make([]points.TransactionItem, 0, len(model.Items))
	for _, item := range model.Items {
		itemID, err := points.NewItemID(item.ItemID)
		if err != nil {
			return points.Transaction{}, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
		}
		items = append(items, points.TransactionItem{
			ItemID:             itemID,
			Quantity:           item.Quantity,
			TotalPointsForLine: item.TotalPointsForLine,
		})
	}
	return points.Transaction{
		TransactionID:       model.TransactionID,
		ProgramID:           programID,
		Type:                points.TransactionType(model.Type),
		Amount:              model.Amount,
		SourceWalletID:      sourceWalletID,
		DestinationWalletID: destinationWalletID,
		Items:               items,
		PolicyBreakdown:     breakdown,
		CreatedUnixUTC:      model.CreatedAt.Unix(),
	}, nil
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
