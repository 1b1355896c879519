package points

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"
)

// stubStore is an in-memory Store for service tests. WithTx snapshots state
// and restores it when fn fails, mirroring commit-or-rollback semantics; the
// mutex serializes concurrent transactions the way row locks do.
type stubStore struct {
	mu                sync.Mutex
	programs          map[ProgramID]Program
	wallets           map[WalletID]Wallet
	items             map[ItemID]RewardItem
	policies          []Policy
	transactions      []Transaction
	nextTransactionID int

	failWalletUpdate map[WalletID]error
	failAppend       error
}

func newStubStore(test *testing.T) *stubStore {
	test.Helper()
	return &stubStore{
		programs:         make(map[ProgramID]Program),
		wallets:          make(map[WalletID]Wallet),
		items:            make(map[ItemID]RewardItem),
		failWalletUpdate: make(map[WalletID]error),
	}
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	walletSnapshot := make(map[WalletID]Wallet, len(store.wallets))
	for walletID, wallet := range store.wallets {
		walletSnapshot[walletID] = wallet
	}
	itemSnapshot := make(map[ItemID]RewardItem, len(store.items))
	for itemID, item := range store.items {
		itemSnapshot[itemID] = item
	}
	transactionCount := len(store.transactions)
	transactionIDSnapshot := store.nextTransactionID

	if err := fn(ctx, store); err != nil {
		store.wallets = walletSnapshot
		store.items = itemSnapshot
		store.transactions = store.transactions[:transactionCount]
		store.nextTransactionID = transactionIDSnapshot
		return err
	}
	return nil
}

func (store *stubStore) GetProgram(ctx context.Context, programID ProgramID) (Program, error) {
	program, found := store.programs[programID]
	if !found {
		return Program{}, fmt.Errorf("%w: %s", ErrProgramNotFound, programID.String())
	}
	return program, nil
}

func (store *stubStore) GetWallet(ctx context.Context, walletID WalletID) (Wallet, error) {
	wallet, found := store.wallets[walletID]
	if !found {
		return Wallet{}, fmt.Errorf("%w: %s", ErrWalletNotFound, walletID.String())
	}
	return wallet, nil
}

func (store *stubStore) GetWalletByUser(ctx context.Context, programID ProgramID, userID UserID) (Wallet, error) {
	for _, wallet := range store.wallets {
		if wallet.ProgramID == programID && wallet.UserID == userID {
			return wallet, nil
		}
	}
	return Wallet{}, fmt.Errorf("%w: user %s in program %s", ErrWalletNotFound, userID.String(), programID.String())
}

func (store *stubStore) ListWalletsByProgram(ctx context.Context, programID ProgramID) ([]Wallet, error) {
	wallets := make([]Wallet, 0)
	for _, wallet := range store.wallets {
		if wallet.ProgramID == programID {
			wallets = append(wallets, wallet)
		}
	}
	sortWalletsByUser(wallets)
	return wallets, nil
}

func (store *stubStore) CreateWallet(ctx context.Context, wallet Wallet) (Wallet, error) {
	if _, exists := store.wallets[wallet.WalletID]; exists {
		return Wallet{}, ErrWalletExists
	}
	store.wallets[wallet.WalletID] = wallet
	return wallet, nil
}

func (store *stubStore) CreateWallets(ctx context.Context, wallets []Wallet) ([]Wallet, error) {
	created := make([]Wallet, 0, len(wallets))
	for _, wallet := range wallets {
		createdWallet, err := store.CreateWallet(ctx, wallet)
		if err != nil {
			return nil, err
		}
		created = append(created, createdWallet)
	}
	return created, nil
}

func (store *stubStore) UpdateWalletBalances(ctx context.Context, walletID WalletID, personalPoint int64, givingBudget int64) error {
	if err := store.failWalletUpdate[walletID]; err != nil {
		return err
	}
	if personalPoint < 0 || givingBudget < 0 {
		return ErrInvalidBalance
	}
	wallet, found := store.wallets[walletID]
	if !found {
		return fmt.Errorf("%w: %s", ErrWalletNotFound, walletID.String())
	}
	wallet.PersonalPoint = personalPoint
	wallet.GivingBudget = givingBudget
	store.wallets[walletID] = wallet
	return nil
}

func (store *stubStore) GetItemsByIDs(ctx context.Context, itemIDs []ItemID) ([]RewardItem, error) {
	items := make([]RewardItem, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		if item, found := store.items[itemID]; found {
			items = append(items, item)
		}
	}
	return items, nil
}

func (store *stubStore) UpdateItemQuantity(ctx context.Context, update ItemQuantityUpdate) error {
	if update.RemainingQuantity < 0 {
		return ErrInvalidBalance
	}
	item, found := store.items[update.ItemID]
	if !found {
		return fmt.Errorf("%w: %s", ErrItemNotFound, update.ItemID.String())
	}
	item.RemainingQuantity = update.RemainingQuantity
	store.items[update.ItemID] = item
	return nil
}

func (store *stubStore) UpdateItemQuantities(ctx context.Context, updates []ItemQuantityUpdate) error {
	for _, update := range updates {
		if err := store.UpdateItemQuantity(ctx, update); err != nil {
			return err
		}
	}
	return nil
}

func (store *stubStore) ListActivePolicies(ctx context.Context, programID ProgramID) ([]Policy, error) {
	policies := make([]Policy, 0, len(store.policies))
	for _, policy := range store.policies {
		if policy.ProgramID == programID && policy.Active {
			policies = append(policies, policy)
		}
	}
	return policies, nil
}

func (store *stubStore) AppendTransaction(ctx context.Context, record Transaction) (Transaction, error) {
	if store.failAppend != nil {
		return Transaction{}, store.failAppend
	}
	store.nextTransactionID++
	record.TransactionID = fmt.Sprintf("tx-%d", store.nextTransactionID)
	store.transactions = append(store.transactions, record)
	return record, nil
}

func (store *stubStore) AppendTransactions(ctx context.Context, records []Transaction) ([]Transaction, error) {
	created := make([]Transaction, 0, len(records))
	for _, record := range records {
		createdRecord, err := store.AppendTransaction(ctx, record)
		if err != nil {
			return nil, err
		}
		created = append(created, createdRecord)
	}
	return created, nil
}

func sortWalletsByUser(wallets []Wallet) {
	sort.Slice(wallets, func(i, j int) bool {
		return wallets[i].UserID.String() < wallets[j].UserID.String()
	})
}

// Fixture helpers.

func (store *stubStore) addProgram(test *testing.T, rawID string, status ProgramStatus) ProgramID {
	test.Helper()
	programID := mustProgramID(test, rawID)
	store.programs[programID] = Program{ProgramID: programID, Name: rawID, Status: status}
	return programID
}

func (store *stubStore) addWallet(test *testing.T, programID ProgramID, rawUserID string, personalPoint, givingBudget int64) Wallet {
	test.Helper()
	wallet := Wallet{
		WalletID:      mustWalletID(test, "wallet-"+rawUserID),
		ProgramID:     programID,
		UserID:        mustUserID(test, rawUserID),
		PersonalPoint: personalPoint,
		GivingBudget:  givingBudget,
	}
	store.wallets[wallet.WalletID] = wallet
	return wallet
}

func (store *stubStore) addItem(test *testing.T, programID ProgramID, rawID string, requiredPoints, remaining int64) RewardItem {
	test.Helper()
	item := RewardItem{
		ItemID:                mustItemID(test, rawID),
		ProgramID:             programID,
		Name:                  rawID,
		RequiredPointsPerUnit: requiredPoints,
		RemainingQuantity:     remaining,
	}
	store.items[item.ItemID] = item
	return item
}

func (store *stubStore) addPolicy(test *testing.T, programID ProgramID, policyType PolicyType, unitValue, pointsPerUnit int64, active bool) Policy {
	test.Helper()
	policy := Policy{
		PolicyID:      fmt.Sprintf("policy-%s", policyType),
		ProgramID:     programID,
		Type:          policyType,
		UnitValue:     unitValue,
		PointsPerUnit: pointsPerUnit,
		Active:        active,
	}
	store.policies = append(store.policies, policy)
	return policy
}

func (store *stubStore) wallet(test *testing.T, walletID WalletID) Wallet {
	test.Helper()
	wallet, found := store.wallets[walletID]
	if !found {
		test.Fatalf("wallet %s not found", walletID.String())
	}
	return wallet
}

func (store *stubStore) item(test *testing.T, itemID ItemID) RewardItem {
	test.Helper()
	item, found := store.items[itemID]
	if !found {
		test.Fatalf("item %s not found", itemID.String())
	}
	return item
}

// stubStatisticsProvider serves canned statistics and records batch sizes.
type stubStatisticsProvider struct {
	byUser     map[UserID]Statistics
	batchSizes []int
	err        error
}

func (provider *stubStatisticsProvider) GetStatistics(ctx context.Context, userIDs []UserID, dateRange DateRange) ([]Statistics, error) {
	if provider.err != nil {
		return nil, provider.err
	}
	provider.batchSizes = append(provider.batchSizes, len(userIDs))
	results := make([]Statistics, 0, len(userIDs))
	for _, userID := range userIDs {
		if statistics, found := provider.byUser[userID]; found {
			results = append(results, statistics)
		}
	}
	return results, nil
}

// must helpers.

func mustNewService(test *testing.T, store Store, provider StatisticsProvider, options ...ServiceOption) *Service {
	test.Helper()
	service, err := NewService(store, provider, func() int64 { return 100 }, options...)
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
}

func mustProgramID(test *testing.T, raw string) ProgramID {
	test.Helper()
	value, err := NewProgramID(raw)
	if err != nil {
		test.Fatalf("program id: %v", err)
	}
	return value
}

func mustUserID(test *testing.T, raw string) UserID {
	test.Helper()
	value, err := NewUserID(raw)
	if err != nil {
		test.Fatalf("user id: %v", err)
	}
	return value
}

func mustWalletID(test *testing.T, raw string) WalletID {
	test.Helper()
	value, err := NewWalletID(raw)
	if err != nil {
		test.Fatalf("wallet id: %v", err)
	}
	return value
}

func mustItemID(test *testing.T, raw string) ItemID {
	test.Helper()
	value, err := NewItemID(raw)
	if err != nil {
		test.Fatalf("item id: %v", err)
	}
	return value
}

func mustPointAmount(test *testing.T, raw int64) PointAmount {
	test.Helper()
	value, err := NewPointAmount(raw)
	if err != nil {
		test.Fatalf("point amount: %v", err)
	}
	return value
}

func mustQuantity(test *testing.T, raw int64) Quantity {
	test.Helper()
	value, err := NewQuantity(raw)
	if err != nil {
		test.Fatalf("quantity: %v", err)
	}
	return value
}

func mustDateRange(test *testing.T, from, to string) DateRange {
	test.Helper()
	fromDate, err := time.Parse("2006-01-02", from)
	if err != nil {
		test.Fatalf("from date: %v", err)
	}
	toDate, err := time.Parse("2006-01-02", to)
	if err != nil {
		test.Fatalf("to date: %v", err)
	}
	dateRange, err := NewDateRange(fromDate, toDate)
	if err != nil {
		test.Fatalf("date range: %v", err)
	}
	return dateRange
}
