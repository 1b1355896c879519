package points

import "context"

// ItemQuantityUpdate sets one item's remaining stock.
type ItemQuantityUpdate struct {
	ItemID            ItemID
	RemainingQuantity int64
}

// Store is the persistence contract used by Service. Implementations must
// make WithTx atomic: either every write inside fn commits or none does, and
// wallet/item reads inside fn must be protected from lost updates.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error

	GetProgram(ctx context.Context, programID ProgramID) (Program, error)

	GetWallet(ctx context.Context, walletID WalletID) (Wallet, error)
	GetWalletByUser(ctx context.Context, programID ProgramID, userID UserID) (Wallet, error)
	ListWalletsByProgram(ctx context.Context, programID ProgramID) ([]Wallet, error)
	CreateWallet(ctx context.Context, wallet Wallet) (Wallet, error)
	CreateWallets(ctx context.Context, wallets []Wallet) ([]Wallet, error)
	UpdateWalletBalances(ctx context.Context, walletID WalletID, personalPoint int64, givingBudget int64) error

	GetItemsByIDs(ctx context.Context, itemIDs []ItemID) ([]RewardItem, error)
	UpdateItemQuantity(ctx context.Context, update ItemQuantityUpdate) error
	UpdateItemQuantities(ctx context.Context, updates []ItemQuantityUpdate) error

	ListActivePolicies(ctx context.Context, programID ProgramID) ([]Policy, error)

	AppendTransaction(ctx context.Context, record Transaction) (Transaction, error)
	AppendTransactions(ctx context.Context, records []Transaction) ([]Transaction, error)
}

// StatisticsProvider supplies per-user performance counters for a date range.
// A single call accepts at most StatisticsBatchLimit user ids; users with no
// data for the range may be omitted from the response.
type StatisticsProvider interface {
	GetStatistics(ctx context.Context, userIDs []UserID, dateRange DateRange) ([]Statistics, error)
}
