package points

import (
	"fmt"
	"strings"
	"time"
)

// ProgramID identifies an incentive program.
type ProgramID struct {
	value string
}

// UserID identifies a wallet owner within a program.
type UserID struct {
	value string
}

// WalletID identifies a per-(user, program) wallet.
type WalletID struct {
	value string
}

// ItemID identifies a redeemable catalog item.
type ItemID struct {
	value string
}

// PointAmount is a strictly positive number of points.
type PointAmount int64

// Quantity is a strictly positive item count.
type Quantity int64

// NewProgramID validates and normalizes a program id.
func NewProgramID(raw string) (ProgramID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ProgramID{}, fmt.Errorf("%w: empty value", ErrInvalidProgramID)
	}
	return ProgramID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id ProgramID) String() string {
	return id.value
}

// NewUserID validates and normalizes a user id.
func NewUserID(raw string) (UserID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return UserID{}, fmt.Errorf("%w: empty value", ErrInvalidUserID)
	}
	return UserID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id UserID) String() string {
	return id.value
}

// NewWalletID validates and normalizes a wallet id.
func NewWalletID(raw string) (WalletID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return WalletID{}, fmt.Errorf("%w: empty value", ErrInvalidWalletID)
	}
	return WalletID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id WalletID) String() string {
	return id.value
}

// NewItemID validates and normalizes an item id.
func NewItemID(raw string) (ItemID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ItemID{}, fmt.Errorf("%w: empty value", ErrInvalidItemID)
	}
	return ItemID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id ItemID) String() string {
	return id.value
}

// NewPointAmount validates an amount and ensures it is strictly positive.
func NewPointAmount(raw int64) (PointAmount, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidPointAmount)
	}
	return PointAmount(raw), nil
}

// Int64 returns the raw amount.
func (amount PointAmount) Int64() int64 {
	return int64(amount)
}

// NewQuantity validates a count and ensures it is strictly positive.
func NewQuantity(raw int64) (Quantity, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidQuantity)
	}
	return Quantity(raw), nil
}

// Int64 returns the raw count.
func (quantity Quantity) Int64() int64 {
	return int64(quantity)
}

// ProgramStatus defines the program lifecycle.
type ProgramStatus string

const (
	ProgramStatusActive   ProgramStatus = "active"
	ProgramStatusInactive ProgramStatus = "inactive"
)

// Program is the organizational unit owning wallets, items, and policies.
// The ledger only ever checks its status; authoring lives elsewhere.
type Program struct {
	ProgramID ProgramID
	Name      string
	Status    ProgramStatus
}

// Wallet is the per-(user, program) balance record. PersonalPoint is the
// spendable pool, GivingBudget the grantable pool; the two never mix except
// through a gift.
type Wallet struct {
	WalletID      WalletID
	ProgramID     ProgramID
	UserID        UserID
	PersonalPoint int64
	GivingBudget  int64
}

// RewardItem is a redeemable catalog entry with remaining stock.
type RewardItem struct {
	ItemID                ItemID
	ProgramID             ProgramID
	Name                  string
	RequiredPointsPerUnit int64
	RemainingQuantity     int64
}

// TransactionType enumerates point movements.
type TransactionType string

const (
	TransactionGift         TransactionType = "GIFT"
	TransactionExchange     TransactionType = "EXCHANGE"
	TransactionPolicyReward TransactionType = "POLICY_REWARD"
)

// Transaction is one immutable line in the audit trail. Amount is always
// positive; direction is implied by the type and wallet references.
type Transaction struct {
	TransactionID       string
	ProgramID           ProgramID
	Type                TransactionType
	Amount              int64
	SourceWalletID      *WalletID
	DestinationWalletID WalletID
	Items               []TransactionItem
	PolicyBreakdown     map[PolicyType]int64
	CreatedUnixUTC      int64
}

// TransactionItem is one exchange line attached to its parent transaction.
type TransactionItem struct {
	ItemID             ItemID
	Quantity           int64
	TotalPointsForLine int64
}

// GiftRecipient is one (user, points) pair of a gift command.
type GiftRecipient struct {
	UserID UserID
	Points PointAmount
}

// ExchangeLine is one (item, quantity) pair of an exchange command.
type ExchangeLine struct {
	ItemID   ItemID
	Quantity Quantity
}

// Statistics carries the external per-user performance counters for a period.
type Statistics struct {
	UserID               UserID
	TotalDays            int64
	LateDays             int64
	TotalOvertimeMinutes int64
	MorningPresentDays   int64
	AfternoonPresentDays int64
}

// UserDistribution summarizes one user's share of a distribution run.
type UserDistribution struct {
	UserID    UserID
	WalletID  WalletID
	Points    int64
	Breakdown map[PolicyType]int64
}

// DistributionSummary is the result of a distribution run.
type DistributionSummary struct {
	UsersProcessed      int
	PointsDistributed   int64
	TransactionsCreated int
	PerUser             []UserDistribution
}

// DateRange bounds a distribution query, inclusive on both ends.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange validates a range and normalizes both ends to UTC.
func NewDateRange(from, to time.Time) (DateRange, error) {
	if from.IsZero() || to.IsZero() {
		return DateRange{}, fmt.Errorf("%w: zero date", ErrInvalidDateRange)
	}
	if to.Before(from) {
		return DateRange{}, fmt.Errorf("%w: end precedes start", ErrInvalidDateRange)
	}
	return DateRange{From: from.UTC(), To: to.UTC()}, nil
}
