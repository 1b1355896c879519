package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Program represents the programs table.
type Program struct {
	ProgramID string    `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null"`
	Status    string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Program) TableName() string { return "programs" }

func (program *Program) BeforeCreate(tx *gorm.DB) error {
	if program.ProgramID == "" {
		program.ProgramID = uuid.NewString()
	}
	return nil
}

// Wallet mirrors the wallets table. One row per (program, user).
type Wallet struct {
	WalletID      string    `gorm:"type:uuid;primaryKey"`
	ProgramID     string    `gorm:"type:uuid;not null;index:idx_wallets_program_user,unique,priority:1"`
	UserID        string    `gorm:"not null;index:idx_wallets_program_user,unique,priority:2"`
	PersonalPoint int64     `gorm:"not null"`
	GivingBudget  int64     `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (Wallet) TableName() string { return "wallets" }

func (wallet *Wallet) BeforeCreate(tx *gorm.DB) error {
	if wallet.WalletID == "" {
		wallet.WalletID = uuid.NewString()
	}
	return nil
}

// RewardItem mirrors the reward_items table.
type RewardItem struct {
	ItemID                string    `gorm:"type:uuid;primaryKey"`
	ProgramID             string    `gorm:"type:uuid;not null;index"`
	Name                  string    `gorm:"not null"`
	RequiredPointsPerUnit int64     `gorm:"not null"`
	RemainingQuantity     int64     `gorm:"not null"`
	CreatedAt             time.Time `gorm:"not null"`
	UpdatedAt             time.Time `gorm:"not null"`
}

func (RewardItem) TableName() string { return "reward_items" }

func (item *RewardItem) BeforeCreate(tx *gorm.DB) error {
	if item.ItemID == "" {
		item.ItemID = uuid.NewString()
	}
	return nil
}

// Policy mirrors the policies table.
type Policy struct {
	PolicyID      string    `gorm:"type:uuid;primaryKey"`
	ProgramID     string    `gorm:"type:uuid;not null;index"`
	Type          string    `gorm:"not null"`
	UnitValue     int64     `gorm:"not null"`
	PointsPerUnit int64     `gorm:"not null"`
	IsActive      bool      `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (Policy) TableName() string { return "policies" }

func (policy *Policy) BeforeCreate(tx *gorm.DB) error {
	if policy.PolicyID == "" {
		policy.PolicyID = uuid.NewString()
	}
	return nil
}

// Transaction mirrors the transactions table. Rows are append-only.
type Transaction struct {
	TransactionID       string            `gorm:"type:uuid;primaryKey"`
	ProgramID           string            `gorm:"type:uuid;not null;index"`
	Type                string            `gorm:"not null"`
	Amount              int64             `gorm:"not null"`
	SourceWalletID      *string           `gorm:"type:uuid;index"`
	DestinationWalletID string            `gorm:"type:uuid;not null;index"`
	Metadata            datatypes.JSON    `gorm:"type:jsonb"`
	CreatedAt           time.Time         `gorm:"not null;index"`
	Items               []TransactionItem `gorm:"foreignKey:TransactionID"`
}

func (Transaction) TableName() string { return "transactions" }

func (transaction *Transaction) BeforeCreate(tx *gorm.DB) error {
	if transaction.TransactionID == "" {
		transaction.TransactionID = uuid.NewString()
	}
	return nil
}

// TransactionItem mirrors the transaction_items table.
type TransactionItem struct {
	TransactionItemID  string `gorm:"type:uuid;primaryKey"`
	TransactionID      string `gorm:"type:uuid;not null;index"`
	ItemID             string `gorm:"type:uuid;not null"`
	Quantity           int64  `gorm:"not null"`
	TotalPointsForLine int64  `gorm:"not null"`
}

func (TransactionItem) TableName() string { return "transaction_items" }

func (item *TransactionItem) BeforeCreate(tx *gorm.DB) error {
	if item.TransactionItemID == "" {
		item.TransactionItemID = uuid.NewString()
	}
	return nil
}
