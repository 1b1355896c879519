package points

import (
	"context"
	"fmt"
)

// Gift moves points from the sender's giving budget into each recipient's
// spendable balance, all-or-nothing, and appends one GIFT transaction per
// recipient.
func (service *Service) Gift(ctx context.Context, programID ProgramID, senderUserID UserID, recipients []GiftRecipient) ([]Transaction, error) {
	var created []Transaction
	operationError := func() error {
		if len(recipients) == 0 {
			return fmt.Errorf("%w: empty recipient list", ErrInvalidRequest)
		}
		var totalPoints int64
		for _, recipient := range recipients {
			if recipient.Points <= 0 {
				return fmt.Errorf("%w: non-positive gift amount for user %s", ErrInvalidRequest, recipient.UserID.String())
			}
			totalPoints += recipient.Points.Int64()
		}
		return service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
			if _, err := loadActiveProgram(ctx, txStore, programID); err != nil {
				return err
			}
			sender, err := txStore.GetWalletByUser(ctx, programID, senderUserID)
			if err != nil {
				return err
			}
			if sender.GivingBudget < totalPoints {
				return fmt.Errorf("%w: budget %d, requested %d", ErrInsufficientBudget, sender.GivingBudget, totalPoints)
			}

			// Resolve every recipient before mutating anything; a single
			// missing wallet fails the whole batch. Credits are accumulated
			// per wallet so duplicate recipients collapse into one update.
			walletByUser := make(map[UserID]Wallet, len(recipients))
			credits := make(map[WalletID]int64, len(recipients))
			creditOrder := make([]WalletID, 0, len(recipients))
			for _, recipient := range recipients {
				wallet, seen := walletByUser[recipient.UserID]
				if !seen {
					var err error
					wallet, err = txStore.GetWalletByUser(ctx, programID, recipient.UserID)
					if err != nil {
						return err
					}
					walletByUser[recipient.UserID] = wallet
					creditOrder = append(creditOrder, wallet.WalletID)
				}
				credits[wallet.WalletID] += recipient.Points.Int64()
			}

			if err := txStore.UpdateWalletBalances(ctx, sender.WalletID, sender.PersonalPoint, sender.GivingBudget-totalPoints); err != nil {
				return err
			}
			walletsByID := make(map[WalletID]Wallet, len(walletByUser))
			for _, wallet := range walletByUser {
				walletsByID[wallet.WalletID] = wallet
			}
			for _, walletID := range creditOrder {
				wallet := walletsByID[walletID]
				personalPoint := wallet.PersonalPoint + credits[walletID]
				givingBudget := wallet.GivingBudget
				if walletID == sender.WalletID {
					// Self-gift: the budget debit above already landed.
					givingBudget = sender.GivingBudget - totalPoints
				}
				if err := txStore.UpdateWalletBalances(ctx, walletID, personalPoint, givingBudget); err != nil {
					return err
				}
			}

			sourceWalletID := sender.WalletID
			records := make([]Transaction, 0, len(recipients))
			nowUnixUTC := service.nowFn()
			for _, recipient := range recipients {
				records = append(records, Transaction{
					ProgramID:           programID,
					Type:                TransactionGift,
					Amount:              recipient.Points.Int64(),
					SourceWalletID:      &sourceWalletID,
					DestinationWalletID: walletByUser[recipient.UserID].WalletID,
					CreatedUnixUTC:      nowUnixUTC,
				})
			}
			created, err = txStore.AppendTransactions(ctx, records)
			return err
		})
	}()
	service.logOperation(ctx, OperationLog{
		Operation: operationGift,
		ProgramID: programID,
		UserID:    senderUserID,
		Amount:    sumGiftPoints(recipients),
		Error:     operationError,
	})
	if operationError != nil {
		return nil, operationError
	}
	return created, nil
}

func sumGiftPoints(recipients []GiftRecipient) int64 {
	var total int64
	for _, recipient := range recipients {
		total += recipient.Points.Int64()
	}
	return total
}
