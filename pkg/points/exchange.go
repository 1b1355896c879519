package points

import (
	"context"
	"fmt"
)

// Exchange converts spendable points into catalog items: debits the wallet by
// the total cost, decrements each item's stock, and appends one EXCHANGE
// transaction carrying one line item per requested line.
func (service *Service) Exchange(ctx context.Context, destinationWalletID WalletID, lines []ExchangeLine) (Transaction, error) {
	var created Transaction
	var wallet Wallet
	operationError := func() error {
		if destinationWalletID == (WalletID{}) {
			return fmt.Errorf("%w: missing destination wallet", ErrInvalidRequest)
		}
		if len(lines) == 0 {
			return fmt.Errorf("%w: empty line list", ErrInvalidRequest)
		}
		for _, line := range lines {
			if line.Quantity <= 0 {
				return fmt.Errorf("%w: non-positive quantity for item %s", ErrInvalidRequest, line.ItemID.String())
			}
		}
		return service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
			var err error
			wallet, err = txStore.GetWallet(ctx, destinationWalletID)
			if err != nil {
				return err
			}
			if _, err := loadActiveProgram(ctx, txStore, wallet.ProgramID); err != nil {
				return err
			}

			// Duplicate lines for the same item are legal; stock is checked
			// against the aggregate quantity.
			requestedByItem := make(map[ItemID]int64, len(lines))
			itemOrder := make([]ItemID, 0, len(lines))
			for _, line := range lines {
				if _, seen := requestedByItem[line.ItemID]; !seen {
					itemOrder = append(itemOrder, line.ItemID)
				}
				requestedByItem[line.ItemID] += line.Quantity.Int64()
			}

			items, err := txStore.GetItemsByIDs(ctx, itemOrder)
			if err != nil {
				return err
			}
			itemsByID := make(map[ItemID]RewardItem, len(items))
			for _, item := range items {
				itemsByID[item.ItemID] = item
			}

			var totalCost int64
			for _, itemID := range itemOrder {
				item, found := itemsByID[itemID]
				if !found || item.ProgramID != wallet.ProgramID {
					return fmt.Errorf("%w: item %s", ErrItemNotFound, itemID.String())
				}
				requested := requestedByItem[itemID]
				if item.RemainingQuantity < requested {
					return fmt.Errorf("%w: item %s has %d left, requested %d", ErrInsufficientStock, itemID.String(), item.RemainingQuantity, requested)
				}
				totalCost += item.RequiredPointsPerUnit * requested
			}
			if wallet.PersonalPoint < totalCost {
				return fmt.Errorf("%w: balance %d, cost %d", ErrInsufficientBalance, wallet.PersonalPoint, totalCost)
			}

			if err := txStore.UpdateWalletBalances(ctx, wallet.WalletID, wallet.PersonalPoint-totalCost, wallet.GivingBudget); err != nil {
				return err
			}
			updates := make([]ItemQuantityUpdate, 0, len(itemOrder))
			for _, itemID := range itemOrder {
				updates = append(updates, ItemQuantityUpdate{
					ItemID:            itemID,
					RemainingQuantity: itemsByID[itemID].RemainingQuantity - requestedByItem[itemID],
				})
			}
			if err := txStore.UpdateItemQuantities(ctx, updates); err != nil {
				return err
			}

			transactionItems := make([]TransactionItem, 0, len(lines))
			for _, line := range lines {
				item := itemsByID[line.ItemID]
				transactionItems = append(transactionItems, TransactionItem{
					ItemID:             line.ItemID,
					Quantity:           line.Quantity.Int64(),
					TotalPointsForLine: item.RequiredPointsPerUnit * line.Quantity.Int64(),
				})
			}
			created, err = txStore.AppendTransaction(ctx, Transaction{
				ProgramID:           wallet.ProgramID,
				Type:                TransactionExchange,
				Amount:              totalCost,
				DestinationWalletID: wallet.WalletID,
				Items:               transactionItems,
				CreatedUnixUTC:      service.nowFn(),
			})
			return err
		})
	}()
	service.logOperation(ctx, OperationLog{
		Operation: operationExchange,
		ProgramID: wallet.ProgramID,
		UserID:    wallet.UserID,
		WalletID:  destinationWalletID,
		Amount:    created.Amount,
		Error:     operationError,
	})
	if operationError != nil {
		return Transaction{}, operationError
	}
	return created, nil
}
