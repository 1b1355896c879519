package points

import (
	"context"
	"fmt"
)

// Distribute applies every active policy of a program to the performance
// statistics of its wallet holders over a date range and credits spendable
// balances. One POLICY_REWARD transaction is appended per credited user,
// aggregating all policies; users with no statistics or a zero yield are
// skipped. All writes commit as a single atomic unit.
func (service *Service) Distribute(ctx context.Context, programID ProgramID, dateRange DateRange) (DistributionSummary, error) {
	var summary DistributionSummary
	operationError := func() error {
		if service.statistics == nil {
			return fmt.Errorf("%w: statistics provider is nil", ErrInvalidServiceConfig)
		}
		return service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
			if _, err := loadActiveProgram(ctx, txStore, programID); err != nil {
				return err
			}
			policies, err := txStore.ListActivePolicies(ctx, programID)
			if err != nil {
				return err
			}
			wallets, err := txStore.ListWalletsByProgram(ctx, programID)
			if err != nil {
				return err
			}
			if len(policies) == 0 || len(wallets) == 0 {
				return nil
			}
			summary.UsersProcessed = len(wallets)

			userIDs := make([]UserID, 0, len(wallets))
			for _, wallet := range wallets {
				userIDs = append(userIDs, wallet.UserID)
			}
			statisticsByUser, err := service.fetchStatistics(ctx, userIDs, dateRange)
			if err != nil {
				return err
			}

			records := make([]Transaction, 0, len(wallets))
			credited := make([]Wallet, 0, len(wallets))
			nowUnixUTC := service.nowFn()
			for _, wallet := range wallets {
				statistics, found := statisticsByUser[wallet.UserID]
				if !found {
					// Absence of data is not an error; the user earns nothing.
					continue
				}
				breakdown := make(map[PolicyType]int64, len(policies))
				var userPoints int64
				for _, policy := range policies {
					pointsForPolicy := policy.PointsFor(statistics)
					if pointsForPolicy == 0 {
						continue
					}
					breakdown[policy.Type] += pointsForPolicy
					userPoints += pointsForPolicy
				}
				if userPoints == 0 {
					continue
				}
				credited = append(credited, wallet)
				summary.PointsDistributed += userPoints
				summary.PerUser = append(summary.PerUser, UserDistribution{
					UserID:    wallet.UserID,
					WalletID:  wallet.WalletID,
					Points:    userPoints,
					Breakdown: breakdown,
				})
				records = append(records, Transaction{
					ProgramID:           programID,
					Type:                TransactionPolicyReward,
					Amount:              userPoints,
					DestinationWalletID: wallet.WalletID,
					PolicyBreakdown:     breakdown,
					CreatedUnixUTC:      nowUnixUTC,
				})
			}
			if len(records) == 0 {
				return nil
			}

			for index, wallet := range credited {
				if err := txStore.UpdateWalletBalances(ctx, wallet.WalletID, wallet.PersonalPoint+records[index].Amount, wallet.GivingBudget); err != nil {
					return err
				}
			}
			if _, err := txStore.AppendTransactions(ctx, records); err != nil {
				return err
			}
			summary.TransactionsCreated = len(records)
			return nil
		})
	}()
	service.logOperation(ctx, OperationLog{
		Operation: operationDistribute,
		ProgramID: programID,
		Amount:    summary.PointsDistributed,
		Error:     operationError,
	})
	if operationError != nil {
		return DistributionSummary{}, operationError
	}
	return summary, nil
}

// fetchStatistics queries the provider in batches of at most
// StatisticsBatchLimit ids and merges the partial responses into one lookup.
// Users omitted from a response simply stay absent from the map.
func (service *Service) fetchStatistics(ctx context.Context, userIDs []UserID, dateRange DateRange) (map[UserID]Statistics, error) {
	statisticsByUser := make(map[UserID]Statistics, len(userIDs))
	for start := 0; start < len(userIDs); start += StatisticsBatchLimit {
		end := start + StatisticsBatchLimit
		if end > len(userIDs) {
			end = len(userIDs)
		}
		batch, err := service.statistics.GetStatistics(ctx, userIDs[start:end], dateRange)
		if err != nil {
			return nil, WrapError(operationDistribute, "statistics", "fetch", err)
		}
		for _, statistics := range batch {
			statisticsByUser[statistics.UserID] = statistics
		}
	}
	return statisticsByUser, nil
}
