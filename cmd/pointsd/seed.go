package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AuroraPeakLabs/points/internal/store/gormstore"
	"github.com/AuroraPeakLabs/points/pkg/points"
)

// newSeedCommand provisions a demo program with wallets, catalog items, and
// distribution policies. Intended for local runs against sqlite.
func newSeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Provision a demo program with wallets, items, and policies",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			viper.AutomaticEnv()
			if err := viper.BindEnv(configKeyDatabaseURL, "DATABASE_URL"); err != nil {
				return err
			}
			databaseURL := viper.GetString(configKeyDatabaseURL)
			if databaseURL == "" {
				databaseURL = defaultDatabaseURL
			}
			return runSeed(cmd.Context(), databaseURL)
		},
	}
	return cmd
}

func runSeed(ctx context.Context, databaseURL string) error {
	gormDB, cleanup, driver, err := openDatabase(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer cleanup()
	if err := prepareSchema(gormDB, driver); err != nil {
		return err
	}

	program := gormstore.Program{Name: "Quarterly Incentives", Status: string(points.ProgramStatusActive)}
	if err := gormDB.WithContext(ctx).Create(&program).Error; err != nil {
		return fmt.Errorf("seed program: %w", err)
	}
	items := []gormstore.RewardItem{
		{ProgramID: program.ProgramID, Name: "Coffee voucher", RequiredPointsPerUnit: 50, RemainingQuantity: 200},
		{ProgramID: program.ProgramID, Name: "Team lunch", RequiredPointsPerUnit: 300, RemainingQuantity: 40},
		{ProgramID: program.ProgramID, Name: "Extra day off", RequiredPointsPerUnit: 1000, RemainingQuantity: 10},
	}
	if err := gormDB.WithContext(ctx).Create(&items).Error; err != nil {
		return fmt.Errorf("seed items: %w", err)
	}
	policies := []gormstore.Policy{
		{ProgramID: program.ProgramID, Type: string(points.PolicyNotLate), UnitValue: 1, PointsPerUnit: 5, IsActive: true},
		{ProgramID: program.ProgramID, Type: string(points.PolicyOvertime), UnitValue: 60, PointsPerUnit: 2, IsActive: true},
		{ProgramID: program.ProgramID, Type: string(points.PolicyFullAttendance), UnitValue: 20, PointsPerUnit: 100, IsActive: true},
	}
	if err := gormDB.WithContext(ctx).Create(&policies).Error; err != nil {
		return fmt.Errorf("seed policies: %w", err)
	}

	programID, err := points.NewProgramID(program.ProgramID)
	if err != nil {
		return err
	}
	store := gormstore.New(gormDB)
	wallets := make([]points.Wallet, 0, 5)
	for index := 1; index <= 5; index++ {
		userID, err := points.NewUserID(fmt.Sprintf("demo-user-%d", index))
		if err != nil {
			return err
		}
		wallets = append(wallets, points.Wallet{
			ProgramID:     programID,
			UserID:        userID,
			PersonalPoint: 500,
			GivingBudget:  100,
		})
	}
	created, err := store.CreateWallets(ctx, wallets)
	if err != nil {
		return fmt.Errorf("seed wallets: %w", err)
	}

	fmt.Printf("seeded program %s with %d wallets, %d items, %d policies\n",
		program.ProgramID, len(created), len(items), len(policies))
	return nil
}
