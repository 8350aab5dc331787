package main

import (
	"viewearn/internal/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update tables and seed the default task and reward catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		db, err := database.NewDB(&cfg.Database)
		if err != nil {
			return err
		}
		return migrateAndSeed(db, log)
	},
}

func migrateAndSeed(db *gorm.DB, log *zap.Logger) error {
	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	tasks, rewards, err := database.Seed(db)
	if err != nil {
		return err
	}
	log.Info("migration complete", zap.Int("tasks_seeded", tasks), zap.Int("rewards_seeded", rewards))
	return nil
}
