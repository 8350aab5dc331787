package database

import (
	"fmt"

	"viewearn/config"
	"viewearn/internal/models"
	"viewearn/internal/rules"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "mysql", "":
		return mysql.Open(cfg.DSN), nil
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(d, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error), // Only log errors, not every SQL query
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Wallet{},
		&models.CoinTransaction{},
		&models.Earning{},
		&models.CreatorEarning{},
		&models.DailyTask{},
		&models.UserDailyTask{},
		&models.UserStreak{},
		&models.UserMilestone{},
		&models.Reward{},
		&models.UserReward{},
		&models.WithdrawalRequest{},
		&models.Video{},
		&models.Ad{},
		&models.ReferralCode{},
		&models.Referral{},
		&models.Notification{},
		&models.DeviceToken{},
	)
}

// DefaultTasks is the daily task catalog created on first migrate.
var DefaultTasks = []models.DailyTask{
	{Title: "Daily check-in", Kind: rules.KindDailyLogin, Target: 1, RewardAmount: 2, RewardCoins: 10, IsActive: true},
	{Title: "Watch 5 videos", Kind: rules.KindWatchVideos, Target: 5, RewardAmount: 10, RewardCoins: 20, IsActive: true},
	{Title: "Invite a friend", Kind: rules.KindReferFriends, Target: 1, RewardAmount: 5, RewardCoins: 50, IsActive: true},
	{Title: "7-day streak", Kind: rules.KindLoginStreak, Target: 7, RewardAmount: 0, RewardCoins: 100, IsActive: true},
}

var DefaultRewards = []models.Reward{
	{Name: "Gold profile frame", Description: "A gold border around your avatar", CoinPrice: 300, IsActive: true},
	{Name: "Dark theme", Description: "Unlock the dark player theme", CoinPrice: 500, IsActive: true},
	{Name: "Ad-free hour", Description: "One hour without ads", CoinPrice: 1000, IsActive: true},
}

// Seed inserts the default catalog. Existing rows (matched by title or
// name) are left untouched, so running it again is safe.
func Seed(db *gorm.DB) (tasks, rewards int, err error) {
	for _, t := range DefaultTasks {
		t := t
		res := db.Where(models.DailyTask{Title: t.Title}).FirstOrCreate(&t)
		if res.Error != nil {
			return tasks, rewards, fmt.Errorf("seed task %q: %w", t.Title, res.Error)
		}
		tasks += int(res.RowsAffected)
	}
	for _, r := range DefaultRewards {
		r := r
		res := db.Where(models.Reward{Name: r.Name}).FirstOrCreate(&r)
		if res.Error != nil {
			return tasks, rewards, fmt.Errorf("seed reward %q: %w", r.Name, res.Error)
		}
		rewards += int(res.RowsAffected)
	}
	return tasks, rewards, nil
}
