package db

import (
	"fmt"

	"porto/internal/config"
	"porto/internal/domain/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(cfg config.PostgresConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	log.Info("postgres connected", zap.String("host", cfg.Host), zap.String("db", cfg.DB))
	return db, nil
}

// 全モデル。参照される側を先に並べる
var models = []interface{}{
	&model.User{},
	&model.Category{},
	&model.Subcategory{},
	&model.Order{},
	&model.Offer{},
	&model.FavoriteOrder{},
	&model.Event{},
	&model.EventMember{},
	&model.Notification{},
	&model.DeviceToken{},
	&model.AuditLog{},
}

// Migrate はテーブルを作成/追従させる。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
