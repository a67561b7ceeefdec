package repository

import (
	"context"

	repo "porto/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders    repo.OrderRepository
	offers    repo.OfferRepository
	events    repo.EventRepository
	users     repo.UserRepository
	auditLogs repo.AuditLogRepository
	catalog   repo.CatalogStore
}

func (r *txReposGorm) Orders() repo.OrderRepository       { return r.orders }
func (r *txReposGorm) Offers() repo.OfferRepository       { return r.offers }
func (r *txReposGorm) Events() repo.EventRepository       { return r.events }
func (r *txReposGorm) Users() repo.UserRepository         { return r.users }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository { return r.auditLogs }
func (r *txReposGorm) Catalog() repo.CatalogStore         { return r.catalog }

type TxManagerGorm struct {
	db       *gorm.DB
	pageSize int
}

func NewTxManagerGorm(db *gorm.DB, pageSize int) *TxManagerGorm {
	return &TxManagerGorm{db: db, pageSize: pageSize}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			orders:    NewOrderGormRepository(tx, tm.pageSize),
			offers:    NewOfferGormRepository(tx, tm.pageSize),
			events:    NewEventGormRepository(tx, tm.pageSize),
			users:     NewUserGormRepository(tx),
			auditLogs: NewAuditLogGormRepository(tx, tm.pageSize),
			catalog:   NewCatalogGormRepository(tx),
		}
		return fn(r)
	})
}
