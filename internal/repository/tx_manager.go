package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Orders() OrderRepository
	Offers() OfferRepository
	Events() EventRepository
	Users() UserRepository
	AuditLogs() AuditLogRepository
	Catalog() CatalogStore
}

// UsecaseからTxの開始/commit/rollbackを隠す。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
