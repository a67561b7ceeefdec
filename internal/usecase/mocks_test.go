package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"porto/internal/domain/model"
	"porto/internal/notification"
	"porto/internal/pagination"
	repo "porto/internal/repository"
	"porto/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	orders    repo.OrderRepository
	offers    repo.OfferRepository
	events    repo.EventRepository
	users     repo.UserRepository
	auditLogs repo.AuditLogRepository
	catalog   repo.CatalogStore
}

func (r *TxReposMock) Orders() repo.OrderRepository       { return r.orders }
func (r *TxReposMock) Offers() repo.OfferRepository       { return r.offers }
func (r *TxReposMock) Events() repo.EventRepository       { return r.events }
func (r *TxReposMock) Users() repo.UserRepository         { return r.users }
func (r *TxReposMock) AuditLogs() repo.AuditLogRepository { return r.auditLogs }
func (r *TxReposMock) Catalog() repo.CatalogStore         { return r.catalog }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) Search(ctx context.Context, f repo.OrderSearchFilter) ([]model.Order, pagination.Paginator, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(pagination.Paginator), args.Error(2)
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (model.Order, error) {
	args := m.Called(ctx, order)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) UpdateFields(ctx context.Context, orderID int64, fields map[string]interface{}) error {
	args := m.Called(ctx, orderID, fields)
	return args.Error(0)
}

func (m *OrderRepoMock) UpdateStage(ctx context.Context, orderID int64, stage model.Stage, confirmedAt *time.Time) error {
	args := m.Called(ctx, orderID, stage, confirmedAt)
	return args.Error(0)
}

func (m *OrderRepoMock) UpdateBlock(ctx context.Context, orderID int64, isBlock bool, comment *string) error {
	args := m.Called(ctx, orderID, isBlock, comment)
	return args.Error(0)
}

func (m *OrderRepoMock) UpdateModeration(ctx context.Context, orderID int64, status model.ModStatus, comment *string) error {
	args := m.Called(ctx, orderID, status, comment)
	return args.Error(0)
}

func (m *OrderRepoMock) Delete(ctx context.Context, orderID int64) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *OrderRepoMock) SetFavorite(ctx context.Context, userID int64, orderID int64, isFavorite bool) error {
	args := m.Called(ctx, userID, orderID, isFavorite)
	return args.Error(0)
}

func (m *OrderRepoMock) IsFavorite(ctx context.Context, userID int64, orderID int64) (bool, error) {
	args := m.Called(ctx, userID, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *OrderRepoMock) DeleteFavorites(ctx context.Context, orderID int64) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *OrderRepoMock) ArchiveExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type OfferRepoMock struct{ mock.Mock }

func (m *OfferRepoMock) FindByID(ctx context.Context, offerID int64) (model.Offer, error) {
	args := m.Called(ctx, offerID)
	o, _ := args.Get(0).(model.Offer)
	return o, args.Error(1)
}

func (m *OfferRepoMock) Search(ctx context.Context, f repo.OfferSearchFilter) ([]model.Offer, pagination.Paginator, error) {
	args := m.Called(ctx, f)
	offers, _ := args.Get(0).([]model.Offer)
	return offers, args.Get(1).(pagination.Paginator), args.Error(2)
}

func (m *OfferRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.Offer, error) {
	args := m.Called(ctx, orderID)
	offers, _ := args.Get(0).([]model.Offer)
	return offers, args.Error(1)
}

func (m *OfferRepoMock) FindWinner(ctx context.Context, orderID int64) (model.Offer, bool, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Offer)
	return o, args.Bool(1), args.Error(2)
}

func (m *OfferRepoMock) Create(ctx context.Context, offer model.Offer) (model.Offer, error) {
	args := m.Called(ctx, offer)
	o, _ := args.Get(0).(model.Offer)
	return o, args.Error(1)
}

func (m *OfferRepoMock) Delete(ctx context.Context, offerID int64) error {
	args := m.Called(ctx, offerID)
	return args.Error(0)
}

func (m *OfferRepoMock) ResetWinners(ctx context.Context, orderID int64) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *OfferRepoMock) MarkWinner(ctx context.Context, orderID int64, offerID int64) error {
	args := m.Called(ctx, orderID, offerID)
	return args.Error(0)
}

type EventRepoMock struct{ mock.Mock }

func (m *EventRepoMock) FindByID(ctx context.Context, eventID int64) (model.Event, error) {
	args := m.Called(ctx, eventID)
	e, _ := args.Get(0).(model.Event)
	return e, args.Error(1)
}

func (m *EventRepoMock) Search(ctx context.Context, f repo.EventSearchFilter) ([]model.Event, pagination.Paginator, error) {
	args := m.Called(ctx, f)
	events, _ := args.Get(0).([]model.Event)
	return events, args.Get(1).(pagination.Paginator), args.Error(2)
}

func (m *EventRepoMock) IsMember(ctx context.Context, eventID int64, userID int64) (bool, error) {
	args := m.Called(ctx, eventID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *EventRepoMock) ListMemberIDs(ctx context.Context, eventID int64) ([]int64, error) {
	args := m.Called(ctx, eventID)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

func (m *EventRepoMock) FindMember(ctx context.Context, memberID int64) (model.EventMember, error) {
	args := m.Called(ctx, memberID)
	em, _ := args.Get(0).(model.EventMember)
	return em, args.Error(1)
}

func (m *EventRepoMock) CountMembers(ctx context.Context, eventID int64) (int64, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *EventRepoMock) AddMember(ctx context.Context, member model.EventMember) (model.EventMember, error) {
	args := m.Called(ctx, member)
	em, _ := args.Get(0).(model.EventMember)
	return em, args.Error(1)
}

func (m *EventRepoMock) UpdateMemberStatus(ctx context.Context, memberID int64, status model.AcceptingStatus) error {
	args := m.Called(ctx, memberID, status)
	return args.Error(0)
}

func (m *EventRepoMock) DeleteMember(ctx context.Context, memberID int64) error {
	args := m.Called(ctx, memberID)
	return args.Error(0)
}

func (m *EventRepoMock) Create(ctx context.Context, event model.Event, memberIDs []int64) (model.Event, error) {
	args := m.Called(ctx, event, memberIDs)
	e, _ := args.Get(0).(model.Event)
	return e, args.Error(1)
}

func (m *EventRepoMock) UpdateModeration(ctx context.Context, eventID int64, status model.ModStatus, comment *string) error {
	args := m.Called(ctx, eventID, status, comment)
	return args.Error(0)
}

func (m *EventRepoMock) ArchiveExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByIDs(ctx context.Context, userIDs []int64) (map[int64]model.User, error) {
	args := m.Called(ctx, userIDs)
	users, _ := args.Get(0).(map[int64]model.User)
	return users, args.Error(1)
}

func (m *UserRepoMock) AdjustCounter(ctx context.Context, userID int64, counter repo.UserCounter, delta int) error {
	args := m.Called(ctx, userID, counter, delta)
	return args.Error(0)
}

type UserDirectoryMock struct{ mock.Mock }

func (m *UserDirectoryMock) ListActiveIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

type CatalogRepoMock struct{ mock.Mock }

func (m *CatalogRepoMock) CategoryExists(ctx context.Context, categoryID int64) (bool, error) {
	args := m.Called(ctx, categoryID)
	return args.Bool(0), args.Error(1)
}

func (m *CatalogRepoMock) SubcategoryExists(ctx context.Context, subcategoryID int64) (bool, error) {
	panic("not used in catalog tests")
}

func (m *CatalogRepoMock) ListCategories(ctx context.Context) ([]model.Category, pagination.Paginator, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]model.Category)
	return items, args.Get(1).(pagination.Paginator), args.Error(2)
}

func (m *CatalogRepoMock) ListSubcategories(ctx context.Context, categoryID int64) ([]model.Subcategory, pagination.Paginator, error) {
	args := m.Called(ctx, categoryID)
	items, _ := args.Get(0).([]model.Subcategory)
	return items, args.Get(1).(pagination.Paginator), args.Error(2)
}

func (m *CatalogRepoMock) FindCategory(ctx context.Context, categoryID int64) (model.Category, error) {
	args := m.Called(ctx, categoryID)
	c, _ := args.Get(0).(model.Category)
	return c, args.Error(1)
}

func (m *CatalogRepoMock) CreateCategory(ctx context.Context, c model.Category) (model.Category, error) {
	args := m.Called(ctx, c)
	out, _ := args.Get(0).(model.Category)
	return out, args.Error(1)
}

func (m *CatalogRepoMock) UpdateCategory(ctx context.Context, c model.Category) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *CatalogRepoMock) DeleteCategory(ctx context.Context, categoryID int64) error {
	args := m.Called(ctx, categoryID)
	return args.Error(0)
}

func (m *CatalogRepoMock) CategoryInUse(ctx context.Context, categoryID int64) (bool, error) {
	args := m.Called(ctx, categoryID)
	return args.Bool(0), args.Error(1)
}

func (m *CatalogRepoMock) FindSubcategory(ctx context.Context, subcategoryID int64) (model.Subcategory, error) {
	args := m.Called(ctx, subcategoryID)
	s, _ := args.Get(0).(model.Subcategory)
	return s, args.Error(1)
}

func (m *CatalogRepoMock) CreateSubcategory(ctx context.Context, s model.Subcategory) (model.Subcategory, error) {
	args := m.Called(ctx, s)
	out, _ := args.Get(0).(model.Subcategory)
	return out, args.Error(1)
}

func (m *CatalogRepoMock) UpdateSubcategory(ctx context.Context, s model.Subcategory) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *CatalogRepoMock) DeleteSubcategory(ctx context.Context, subcategoryID int64) error {
	args := m.Called(ctx, subcategoryID)
	return args.Error(0)
}

func (m *CatalogRepoMock) SubcategoryInUse(ctx context.Context, subcategoryID int64) (bool, error) {
	args := m.Called(ctx, subcategoryID)
	return args.Bool(0), args.Error(1)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, pagination.Paginator, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Get(1).(pagination.Paginator), args.Error(2)
}

type NotificationRepoMock struct{ mock.Mock }

func (m *NotificationRepoMock) Create(ctx context.Context, n model.Notification) error {
	panic("not used in usecase tests")
}

func (m *NotificationRepoMock) CreateMany(ctx context.Context, ns []model.Notification) error {
	panic("not used in usecase tests")
}

func (m *NotificationRepoMock) ListByUser(ctx context.Context, userID int64, page *int) ([]model.Notification, pagination.Paginator, error) {
	args := m.Called(ctx, userID, page)
	items, _ := args.Get(0).([]model.Notification)
	return items, args.Get(1).(pagination.Paginator), args.Error(2)
}

func (m *NotificationRepoMock) FindByID(ctx context.Context, id int64) (model.Notification, error) {
	args := m.Called(ctx, id)
	n, _ := args.Get(0).(model.Notification)
	return n, args.Error(1)
}

func (m *NotificationRepoMock) MarkRead(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *NotificationRepoMock) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationRepoMock) UnreadCounts(ctx context.Context, userIDs []int64) (map[int64]int64, error) {
	panic("not used in usecase tests")
}

// =====================
// Collaborator mocks
// =====================

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) Notify(ctx context.Context, recipientID int64, msg notification.Message) {
	m.Called(ctx, recipientID, msg)
}

func (m *NotifierMock) NotifyMany(ctx context.Context, recipientIDs []int64, msg notification.Message) {
	m.Called(ctx, recipientIDs, msg)
}

type StageRecorderMock struct{ mock.Mock }

func (m *StageRecorderMock) StageChanged(from, to model.Stage) {
	m.Called(from, to)
}

// 検証は別パッケージでテストするので、ここでは常にOK
type passValidator struct{}

func (passValidator) ValidateCreate(context.Context, usecase.OrderInput) error { return nil }
func (passValidator) ValidatePatch(context.Context, usecase.OrderPatch) error  { return nil }

type passOfferValidator struct{}

func (passOfferValidator) ValidateCreate(context.Context, usecase.OfferInput) error { return nil }

type passEventValidator struct{}

func (passEventValidator) ValidateCreate(context.Context, usecase.EventInput) error { return nil }

// =====================
// Fixture
// =====================

type fixture struct {
	tx       *TxManagerMock
	orders   *OrderRepoMock
	offers   *OfferRepoMock
	events   *EventRepoMock
	users    *UserRepoMock
	audit    *AuditRepoMock
	catalog  *CatalogRepoMock
	notifier *NotifierMock
	stages   *StageRecorderMock
}

// Tx内外で同じモックを使う
func newFixture() *fixture {
	f := &fixture{
		tx:       new(TxManagerMock),
		orders:   new(OrderRepoMock),
		offers:   new(OfferRepoMock),
		events:   new(EventRepoMock),
		users:    new(UserRepoMock),
		audit:    new(AuditRepoMock),
		catalog:  new(CatalogRepoMock),
		notifier: new(NotifierMock),
		stages:   new(StageRecorderMock),
	}
	f.tx.Repos = &TxReposMock{
		orders:    f.orders,
		offers:    f.offers,
		events:    f.events,
		users:     f.users,
		auditLogs: f.audit,
		catalog:   f.catalog,
	}
	f.tx.On("WithinTx", mock.Anything).Return(nil)
	return f
}

func (f *fixture) orderUsecase() *usecase.OrderUsecase {
	return usecase.NewOrderUsecase(f.tx, f.orders, f.offers, f.users, f.notifier, passValidator{}, f.stages)
}

func (f *fixture) offerUsecase() *usecase.OfferUsecase {
	return usecase.NewOfferUsecase(f.tx, f.orders, f.offers, f.users, f.notifier, passOfferValidator{}, f.stages)
}

// レスポンス組み立て（ユーザー・お気に入り）の呼び出しを緩く許可
func (f *fixture) allowPresent() {
	f.users.On("FindByIDs", mock.Anything, mock.Anything).Return(map[int64]model.User{}, nil).Maybe()
	f.orders.On("IsFavorite", mock.Anything, mock.Anything, mock.Anything).Return(false, nil).Maybe()
}

func (f *fixture) noWinner() {
	f.offers.On("FindWinner", mock.Anything, mock.Anything).Return(model.Offer{}, false, nil).Maybe()
}

func (f *fixture) assertAll(t *testing.T) {
	t.Helper()
	f.tx.AssertExpectations(t)
	f.orders.AssertExpectations(t)
	f.offers.AssertExpectations(t)
	f.users.AssertExpectations(t)
	f.audit.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
	f.stages.AssertExpectations(t)
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	if assert.True(t, ok, "err=%v", err) {
		assert.Equal(t, status, he.Status)
	}
}

func bodyContains(sub string) interface{} {
	return mock.MatchedBy(func(msg notification.Message) bool {
		return strings.Contains(msg.Body, sub)
	})
}

func strp(s string) *string { return &s }
