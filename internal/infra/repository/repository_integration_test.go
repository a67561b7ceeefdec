package repository_test

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"porto/internal/config"
	"porto/internal/domain/model"
	"porto/internal/geo"
	"porto/internal/infra/db"
	infraRepo "porto/internal/infra/repository"
	"porto/internal/pagination"
	repo "porto/internal/repository"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const pageSize = 2

var testDB *gorm.DB

// postgresコンテナを立てて全テストで共有する。Dockerがなければ全部スキップ
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(0)
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Printf("skip integration tests: %s", err)
		os.Exit(0)
	}
	if err := pool.Client.Ping(); err != nil {
		log.Printf("skip integration tests, docker unavailable: %s", err)
		os.Exit(0)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=porto",
			"POSTGRES_PASSWORD=porto",
			"POSTGRES_DB=porto_test",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("could not start postgres: %s", err)
	}
	_ = resource.Expire(120)

	cfg := config.PostgresConfig{
		URL: fmt.Sprintf("postgres://porto:porto@%s/porto_test?sslmode=disable", resource.GetHostPort("5432/tcp")),
	}
	pool.MaxWait = 60 * time.Second
	if err := pool.Retry(func() error {
		var errRetry error
		testDB, errRetry = db.Connect(cfg, zap.NewNop())
		if errRetry != nil {
			return errRetry
		}
		sqlDB, errRetry := testDB.DB()
		if errRetry != nil {
			return errRetry
		}
		return sqlDB.Ping()
	}); err != nil {
		_ = pool.Purge(resource)
		log.Fatalf("could not connect to postgres: %s", err)
	}
	if err := db.Migrate(testDB); err != nil {
		_ = pool.Purge(resource)
		log.Fatalf("migrate: %s", err)
	}

	code := m.Run()

	if err := pool.Purge(resource); err != nil {
		log.Printf("could not purge postgres: %s", err)
	}
	os.Exit(code)
}

// =====================
// helpers
// =====================

func resetTables(t *testing.T) {
	t.Helper()
	require.NoError(t, testDB.Exec(
		"TRUNCATE users, categories, subcategories, orders, offers, favorite_orders, events, event_members, notifications, device_tokens, audit_logs RESTART IDENTITY CASCADE",
	).Error)
}

func seedUser(t *testing.T, name string) model.User {
	t.Helper()
	u := model.User{FirstName: &name, Role: model.RoleUser, IsActive: true}
	require.NoError(t, testDB.Create(&u).Error)
	return u
}

type orderOpt func(*model.Order)

func withText(title string) orderOpt { return func(o *model.Order) { o.Title = &title } }
func withProfit(v int64) orderOpt { return func(o *model.Order) { o.Profit = &v } }
func withCoords(lat, lon float64) orderOpt {
	return func(o *model.Order) { o.Lat, o.Lon = &lat, &lon }
}
func withDeadline(t time.Time) orderOpt { return func(o *model.Order) { o.Deadline = &t } }
func withCreatedAt(t time.Time) orderOpt {
	return func(o *model.Order) { o.CreatedAt, o.UpdatedAt = t, t }
}

func seedOrder(t *testing.T, r *infraRepo.OrderGormRepository, userID int64, opts ...orderOpt) model.Order {
	t.Helper()
	now := time.Now().UTC()
	o := model.Order{CreatedAt: now, UpdatedAt: now, UserID: userID}
	for _, opt := range opts {
		opt(&o)
	}
	created, err := r.Create(context.Background(), o)
	require.NoError(t, err)
	return created
}

func ids(orders []model.Order) []int64 {
	out := make([]int64, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func intp(v int) *int { return &v }
func i64p(v int64) *int64 { return &v }
func f64p(v float64) *float64 { return &v }
func strp(v string) *string { return &v }

// =====================
// Orders
// =====================

func TestOrderSearch_FiltersCombineIndependently(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	orders := infraRepo.NewOrderGormRepository(testDB, pageSize)
	u := seedUser(t, "Иван")

	cheap := seedOrder(t, orders, u.ID, withText("Покраска забора"), withProfit(100))
	pricey := seedOrder(t, orders, u.ID, withText("Покраска дома"), withProfit(5000))
	seedOrder(t, orders, u.ID, withText("Ремонт крыши"), withProfit(5000))

	got, _, err := orders.Search(ctx, repo.OrderSearchFilter{Text: strp("покраска")})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{cheap.ID, pricey.ID}, ids(got))

	got, _, err = orders.Search(ctx, repo.OrderSearchFilter{Text: strp("покраска"), ProfitFrom: i64p(1000)})
	require.NoError(t, err)
	assert.Equal(t, []int64{pricey.ID}, ids(got))

	//ワイルドカードは文字として扱う
	got, _, err = orders.Search(ctx, repo.OrderSearchFilter{Text: strp("%")})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOrderSearch_NearOrdersByDistance(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	orders := infraRepo.NewOrderGormRepository(testDB, pageSize)
	u := seedUser(t, "Иван")

	//モスクワ中心から近い順: near, mid。far は範囲外
	far := seedOrder(t, orders, u.ID, withCoords(59.9386, 30.3141))
	mid := seedOrder(t, orders, u.ID, withCoords(55.80, 37.70))
	near := seedOrder(t, orders, u.ID, withCoords(55.7560, 37.6175))
	seedOrder(t, orders, u.ID)

	got, pg, err := orders.Search(ctx, repo.OrderSearchFilter{
		Near: geo.Point{Lat: f64p(55.7558), Lon: f64p(37.6173), Distance: f64p(50_000)},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{near.ID, mid.ID}, ids(got))
	assert.Equal(t, int64(2), pg.Total)
	assert.NotContains(t, ids(got), far.ID)
}

func TestOrderSearch_DistanceIsStrict(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	orders := infraRepo.NewOrderGormRepository(testDB, pageSize)
	u := seedUser(t, "Иван")

	here := seedOrder(t, orders, u.ID, withCoords(55.7558, 37.6173))

	//半径0だと同じ地点も含まない
	got, _, err := orders.Search(ctx, repo.OrderSearchFilter{
		Near: geo.Point{Lat: f64p(55.7558), Lon: f64p(37.6173), Distance: f64p(0)},
	})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, _, err = orders.Search(ctx, repo.OrderSearchFilter{
		Near: geo.Point{Lat: f64p(55.7558), Lon: f64p(37.6173), Distance: f64p(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{here.ID}, ids(got))
}

func TestOrderSearch_PartialGeoIsNoop(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	orders := infraRepo.NewOrderGormRepository(testDB, pageSize)
	u := seedUser(t, "Иван")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	far := seedOrder(t, orders, u.ID, withCoords(59.9386, 30.3141), withCreatedAt(base))
	near := seedOrder(t, orders, u.ID, withCoords(55.7560, 37.6175), withCreatedAt(base.Add(time.Hour)))
	none := seedOrder(t, orders, u.ID, withCreatedAt(base.Add(2*time.Hour)))
	want := []int64{none.ID, near.ID, far.ID}

	partial := []geo.Point{
		{Lat: f64p(55.7558), Lon: f64p(37.6173)},
		{Lat: f64p(55.7558), Distance: f64p(1_000)},
		{Lon: f64p(37.6173), Distance: f64p(1_000)},
	}
	for _, p := range partial {
		got, pg, err := orders.Search(ctx, repo.OrderSearchFilter{Near: p})
		require.NoError(t, err)
		assert.Equal(t, want, ids(got))
		assert.Equal(t, int64(3), pg.Total)
	}
}

func TestOrderSearch_PaginationTotals(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	orders := infraRepo.NewOrderGormRepository(testDB, pageSize)
	u := seedUser(t, "Иван")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var seeded []model.Order
	for i := 0; i < 5; i++ {
		seeded = append(seeded, seedOrder(t, orders, u.ID, withCreatedAt(base.Add(time.Duration(i)*time.Hour))))
	}

	page1, pg1, err := orders.Search(ctx, repo.OrderSearchFilter{Page: intp(1)})
	require.NoError(t, err)
	assert.Equal(t, []int64{seeded[4].ID, seeded[3].ID}, ids(page1))
	assert.Equal(t, int64(5), pg1.Total)
	assert.False(t, pg1.HasPrev)
	assert.True(t, pg1.HasNext)

	page3, pg3, err := orders.Search(ctx, repo.OrderSearchFilter{Page: intp(3)})
	require.NoError(t, err)
	assert.Equal(t, []int64{seeded[0].ID}, ids(page3))
	assert.True(t, pg3.HasPrev)
	assert.False(t, pg3.HasNext)

	all, pgAll, err := orders.Search(ctx, repo.OrderSearchFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.False(t, pgAll.HasNext)
}

func TestOrderSearch_FavoritesPerViewer(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	orders := infraRepo.NewOrderGormRepository(testDB, pageSize)
	owner := seedUser(t, "Иван")
	viewer := seedUser(t, "Пётр")

	liked := seedOrder(t, orders, owner.ID)
	seedOrder(t, orders, owner.ID)

	require.NoError(t, orders.SetFavorite(ctx, viewer.ID, liked.ID, true))
	//二度目も重複しない
	require.NoError(t, orders.SetFavorite(ctx, viewer.ID, liked.ID, true))

	got, _, err := orders.Search(ctx, repo.OrderSearchFilter{CurrentUserID: &viewer.ID, IsFavorite: boolp(true)})
	require.NoError(t, err)
	assert.Equal(t, []int64{liked.ID}, ids(got))

	got, _, err = orders.Search(ctx, repo.OrderSearchFilter{CurrentUserID: &owner.ID, IsFavorite: boolp(true)})
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, orders.SetFavorite(ctx, viewer.ID, liked.ID, false))
	fav, err := orders.IsFavorite(ctx, viewer.ID, liked.ID)
	require.NoError(t, err)
	assert.False(t, fav)
}

func boolp(v bool) *bool { return &v }

// =====================
// Offers / winner
// =====================

func TestOfferMarkWinner_ExactlyOneWinner(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	orders := infraRepo.NewOrderGormRepository(testDB, pageSize)
	offers := infraRepo.NewOfferGormRepository(testDB, pageSize)
	owner := seedUser(t, "Иван")
	order := seedOrder(t, orders, owner.ID)

	var made []model.Offer
	for i := 0; i < 3; i++ {
		bidder := seedUser(t, fmt.Sprintf("bidder-%d", i))
		of, err := offers.Create(ctx, model.Offer{CreatedAt: time.Now(), Text: "готов", OrderID: order.ID, UserID: bidder.ID})
		require.NoError(t, err)
		made = append(made, of)
	}

	require.NoError(t, offers.MarkWinner(ctx, order.ID, made[1].ID))
	winner, found, err := offers.FindWinner(ctx, order.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, made[1].ID, winner.ID)

	//選び直しても落札者は常に1人
	require.NoError(t, offers.MarkWinner(ctx, order.ID, made[2].ID))
	all, err := offers.ListByOrderID(ctx, order.ID)
	require.NoError(t, err)
	winners := 0
	for _, of := range all {
		if of.WinnerState == model.WinnerChosen {
			winners++
			assert.Equal(t, made[2].ID, of.ID)
		} else {
			assert.Equal(t, model.WinnerNotChosen, of.WinnerState)
		}
	}
	assert.Equal(t, 1, winners)

	require.NoError(t, offers.ResetWinners(ctx, order.ID))
	_, found, err = offers.FindWinner(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTxManager_RollsBackOnError(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	orders := infraRepo.NewOrderGormRepository(testDB, pageSize)
	users := infraRepo.NewUserGormRepository(testDB)
	owner := seedUser(t, "Иван")
	order := seedOrder(t, orders, owner.ID)

	txm := infraRepo.NewTxManagerGorm(testDB, pageSize)
	boom := fmt.Errorf("boom")
	err := txm.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Orders().UpdateStage(ctx, order.ID, model.StageSelected, nil); err != nil {
			return err
		}
		if err := r.Users().AdjustCounter(ctx, owner.ID, repo.CounterCompletedOrders, 1); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StageCreated, got.Stage)

	u, err := users.FindByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, u.CompletedOrdersCount)
}

func TestUserAdjustCounter_NeverNegative(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	users := infraRepo.NewUserGormRepository(testDB)
	u := seedUser(t, "Иван")

	require.NoError(t, users.AdjustCounter(ctx, u.ID, repo.CounterMyOffers, 1))
	require.NoError(t, users.AdjustCounter(ctx, u.ID, repo.CounterMyOffers, -1))
	require.NoError(t, users.AdjustCounter(ctx, u.ID, repo.CounterMyOffers, -1))

	got, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.MyOffersCount)

	assert.ErrorIs(t, users.AdjustCounter(ctx, 9999, repo.CounterMyOffers, 1), repo.ErrNotFound)
}

// =====================
// Events
// =====================

func seedEvent(t *testing.T, r *infraRepo.EventGormRepository, userID int64, private bool, members ...int64) model.Event {
	t.Helper()
	now := time.Now().UTC()
	e, err := r.Create(context.Background(), model.Event{
		CreatedAt: now, UpdatedAt: now, Name: strp("Субботник"),
		UserID: userID, IsPrivate: private, Status: model.ModStatusCreated,
	}, members)
	require.NoError(t, err)
	return e
}

func eventIDs(events []model.Event) []int64 {
	out := make([]int64, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestEventSearch_Visibility(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	events := infraRepo.NewEventGormRepository(testDB, pageSize)
	creator := seedUser(t, "Иван")
	member := seedUser(t, "Пётр")
	outsider := seedUser(t, "Анна")

	public := seedEvent(t, events, creator.ID, false)
	private := seedEvent(t, events, creator.ID, true, member.ID)

	search := func(f repo.EventSearchFilter) []int64 {
		t.Helper()
		got, _, err := events.Search(ctx, f)
		require.NoError(t, err)
		return eventIDs(got)
	}

	assert.ElementsMatch(t, []int64{public.ID, private.ID}, search(repo.EventSearchFilter{CurrentUserID: &creator.ID}))
	assert.ElementsMatch(t, []int64{public.ID, private.ID}, search(repo.EventSearchFilter{CurrentUserID: &member.ID}))
	assert.Equal(t, []int64{public.ID}, search(repo.EventSearchFilter{CurrentUserID: &outsider.ID}))
	assert.ElementsMatch(t, []int64{public.ID, private.ID}, search(repo.EventSearchFilter{CurrentUserID: &outsider.ID, ForAdmin: true}))

	//自分の参加一覧には非公開も出る
	assert.Equal(t, []int64{private.ID}, search(repo.EventSearchFilter{CurrentUserID: &member.ID, MemberUserID: &member.ID}))
	//他人の参加一覧でも非公開は見えない
	assert.Empty(t, search(repo.EventSearchFilter{CurrentUserID: &outsider.ID, MemberUserID: &member.ID}))
	assert.Equal(t, []int64{private.ID}, search(repo.EventSearchFilter{CurrentUserID: &outsider.ID, MemberUserID: &member.ID, ForAdmin: true}))
}

func TestEventMembers_Lifecycle(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	events := infraRepo.NewEventGormRepository(testDB, pageSize)
	creator := seedUser(t, "Иван")
	guest := seedUser(t, "Пётр")
	e := seedEvent(t, events, creator.ID, false)

	m, err := events.AddMember(ctx, model.EventMember{EventID: e.ID, UserID: guest.ID})
	require.NoError(t, err)
	assert.Equal(t, model.AcceptingWait, m.Status)

	_, err = events.AddMember(ctx, model.EventMember{EventID: e.ID, UserID: guest.ID, Status: model.AcceptingAccepted})
	assert.ErrorIs(t, err, repo.ErrDuplicate)

	n, err := events.CountMembers(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, events.UpdateMemberStatus(ctx, m.ID, model.AcceptingRejected))
	got, err := events.FindMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AcceptingRejected, got.Status)

	//断った人は定員に数えない
	n, err = events.CountMembers(ctx, e.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, events.DeleteMember(ctx, m.ID))
	_, err = events.FindMember(ctx, m.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	assert.ErrorIs(t, events.DeleteMember(ctx, m.ID), repo.ErrNotFound)
}

// =====================
// Catalog
// =====================

func TestCatalog_ListsAreUnpaged(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	catalog := infraRepo.NewCatalogGormRepository(testDB)

	var cats []model.Category
	for _, name := range []string{"Уборка", "Ремонт", "Сад", "Доставка"} {
		c, err := catalog.CreateCategory(ctx, model.Category{Name: name})
		require.NoError(t, err)
		cats = append(cats, c)
	}
	for _, name := range []string{"Окна", "Полы", "Кухня"} {
		_, err := catalog.CreateSubcategory(ctx, model.Subcategory{Name: name, CategoryID: cats[0].ID})
		require.NoError(t, err)
	}

	//pageSizeより多くても全件
	got, pg, err := catalog.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "Доставка", got[0].Name)
	assert.Equal(t, pagination.Paginator{Page: 1, Total: 4}, pg)

	subs, pg, err := catalog.ListSubcategories(ctx, cats[0].ID)
	require.NoError(t, err)
	assert.Len(t, subs, 3)
	assert.False(t, pg.HasNext)
	assert.False(t, pg.HasPrev)

	used, err := catalog.CategoryInUse(ctx, cats[0].ID)
	require.NoError(t, err)
	assert.True(t, used)
	used, err = catalog.CategoryInUse(ctx, cats[1].ID)
	require.NoError(t, err)
	assert.False(t, used)

	require.NoError(t, catalog.DeleteCategory(ctx, cats[1].ID))
	assert.ErrorIs(t, catalog.DeleteCategory(ctx, cats[1].ID), repo.ErrNotFound)
}

func TestUserDirectory_ListActiveIDs(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	a := seedUser(t, "Иван")
	b := seedUser(t, "Пётр")
	gone := seedUser(t, "Анна")
	require.NoError(t, testDB.Model(&model.User{}).Where("id = ?", gone.ID).Update("is_active", false).Error)

	got, err := infraRepo.NewUserDirectoryGorm(testDB).ListActiveIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, b.ID}, got)
}

// =====================
// Archive
// =====================

func TestArchiveExpired_Idempotent(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	orders := infraRepo.NewOrderGormRepository(testDB, pageSize)
	events := infraRepo.NewEventGormRepository(testDB, pageSize)
	u := seedUser(t, "Иван")

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	expired := seedOrder(t, orders, u.ID, withDeadline(now.Add(-time.Hour)))
	alive := seedOrder(t, orders, u.ID, withDeadline(now.Add(time.Hour)))
	seedOrder(t, orders, u.ID)

	ended := now.Add(-time.Minute)
	started := now.Add(-2 * time.Hour)
	_, err := events.Create(ctx, model.Event{
		CreatedAt: now, UpdatedAt: now, Name: strp("Субботник"),
		Started: &started, Ended: &ended, UserID: u.ID, Status: model.ModStatusCreated,
	}, nil)
	require.NoError(t, err)

	n, err := orders.ArchiveExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = events.ArchiveExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	//二回目は何もしない
	n, err = orders.ArchiveExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = events.ArchiveExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := orders.FindByID(ctx, expired.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ModStatusArchived, got.Status)
	got, err = orders.FindByID(ctx, alive.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ModStatusCreated, got.Status)
}
