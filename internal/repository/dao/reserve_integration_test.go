package dao

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ReserveSuite runs the reservation transaction against a real PostgreSQL,
// where row locks and check constraints actually apply.
type ReserveSuite struct {
	suite.Suite

	pool     *dockertest.Pool
	resource *dockertest.Resource
	db       *gorm.DB
	bookings *BookingDAO
}

func TestReserveSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration tests in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker is not available: %v", err)
	}
	if err = pool.Client.Ping(); err != nil {
		t.Skipf("docker is not reachable: %v", err)
	}

	suite.Run(t, &ReserveSuite{pool: pool})
}

func (s *ReserveSuite) SetupSuite() {
	resource, err := s.pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=secret",
			"POSTGRES_DB=eventpass",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	s.Require().NoError(err)
	s.resource = resource
	_ = resource.Expire(180)

	dsn := fmt.Sprintf("postgres://postgres:secret@%s/eventpass?sslmode=disable", resource.GetHostPort("5432/tcp"))

	s.pool.MaxWait = 90 * time.Second
	err = s.pool.Retry(func() error {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err = sqlDB.Ping(); err != nil {
			return err
		}
		s.db = db

		return nil
	})
	s.Require().NoError(err)

	s.bookings = NewBookingDAO(s.db)
}

func (s *ReserveSuite) TearDownSuite() {
	if s.resource != nil {
		_ = s.pool.Purge(s.resource)
	}
}

func (s *ReserveSuite) SetupTest() {
	s.Require().NoError(ResetTables(s.db))
}

func (s *ReserveSuite) seed(price string, quantity int) (User, TicketType) {
	ctx := context.Background()

	user, err := NewUserDAO(s.db).Insert(ctx, User{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		Role:         "user",
		Interests:    StringList{},
		Provider:     "local",
	})
	s.Require().NoError(err)

	event, err := NewEventDAO(s.db).Insert(ctx, Event{
		Slug:      "event-" + uuid.NewString(),
		Title:     "Go Conference",
		StartTime: time.Now().Add(48 * time.Hour),
		EndTime:   time.Now().Add(50 * time.Hour),
		TicketTypes: []TicketType{{
			Name:              "Standard",
			Price:             decimal.RequireFromString(price),
			InitialQuantity:   quantity,
			RemainingQuantity: quantity,
		}},
	})
	s.Require().NoError(err)

	return user, event.TicketTypes[0]
}

func (s *ReserveSuite) remaining(id uuid.UUID) int {
	var tt TicketType
	s.Require().NoError(s.db.Take(&tt, "id = ?", id).Error)

	return tt.RemainingQuantity
}

func (s *ReserveSuite) countBookings() int64 {
	var n int64
	s.Require().NoError(s.db.Model(&Booking{}).Count(&n).Error)

	return n
}

func (s *ReserveSuite) TestReserveDecrementsStockAndRecordsItem() {
	user, tt := s.seed("150000", 10)

	booking, updated, err := s.bookings.Reserve(context.Background(), ReserveParams{
		UserID:       user.ID,
		TicketTypeID: tt.ID,
		Quantity:     3,
	})
	s.Require().NoError(err)

	s.Equal(7, updated.RemainingQuantity)
	s.Equal(7, s.remaining(tt.ID))

	stored, err := s.bookings.FindByID(context.Background(), booking.ID)
	s.Require().NoError(err)
	s.Equal(BookingPaid, stored.Status)
	s.True(decimal.NewFromInt(450000).Equal(stored.TotalAmount))
	s.Require().Len(stored.Items, 1)
	s.Equal(3, stored.Items[0].Quantity)
	s.True(decimal.NewFromInt(150000).Equal(stored.Items[0].Price))
	s.Require().NotNil(stored.Items[0].TicketType)
	s.Require().NotNil(stored.Items[0].TicketType.Event)
	s.Equal("Go Conference", stored.Items[0].TicketType.Event.Title)
}

func (s *ReserveSuite) TestOutOfStockLeavesStockUntouched() {
	user, tt := s.seed("100", 2)

	_, _, err := s.bookings.Reserve(context.Background(), ReserveParams{UserID: user.ID, TicketTypeID: tt.ID, Quantity: 3})
	s.ErrorIs(err, ErrOutOfStock)

	s.Equal(2, s.remaining(tt.ID))
	s.Zero(s.countBookings())
}

func (s *ReserveSuite) TestUnknownReferences() {
	user, tt := s.seed("100", 2)

	_, _, err := s.bookings.Reserve(context.Background(), ReserveParams{UserID: user.ID, TicketTypeID: uuid.New(), Quantity: 1})
	s.ErrorIs(err, ErrTicketTypeNotFound)

	_, _, err = s.bookings.Reserve(context.Background(), ReserveParams{UserID: uuid.New(), TicketTypeID: tt.ID, Quantity: 1})
	s.ErrorIs(err, ErrUserNotFound)

	s.Equal(2, s.remaining(tt.ID))
}

func (s *ReserveSuite) TestConcurrentReservationsNeverOversell() {
	const (
		attempts = 25
		stock    = 7
	)
	user, tt := s.seed("100", stock)

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		outOfStock int
		unexpected []error
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			_, _, err := s.bookings.Reserve(context.Background(), ReserveParams{UserID: user.ID, TicketTypeID: tt.ID, Quantity: 1})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrOutOfStock):
				outOfStock++
			default:
				unexpected = append(unexpected, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	s.Empty(unexpected)
	s.Equal(stock, successes)
	s.Equal(attempts-stock, outOfStock)
	s.Equal(0, s.remaining(tt.ID))
	s.Equal(int64(stock), s.countBookings())
}

func (s *ReserveSuite) TestLastTicketGoesToExactlyOneBuyer() {
	alice, tt := s.seed("100", 1)
	bob, err := NewUserDAO(s.db).Insert(context.Background(), User{
		Email: "bob@example.com", PasswordHash: "hash", Role: "user", Interests: StringList{}, Provider: "local",
	})
	s.Require().NoError(err)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, id := range []uuid.UUID{alice.ID, bob.ID} {
		wg.Add(1)
		go func(userID uuid.UUID) {
			defer wg.Done()
			_, _, err := s.bookings.Reserve(context.Background(), ReserveParams{UserID: userID, TicketTypeID: tt.ID, Quantity: 1})
			results <- err
		}(id)
	}
	wg.Wait()
	close(results)

	var ok, soldOut int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrOutOfStock):
			soldOut++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, ok)
	s.Equal(1, soldOut)
	s.Equal(0, s.remaining(tt.ID))

	var items []BookingItem
	s.Require().NoError(s.db.Find(&items).Error)
	s.Require().Len(items, 1)
	s.True(decimal.NewFromInt(100).Equal(items[0].Price))
}

func (s *ReserveSuite) TestItemKeepsPriceAtPurchaseTime() {
	user, tt := s.seed("100", 5)

	first, _, err := s.bookings.Reserve(context.Background(), ReserveParams{UserID: user.ID, TicketTypeID: tt.ID, Quantity: 1})
	s.Require().NoError(err)

	s.Require().NoError(s.db.Model(&TicketType{}).Where("id = ?", tt.ID).Update("price", decimal.NewFromInt(250)).Error)

	second, _, err := s.bookings.Reserve(context.Background(), ReserveParams{UserID: user.ID, TicketTypeID: tt.ID, Quantity: 2})
	s.Require().NoError(err)

	stored, err := s.bookings.FindByID(context.Background(), first.ID)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(100).Equal(stored.Items[0].Price))

	stored, err = s.bookings.FindByID(context.Background(), second.ID)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(250).Equal(stored.Items[0].Price))
	s.True(decimal.NewFromInt(500).Equal(stored.TotalAmount))
}

func (s *ReserveSuite) TestPriceChangeDuringReservationWaitsForCommit() {
	user, tt := s.seed("100", 5)

	updated := make(chan error, 1)
	var once sync.Once

	// Between the locked read and the booking insert, start a price update
	// from another connection and wait until postgres parks it on the lock.
	const callback = "test:update_price_mid_reservation"
	s.Require().NoError(s.db.Callback().Create().Before("gorm:create").Register(callback, func(tx *gorm.DB) {
		if tx.Statement.Table != "bookings" {
			return
		}
		once.Do(func() {
			go func() {
				updated <- s.db.Model(&TicketType{}).Where("id = ?", tt.ID).Update("price", decimal.NewFromInt(250)).Error
			}()
			s.waitForLockWaiter()
		})
	}))
	defer func() { _ = s.db.Callback().Create().Remove(callback) }()

	booking, _, err := s.bookings.Reserve(context.Background(), ReserveParams{UserID: user.ID, TicketTypeID: tt.ID, Quantity: 2})
	s.Require().NoError(err)

	select {
	case err = <-updated:
		s.Require().NoError(err)
	case <-time.After(10 * time.Second):
		s.FailNow("price update never completed")
	}

	stored, err := s.bookings.FindByID(context.Background(), booking.ID)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(100).Equal(stored.Items[0].Price))
	s.True(decimal.NewFromInt(200).Equal(stored.TotalAmount))

	var after TicketType
	s.Require().NoError(s.db.Take(&after, "id = ?", tt.ID).Error)
	s.True(decimal.NewFromInt(250).Equal(after.Price))
	s.Equal(3, after.RemainingQuantity)
}

// waitForLockWaiter blocks until some backend is waiting on a row lock.
func (s *ReserveSuite) waitForLockWaiter() {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var waiting int64
		err := s.db.Raw("SELECT count(*) FROM pg_stat_activity WHERE wait_event_type = 'Lock' AND datname = current_database()").Scan(&waiting).Error
		s.Require().NoError(err)
		if waiting > 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	s.FailNow("price update did not wait for the reservation lock")
}

func (s *ReserveSuite) TestFailureAfterDecrementRollsBack() {
	user, tt := s.seed("100", 5)

	errForced := errors.New("forced booking insert failure")
	const callback = "test:fail_booking_insert"
	s.Require().NoError(s.db.Callback().Create().Before("gorm:create").Register(callback, func(tx *gorm.DB) {
		if tx.Statement.Table == "bookings" {
			_ = tx.AddError(errForced)
		}
	}))
	defer func() { _ = s.db.Callback().Create().Remove(callback) }()

	_, _, err := s.bookings.Reserve(context.Background(), ReserveParams{UserID: user.ID, TicketTypeID: tt.ID, Quantity: 2})
	s.ErrorIs(err, errForced)

	s.Equal(5, s.remaining(tt.ID))
	s.Zero(s.countBookings())
}
