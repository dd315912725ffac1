package reservation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/metinatakli/cinema-ticketing/internal/clock"
	"github.com/metinatakli/cinema-ticketing/internal/domain"
	"github.com/metinatakli/cinema-ticketing/internal/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// memPurchaseStore enforces the same uniqueness rules as the purchases schema.
type memPurchaseStore struct {
	mu        sync.Mutex
	nextID    int
	purchases []*domain.Purchase
	legacy    map[int][]domain.SoldSeatRow
	takenCode map[string]bool
	creates   int
}

func newMemPurchaseStore() *memPurchaseStore {
	return &memPurchaseStore{
		legacy:    make(map[int][]domain.SoldSeatRow),
		takenCode: make(map[string]bool),
	}
}

func (m *memPurchaseStore) Create(_ context.Context, purchase *domain.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creates++

	for _, p := range m.purchases {
		if p.PaymentSessionID != nil && purchase.PaymentSessionID != nil &&
			*p.PaymentSessionID == *purchase.PaymentSessionID {
			return domain.ErrDuplicatePaymentSession
		}
	}

	if m.takenCode[purchase.RedemptionCode] {
		return domain.ErrDuplicateRedemptionCode
	}

	for _, p := range m.purchases {
		if p.ShowingID != purchase.ShowingID {
			continue
		}
		for _, sold := range p.Seats {
			for _, seat := range purchase.Seats {
				if sold.Coordinate == seat.Coordinate {
					return domain.ErrSeatAlreadySold
				}
			}
		}
	}

	m.nextID++
	purchase.ID = m.nextID
	m.takenCode[purchase.RedemptionCode] = true

	stored := *purchase
	m.purchases = append(m.purchases, &stored)

	return nil
}

func (m *memPurchaseStore) GetByPaymentSessionID(_ context.Context, sessionID string) (*domain.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.purchases {
		if p.PaymentSessionID != nil && *p.PaymentSessionID == sessionID {
			found := *p
			return &found, nil
		}
	}

	return nil, domain.ErrRecordNotFound
}

func (m *memPurchaseStore) RedemptionCodeExists(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.takenCode[code], nil
}

func (m *memPurchaseStore) GetSoldSeatsByShowing(_ context.Context, showingID int) ([]domain.SoldSeatRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := append([]domain.SoldSeatRow(nil), m.legacy[showingID]...)
	for _, p := range m.purchases {
		if p.ShowingID != showingID {
			continue
		}
		for _, seat := range p.Seats {
			rows = append(rows, domain.SoldSeatRow{
				RowIndex:   ptr(seat.Coordinate.Row),
				ColIndex:   ptr(seat.Coordinate.Col),
				RowLabel:   seat.RowLabel,
				SeatNumber: ptr(seat.SeatNumber),
				SeatText:   seat.SeatText,
			})
		}
	}

	return rows, nil
}

func (m *memPurchaseStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.purchases)
}

func paidSession(id string, showingID, buyerID int, seats ...domain.SeatSelection) *domain.CheckoutSession {
	metadata := map[string]string{}
	SessionMetadata{ShowingID: showingID, Hall: ptr(2), BuyerID: buyerID}.Apply(metadata)
	if err := AttachSelections(metadata, seats); err != nil {
		panic(err)
	}

	return &domain.CheckoutSession{
		ID:            id,
		PaymentStatus: domain.PaymentStatusPaid,
		Metadata:      metadata,
	}
}

// sequenceCodes hands out the given codes in order, then unique fallbacks.
func sequenceCodes(codes ...string) func() (string, error) {
	var mu sync.Mutex
	n := 0

	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()

		n++
		if n <= len(codes) {
			return codes[n-1], nil
		}
		return fmt.Sprintf("code-%d", n), nil
	}
}

type FinalizerTestSuite struct {
	suite.Suite
	clock    *clock.Manual
	store    *memPurchaseStore
	provider *mocks.MockPaymentProvider
	holds    *HoldStore
	arbiter  *Arbiter
}

func (s *FinalizerTestSuite) SetupTest() {
	s.clock = clock.NewManual(baseTime)
	s.store = newMemPurchaseStore()
	s.provider = new(mocks.MockPaymentProvider)
	s.holds = NewHoldStore(s.clock)
	s.arbiter = NewArbiter(NewSoldSeatIndex(s.store, discardLogger()), s.holds, discardLogger())
}

func TestFinalizerSuite(t *testing.T) {
	suite.Run(t, new(FinalizerTestSuite))
}

func (s *FinalizerTestSuite) newFinalizer(opts ...FinalizerOption) *Finalizer {
	return NewFinalizer(
		s.store,
		s.provider,
		NewSoldSeatIndex(s.store, discardLogger()),
		s.arbiter,
		s.clock,
		discardLogger(),
		opts...,
	)
}

func (s *FinalizerTestSuite) TestConfirmPurchase() {
	seats := []domain.SeatSelection{
		selection(1, 2, domain.FareNormal, "25.50"),
		selection(1, 3, domain.FareStudent, "19.99"),
	}
	s.provider.On("GetCheckoutSession", mock.Anything, "cs_1").Return(paidSession("cs_1", 7, 12, seats...), nil).Once()

	for _, sel := range seats {
		granted, _ := s.holds.TryHold(7, sel.Coordinate)
		s.Require().True(granted)
	}

	result, err := s.newFinalizer().ConfirmPurchase(context.Background(), "cs_1")
	s.Require().NoError(err)
	s.Require().True(result.Created)

	p := result.Purchase
	s.Equal(12, p.BuyerID)
	s.Equal(7, p.ShowingID)
	s.Equal(ptr(2), p.Hall)
	s.Equal(baseTime, p.PurchaseDate)
	s.Equal("45.49", p.TotalPrice.StringFixed(2))
	s.Len(p.RedemptionCode, 16)
	s.Require().NotNil(p.PaymentSessionID)
	s.Equal("cs_1", *p.PaymentSessionID)
	s.Require().Len(p.Seats, 2)
	s.Equal("B", p.Seats[0].RowLabel)
	s.Equal(3, p.Seats[0].SeatNumber)
	s.Equal("B-3", p.Seats[0].SeatText)
	s.Equal(domain.FareStudent, p.Seats[1].Fare)

	s.Empty(s.holds.ActiveHolds(7), "holds of finalized seats are released")
}

func (s *FinalizerTestSuite) TestConfirmPurchaseIsIdempotent() {
	s.provider.On("GetCheckoutSession", mock.Anything, "cs_1").
		Return(paidSession("cs_1", 7, 12, selection(0, 0, domain.FareNormal, "20")), nil).Once()

	finalizer := s.newFinalizer()

	first, err := finalizer.ConfirmPurchase(context.Background(), "cs_1")
	s.Require().NoError(err)
	s.True(first.Created)

	second, err := finalizer.ConfirmPurchase(context.Background(), "cs_1")
	s.Require().NoError(err)
	s.False(second.Created)
	s.Equal(first.Purchase.ID, second.Purchase.ID)
	s.Equal(first.Purchase.RedemptionCode, second.Purchase.RedemptionCode)

	s.Equal(1, s.store.count())
	s.provider.AssertNumberOfCalls(s.T(), "GetCheckoutSession", 1)
}

func (s *FinalizerTestSuite) TestConcurrentConfirmationsOfOneSession() {
	s.provider.On("GetCheckoutSession", mock.Anything, "cs_1").
		Return(paidSession("cs_1", 7, 12, selection(4, 4, domain.FareNormal, "20")), nil)

	finalizer := s.newFinalizer()

	const callers = 8

	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make([]FinalizeResult, callers)
		errs    = make([]error, callers)
	)

	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results[i], errs[i] = finalizer.ConfirmPurchase(context.Background(), "cs_1")
		}()
	}

	close(start)
	wg.Wait()

	created := 0
	for i := range callers {
		s.Require().NoError(errs[i])
		s.Equal(results[0].Purchase.ID, results[i].Purchase.ID)
		if results[i].Created {
			created++
		}
	}

	s.Equal(1, created)
	s.Equal(1, s.store.count())
}

func (s *FinalizerTestSuite) TestConcurrentSessionsForOneSeat() {
	seat := selection(3, 3, domain.FareNormal, "20")
	s.provider.On("GetCheckoutSession", mock.Anything, "cs_a").Return(paidSession("cs_a", 7, 1, seat), nil)
	s.provider.On("GetCheckoutSession", mock.Anything, "cs_b").Return(paidSession("cs_b", 7, 2, seat), nil)

	finalizer := s.newFinalizer()

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, 2)
	)

	for i, id := range []string{"cs_a", "cs_b"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = finalizer.ConfirmPurchase(context.Background(), id)
		}()
	}

	close(start)
	wg.Wait()

	conflicts := 0
	for _, err := range errs {
		if err != nil {
			s.ErrorIs(err, domain.ErrPostPaymentConflict)
			conflicts++
		}
	}

	s.Equal(1, conflicts)
	s.Equal(1, s.store.count())
}

func (s *FinalizerTestSuite) TestConfirmPurchaseRejections() {
	unpaid := paidSession("cs_unpaid", 7, 1, selection(0, 0, domain.FareNormal, "20"))
	unpaid.PaymentStatus = domain.PaymentStatusUnpaid

	noBuyer := paidSession("cs_no_buyer", 7, 1, selection(0, 0, domain.FareNormal, "20"))
	delete(noBuyer.Metadata, MetadataBuyerID)

	noSeats := paidSession("cs_no_seats", 7, 1)

	garbledSeats := paidSession("cs_garbled", 7, 1)
	garbledSeats.Metadata[MetadataSeats] = "x;y;z"

	outOfRange := paidSession("cs_out_of_range", 7, 1)
	outOfRange.Metadata[MetadataSeats] = "3000000000,0,N,2000"

	duplicated := paidSession("cs_dup", 7, 1,
		selection(0, 0, domain.FareNormal, "20"),
		selection(0, 0, domain.FareReduced, "15"),
	)

	tests := []struct {
		name    string
		session *domain.CheckoutSession
		legacy  []domain.SoldSeatRow
		wantErr error
	}{
		{name: "payment not completed", session: unpaid, wantErr: domain.ErrPaymentNotConfirmed},
		{name: "buyer id missing", session: noBuyer, wantErr: domain.ErrMissingSessionMetadata},
		{name: "no seats attached", session: noSeats, wantErr: domain.ErrMissingSessionMetadata},
		{name: "seats cannot be decoded", session: garbledSeats, wantErr: domain.ErrMissingSessionMetadata},
		{name: "seat beyond the addressable range", session: outOfRange, wantErr: domain.ErrMissingSessionMetadata},
		{name: "seat listed twice", session: duplicated, wantErr: domain.ErrMissingSessionMetadata},
		{
			name:    "seat sold under a legacy label",
			session: paidSession("cs_label", 7, 1, selection(0, 0, domain.FareNormal, "20"), selection(2, 4, domain.FareNormal, "20")),
			legacy:  []domain.SoldSeatRow{{RowLabel: "c", SeatNumber: ptr(5)}},
			wantErr: domain.ErrPostPaymentConflict,
		},
		{
			name:    "seat sold under a legacy seat text",
			session: paidSession("cs_text", 7, 1, selection(9, 0, domain.FareNormal, "20")),
			legacy:  []domain.SoldSeatRow{{SeatText: "J-1"}},
			wantErr: domain.ErrPostPaymentConflict,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			s.store.legacy[7] = tt.legacy
			s.provider.On("GetCheckoutSession", mock.Anything, tt.session.ID).Return(tt.session, nil).Once()

			_, err := s.newFinalizer().ConfirmPurchase(context.Background(), tt.session.ID)

			s.ErrorIs(err, tt.wantErr)
			s.Equal(0, s.store.count(), "no partial purchase may be written")
		})
	}
}

func (s *FinalizerTestSuite) TestConfirmPurchaseUnknownSession() {
	s.provider.On("GetCheckoutSession", mock.Anything, "cs_missing").
		Return((*domain.CheckoutSession)(nil), domain.ErrPaymentSessionNotFound).Once()

	_, err := s.newFinalizer().ConfirmPurchase(context.Background(), "cs_missing")
	s.ErrorIs(err, domain.ErrPaymentSessionNotFound)

	_, err = s.newFinalizer().ConfirmPurchase(context.Background(), "")
	s.ErrorIs(err, domain.ErrPaymentSessionNotFound)
}

func (s *FinalizerTestSuite) TestRedemptionCodeCollisions() {
	s.store.takenCode["taken-1"] = true
	s.store.takenCode["taken-2"] = true

	s.provider.On("GetCheckoutSession", mock.Anything, "cs_1").
		Return(paidSession("cs_1", 7, 1, selection(0, 0, domain.FareNormal, "20")), nil).Once()

	result, err := s.newFinalizer(WithCodeGenerator(sequenceCodes("taken-1", "taken-2", "fresh"))).
		ConfirmPurchase(context.Background(), "cs_1")

	s.Require().NoError(err)
	s.Equal("fresh", result.Purchase.RedemptionCode)
}

func (s *FinalizerTestSuite) TestRedemptionCodeExhausted() {
	s.store.takenCode["taken"] = true

	s.provider.On("GetCheckoutSession", mock.Anything, "cs_1").
		Return(paidSession("cs_1", 7, 1, selection(0, 0, domain.FareNormal, "20")), nil).Once()

	always := func() (string, error) { return "taken", nil }

	_, err := s.newFinalizer(WithCodeGenerator(always)).ConfirmPurchase(context.Background(), "cs_1")

	s.ErrorIs(err, domain.ErrCodeGenerationExhausted)
	s.Equal(0, s.store.count())
}

// racingCodeStore reports every code as free, so collisions only surface on insert.
type racingCodeStore struct {
	*memPurchaseStore
}

func (racingCodeStore) RedemptionCodeExists(context.Context, string) (bool, error) {
	return false, nil
}

func (s *FinalizerTestSuite) TestRedemptionCodeCollisionAtInsertConsumesAttempt() {
	s.store.takenCode["taken"] = true
	store := racingCodeStore{s.store}

	s.provider.On("GetCheckoutSession", mock.Anything, "cs_1").
		Return(paidSession("cs_1", 7, 1, selection(0, 0, domain.FareNormal, "20")), nil).Once()

	finalizer := NewFinalizer(
		store,
		s.provider,
		NewSoldSeatIndex(store, discardLogger()),
		s.arbiter,
		s.clock,
		discardLogger(),
		WithCodeGenerator(func() (string, error) { return "taken", nil }),
	)

	_, err := finalizer.ConfirmPurchase(context.Background(), "cs_1")

	s.ErrorIs(err, domain.ErrCodeGenerationExhausted)
	s.Equal(MaxCodeAttempts, s.store.creates)
}

func (s *FinalizerTestSuite) TestCodeGeneratorFailure() {
	s.provider.On("GetCheckoutSession", mock.Anything, "cs_1").
		Return(paidSession("cs_1", 7, 1, selection(0, 0, domain.FareNormal, "20")), nil).Once()

	failing := func() (string, error) { return "", errors.New("entropy unavailable") }

	_, err := s.newFinalizer(WithCodeGenerator(failing)).ConfirmPurchase(context.Background(), "cs_1")

	s.ErrorContains(err, "entropy unavailable")
}
