package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/metinatakli/cinema-ticketing/api"
	"github.com/metinatakli/cinema-ticketing/internal/clock"
	"github.com/metinatakli/cinema-ticketing/internal/domain"
	"github.com/metinatakli/cinema-ticketing/internal/events"
	"github.com/metinatakli/cinema-ticketing/internal/mailer"
	"github.com/metinatakli/cinema-ticketing/internal/mocks"
	"github.com/metinatakli/cinema-ticketing/internal/payment"
	"github.com/metinatakli/cinema-ticketing/internal/reservation"
	"github.com/metinatakli/cinema-ticketing/internal/validator"
	"github.com/stretchr/testify/mock"
)

const testWebhookSecret = "whsec_test_secret"

var testNow = time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)

type testDeps struct {
	purchaseRepo *mocks.MockPurchaseRepo
	userRepo     *mocks.MockUserRepo
	payments     *payment.MockPaymentProvider
	provider     domain.PaymentProvider
	mailer       *mailer.MockMailer
	publisher    *recordingPublisher
	clock        *clock.Manual
}

func newTestDeps() *testDeps {
	deps := &testDeps{
		purchaseRepo: new(mocks.MockPurchaseRepo),
		userRepo: &mocks.MockUserRepo{
			GetByIdFunc: func(ctx context.Context, id int) (*domain.Buyer, error) {
				return &domain.Buyer{ID: id, FirstName: "Anna", Email: "anna@example.com"}, nil
			},
		},
		payments:  payment.NewMockPaymentProvider(),
		mailer:    mailer.NewMockMailer(),
		publisher: &recordingPublisher{},
		clock:     clock.NewManual(testNow),
	}
	deps.provider = deps.payments

	return deps
}

func newTestApplication(deps *testDeps, opts ...func(*Config)) *Application {
	cfg := Config{
		Env:             "test",
		FrontendBaseURL: "http://localhost:5173",
		Stripe:          StripeConfig{WebhookSecret: testWebhookSecret},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return NewApp(
		cfg,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		nil,
		nil,
		validator.NewValidator(),
		deps.mailer,
		deps.publisher,
		scs.New(),
		deps.userRepo,
		deps.purchaseRepo,
		deps.provider,
		deps.clock,
	)
}

func setupTestSession(t *testing.T, app *Application, r *http.Request, userId int) *http.Request {
	ctx, err := app.sessionManager.Load(r.Context(), "session")
	if err != nil {
		t.Errorf("Failed to load session: %v", err)
	}

	if userId != 0 {
		app.sessionManager.Put(ctx, SessionKeyUserId.String(), userId)
	}

	return r.WithContext(ctx)
}

func executeRequest(t *testing.T, method, url string, body any) (*httptest.ResponseRecorder, *http.Request) {
	var reader io.Reader = http.NoBody

	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(jsonData)
	}

	r := httptest.NewRequest(method, url, reader)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	return w, r
}

func checkErrorResponse(t *testing.T, w *httptest.ResponseRecorder, tt struct {
	wantStatus     int
	wantErrMessage string
}) {
	if tt.wantStatus >= 200 && tt.wantStatus < 300 {
		return
	}

	switch tt.wantStatus {
	case http.StatusUnprocessableEntity:
		var validationResp api.ValidationErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&validationResp); err != nil {
			t.Fatalf("Failed to decode validation error response: %v", err)
		}

		if len(validationResp.ValidationErrors) == 0 {
			if validationResp.Message != tt.wantErrMessage {
				t.Errorf("Error message = %v, want %v", validationResp.Message, tt.wantErrMessage)
			}
			return
		}

		errorSet := make(map[string]bool)
		for _, vErr := range validationResp.ValidationErrors {
			errorSet[vErr.Issue] = true
		}

		if !errorSet[tt.wantErrMessage] {
			t.Errorf("Expected validation error message '%s' not found in response", tt.wantErrMessage)
		}

	default:
		var errorResp api.ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
			t.Fatalf("Failed to decode error response: %v", err)
		}

		if tt.wantErrMessage != "" && errorResp.Message != tt.wantErrMessage {
			t.Errorf("Error message = %v, want %v", errorResp.Message, tt.wantErrMessage)
		}
	}
}

// createPaidSession opens a session on the in-memory provider carrying the given purchase
// context and marks it paid.
func createPaidSession(t *testing.T, deps *testDeps, meta reservation.SessionMetadata, selections ...domain.SeatSelection) string {
	metadata := make(map[string]string)
	meta.Apply(metadata)

	if err := reservation.AttachSelections(metadata, selections); err != nil {
		t.Fatal(err)
	}

	cs, err := deps.payments.CreateCheckoutSession(context.Background(), domain.CheckoutSessionParams{Metadata: metadata})
	if err != nil {
		t.Fatal(err)
	}

	deps.payments.MarkPaid(cs.ID)

	return cs.ID
}

// expectNewPurchase sets up the repository for a first-time finalization of sessionID.
func expectNewPurchase(deps *testDeps, sessionID string, showingID, purchaseID int) {
	deps.purchaseRepo.On("GetByPaymentSessionID", mock.Anything, sessionID).
		Return((*domain.Purchase)(nil), domain.ErrRecordNotFound)
	deps.purchaseRepo.On("GetSoldSeatsByShowing", mock.Anything, showingID).
		Return([]domain.SoldSeatRow(nil), nil)
	deps.purchaseRepo.On("RedemptionCodeExists", mock.Anything, mock.AnythingOfType("string")).
		Return(false, nil)
	deps.purchaseRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Purchase")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Purchase).ID = purchaseID
		}).
		Return(nil)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.PurchaseFinalizedEvent
	err    error
}

func (p *recordingPublisher) PublishPurchaseFinalized(_ context.Context, event events.PurchaseFinalizedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error {
	return nil
}

func (p *recordingPublisher) published() []events.PurchaseFinalizedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]events.PurchaseFinalizedEvent(nil), p.events...)
}

func ptr[T any](v T) *T {
	return &v
}
