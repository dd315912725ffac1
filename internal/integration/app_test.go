package integration_test

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinema-ticketing/internal/app"
	"github.com/metinatakli/cinema-ticketing/internal/clock"
	"github.com/metinatakli/cinema-ticketing/internal/events"
	"github.com/metinatakli/cinema-ticketing/internal/mailer"
	"github.com/metinatakli/cinema-ticketing/internal/payment"
	"github.com/metinatakli/cinema-ticketing/internal/repository"
	appvalidator "github.com/metinatakli/cinema-ticketing/internal/validator"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type TestApp struct {
	App             *app.Application
	DB              *pgxpool.Pool
	RedisClient     *redis.Client
	SessionManager  *scs.SessionManager
	Mailer          *mailer.MockMailer
	PaymentProvider *payment.MockPaymentProvider
	Purchases       *repository.PostgresPurchaseRepository
}

func newTestApp(cfg app.Config) (*TestApp, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	validator := appvalidator.NewValidator()
	mailer := mailer.NewMockMailer()

	db, err := app.NewDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := app.NewRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	sessionManager := app.NewSessionManager(redisClient)

	userRepo := repository.NewPostgresUserRepository(db)
	purchaseRepo := repository.NewPostgresPurchaseRepository(db)

	paymentProvider := payment.NewMockPaymentProvider()

	application := app.NewApp(
		cfg,
		logger,
		db,
		redisClient,
		validator,
		mailer,
		events.NopPublisher{},
		sessionManager,
		userRepo,
		purchaseRepo,
		paymentProvider,
		clock.NewSystem(),
	)

	return &TestApp{
		App:             application,
		DB:              db,
		RedisClient:     redisClient,
		SessionManager:  sessionManager,
		Mailer:          mailer,
		PaymentProvider: paymentProvider,
		Purchases:       purchaseRepo,
	}, nil
}

// authenticatedUserCookies stores a session for TestUserId in Redis and returns its cookie.
func (a *TestApp) authenticatedUserCookies(t testing.TB) []http.Cookie {
	ctx, err := a.SessionManager.Load(context.Background(), "")
	require.NoError(t, err)

	a.SessionManager.Put(ctx, app.SessionKeyUserId.String(), TestUserId)

	token, _, err := a.SessionManager.Commit(ctx)
	require.NoError(t, err)

	return []http.Cookie{{Name: a.SessionManager.Cookie.Name, Value: token}}
}
