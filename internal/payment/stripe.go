package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/metinatakli/cinema-ticketing/internal/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

const DefaultCurrency = "pln"

type StripePaymentProvider struct {
	currency string
}

func NewStripePaymentProvider(currency string) *StripePaymentProvider {
	if currency == "" {
		currency = DefaultCurrency
	}

	return &StripePaymentProvider{
		currency: currency,
	}
}

func (s *StripePaymentProvider) CreateCheckoutSession(
	ctx context.Context,
	params domain.CheckoutSessionParams) (*domain.CheckoutSession, error) {

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(params.LineItems))

	for _, item := range params.LineItems {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(s.currency),
				UnitAmount: stripe.Int64(item.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
			Quantity: stripe.Int64(1),
		})
	}

	sessionParams := &stripe.CheckoutSessionParams{
		LineItems:  lineItems,
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		Metadata:   params.Metadata,
	}
	sessionParams.Context = ctx

	if params.CustomerEmail != "" {
		sessionParams.CustomerEmail = stripe.String(params.CustomerEmail)
	}

	cs, err := session.New(sessionParams)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	return toCheckoutSession(cs), nil
}

func (s *StripePaymentProvider) GetCheckoutSession(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	cs, err := session.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) &&
			(stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripe.ErrorCodeResourceMissing) {
			return nil, domain.ErrPaymentSessionNotFound
		}

		return nil, fmt.Errorf("stripe: retrieve checkout session: %w", err)
	}

	return toCheckoutSession(cs), nil
}

func toCheckoutSession(cs *stripe.CheckoutSession) *domain.CheckoutSession {
	return &domain.CheckoutSession{
		ID:            cs.ID,
		URL:           cs.URL,
		PaymentStatus: domain.PaymentStatus(cs.PaymentStatus),
		Metadata:      cs.Metadata,
	}
}
