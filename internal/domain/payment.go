package domain

type PaymentStatus string

const (
	PaymentStatusUnpaid            PaymentStatus = "unpaid"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusNoPaymentRequired PaymentStatus = "no_payment_required"
)

type CheckoutLineItem struct {
	Name string
	// UnitAmount is expressed in minor currency units.
	UnitAmount int64
}

type CheckoutSessionParams struct {
	LineItems     []CheckoutLineItem
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

type CheckoutSession struct {
	ID            string
	URL           string
	PaymentStatus PaymentStatus
	Metadata      map[string]string
}
