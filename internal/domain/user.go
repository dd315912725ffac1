package domain

import "context"

// Buyer is the slice of a user account this service needs: who pays and where to send the
// tickets.
type Buyer struct {
	ID        int
	FirstName string
	Email     string
}

type UserRepository interface {
	GetById(ctx context.Context, id int) (*Buyer, error)
}
