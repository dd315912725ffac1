package domain

import "time"

type HoldRejection string

const (
	RejectionNone           HoldRejection = ""
	RejectionAlreadySold    HoldRejection = "already_sold"
	RejectionAlreadyBlocked HoldRejection = "already_blocked"
)

// HoldOutcome is the answer to a hold request. Until is the new hold's expiry when granted, or
// the blocking hold's expiry when rejected as already blocked.
type HoldOutcome struct {
	Granted bool
	Reason  HoldRejection
	Until   time.Time
}

func HoldGranted(until time.Time) HoldOutcome {
	return HoldOutcome{Granted: true, Until: until}
}

func HoldRejected(reason HoldRejection, until time.Time) HoldOutcome {
	return HoldOutcome{Reason: reason, Until: until}
}
