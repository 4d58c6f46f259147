package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Routing errors
	ErrNoCategorySelected  = errors.New("no active category selected")
	ErrRoutingDisabled     = errors.New("category is not routed to a live topic")
	ErrTopicCreationFailed = errors.New("forum topic creation failed")
	ErrDuplicateBinding    = errors.New("topic already bound for user and category")
	ErrUserBanned          = errors.New("user is banned")

	// Delivery errors. ErrUnreachable marks recipients that can never be
	// reached again (blocked the bot, deactivated account); anything else
	// coming out of the gateway is treated as transient.
	ErrUnreachable = errors.New("recipient permanently unreachable")
)

// Unreachable reports whether err is the permanent per-recipient failure
// class. Broadcast runs skip such recipients and keep going; every other
// send error aborts the run so it can be resumed later.
func Unreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}
