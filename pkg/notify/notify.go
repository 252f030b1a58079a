// Package notify tells the operator how a run ended.
package notify

import (
	"context"
	"errors"
)

// AppName prefixes every subject line.
const AppName = "Enroller"

// Delivery reports what happened to a notification.
type Delivery int

const (
	// Skipped means notifications are disabled
	Skipped Delivery = iota
	// Delivered means the provider accepted the message
	Delivered
)

func (d Delivery) String() string {
	switch d {
	case Skipped:
		return "skipped"
	case Delivered:
		return "delivered"
	default:
		return "unknown"
	}
}

// ErrUnexpectedStatus is returned when the provider answers anything but 202.
var ErrUnexpectedStatus = errors.New("unexpected status from mail provider")

// Notifier sends the terminal notifications of a run.
type Notifier interface {
	// SendFailure reports the fatal error that stopped the run
	SendFailure(ctx context.Context, err error) (Delivery, error)

	// SendSuccess reports the course the run registered for
	SendSuccess(ctx context.Context, courseID string) (Delivery, error)
}

// Disabled is the Notifier used when notifications are turned off.
type Disabled struct{}

func (Disabled) SendFailure(context.Context, error) (Delivery, error) {
	return Skipped, nil
}

func (Disabled) SendSuccess(context.Context, string) (Delivery, error) {
	return Skipped, nil
}
