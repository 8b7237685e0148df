package domain

import "context"

// Channel is the interface for user-facing I/O (Web gateway, Telegram, CLI).
type Channel interface {
	Name() string
	Start(ctx context.Context, bus MessageBus) error
	Stop() error
}
