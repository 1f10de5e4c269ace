package notification

import "context"

// Sender delivers one rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
