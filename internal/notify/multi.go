// README: Fan-out notifier; every channel is attempted and errors are joined.
package notify

import (
	"context"
	"errors"
)

type Channel interface {
	NotifyRequestReceived(ctx context.Context, m RequestReceived) error
	NotifyRequestStatusChanged(ctx context.Context, m StatusChanged) error
	NotifyRequestCancelled(ctx context.Context, m RequestCancelled) error
}

type Multi []Channel

func (mc Multi) NotifyRequestReceived(ctx context.Context, m RequestReceived) error {
	return mc.each(func(c Channel) error { return c.NotifyRequestReceived(ctx, m) })
}

func (mc Multi) NotifyRequestStatusChanged(ctx context.Context, m StatusChanged) error {
	return mc.each(func(c Channel) error { return c.NotifyRequestStatusChanged(ctx, m) })
}

func (mc Multi) NotifyRequestCancelled(ctx context.Context, m RequestCancelled) error {
	return mc.each(func(c Channel) error { return c.NotifyRequestCancelled(ctx, m) })
}

func (mc Multi) each(fn func(Channel) error) error {
	var errs []error
	for _, c := range mc {
		if c == nil {
			continue
		}
		if err := fn(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
