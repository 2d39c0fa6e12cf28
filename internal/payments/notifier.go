package payments

import (
	"context"
	"log/slog"

	"github.com/m3rciful/starshop/core/logger"
	"github.com/m3rciful/starshop/internal/chat"
	"github.com/m3rciful/starshop/internal/domain"
)

// Enqueuer runs sends off the caller's goroutine, possibly retrying them, and
// reports each job's final outcome to done. *sender.Dispatcher satisfies it.
type Enqueuer interface {
	EnqueueWithResult(ctx context.Context, action, endpoint string, run func() error, done func(error)) error
}

// AdminNotifier sends a message to every administrator. A failure is counted
// and logged once per admin after the queue gives up, and never returned.
type AdminNotifier struct {
	out      chat.Outbound
	admins   []int64
	queue    Enqueuer
	recorder Recorder
}

// NewAdminNotifier builds a notifier. queue and rec may be nil; without a
// queue messages are sent inline.
func NewAdminNotifier(out chat.Outbound, admins []int64, queue Enqueuer, rec Recorder) *AdminNotifier {
	if rec == nil {
		rec = noopRecorder{}
	}
	return &AdminNotifier{out: out, admins: admins, queue: queue, recorder: rec}
}

// NotifyAdmins implements Notifier.
func (n *AdminNotifier) NotifyAdmins(ctx context.Context, msg chat.Message) {
	// Queued jobs outlive the update; keep its log fields but drop cancellation.
	sendCtx := context.WithoutCancel(ctx)
	for _, adminID := range n.admins {
		send := func() error { return n.out.Send(sendCtx, adminID, msg) }
		if n.queue == nil {
			if err := send(); err != nil {
				n.failed(sendCtx, adminID, err)
			}
			continue
		}
		done := func(err error) {
			if err != nil {
				n.failed(sendCtx, adminID, err)
			}
		}
		if err := n.queue.EnqueueWithResult(ctx, "notify.admin", "sendMessage", send, done); err != nil {
			n.failed(ctx, adminID, err)
		}
	}
}

func (n *AdminNotifier) failed(ctx context.Context, adminID int64, err error) {
	n.recorder.NotifyFailed()
	logger.Warn(ctx, logger.CompPayments, "notify.admin",
		slog.String("status", "fail"),
		slog.Int64("chat_id", adminID),
		logger.Err(err),
		slog.String("err_code", string(domain.ErrNotifyFailed.Code)),
	)
}
