package matching

import (
	"log"

	"github.com/bookmatch/go-bookmatch/internal/cache"
	"github.com/bookmatch/go-bookmatch/internal/database"
	"github.com/bookmatch/go-bookmatch/internal/types"
)

// NotificationDispatcher persists notifications and pushes them to the
// recipient's live sessions. Persistence is authoritative; the live
// push is fire-and-forget and never retried. A recipient without a
// session simply sees the notification on their next fetch.
type NotificationDispatcher struct {
	log    *log.Logger
	db     database.BookMatchRepository
	pusher Pusher
	unread *cache.UnreadCounter
}

// DispatchResult distinguishes the durable outcome from the live one:
// the notification row always exists when err is nil, Delivered only
// reports whether a session accepted the real-time push.
type DispatchResult struct {
	Notification types.Notification
	Delivered    bool
}

// NewNotificationDispatcher wires a dispatcher. pusher and unread may
// be nil; dispatch then only persists.
func NewNotificationDispatcher(logger *log.Logger, db database.BookMatchRepository, pusher Pusher, unread *cache.UnreadCounter) *NotificationDispatcher {
	return &NotificationDispatcher{
		log:    logger,
		db:     db,
		pusher: pusher,
		unread: unread,
	}
}

func (d *NotificationDispatcher) Dispatch(params database.CreateNotificationParams) (DispatchResult, error) {
	dbNotification, err := d.db.CreateNotification(params)
	if err != nil {
		return DispatchResult{}, err
	}

	d.unread.Incr(params.UserId)

	result := DispatchResult{Notification: ToNotification(dbNotification)}
	if d.pusher != nil {
		result.Delivered = d.pusher.PushToUser(params.UserId, result.Notification)
		if !result.Delivered {
			d.log.Printf("notification %d not delivered live to user %d", result.Notification.Id, params.UserId)
		}
	}

	return result, nil
}
