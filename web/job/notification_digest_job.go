// Package job contains the scheduled background jobs of the panel.
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/Retroinn/MotoCrew/database/model"
	"github.com/Retroinn/MotoCrew/logger"
	"github.com/Retroinn/MotoCrew/store"
	"github.com/Retroinn/MotoCrew/web/service"
)

// NotificationDigestJob pushes a summary of unread club announcements to the
// Telegram chats on the configured schedule.
type NotificationDigestJob struct {
	store store.Store
	tgbot service.Tgbot
}

func NewNotificationDigestJob(s store.Store) *NotificationDigestJob {
	return &NotificationDigestJob{store: s}
}

func (j *NotificationDigestJob) Run() {
	if !j.tgbot.IsRunning() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Listing as the broadcast scope returns club-wide announcements only.
	list, err := j.store.ListNotifications(ctx, model.BroadcastScope)
	if err != nil {
		logger.Warning("digest: list notifications failed:", err)
		return
	}

	if msg := digestMessage(list); msg != "" {
		j.tgbot.SendToAllChats(msg)
	}
}

// digestMessage formats the unread entries of the list, or returns "" when
// there is nothing to report.
func digestMessage(list []model.Notification) string {
	unread := make([]model.Notification, 0, len(list))
	for _, n := range list {
		if !n.Read {
			unread = append(unread, n)
		}
	}
	if len(unread) == 0 {
		return ""
	}

	msg := fmt.Sprintf("🔔 <b>%d unread announcement(s)</b>\r\n", len(unread))
	for _, n := range unread {
		msg += fmt.Sprintf("\r\n• <b>%s</b> (%s)\r\n%s\r\n", n.Title, n.Type, n.Message)
	}
	return msg
}
