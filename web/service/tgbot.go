package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Retroinn/MotoCrew/logger"
	"github.com/Retroinn/MotoCrew/util/common"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

var (
	bot       *telego.Bot
	chatIds   []int64
	isRunning bool
)

// Tgbot pushes club announcements and digests to the configured Telegram
// chats. It only sends; it does not poll for incoming commands.
type Tgbot struct {
	settingService SettingService
}

func (t *Tgbot) NewTgbot() *Tgbot {
	return new(Tgbot)
}

func (t *Tgbot) Start() error {
	token, err := t.settingService.GetTgBotToken()
	if err != nil || token == "" {
		logger.Warning("get bot token failed:", err)
		return common.NewError("telegram bot token is not configured")
	}

	chatIdSetting, err := t.settingService.GetTgBotChatId()
	if err != nil {
		logger.Warning("get bot chat ids failed:", err)
		return err
	}
	chatIds = chatIds[:0]
	for _, raw := range strings.Split(chatIdSetting, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			logger.Warning("invalid telegram chat id:", raw)
			return err
		}
		chatIds = append(chatIds, id)
	}

	bot, err = telego.NewBot(token)
	if err != nil {
		logger.Warning("telegram bot init failed:", err)
		return err
	}

	isRunning = true
	logger.Info("Telegram push started,", len(chatIds), "chat(s) configured")
	return nil
}

func (t *Tgbot) IsRunning() bool {
	return isRunning
}

func (t *Tgbot) Stop() {
	isRunning = false
	bot = nil
	chatIds = nil
	logger.Info("Telegram push stopped")
}

// SendMsgToTgbot delivers one message to one chat, paging it when it exceeds
// Telegram's length limit.
func (t *Tgbot) SendMsgToTgbot(chatId int64, msg string) {
	if !isRunning {
		return
	}
	if msg == "" {
		return
	}

	const limit = 2000
	var pages []string
	for len(msg) > limit {
		pages = append(pages, msg[:limit])
		msg = msg[limit:]
	}
	pages = append(pages, msg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, page := range pages {
		params := telego.SendMessageParams{
			ChatID:    tu.ID(chatId),
			Text:      page,
			ParseMode: "HTML",
		}
		if _, err := bot.SendMessage(ctx, &params); err != nil {
			logger.Warning("error sending telegram message:", err)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func (t *Tgbot) SendToAllChats(msg string) {
	for _, chatId := range chatIds {
		t.SendMsgToTgbot(chatId, msg)
	}
}

// NotifyBroadcast mirrors a panel announcement into the Telegram chats.
func (t *Tgbot) NotifyBroadcast(title, message string) {
	t.SendToAllChats(fmt.Sprintf("📢 <b>%s</b>\r\n%s", title, message))
}

// UserLoginNotify reports a sign-in attempt to the configured chats.
func (t *Tgbot) UserLoginNotify(email, ip string, success bool) {
	status := "✅ signed in"
	if !success {
		status = "❌ failed sign-in"
	}
	t.SendToAllChats(fmt.Sprintf("%s: %s\r\nIP: %s\r\nTime: %s",
		status, email, ip, time.Now().Format("2006-01-02 15:04:05")))
}
