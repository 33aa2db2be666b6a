package controller

import (
	"net/http"

	"github.com/Retroinn/MotoCrew/database/model"
	"github.com/Retroinn/MotoCrew/store"
	"github.com/Retroinn/MotoCrew/web/middleware"
	"github.com/Retroinn/MotoCrew/web/service"
	"github.com/Retroinn/MotoCrew/web/session"

	"github.com/gin-gonic/gin"
)

// BroadcastForm is an admin announcement to all members.
type BroadcastForm struct {
	Title   string `json:"title" form:"title"`
	Message string `json:"message" form:"message"`
	Type    string `json:"type" form:"type"`
}

// NotificationController serves the member's notification feed and the admin
// broadcast endpoint.
type NotificationController struct {
	BaseController

	store store.Store
	tgbot service.Tgbot
}

func NewNotificationController(g *gin.RouterGroup, s store.Store) *NotificationController {
	a := &NotificationController{store: s}
	a.initRouter(g)
	return a
}

func (a *NotificationController) initRouter(g *gin.RouterGroup) {
	n := g.Group("/notifications")
	n.Use(a.checkLogin)

	n.GET("/", a.list)
	n.POST("/:id/read", a.markRead)
	n.POST("/readAll", a.markAllRead)

	admin := g.Group("/admin")
	admin.Use(a.checkLogin, middleware.RoleRequired(model.RoleAdmin, model.RoleSuperAdmin))
	admin.POST("/broadcast", a.broadcast)
}

func (a *NotificationController) list(c *gin.Context) {
	user := session.GetLoginUser(c)
	list, err := a.store.ListNotifications(c.Request.Context(), user.ID)
	if err != nil {
		jsonMsg(c, I18nWeb(c, "fail"), err)
		return
	}
	jsonObj(c, list, nil)
}

func (a *NotificationController) markRead(c *gin.Context) {
	if err := a.store.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		jsonMsg(c, I18nWeb(c, "fail"), err)
		return
	}
	jsonMsg(c, I18nWeb(c, "pages.notifications.toasts.marked"), nil)
}

func (a *NotificationController) markAllRead(c *gin.Context) {
	user := session.GetLoginUser(c)
	if err := a.store.MarkAllRead(c.Request.Context(), user.ID); err != nil {
		jsonMsg(c, I18nWeb(c, "fail"), err)
		return
	}
	jsonMsg(c, I18nWeb(c, "pages.notifications.toasts.allMarked"), nil)
}

func (a *NotificationController) broadcast(c *gin.Context) {
	var form BroadcastForm
	if err := c.ShouldBind(&form); err != nil {
		jsonMsg(c, I18nWeb(c, "pages.login.toasts.invalidFormData"), err)
		return
	}
	if form.Title == "" {
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "pages.notifications.toasts.emptyTitle"))
		return
	}
	typ := model.NotificationType(form.Type)
	switch typ {
	case model.NotificationEvent, model.NotificationSystem, model.NotificationInvite, model.NotificationAlert:
	default:
		typ = model.NotificationSystem
	}

	created, err := a.store.Broadcast(c.Request.Context(), form.Title, form.Message, typ)
	if err != nil {
		jsonMsg(c, I18nWeb(c, "fail"), err)
		return
	}

	if a.tgbot.IsRunning() {
		a.tgbot.NotifyBroadcast(form.Title, form.Message)
	}
	jsonMsgObj(c, I18nWeb(c, "pages.notifications.toasts.broadcastSent"), created, nil)
}
