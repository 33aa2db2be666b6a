package controller

import (
	"net/http"

	"github.com/Retroinn/MotoCrew/logger"
	"github.com/Retroinn/MotoCrew/store"
	"github.com/Retroinn/MotoCrew/web/service"
	"github.com/Retroinn/MotoCrew/web/session"

	"github.com/gin-gonic/gin"
)

// ProfileController handles the member's own profile and membership card.
type ProfileController struct {
	BaseController

	store             store.Store
	membershipService service.MembershipService
}

func NewProfileController(g *gin.RouterGroup, s store.Store) *ProfileController {
	a := &ProfileController{store: s}
	a.initRouter(g)
	return a
}

func (a *ProfileController) initRouter(g *gin.RouterGroup) {
	g = g.Group("/profile")
	g.Use(a.checkLogin)

	g.GET("/", a.profile)
	g.PUT("/", a.update)
	g.GET("/card", a.card)
	g.GET("/card/qr", a.cardQR)
}

func (a *ProfileController) profile(c *gin.Context) {
	jsonObj(c, session.GetLoginUser(c), nil)
}

func (a *ProfileController) update(c *gin.Context) {
	user := session.GetLoginUser(c)

	var update store.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		jsonMsg(c, I18nWeb(c, "pages.login.toasts.invalidFormData"), err)
		return
	}

	res, err := a.store.UpdateProfile(c.Request.Context(), user.ID, update)
	if err != nil {
		jsonMsg(c, I18nWeb(c, "fail"), err)
		return
	}
	if res.User == nil {
		pureJsonMsg(c, http.StatusOK, false, res.Message)
		return
	}

	if err := session.SetLoginUser(c, res.User); err != nil {
		logger.Warning("unable to refresh session:", err)
	}
	jsonMsgObj(c, I18nWeb(c, "pages.profile.toasts.updated"), res.User, nil)
}

func (a *ProfileController) card(c *gin.Context) {
	user := session.GetLoginUser(c)
	jsonObj(c, a.membershipService.CardFor(user), nil)
}

func (a *ProfileController) cardQR(c *gin.Context) {
	user := session.GetLoginUser(c)
	png, err := a.membershipService.CardQR(user, 256)
	if err != nil {
		jsonMsg(c, I18nWeb(c, "fail"), err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
