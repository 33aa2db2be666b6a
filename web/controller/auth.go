package controller

import (
	"net/http"

	"github.com/Retroinn/MotoCrew/logger"
	"github.com/Retroinn/MotoCrew/store"
	"github.com/Retroinn/MotoCrew/web/service"
	"github.com/Retroinn/MotoCrew/web/session"

	"github.com/gin-gonic/gin"
)

// LoginForm represents the login request structure.
type LoginForm struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// RegisterForm represents the registration request structure.
type RegisterForm struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Name     string `json:"name" form:"name"`
}

// AuthController handles login, registration and session routes.
type AuthController struct {
	BaseController

	store          store.Store
	settingService service.SettingService
	tgbot          service.Tgbot
}

func NewAuthController(g *gin.RouterGroup, s store.Store) *AuthController {
	a := &AuthController{store: s}
	a.initRouter(g)
	return a
}

func (a *AuthController) initRouter(g *gin.RouterGroup) {
	g.POST("/login", a.login)
	g.POST("/register", a.register)
	g.POST("/resetPassword", a.resetPassword)
	g.GET("/loginWithGoogle", a.loginWithGoogle)
	g.GET("/session", a.session)
	g.GET("/logout", a.logout)
}

func (a *AuthController) login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "pages.login.toasts.invalidFormData"))
		return
	}
	if form.Email == "" {
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "pages.login.toasts.emptyEmail"))
		return
	}
	if form.Password == "" {
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "pages.login.toasts.emptyPassword"))
		return
	}

	res, err := a.store.SignIn(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		jsonMsg(c, I18nWeb(c, "fail"), err)
		return
	}
	if res.User == nil {
		logger.Warningf("failed sign-in for \"%s\", IP: \"%s\"", form.Email, getRemoteIp(c))
		a.tgbot.UserLoginNotify(form.Email, getRemoteIp(c), false)
		pureJsonMsg(c, http.StatusOK, false, res.Message)
		return
	}

	sessionMaxAge, err := a.settingService.GetSessionMaxAge()
	if err != nil {
		logger.Warning("unable to get session max age:", err)
	}
	if sessionMaxAge > 0 {
		if err := session.SetMaxAge(c, sessionMaxAge*60); err != nil {
			logger.Warning("unable to set session max age:", err)
		}
	}
	if err := session.SetLoginUser(c, res.User); err != nil {
		logger.Warning("unable to save session:", err)
	}

	logger.Infof("%s signed in, IP: %s", form.Email, getRemoteIp(c))
	jsonMsgObj(c, I18nWeb(c, "pages.login.toasts.successLogin"), res.User, nil)
}

func (a *AuthController) register(c *gin.Context) {
	var form RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "pages.login.toasts.invalidFormData"))
		return
	}
	if form.Name == "" {
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "pages.register.toasts.emptyName"))
		return
	}
	if form.Email == "" {
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "pages.login.toasts.emptyEmail"))
		return
	}
	if form.Password == "" {
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "pages.login.toasts.emptyPassword"))
		return
	}

	res, err := a.store.SignUp(c.Request.Context(), form.Email, form.Password, form.Name)
	if err != nil {
		jsonMsg(c, I18nWeb(c, "fail"), err)
		return
	}
	if res.User == nil {
		// Registered but awaiting email confirmation.
		pureJsonMsg(c, http.StatusOK, true, res.Message)
		return
	}

	if err := session.SetLoginUser(c, res.User); err != nil {
		logger.Warning("unable to save session:", err)
	}
	jsonMsgObj(c, I18nWeb(c, "pages.register.toasts.successRegister"), res.User, nil)
}

func (a *AuthController) resetPassword(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil || form.Email == "" {
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "pages.login.toasts.emptyEmail"))
		return
	}
	msg, err := a.store.ResetPassword(c.Request.Context(), form.Email)
	if err != nil {
		jsonMsg(c, I18nWeb(c, "fail"), err)
		return
	}
	if msg != "" {
		pureJsonMsg(c, http.StatusOK, false, msg)
		return
	}
	jsonMsg(c, I18nWeb(c, "pages.login.toasts.resetSent"), nil)
}

func (a *AuthController) loginWithGoogle(c *gin.Context) {
	res, err := a.store.SignInWithGoogle(c.Request.Context())
	if err != nil {
		jsonMsg(c, I18nWeb(c, "fail"), err)
		return
	}
	if res.User != nil {
		if err := session.SetLoginUser(c, res.User); err != nil {
			logger.Warning("unable to save session:", err)
		}
		jsonMsgObj(c, I18nWeb(c, "pages.login.toasts.successLogin"), res.User, nil)
		return
	}
	// Hosted mode: the client finishes the flow at the provider.
	jsonObj(c, gin.H{"redirectUrl": res.RedirectURL}, nil)
}

func (a *AuthController) session(c *gin.Context) {
	user, err := a.store.GetSession(c.Request.Context())
	if err != nil {
		jsonMsg(c, I18nWeb(c, "fail"), err)
		return
	}
	if user != nil {
		// Keep the cookie session aligned with the backend session.
		if err := session.SetLoginUser(c, user); err != nil {
			logger.Warning("unable to refresh session:", err)
		}
	}
	jsonObj(c, user, nil)
}

func (a *AuthController) logout(c *gin.Context) {
	user := session.GetLoginUser(c)
	if user != nil {
		logger.Infof("%s signed out", user.Email)
	}
	a.store.SignOut(c.Request.Context())
	if err := session.ClearSession(c); err != nil {
		logger.Warning("unable to clear session:", err)
	}
	jsonMsg(c, I18nWeb(c, "pages.login.toasts.successLogout"), nil)
}
