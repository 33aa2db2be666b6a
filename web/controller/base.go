// Package controller provides the HTTP handlers of the MotoCrew panel.
package controller

import (
	"net/http"

	"github.com/Retroinn/MotoCrew/logger"
	"github.com/Retroinn/MotoCrew/web/locale"
	"github.com/Retroinn/MotoCrew/web/session"

	"github.com/gin-gonic/gin"
)

// BaseController provides common functionality for all controllers, including
// the login check.
type BaseController struct{}

func (a *BaseController) checkLogin(c *gin.Context) {
	if !session.IsLogin(c) {
		pureJsonMsg(c, http.StatusUnauthorized, false, I18nWeb(c, "pages.login.toasts.loginAgain"))
		c.Abort()
		return
	}
	c.Next()
}

// I18nWeb retrieves an internationalized message for the current locale.
func I18nWeb(c *gin.Context, name string, params ...string) string {
	anyfunc, funcExists := c.Get("I18n")
	if !funcExists {
		logger.Warning("I18n function not exists in gin context!")
		return name
	}
	i18nFunc, _ := anyfunc.(func(i18nType locale.I18nType, key string, keyParams ...string) string)
	return i18nFunc(locale.Web, name, params...)
}
