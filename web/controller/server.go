package controller

import (
	"strconv"

	"github.com/Retroinn/MotoCrew/database/model"
	"github.com/Retroinn/MotoCrew/web/middleware"
	"github.com/Retroinn/MotoCrew/web/service"

	"github.com/gin-gonic/gin"
)

// ServerController exposes the admin status and log endpoints.
type ServerController struct {
	BaseController

	serverService  *service.ServerService
	settingService service.SettingService
}

func NewServerController(g *gin.RouterGroup, serverService *service.ServerService) *ServerController {
	a := &ServerController{serverService: serverService}
	a.initRouter(g)
	return a
}

func (a *ServerController) initRouter(g *gin.RouterGroup) {
	g = g.Group("/server")
	g.Use(a.checkLogin, middleware.RoleRequired(model.RoleAdmin, model.RoleSuperAdmin))

	g.GET("/status", a.status)
	g.GET("/logs/:count", a.logs)
	g.GET("/settings", a.settings)
}

func (a *ServerController) status(c *gin.Context) {
	jsonObj(c, a.serverService.GetStatus(), nil)
}

func (a *ServerController) logs(c *gin.Context) {
	count, err := strconv.Atoi(c.Param("count"))
	if err != nil || count <= 0 {
		count = 50
	}
	level := c.DefaultQuery("level", "info")
	jsonObj(c, a.serverService.GetLogs(count, level), nil)
}

func (a *ServerController) settings(c *gin.Context) {
	allSetting, err := a.settingService.GetAllSetting()
	jsonObj(c, allSetting, err)
}
