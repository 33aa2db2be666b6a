package controller

import (
	"net/http"

	"github.com/Retroinn/MotoCrew/web/service"
	"github.com/Retroinn/MotoCrew/web/session"

	"github.com/gin-gonic/gin"
)

// POIForm asks for rider points of interest around a location.
type POIForm struct {
	Latitude  float64  `json:"latitude" form:"latitude"`
	Longitude float64  `json:"longitude" form:"longitude"`
	Interests []string `json:"interests" form:"interests"`
}

// MapController serves AI-backed discovery for the map view.
type MapController struct {
	BaseController

	aiService *service.AIService
}

func NewMapController(g *gin.RouterGroup, ai *service.AIService) *MapController {
	a := &MapController{aiService: ai}
	a.initRouter(g)
	return a
}

func (a *MapController) initRouter(g *gin.RouterGroup) {
	g = g.Group("/map")
	g.Use(a.checkLogin)

	g.POST("/poi", a.discoverPOIs)
	g.POST("/rides", a.recommendRides)
}

func validLocation(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func (a *MapController) discoverPOIs(c *gin.Context) {
	if !a.aiService.IsEnabled() {
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "pages.map.toasts.aiDisabled"))
		return
	}

	var form POIForm
	if err := c.ShouldBindJSON(&form); err != nil || !validLocation(form.Latitude, form.Longitude) {
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "pages.map.toasts.invalidLocation"))
		return
	}

	user := session.GetLoginUser(c)
	pois, err := a.aiService.DiscoverPOIs(c.Request.Context(), user.ID, form.Latitude, form.Longitude, form.Interests)
	if err != nil {
		jsonMsg(c, I18nWeb(c, "fail"), err)
		return
	}
	jsonObj(c, pois, nil)
}

func (a *MapController) recommendRides(c *gin.Context) {
	if !a.aiService.IsEnabled() {
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "pages.map.toasts.aiDisabled"))
		return
	}

	var form POIForm
	if err := c.ShouldBindJSON(&form); err != nil || !validLocation(form.Latitude, form.Longitude) {
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "pages.map.toasts.invalidLocation"))
		return
	}

	user := session.GetLoginUser(c)
	rides, err := a.aiService.RecommendRides(c.Request.Context(), user.ID,
		form.Latitude, form.Longitude, string(user.ExperienceLevel), user.MotorcycleModel)
	if err != nil {
		jsonMsg(c, I18nWeb(c, "fail"), err)
		return
	}
	jsonObj(c, rides, nil)
}
