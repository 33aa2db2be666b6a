// Package web provides the MotoCrew panel server: HTTP serving, routing,
// session handling and background job scheduling.
package web

import (
	"context"
	"embed"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/Retroinn/MotoCrew/config"
	"github.com/Retroinn/MotoCrew/logger"
	"github.com/Retroinn/MotoCrew/store"
	"github.com/Retroinn/MotoCrew/util/common"
	"github.com/Retroinn/MotoCrew/web/controller"
	"github.com/Retroinn/MotoCrew/web/job"
	"github.com/Retroinn/MotoCrew/web/locale"
	"github.com/Retroinn/MotoCrew/web/middleware"
	"github.com/Retroinn/MotoCrew/web/service"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

//go:embed translation/*
var i18nFS embed.FS

// Server is the MotoCrew panel server with its controllers, services and
// scheduled jobs.
type Server struct {
	httpServer *http.Server
	listener   net.Listener

	store store.Store

	auth          *controller.AuthController
	profile       *controller.ProfileController
	notifications *controller.NotificationController
	mapView       *controller.MapController
	status        *controller.ServerController

	settingService service.SettingService
	tgbotService   service.Tgbot
	serverService  *service.ServerService
	aiService      *service.AIService

	cron *cron.Cron

	unsubscribe func()

	ctx    context.Context
	cancel context.CancelFunc
}

func NewServer() *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		ctx:           ctx,
		cancel:        cancel,
		store:         store.New(),
		serverService: service.NewServerService(),
		aiService:     service.NewAIService(),
	}
}

func (s *Server) initRouter() (*gin.Engine, error) {
	if config.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.Default()

	webDomain, err := s.settingService.GetWebDomain()
	if err != nil {
		return nil, err
	}
	if webDomain != "" {
		engine.Use(middleware.DomainValidatorMiddleware(webDomain))
	}

	secret, err := s.settingService.GetSecret()
	if err != nil {
		return nil, err
	}
	engine.Use(sessions.Sessions("motocrew", cookie.NewStore(secret)))

	basePath, err := s.settingService.GetBasePath()
	if err != nil {
		return nil, err
	}

	// QR images come back from the card endpoint; keep them out of gzip.
	engine.Use(gzip.Gzip(
		gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{basePath + "api/profile/card/qr"}),
	))
	engine.Use(locale.LocalizerMiddleware())

	api := engine.Group(basePath + "api")
	{
		s.auth = controller.NewAuthController(api, s.store)
		s.profile = controller.NewProfileController(api, s.store)
		s.notifications = controller.NewNotificationController(api, s.store)
		s.mapView = controller.NewMapController(api, s.aiService)
		s.status = controller.NewServerController(api, s.serverService)
	}

	engine.NoRoute(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNotFound)
	})

	return engine, nil
}

// startTask schedules the background jobs.
func (s *Server) startTask() {
	s.cron.AddJob("@every 10m", job.NewCheckpointJob())

	if enabled, err := s.settingService.GetTgbotEnabled(); err == nil && enabled {
		runtime, err := s.settingService.GetTgbotRuntime()
		if err != nil || runtime == "" {
			runtime = "@daily"
		}
		logger.Infof("notification digest enabled, run at %s", runtime)
		if _, err := s.cron.AddJob(runtime, job.NewNotificationDigestJob(s.store)); err != nil {
			logger.Warning("add notification digest job:", err)
		}
	}
}

func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			_ = s.Stop()
		}
	}()

	if err = locale.InitLocalizer(i18nFS, &s.settingService); err != nil {
		return err
	}

	loc, err := s.settingService.GetTimeLocation()
	if err != nil {
		return err
	}
	s.cron = cron.New(cron.WithLocation(loc), cron.WithSeconds())
	s.cron.Start()

	// Session lifecycle events from the backing store, mirrored to the log.
	s.unsubscribe = s.store.Subscribe(func(ev store.SessionEvent) {
		if ev.User != nil {
			logger.Debugf("session event %s for %s", ev.Type, ev.User.ID)
		} else {
			logger.Debugf("session event %s", ev.Type)
		}
	})

	engine, err := s.initRouter()
	if err != nil {
		return err
	}

	listen, err := s.settingService.GetListen()
	if err != nil {
		return err
	}
	port, err := s.settingService.GetPort()
	if err != nil {
		return err
	}

	listenAddr := net.JoinHostPort(listen, strconv.Itoa(port))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	logger.Info("Web server running HTTP on", listener.Addr())

	s.listener = listener
	s.httpServer = &http.Server{Handler: engine}

	go func() {
		defer common.Recover("web server serve loop")
		_ = s.httpServer.Serve(listener)
	}()

	s.startTask()

	if enabled, err := s.settingService.GetTgbotEnabled(); err == nil && enabled {
		tgBot := s.tgbotService.NewTgbot()
		if err := tgBot.Start(); err != nil {
			logger.Warning("telegram push not started:", err)
		}
	}

	return nil
}

func (s *Server) Stop() error {
	s.cancel()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.tgbotService.IsRunning() {
		s.tgbotService.Stop()
	}
	if err := s.aiService.Close(); err != nil {
		logger.Warning("close ai client:", err)
	}
	var err1, err2 error
	if s.httpServer != nil {
		err1 = s.httpServer.Shutdown(s.ctx)
	}
	if s.listener != nil {
		err2 = s.listener.Close()
	}
	return common.Combine(err1, err2)
}

func (s *Server) GetCtx() context.Context { return s.ctx }

func (s *Server) GetCron() *cron.Cron { return s.cron }
