package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/studiolens/core/internal/middleware"
	"github.com/studiolens/core/internal/modules/activity"
	"github.com/studiolens/core/internal/modules/aggregate"
	"github.com/studiolens/core/internal/modules/announcement"
	"github.com/studiolens/core/internal/modules/archive"
	"github.com/studiolens/core/internal/modules/article"
	"github.com/studiolens/core/internal/modules/auth"
	"github.com/studiolens/core/internal/modules/banner"
	"github.com/studiolens/core/internal/modules/events"
	"github.com/studiolens/core/internal/modules/files"
	"github.com/studiolens/core/internal/modules/health"
	"github.com/studiolens/core/internal/modules/maintenance"
	"github.com/studiolens/core/internal/modules/order"
	"github.com/studiolens/core/internal/modules/payment"
	"github.com/studiolens/core/internal/modules/photographer"
	"github.com/studiolens/core/internal/modules/site"
	"github.com/studiolens/core/internal/modules/student"
	"github.com/studiolens/core/internal/pkg/response"
	"github.com/studiolens/core/internal/pkg/storage"
	"github.com/studiolens/core/internal/pkg/wechat"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes(wx *wechat.Service, store *storage.Service) {
	r := a.router
	db := a.db
	rc := a.rc
	authMW := middleware.Auth()

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":    "studiolens-core",
		"version": "1.0.0",
	}

	api := r.Group(apiPrefix)
	api.Use(middleware.OptionalAuth())
	api.Use(middleware.Idempotence(rc.Raw()))
	api.Use(middleware.HTTPCache(rc.Raw(), middleware.HTTPCacheOptions{
		TTL:     15 * time.Second,
		Disable: a.cfg.IsDev(),
		// Order state and the view-count bump must stay uncached; auth and
		// the gateway callback never cache anyway but are listed for
		// clarity.
		SkipPaths: []string{
			apiPrefix + "/activities/*",
			apiPrefix + "/orders*",
			apiPrefix + "/auth*",
			apiPrefix + "/payments*",
			apiPrefix + "/events*",
		},
	}))
	api.Use(events.Publisher(rc, apiPrefix, a.logger))

	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })

	// Shared services
	announcementSvc := announcement.NewService(db)
	articleSvc := article.NewService(db)
	bannerSvc := banner.NewService(db)
	photographerSvc := photographer.NewService(db)
	studentSvc := student.NewService(db)
	archiveSvc := archive.NewService(db)
	siteSvc := site.NewService(db)
	activitySvc := activity.NewService(db, a.logger)
	orderSvc := order.NewService(db, a.logger)
	paymentSvc := payment.NewService(db, a.logger)
	if wx != nil {
		orderSvc.WithNotifier(wx, a.cfg.Wechat.PhotosTemplateID)
		paymentSvc.WithNotifier(rc, wx, a.cfg.Wechat.PaidTemplateID)
	}

	// Content
	announcement.NewHandler(announcementSvc).RegisterRoutes(api, authMW)
	article.NewHandler(articleSvc).RegisterRoutes(api, authMW)
	banner.NewHandler(bannerSvc).RegisterRoutes(api, authMW)
	photographer.NewHandler(photographerSvc).RegisterRoutes(api, authMW)
	activity.NewHandler(activitySvc).RegisterRoutes(api, authMW)
	site.NewHandler(siteSvc).RegisterRoutes(api, authMW)
	aggregate.NewHandler(aggregate.NewService(bannerSvc, announcementSvc, activitySvc, siteSvc)).RegisterRoutes(api)

	// Students and archives
	student.NewHandler(studentSvc).RegisterRoutes(api, authMW)
	archive.NewHandler(archiveSvc).RegisterRoutes(api, authMW)

	// Orders and payment
	order.NewHandler(orderSvc).RegisterRoutes(api, authMW)
	payment.NewHandler(paymentSvc, a.cfg.Payment.NotifyToken).RegisterRoutes(api)

	// Admin infrastructure
	auth.NewHandler(auth.NewService(db, a.logger)).RegisterRoutes(api, authMW)
	maintenance.NewHandler(maintenance.NewService(db, a.logger)).RegisterRoutes(api, authMW)
	events.NewHandler(rc, a.logger).RegisterRoutes(api, authMW)
	files.NewHandler(store).RegisterRoutes(api, authMW)
	health.NewHandler(db, rc).RegisterRoutes(api)

	api.POST("/clean_cache", authMW, func(c *gin.Context) {
		deleted, err := middleware.PurgeHTTPCache(c.Request.Context(), rc.Raw())
		if err != nil {
			response.InternalError(c, err)
			return
		}
		response.OK(c, gin.H{"deleted": deleted})
	})
}
