package api

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/eventpass/eventpass-api/docs"
	v1 "github.com/eventpass/eventpass-api/internal/api/handler/v1"
	"github.com/eventpass/eventpass-api/internal/api/middleware"
	"github.com/eventpass/eventpass-api/internal/cache"
	"github.com/eventpass/eventpass-api/internal/config"
	"github.com/eventpass/eventpass-api/internal/domain"
	"github.com/eventpass/eventpass-api/internal/queue"
	"github.com/eventpass/eventpass-api/internal/repository"
	"github.com/eventpass/eventpass-api/internal/repository/dao"
	"github.com/eventpass/eventpass-api/internal/service"
)

type Server struct {
	Config  *config.AppConfig
	Router  *gin.Engine
	LiveHub *v1.LiveHub

	rdb       *redis.Client
	publisher queue.Publisher
}

// NewServer wires the HTTP API. rdb may be nil, which disables the event
// cache and rate limiting.
func NewServer(conf *config.AppConfig, db *gorm.DB, rdb *redis.Client, publisher queue.Publisher) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config:    conf,
		Router:    engine,
		rdb:       rdb,
		publisher: publisher,
	}

	s.MountMiddlewares()

	userSvc := s.initUserService(db)
	authHandler := s.initAuthHandler(db)
	userHandler := v1.NewUserHandler(userSvc)
	eventCache := s.initEventCache()
	eventSvc := s.initEventService(db, eventCache)
	eventHandler := v1.NewEventHandler(eventSvc, userSvc)
	s.LiveHub = v1.NewLiveHub(eventSvc, conf.API.AllowedCORSDomains)
	bookingHandler := s.initBookingHandler(db, s.LiveHub, eventCache)
	s.MountHandlers(authHandler, userHandler, eventHandler, bookingHandler)

	return s
}

func (s *Server) initAuthHandler(db *gorm.DB) *v1.AuthHandler {
	userDAO := dao.NewUserDAO(db)
	repo := repository.NewUserRepository(userDAO)
	svc := service.NewAuthService(repo)
	handler := v1.NewAuthHandler(s.Config.API, svc)

	return handler
}

func (s *Server) initUserService(db *gorm.DB) *service.UserService {
	userDAO := dao.NewUserDAO(db)
	repo := repository.NewUserRepository(userDAO)

	return service.NewUserService(repo)
}

// initEventCache returns nil when redis or the cache is disabled.
func (s *Server) initEventCache() service.EventCache {
	if s.rdb == nil || !s.Config.Cache.Enabled {
		return nil
	}

	return cache.NewEventCache(s.rdb, s.Config.Cache.Prefix, s.Config.Cache.TTL)
}

func (s *Server) initEventService(db *gorm.DB, eventCache service.EventCache) *service.EventService {
	eventDAO := dao.NewEventDAO(db)
	repo := repository.NewEventRepository(eventDAO)

	return service.NewEventService(repo, eventCache)
}

func (s *Server) initBookingHandler(db *gorm.DB, hub *v1.LiveHub, eventCache service.EventCache) *v1.BookingHandler {
	bookingDAO := dao.NewBookingDAO(db)
	repo := repository.NewBookingRepository(bookingDAO)

	// Listings carry remaining stock, so each reservation drops them.
	var listings service.ListingInvalidator
	if eventCache != nil {
		listings = eventCache
	}
	svc := service.NewBookingService(repo, s.publisher, hub, listings, s.Config.Booking)
	handler := v1.NewBookingHandler(s.Config.API, svc)

	return handler
}

func (s *Server) MountMiddlewares() {
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.Logger())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

// rateLimit returns a pass-through handler when redis is unavailable.
func (s *Server) rateLimit(scope string) gin.HandlerFunc {
	if s.rdb == nil || !s.Config.RateLimit.Enabled {
		return func(ctx *gin.Context) { ctx.Next() }
	}

	return middleware.NewRateLimiter(s.rdb, s.Config.RateLimit).Limit(scope)
}

func (s *Server) MountHandlers(authHandler *v1.AuthHandler, userHandler *v1.UserHandler, eventHandler *v1.EventHandler, bookingHandler *v1.BookingHandler) {
	const basePath = "/api/v1"

	verifyJWT := middleware.NewAuthenticator(s.Config.API.JWTSigningKey).VerifyJWT()
	organizerOnly := middleware.RequireRole(domain.RoleOrganizer, domain.RoleAdmin)

	auth := s.Router.Group(basePath, s.rateLimit("auth"))
	{
		auth.POST("/auth/register", authHandler.HandleRegister)
		auth.POST("/auth/login", authHandler.HandleLogin)
	}

	users := s.Router.Group(basePath, verifyJWT)
	{
		users.GET("/users/me", userHandler.HandleGetMe)
		users.PUT("/users/me/interests", userHandler.HandleUpdateInterests)
		users.PUT("/users/me/profile", userHandler.HandleUpdateProfile)
	}

	events := s.Router.Group(basePath)
	{
		events.GET("/events", eventHandler.HandleListEvents)
		events.GET("/events/search", eventHandler.HandleSearchEvents)
		events.GET("/events/related/:id", eventHandler.HandleRelatedEvents)
		events.GET("/events/:slug", eventHandler.HandleGetEvent)
		events.GET("/events/:slug/live", s.LiveHub.HandleLiveFeed)
		events.POST("/events", verifyJWT, organizerOnly, eventHandler.HandleCreateEvent)
	}

	booking := s.Router.Group(basePath+"/booking", verifyJWT)
	{
		booking.POST("/create", s.rateLimit("booking"), bookingHandler.HandleCreateBooking)
		booking.GET("/me", bookingHandler.HandleListMyBookings)
		booking.POST("/send-email/:id", bookingHandler.HandleSendTicketEmail)
		booking.GET("/stats", organizerOnly, bookingHandler.HandleDashboardStats)
	}

	s.Router.POST(basePath+"/tracking/view", v1.HandleTrackView)

	s.Router.GET("/", v1.HandleHealthcheck)
	s.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "EventPass API"
	docs.SwaggerInfo.Description = "Event catalog and ticket booking API."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
