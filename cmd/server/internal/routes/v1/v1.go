package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	srverr "github.com/formrelay/form-api/cmd/server/internal/error"
	servermiddleware "github.com/formrelay/form-api/cmd/server/internal/middleware"
	"github.com/formrelay/form-api/cmd/server/internal/models"
	"github.com/formrelay/form-api/cmd/server/internal/ratelimit"
	"github.com/formrelay/form-api/cmd/server/internal/taskrunner"
	"github.com/formrelay/form-api/internal/config"
	"github.com/formrelay/form-api/internal/logger"
	"github.com/formrelay/form-api/internal/submission"
	"github.com/formrelay/form-api/internal/upload"
)

const name = "github.com/formrelay/form-api/server/routes/v1"

var tracer = otel.Tracer(name)

type Handler struct {
	DB *gorm.DB
	// If not nil stored submissions are copied into object storage
	// after the response goes out.
	archiver         upload.Uploader
	taskrunnerClient *taskrunner.Client
	orchestrator     *submission.Orchestrator
	config           *config.Config
}

// NewRedisLimiter builds a fixed-window rate limiter backed by Redis. When
// byClientIP is set the window is keyed on the caller's IP instead of the
// authenticated operator, which is what the unauthenticated submission
// endpoint needs.
func NewRedisLimiter(
	redisHost string,
	limiterKey string,
	perMinute int64,
	failOpen bool,
	byClientIP bool,
	onlyMethod *string,
) middleware.RateLimiterConfig {
	l := logger.Logger
	var store middleware.RateLimiterStore

	redisAddr := redisHost + ":6379"
	l.Debug("Setting up rate limiter with Redis", "redis", redisAddr)
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	rdConf := &ratelimit.RedisLimiterConfig{
		PerMinute:   perMinute,
		RedisClient: rdb,
		LimiterKey:  limiterKey,
		FailOpen:    failOpen,
	}
	store = ratelimit.NewRedisLimitStore(*rdConf)

	skipper := middleware.DefaultSkipper
	if onlyMethod != nil {
		skipper = func(c echo.Context) bool {
			return c.Request().Method != *onlyMethod
		}
	}

	extractor := func(c echo.Context) (string, error) {
		auth, ok := c.Get("auth").(*models.Auth)
		if !ok {
			return "", srverr.ErrTypeAssertMismatch
		}
		return auth.ID.String(), nil
	}
	if byClientIP {
		extractor = func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		}
	}

	return middleware.RateLimiterConfig{
		Skipper:             skipper,
		Store:               store,
		IdentifierExtractor: extractor,
		ErrorHandler: func(context echo.Context, _ error) error {
			return context.JSON(http.StatusForbidden, nil)
		},
		DenyHandler: func(context echo.Context, _ string, _ error) error {
			return context.JSON(http.StatusTooManyRequests, nil)
		},
	}
}

func NewHandler(
	db *gorm.DB,
	orchestrator *submission.Orchestrator,
	taskrunnerClient *taskrunner.Client,
	cfg *config.Config,
	archiver upload.Uploader,
) Handler {
	return Handler{
		DB:               db,
		orchestrator:     orchestrator,
		taskrunnerClient: taskrunnerClient,
		config:           cfg,
		archiver:         archiver,
	}
}

func (h *Handler) AddRoutes(e *echo.Echo, middlewareHandler *servermiddleware.Handler) {
	l := logger.Logger

	// public surface: browsers post here directly, no credentials
	submitGroup := e.Group("/v1/forms/:form_id/submissions")

	if h.config.RateLimit != nil && h.config.RateLimit.SubmitPerMinute > 0 {
		post := http.MethodPost

		submitGroup.Use(
			middleware.RateLimiterWithConfig(
				NewRedisLimiter(
					h.config.RateLimit.RedisHost,
					"submit",
					h.config.RateLimit.SubmitPerMinute,
					h.config.RateLimit.FailOpen,
					true,
					&post,
				),
			),
		)
	} else {
		l.Warn("not configured to have a submit rate limit")
	}

	submitGroup.POST("/", h.SubmitForm)

	// operator surface: basic auth against the configured api keys
	v1Group := e.Group("/v1", middleware.BasicAuth(middlewareHandler.BasicAuthValidator))

	if h.config.RateLimit != nil && h.config.RateLimit.GlobalPerMinute > 0 {
		v1Group.Use(
			middleware.RateLimiterWithConfig(
				NewRedisLimiter(
					h.config.RateLimit.RedisHost,
					"global",
					h.config.RateLimit.GlobalPerMinute,
					h.config.RateLimit.FailOpen,
					false,
					nil,
				),
			),
		)
	} else {
		l.Warn("not configured to have a global rate limit")
	}

	v1Group.GET("/ping/", h.Ping)

	formGroup := v1Group.Group("/forms")
	formGroup.POST("/", h.CreateForm)
	formGroup.GET("/", h.ListForms)
	formGroup.GET(
		"/:form_id/",
		h.GetForm,
		servermiddleware.PopulateFromIDParam[models.Form](
			middlewareHandler,
			"form_id",
			"form",
		),
	)
	formGroup.GET(
		"/:form_id/submissions/",
		h.ListSubmissions,
		servermiddleware.PopulateFromIDParam[models.Form](
			middlewareHandler,
			"form_id",
			"form",
		),
	)
}
