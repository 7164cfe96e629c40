package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pawloft/daycare/internal/assistant"
	"github.com/pawloft/daycare/internal/booking"
	"github.com/pawloft/daycare/internal/checkout"
	"github.com/pawloft/daycare/internal/export"
	"github.com/pawloft/daycare/internal/metrics"
	"github.com/pawloft/daycare/pkg/ledger"
)

// Config carries the HTTP surface settings.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string
	SigningKey     string
	Issuer         string
	RateRPS        float64
	RateBurst      int
}

// Server owns the gin router and the domain services behind it.
type Server struct {
	logger    *zap.Logger
	cfg       Config
	wallets   *ledger.Service
	bookings  *booking.Service
	checkouts *checkout.Service
	roster    *export.Roster
	tools     *assistant.Registry
	auth      *authenticator
	limiter   *rateLimiter
}

// NewServer wires the handler set. The roster exporter and tool registry are
// optional; their routes are omitted when nil.
func NewServer(logger *zap.Logger, cfg Config, wallets *ledger.Service, bookings *booking.Service, checkouts *checkout.Service, roster *export.Roster, tools *assistant.Registry) (*Server, error) {
	if wallets == nil || bookings == nil || checkouts == nil {
		return nil, errors.New("httpapi: nil service dependency")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	auth, err := newAuthenticator(cfg.SigningKey, cfg.Issuer)
	if err != nil {
		return nil, err
	}
	return &Server{
		logger:    logger,
		cfg:       cfg,
		wallets:   wallets,
		bookings:  bookings,
		checkouts: checkouts,
		roster:    roster,
		tools:     tools,
		auth:      auth,
		limiter:   newRateLimiter(cfg.RateRPS, cfg.RateBurst),
	}, nil
}

// Router assembles the gin engine with middleware and all routes.
func (server *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Origin", "Accept", "Authorization", "Idempotency-Key"},
		MaxAge:       12 * time.Hour,
	}
	// cors.New panics when no origin is allowed, and credentials may not
	// be combined with the wildcard, so an empty origin list opens up to
	// any origin without credentials.
	if len(server.cfg.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = server.cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	router.Use(cors.New(corsConfig))
	router.Use(server.observeRequests())

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(server.limiter.middleware())
	api.Use(server.auth.middleware())

	api.GET("/availability", server.handleAvailability)

	api.POST("/bookings", server.handleCreateBooking)
	api.GET("/bookings", server.handleListBookings)
	api.GET("/bookings/:id", server.handleGetBooking)
	api.POST("/bookings/:id/confirm", server.handleConfirm)
	api.POST("/bookings/:id/check-in", server.handleCheckIn)
	api.POST("/bookings/:id/check-out", server.handleCheckOut)
	api.POST("/bookings/:id/cancel", server.handleCancel)
	api.POST("/bookings/:id/no-show", server.handleNoShow)
	api.POST("/bookings/:id/dogs/:dogID/rating", server.handleRateDog)

	api.GET("/schedule", server.handleSchedule)

	api.GET("/wallet", server.handleWallet)
	api.POST("/wallet/load", server.handleWalletLoad)
	api.POST("/wallet/refund", server.handleWalletRefund)
	api.GET("/wallet/statement", server.handleStatement)

	api.POST("/checkout", server.handleCheckout)
	api.GET("/receipts/:id", server.handleReceipt)

	if server.roster != nil {
		api.GET("/export/roster", server.handleRosterExport)
	}
	if server.tools != nil {
		api.GET("/assistant/tools", server.handleListTools)
		api.POST("/assistant/invoke", server.handleInvokeTool)
	}

	return router
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (server *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    server.cfg.ListenAddr,
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		server.logger.Info("daycared listening", zap.String("addr", server.cfg.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			server.logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (server *Server) observeRequests() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()
		endpoint := ctx.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		statusClass := strconv.Itoa(ctx.Writer.Status()/100) + "xx"
		metrics.IncHTTP(endpoint, statusClass)
	}
}
