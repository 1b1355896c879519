// Package httpapi is the HTTP facade over the points ledger: routing, auth,
// request shaping, and error-to-status mapping for the three ledger
// operations.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/AuroraPeakLabs/points/pkg/points"
)

// Config holds the facade settings.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string
	AuthSigningKey string
	AuthDisabled   bool
}

// LedgerService is the slice of the domain service the facade consumes.
type LedgerService interface {
	Gift(ctx context.Context, programID points.ProgramID, senderUserID points.UserID, recipients []points.GiftRecipient) ([]points.Transaction, error)
	Exchange(ctx context.Context, destinationWalletID points.WalletID, lines []points.ExchangeLine) (points.Transaction, error)
	Distribute(ctx context.Context, programID points.ProgramID, dateRange points.DateRange) (points.DistributionSummary, error)
}

type handler struct {
	logger  *zap.Logger
	service LedgerService
}

// NewRouter assembles the gin engine.
func NewRouter(cfg Config, service LedgerService, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requestHandler := &handler{logger: logger, service: service}

	api := router.Group("/api")
	if !cfg.AuthDisabled {
		api.Use(bearerAuth(cfg.AuthSigningKey))
	}
	api.POST("/programs/:programID/gifts", requestHandler.handleGift)
	api.POST("/exchanges", requestHandler.handleExchange)
	api.POST("/programs/:programID/distributions", requestHandler.handleDistribute)

	return router
}

// Run boots the facade and blocks until ctx is cancelled or the server fails.
func Run(ctx context.Context, cfg Config, service LedgerService, logger *zap.Logger) error {
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: NewRouter(cfg, service, logger),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("points api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// statusForError maps domain failures onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, points.ErrInvalidRequest),
		errors.Is(err, points.ErrInvalidProgramID),
		errors.Is(err, points.ErrInvalidUserID),
		errors.Is(err, points.ErrInvalidWalletID),
		errors.Is(err, points.ErrInvalidItemID),
		errors.Is(err, points.ErrInvalidPointAmount),
		errors.Is(err, points.ErrInvalidQuantity),
		errors.Is(err, points.ErrInvalidDateRange):
		return http.StatusBadRequest
	case errors.Is(err, points.ErrProgramNotFound),
		errors.Is(err, points.ErrWalletNotFound),
		errors.Is(err, points.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, points.ErrProgramInactive):
		return http.StatusConflict
	case errors.Is(err, points.ErrInsufficientBudget),
		errors.Is(err, points.ErrInsufficientBalance),
		errors.Is(err, points.ErrInsufficientStock):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (requestHandler *handler) abortWithError(ctx *gin.Context, operation string, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		requestHandler.logger.Error("operation failed", zap.String("operation", operation), zap.Error(err))
		ctx.JSON(status, gin.H{"error": "internal error"})
		return
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}
