package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/tablesched/internal/application/monitor"
	"github.com/example/tablesched/internal/application/usecases"
	"github.com/example/tablesched/internal/domain/reservation"
)

// Reservations is the use case surface the webhooks drive.
type Reservations interface {
	CheckAvailability(ctx context.Context, in usecases.Input) (usecases.Availability, error)
	CreateReservation(ctx context.Context, in usecases.CreateInput) (usecases.Created, error)
	CancelReservation(ctx context.Context, in usecases.CancelInput) (reservation.Reservation, error)
	LookupByPhone(ctx context.Context, phone string) (reservation.Reservation, error)
}

type Health interface {
	Last() monitor.Status
}

type Server struct {
	Reservations Reservations
	Health       Health
	Log          *zap.Logger

	// RateLimitPerMinute caps requests per client IP; 0 disables the limit.
	RateLimitPerMinute int

	// TrustedProxies may set the client IP through forwarding headers.
	// Empty means forwarding headers are ignored.
	TrustedProxies []string
}

func (s *Server) Routes() http.Handler {
	log := s.log()
	r := gin.New()
	if err := r.SetTrustedProxies(s.TrustedProxies); err != nil {
		log.Error("invalid trusted proxies, ignoring forwarding headers", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(recovery(log))
	r.Use(requestLogger(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))
	r.Use(rateLimit(s.RateLimitPerMinute, log))

	r.GET("/healthz", s.healthz)
	r.POST("/check-availability", s.checkAvailability)
	r.POST("/create-reservation", s.createReservation)
	r.POST("/cancel-reservation", s.cancelReservation)
	r.POST("/get-reservation-by-phone", s.lookupByPhone)
	return r
}

func (s *Server) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Server) healthz(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if s.Health != nil {
		st := s.Health.Last()
		if !st.CheckedAt.IsZero() {
			body["store_ok"] = st.OK
			body["checked_at"] = st.CheckedAt.UTC().Format(time.RFC3339)
			if st.Error != "" {
				body["store_error"] = st.Error
			}
		}
	}
	c.JSON(http.StatusOK, body)
}

// Start serves h on addr until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
