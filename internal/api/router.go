package api

import (
	"log/slog"
	"net/http"
	"time"

	"loan-engine/internal/api/handler"
	mw "loan-engine/internal/api/middleware"
	"loan-engine/internal/config"
	"loan-engine/internal/domain/access"
	"loan-engine/internal/domain/customer"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/domain/user"

	_ "loan-engine/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Services struct {
	Loans     loan.LoanService
	Customers customer.CustomerService
	Users     user.UserRepository
	Evaluator *access.Evaluator
}

func SetupRouter(svc Services, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, cfg, logger)
	setupMetricsEndpoint(router, cfg, logger)
	setupAuthRoutes(router, svc, cfg, logger)
	setupLoanRoutes(router, svc, cfg, logger)
	setupInstallmentRoutes(router, svc, cfg, logger)
	setupCustomerRoutes(router, svc, cfg, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)

	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(mw.NewRateLimiterMiddleware(cfg.Server.RateLimit, logger).Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupAuthRoutes(router *chi.Mux, svc Services, cfg *config.Config, logger *slog.Logger) {
	authHandler := handler.NewAuthHandler(svc.Users, cfg.Server.Auth, logger)

	router.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
	})
}

func setupLoanRoutes(router *chi.Mux, svc Services, cfg *config.Config, logger *slog.Logger) {
	loanHandler := handler.NewLoanHandler(svc.Loans, svc.Evaluator, logger)

	router.Route("/api/loans", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", loanHandler.CreateLoan)
		r.Get("/", loanHandler.ListLoans)
	})
}

func setupInstallmentRoutes(router *chi.Mux, svc Services, cfg *config.Config, logger *slog.Logger) {
	installmentHandler := handler.NewInstallmentHandler(svc.Loans, svc.Evaluator, logger)

	router.Route("/api/installments", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Get("/loan/{loanID}", installmentHandler.ListInstallments)
		r.Post("/loan/{loanID}", installmentHandler.PayInstallments)
	})
}

func setupCustomerRoutes(router *chi.Mux, svc Services, cfg *config.Config, logger *slog.Logger) {
	customerHandler := handler.NewCustomerHandler(svc.Customers, svc.Evaluator, logger)

	router.Route("/api/customers", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", customerHandler.CreateCustomer)
		r.Get("/", customerHandler.ListCustomers)
		r.Get("/{customerID}", customerHandler.GetCustomer)
	})
}
