package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/cafe/internal/service/models/order"
	"github.com/corray333/backend-labs/cafe/internal/service/services/ordersvc"
	createorder "github.com/corray333/backend-labs/cafe/internal/transport/http/create_order"
	_ "github.com/corray333/backend-labs/cafe/internal/transport/http/docs"
	listconfirmed "github.com/corray333/backend-labs/cafe/internal/transport/http/list_confirmed"
	"github.com/corray333/backend-labs/cafe/internal/transport/http/response"
	verifyorder "github.com/corray333/backend-labs/cafe/internal/transport/http/verify_order"
	"github.com/corray333/backend-labs/cafe/pkg/http/middleware/metrics"
	"github.com/corray333/backend-labs/cafe/pkg/http/middleware/trace"
	"github.com/corray333/backend-labs/cafe/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

const serviceName = "cafe-order-svc"

type service interface {
	Create(ctx context.Context, in ordersvc.CreateInput) (order.Order, error)
	Verify(ctx context.Context, orderID, code string) error
	ListConfirmed(ctx context.Context) ([]order.Order, error)
}

type HTTPTransport struct {
	server  *http.Server
	router  *chi.Mux
	service service
}

func NewHTTPTransport(service service) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	return &HTTPTransport{
		server:  server,
		router:  router,
		service: service,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for active requests.
func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// Handler exposes the router, e.g. for httptest.
func (h *HTTPTransport) Handler() http.Handler {
	return h.router
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Get("/healthz", healthz)
	h.router.Handle("/metrics", promhttp.Handler())
	h.router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	h.router.Route("/api/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Post("/verify", h.verifyOrder)
		r.Get("/confirmed", h.listConfirmed)
	})
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	createorder.CreateOrder(w, r, h.service)
}

func (h *HTTPTransport) verifyOrder(w http.ResponseWriter, r *http.Request) {
	verifyorder.VerifyOrder(w, r, h.service)
}

func (h *HTTPTransport) listConfirmed(w http.ResponseWriter, r *http.Request) {
	listconfirmed.ListConfirmed(w, r, h.service)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(middleware.Recoverer)
	router.Use(metrics.NewMetricsMiddleware())
	router.Use(trace.NewTraceMiddleware(serviceName))

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:         "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler:      router,
		ReadTimeout:  viper.GetDuration("server.http.read_timeout"),
		WriteTimeout: viper.GetDuration("server.http.write_timeout"),
	}
}
