package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dariomontes/vendortax-backend/api/controllers"
	"github.com/dariomontes/vendortax-backend/api/middleware"
	"github.com/dariomontes/vendortax-backend/pkg/config"
	"github.com/dariomontes/vendortax-backend/pkg/db"
	"github.com/dariomontes/vendortax-backend/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DBPinger      db.Pinger
	RedisPinger   db.Pinger
	OrderTax      controllers.TaxComputer
	Refunds       controllers.RefundService
	MetricsGather prometheus.Gatherer
}

// NewRouter assembles the HTTP surface.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
	)
	if deps.Config != nil {
		r.Use(middleware.CORS(deps.Config.App.CORSOrigins))
	}

	r.Get("/healthz", controllers.Healthz(deps.DBPinger, deps.RedisPinger, deps.Logger))
	if deps.MetricsGather != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsGather, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/orders/{orderID}/tax", controllers.ComputeOrderTax(deps.OrderTax, deps.Logger))
		r.Post("/parent-refunds", controllers.CreateParentRefund(deps.Refunds, deps.Logger))
		r.Get("/parent-refunds/{refundID}", controllers.GetParentRefund(deps.Refunds, deps.Logger))
		r.Delete("/parent-refunds/{refundID}", controllers.DeleteParentRefund(deps.Refunds, deps.Logger))
	})

	return r
}
