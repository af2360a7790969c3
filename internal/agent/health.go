package agent

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/saildata/trackd/internal/buffer"
	"github.com/saildata/trackd/internal/httputil"
)

// HealthServer exposes the local observability endpoints: GET /healthz for a
// liveness document and GET /metrics for the Prometheus scrape.
type HealthServer struct {
	db       *buffer.DB
	pipeline Deliverer
	gatherer prometheus.Gatherer
	warnings func() []string
	log      zerolog.Logger
	srv      *http.Server
}

// NewHealthServer constructs the listener for the given address. warnings,
// when non-nil, supplies operational conditions included in the healthz
// document.
func NewHealthServer(addr string, db *buffer.DB, pipeline Deliverer, gatherer prometheus.Gatherer, warnings func() []string, logger zerolog.Logger) *HealthServer {
	h := &HealthServer{
		db:       db,
		pipeline: pipeline,
		gatherer: gatherer,
		warnings: warnings,
		log:      logger.With().Str("component", "health").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	h.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return h
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (h *HealthServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		h.log.Info().Str("addr", h.srv.Addr).Msg("health listener started")
		errCh <- h.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return h.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

type healthDoc struct {
	Status       string   `json:"status"`
	QueueDepth   int64    `json:"queue_depth"`
	LastDelivery string   `json:"last_delivery,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

func (h *HealthServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	depth, err := h.db.Count(r.Context())
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, "failed to read buffer")
		return
	}

	doc := healthDoc{Status: "ok", QueueDepth: depth}
	if last := h.pipeline.LastSuccess(); !last.IsZero() {
		doc.LastDelivery = last.UTC().Format(time.RFC3339)
	}
	if h.warnings != nil {
		doc.Warnings = h.warnings()
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}
