package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Checker verifies that an infrastructure dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to Checker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

func SQL(db *sql.DB) Checker {
	return CheckFunc(db.PingContext)
}

func Redis(rdb *redis.Client) Checker {
	return CheckFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
}

func NATS(nc *nats.Conn) Checker {
	return CheckFunc(func(context.Context) error {
		if !nc.IsConnected() {
			return errors.New("nats " + nc.Status().String())
		}
		return nil
	})
}

type Handler struct {
	checks map[string]Checker
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger, checks map[string]Checker) *Handler {
	return &Handler{checks: checks, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.check)
	return r
}

type result struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latencyMs"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	errs := make([]error, len(names))
	latencies := make([]int64, len(names))

	// Every check reports on its own, so the group never cancels.
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			start := time.Now()
			errs[i] = h.checks[name].Check(ctx)
			latencies[i] = time.Since(start).Milliseconds()
			return nil
		})
	}
	g.Wait()

	status := http.StatusOK
	results := make(map[string]result, len(names))
	for i, name := range names {
		res := result{Status: "ok", LatencyMS: latencies[i]}
		if errs[i] != nil {
			h.logger.Error("health check failed", "name", name, "error", errs[i])
			res.Status = "error"
			status = http.StatusServiceUnavailable
		}
		results[name] = res
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(results)
}
