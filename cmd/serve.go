package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mowthos/cluster-engine/internal/adjacency"
	"github.com/mowthos/cluster-engine/internal/cluster"
	"github.com/mowthos/cluster-engine/internal/model"
	"github.com/mowthos/cluster-engine/pkg/geocode"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the cluster qualification HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/clusters", func(r chi.Router) {
		r.Post("/register-host", registerHandler(env.Service.RegisterHost))
		r.Post("/register-neighbor", registerHandler(env.Service.RegisterNeighbor))
		r.Post("/discover-neighbors", discoverNeighborsHandler(env.Service))
		r.Post("/find-hosts", findHostsHandler(env.Service))
		r.Post("/geocode", geocodeHandler(env.Geocoder))
		r.Post("/test-adjacency", testAdjacencyHandler(env.Oracle))
	})

	return r
}

// addressRequest is the JSON body shared by registration and query routes.
// Coordinates are optional; absent ones are resolved server-side.
type addressRequest struct {
	Address   string  `json:"address"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

func (a addressRequest) record() model.AddressRecord {
	return model.AddressRecord{
		Address:   a.Address,
		City:      a.City,
		State:     a.State,
		Latitude:  a.Latitude,
		Longitude: a.Longitude,
	}
}

func decodeAddress(w http.ResponseWriter, r *http.Request) (addressRequest, bool) {
	var req addressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if req.Address == "" || req.City == "" || req.State == "" {
		writeError(w, http.StatusBadRequest, "address, city, and state are required")
		return req, false
	}
	return req, true
}

type registerFunc func(ctx context.Context, rec model.AddressRecord) (*model.AddressRecord, error)

func registerHandler(register registerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeAddress(w, r)
		if !ok {
			return
		}
		rec, err := register(r.Context(), req.record())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

func discoverNeighborsHandler(svc *cluster.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeAddress(w, r)
		if !ok {
			return
		}
		qualified, err := svc.DiscoverNeighborsForHost(r.Context(), req.record())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"host":                req.record().FullAddress(),
			"qualified_neighbors": model.FullAddresses(qualified),
			"count":               len(qualified),
			"viable":              len(qualified) >= model.MinClusterSize,
		})
	}
}

func findHostsHandler(svc *cluster.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeAddress(w, r)
		if !ok {
			return
		}
		qualified, err := svc.FindQualifiedHostsForNeighbor(r.Context(), req.record())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"neighbor":        req.record().FullAddress(),
			"qualified_hosts": model.FullAddresses(qualified),
			"count":           len(qualified),
		})
	}
}

func geocodeHandler(geocoder geocode.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeAddress(w, r)
		if !ok {
			return
		}
		result, err := geocoder.Geocode(r.Context(), geocode.AddressInput{
			Street: req.Address,
			City:   req.City,
			State:  req.State,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"latitude":  result.Latitude,
			"longitude": result.Longitude,
			"source":    result.Source,
			"matched":   result.Matched,
		})
	}
}

func testAdjacencyHandler(oracle adjacency.Oracle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			A model.Coordinate `json:"a"`
			B model.Coordinate `json:"b"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		res := oracle.IsAdjacent(r.Context(), req.A, req.B)
		writeJSON(w, http.StatusOK, map[string]any{
			"adjacent": res.Adjacent,
			"reason":   res.Reason,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, cluster.ErrResolution) {
		writeError(w, http.StatusUnprocessableEntity, "could not resolve address to coordinates")
		return
	}
	zap.L().Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
