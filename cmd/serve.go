package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/analytics"
	"github.com/sells-group/invoice-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the invoice processing HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "DELETE"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/invoices", handleUpload(env))
		r.Get("/invoices", handleList(env))
		r.Get("/invoices/{id}", handleGet(env))
		r.Delete("/invoices/{id}", handleDelete(env))
		r.Get("/analytics/dashboard", handleDashboard(env))
		r.Get("/stats", handleStats(env))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// handleUpload accepts a multipart invoice document, processes it
// synchronously, and returns the stored record.
func handleUpload(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		file, header, err := req.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
			return
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "read upload")
			return
		}

		meta, err := env.Validator.Validate(header.Filename, content)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		prompt := cfg.Anthropic.ExtractionPrompt
		if prompt == "" {
			prompt = defaultPrompt()
		}
		resp, err := env.Anthropic.Extract(req.Context(), extractRequest(prompt, meta, content))
		if err != nil {
			zap.L().Error("extraction failed", zap.String("file", meta.FileName), zap.Error(err))
			writeError(w, http.StatusBadGateway, "extraction failed")
			return
		}
		resp.Usage.LogCost(cfg.Anthropic.Model, meta.FileName)

		rec, err := env.Pipeline.Process(resp.Text, meta)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		if _, err := env.Store.SaveInvoice(req.Context(), rec); err != nil {
			zap.L().Error("save failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "save failed")
			return
		}

		writeJSON(w, http.StatusCreated, rec)
	}
}

func handleList(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		records, err := env.Store.ListInvoices(req.Context(), store.InvoiceFilter{
			Vendor:    q.Get("vendor"),
			StartDate: q.Get("start"),
			EndDate:   q.Get("end"),
			Search:    q.Get("search"),
		})
		if err != nil {
			zap.L().Error("list failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"invoices": records,
			"count":    len(records),
		})
	}
}

func handleGet(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		rec, err := env.Store.GetInvoice(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			zap.L().Error("get failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "get failed")
			return
		}
		if rec == nil {
			writeError(w, http.StatusNotFound, "invoice not found")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func handleDelete(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := env.Store.DeleteInvoice(req.Context(), chi.URLParam(req, "id")); err != nil {
			writeError(w, http.StatusNotFound, "invoice not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleDashboard(env *pipelineEnv) http.HandlerFunc {
	engine := analytics.New(env.Store)
	return func(w http.ResponseWriter, req *http.Request) {
		dashboard, err := engine.Dashboard(req.Context())
		if err != nil {
			zap.L().Error("dashboard failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "dashboard failed")
			return
		}
		writeJSON(w, http.StatusOK, dashboard)
	}
}

func handleStats(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, env.Pipeline.Stats())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
