package cmd

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ocrmux/ocrmux/pkg/engines"
	"github.com/ocrmux/ocrmux/pkg/fusion"
	"github.com/ocrmux/ocrmux/pkg/providers"
	"github.com/ocrmux/ocrmux/pkg/router"
	"github.com/spf13/cobra"
)

var (
	servePort string
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the fusion pipeline and model router over HTTP",
	Long:  "Start a JSON HTTP server exposing the local engine fan-out and the cloud model router",
	RunE:  runServe,
}

func init() {
	RootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "8090", "Port to listen on")
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
}

// OCRRequest is the body for POST /ocr.
type OCRRequest struct {
	Image    string `json:"image"`
	Language string `json:"language,omitempty"`
	Strategy string `json:"strategy,omitempty"`
}

// RouteRequest is the body for POST /route.
type RouteRequest struct {
	Image       string  `json:"image"`
	Prompt      string  `json:"prompt,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	Language    string  `json:"language,omitempty"`
	Handwriting bool    `json:"handwriting,omitempty"`
	Tables      bool    `json:"tables,omitempty"`
}

type serveHandler struct {
	config   ToolConfig
	registry *providers.Registry
}

func runServe(cmd *cobra.Command, args []string) error {
	config, err := loadToolConfig(cmd)
	if err != nil {
		return err
	}

	h := &serveHandler{
		config:   config,
		registry: newProviderRegistry(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("POST /ocr", h.handleOCR)
	mux.HandleFunc("POST /route", h.handleRoute)

	addr := fmt.Sprintf("%s:%s", serveHost, servePort)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting server", "addr", addr)
	return server.ListenAndServe()
}

func (h *serveHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *serveHandler) handleOCR(w http.ResponseWriter, r *http.Request) {
	var req OCRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	imageData, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil || len(imageData) == 0 {
		writeJSONError(w, http.StatusBadRequest, fmt.Errorf("image must be base64-encoded"))
		return
	}

	strategyName := req.Strategy
	if strategyName == "" {
		strategyName = h.config.Fusion.Strategy
	}
	if strategyName == "" {
		strategyName = string(fusion.StrategyWeighted)
	}
	strategy, err := fusion.ParseStrategy(strategyName)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	runner, err := buildRunner(h.config, nil)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}

	report, err := runner.Run(r.Context(), engines.Request{
		Image:    imageData,
		Language: req.Language,
	})
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, err)
		return
	}

	fused, err := fusion.Fuse(report.Results, strategy, fusionWeights(h.config))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, RunOutput{
		Fused:   fused,
		Results: report.Results,
		Errors:  report.Errors,
		Source:  "ocr",
	})
}

func (h *serveHandler) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Image == "" {
		writeJSONError(w, http.StatusBadRequest, fmt.Errorf("image is required"))
		return
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = defaultPrompt
	}

	selector := router.NewSelector(h.config.Router.Models, h.config.Router.Weights)
	rt := router.New(selector, h.registry)

	routed, err := rt.Route(r.Context(), providers.Config{
		Prompt:      prompt,
		Temperature: req.Temperature,
	}, router.Requirements{
		Handwriting: req.Handwriting,
		Tables:      req.Tables,
		Language:    req.Language,
	}, "", req.Image)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, err)
		return
	}

	writeJSON(w, http.StatusOK, routed)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to write response", "err", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
