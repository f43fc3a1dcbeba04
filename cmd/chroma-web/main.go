package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fpang/chroma-restore/internal/cli"
	"github.com/fpang/chroma-restore/internal/config"
	"github.com/fpang/chroma-restore/internal/logging"
	"github.com/fpang/chroma-restore/internal/metrics"
	"github.com/fpang/chroma-restore/internal/session"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

//go:embed all:frontend_dist
var frontendFS embed.FS

// Set at build time with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = ""
)

// CLI flags
var (
	portFlag        int
	modelFlag       string
	transportFlag   string
	configFlag      string
	validateKeyFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "chroma-web",
	Short: "Web UI for colorizing black and white photos",
	Long: `Chroma Web starts a local web server with a single-page interface for
colorizing black and white photos with Gemini. Drop a photo, add an optional
hint, and compare the result with the original using a draggable slider.

Images are processed in memory and never written to disk.

Examples:
  chroma-web
  chroma-web --port 9090
  chroma-web --config chroma.yaml --transport rest`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 8080, "Port to listen on")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini image model to use (default from config)")
	rootCmd.Flags().StringVar(&transportFlag, "transport", "", "Gemini transport: sdk or rest (default from config)")
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "Path to a YAML config file")
	rootCmd.Flags().BoolVar(&validateKeyFlag, "validate-key", false, "Validate the API key with a test call at startup")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	start := time.Now()
	logging.Init()
	metrics.SetBinary("chroma-web")

	cfg, err := loadConfig(cmd)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()
	colorizer, err := cli.InitColorizer(ctx, cfg, validateKeyFlag)
	if err != nil {
		cli.HandleValidationError(err)
	}

	orch := session.New(colorizer, session.Options{
		TickInterval: cfg.Processing.TickInterval,
		Messages:     cfg.Processing.Messages,
		Timeout:      cfg.Gemini.Timeout,
	})
	defer orch.Close()

	apiKeyPresent := colorizer.Preflight() == nil
	srv := newServer(orch, cfg, apiKeyPresent)
	handler, err := srv.routes()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to access embedded frontend")
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(ctx)
	}()

	logging.NewStartupLogger("chroma-web").
		Version(version).
		CommitHash(commit).
		Endpoint("http", "http://localhost"+addr).
		Feature("apiKeyPresent", apiKeyPresent).
		Feature("keyValidated", validateKeyFlag).
		Config("model", colorizer.Model()).
		Config("transport", cfg.Gemini.Transport).
		Config("uploadMaxSize", strconv.FormatInt(cfg.Upload.MaxSize, 10)).
		Config("tickInterval", cfg.Processing.TickInterval.String()).
		InitDuration(time.Since(start)).
		Log()

	fmt.Printf("\n  ChromaRestore: http://localhost:%d\n\n", cfg.Server.Port)

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// loadConfig reads the config file and applies flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("port") || cfg.Server.Port == 0 {
		cfg.Server.Port = portFlag
	}
	if modelFlag != "" {
		cfg.Gemini.Model = modelFlag
	}
	if transportFlag != "" {
		cfg.Gemini.Transport = transportFlag
	}
	return cfg, cfg.Validate()
}

// routes builds the full handler: JSON API (gzip) and the embedded frontend.
func (s *server) routes() (http.Handler, error) {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/state", s.handleState)
	api.HandleFunc("POST /api/upload", s.handleUpload)
	api.HandleFunc("POST /api/pick", s.handlePick)
	api.HandleFunc("POST /api/hint", s.handleHint)
	api.HandleFunc("POST /api/colorize", s.handleColorize)
	api.HandleFunc("POST /api/dismiss", s.handleDismiss)
	api.HandleFunc("POST /api/reset", s.handleReset)
	api.HandleFunc("POST /api/slider", s.handleSlider)
	api.HandleFunc("GET /api/compare.png", s.handleCompare)
	api.HandleFunc("GET /api/download", s.handleDownload)

	mux := http.NewServeMux()
	mux.Handle("/api/", gzhttp.GzipHandler(api))

	// Frontend static files (SPA fallback)
	frontendSub, err := fs.Sub(frontendFS, "frontend_dist")
	if err != nil {
		return nil, err
	}
	fileServer := http.FileServer(http.FS(frontendSub))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Security headers
		w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' blob: data:; style-src 'self' 'unsafe-inline'; connect-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// SPA fallback: if the file doesn't exist, serve index.html
		path := r.URL.Path
		if path != "/" {
			f, err := frontendSub.Open(strings.TrimPrefix(path, "/"))
			if err != nil {
				r.URL.Path = "/"
			} else {
				f.Close()
			}
		}
		fileServer.ServeHTTP(w, r)
	})

	// Wrap with logging and CORS for local dev
	return withLogging(withCORS(mux)), nil
}

// --- Middleware ---

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if strings.HasPrefix(r.URL.Path, "/api/") {
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("API request")
		}
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only allow localhost origins
		origin := r.Header.Get("Origin")
		if origin != "" && (strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
