package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/droidsweep/backend/internal/advisor"
	"github.com/droidsweep/backend/internal/api/middleware"
	"github.com/droidsweep/backend/internal/chat"
	"github.com/droidsweep/backend/internal/config"
	apihttp "github.com/droidsweep/backend/internal/http"
	"github.com/droidsweep/backend/internal/logging"
	"github.com/droidsweep/backend/internal/monitoring"
	"github.com/droidsweep/backend/internal/settings"
	"github.com/droidsweep/backend/internal/store"
	"github.com/droidsweep/backend/internal/stream"
	"github.com/droidsweep/backend/internal/suggest"
	"github.com/droidsweep/backend/internal/ws"
)

// Server assembles the session engine and its HTTP surface
type Server struct {
	cfg     *config.Config
	log     *logging.Logger
	router  *gin.Engine
	httpSrv *http.Server

	chat     *chat.Manager
	settings *settings.Service
	metrics  *monitoring.Metrics
}

// New builds a fully wired server from configuration
func New(cfg *config.Config, log *logging.Logger) (*Server, error) {
	metrics := monitoring.NewMetrics()

	st, err := store.New(cfg.Store.EffectiveDir(), log,
		store.WithFailureHook(metrics.RecordStoreFailure))
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	suggester := suggest.NewGenerator()
	if cfg.Suggest.RulesFile != "" {
		suggester, err = suggest.LoadRulesFile(cfg.Suggest.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load suggestion rules: %w", err)
		}
		log.Info("loaded suggestion rules", zap.String("file", cfg.Suggest.RulesFile))
	}

	var querier advisor.Querier
	if cfg.Advisor.Mock {
		log.Warn("advisor mock enabled, replies are canned")
		querier = &advisor.Mock{}
	} else {
		querier = advisor.NewClient(cfg.Advisor.URL, cfg.Advisor.Timeout, log)
	}

	manager := chat.NewManager(chat.Config{
		Advisor:      querier,
		Store:        st,
		Streams:      stream.NewController(log),
		Suggester:    suggester,
		StreamDelay:  cfg.Stream.StreamDelay(),
		QueryTimeout: cfg.Advisor.Timeout + 15*time.Second,
		Logger:       log,
		Metrics:      metrics,
	})

	settingsSvc := settings.NewService(st, log)

	s := &Server{
		cfg:      cfg,
		log:      log.Named("server"),
		chat:     manager,
		settings: settingsSvc,
		metrics:  metrics,
	}
	s.router = s.buildRouter()
	return s, nil
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(s.log))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(monitoring.Middleware(s.metrics))
	if s.cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(s.cfg.RateLimit))
	}

	handlers := apihttp.NewHandlers(s.chat, s.settings, s.metrics)
	wsHandler := ws.NewHandler(s.chat, s.metrics, s.log)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	router.POST("/chat/query", handlers.SubmitQuery)
	router.GET("/chat/history", handlers.GetHistory)
	router.GET("/chat/suggestions", handlers.GetSuggestions)
	router.DELETE("/chat/history", handlers.ClearHistory)

	router.GET("/settings", handlers.ListSettings)
	router.GET("/settings/theme", handlers.GetTheme)
	router.PUT("/settings/theme", handlers.SetTheme)
	router.GET("/settings/:key", handlers.GetSetting)
	router.PUT("/settings/:key", handlers.SetSetting)

	router.GET("/ws", wsHandler.HandleConnection)

	return router
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	defer s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

// Close releases background resources. Run calls it on shutdown; tests
// that never Run should call it themselves.
func (s *Server) Close() {
	s.metrics.Close()
}

// Router exposes the handler tree for tests
func (s *Server) Router() http.Handler {
	return s.router
}
