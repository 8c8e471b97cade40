package rest

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jinford/hybrid-rag/internal/core/rag"
)

const (
	// DefaultBodyLimit はアップロードを含むリクエストボディの上限
	DefaultBodyLimit = 50 * 1024 * 1024

	// DefaultReadTimeout はリクエスト読み込みのタイムアウト
	DefaultReadTimeout = 30 * time.Second

	// DefaultWriteTimeout は応答書き込みのタイムアウト。生成の待ち時間を含む
	DefaultWriteTimeout = 120 * time.Second
)

// Server は REST API サーバー
type Server struct {
	app    *fiber.App
	logger *slog.Logger
}

type serverOptions struct {
	logger    *slog.Logger
	bodyLimit int
}

// ServerOption は Server のオプション設定
type ServerOption func(*serverOptions)

// WithServerLogger はロガーを設定する
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = logger
	}
}

// WithBodyLimit はリクエストボディの上限（バイト）を設定する
func WithBodyLimit(limit int) ServerOption {
	return func(o *serverOptions) {
		o.bodyLimit = limit
	}
}

// NewServer は新しい Server を作成する
func NewServer(svc *rag.Service, opts ...ServerOption) *Server {
	options := serverOptions{logger: slog.Default(), bodyLimit: DefaultBodyLimit}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:               "hybrid-rag",
		BodyLimit:             options.bodyLimit,
		ReadTimeout:           DefaultReadTimeout,
		WriteTimeout:          DefaultWriteTimeout,
		DisableStartupMessage: true,
		UnescapePath:          true,
		ErrorHandler:          newErrorHandler(options.logger),
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	h := &handler{svc: svc, validate: validator.New()}
	registerRoutes(app, h)

	return &Server{app: app, logger: options.logger}
}

func registerRoutes(app *fiber.App, h *handler) {
	app.Get("/", h.root)
	app.Get("/health", h.liveness)

	r := app.Group("/rag")
	r.Get("/health", h.health)
	r.Post("/query", h.query)
	r.Post("/upload", h.upload)
	r.Post("/ingest", h.ingest)
	r.Get("/documents", h.listDocuments)
	r.Delete("/documents/:filename", h.deleteDocument)
	r.Get("/status", h.status)
	r.Post("/reset", h.reset)
	r.Post("/estimate", h.estimate)

	d := r.Group("/dataset")
	d.Get("", h.listDataset)
	d.Post("", h.addDatasetItem)
	d.Delete("", h.clearDataset)
	d.Get("/match", h.matchDataset)
	d.Post("/ingest", h.ingestDataset)
	d.Put("/:ref", h.updateDatasetItem)
	d.Delete("/:ref", h.deleteDatasetItem)
}

// App は内部の fiber.App を返す
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen は addr で待ち受ける。Shutdown が呼ばれるまで戻らない
func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown は処理中のリクエストの完了を待って停止する
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
