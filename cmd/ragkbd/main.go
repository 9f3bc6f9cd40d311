package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/ragkb/ragkb/internal/ai"
	"github.com/ragkb/ragkb/internal/config"
	"github.com/ragkb/ragkb/internal/db"
	"github.com/ragkb/ragkb/internal/embedcache"
	"github.com/ragkb/ragkb/internal/filestore"
	"github.com/ragkb/ragkb/internal/handler"
	"github.com/ragkb/ragkb/internal/job"
	"github.com/ragkb/ragkb/internal/middleware"
	"github.com/ragkb/ragkb/internal/rag"
	"github.com/ragkb/ragkb/internal/repo"
	"github.com/ragkb/ragkb/internal/schedule"
	"github.com/ragkb/ragkb/internal/service"
	"github.com/ragkb/ragkb/internal/vectorstore"
	pgvstore "github.com/ragkb/ragkb/internal/vectorstore/pgvector"
	"github.com/ragkb/ragkb/internal/vectorstore/qdrant"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "ragkbd",
		Short: "knowledge base server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the knowledge base server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func buildAI(cfg config.AIConfig) (ai.IEmbedder, ai.ICompleter, error) {
	provider, err := ai.NewProvider(cfg.Provider, cfg.Data)
	if err != nil {
		return nil, nil, err
	}
	embedder := ai.NewEmbedder(provider, cfg.EmbedModel)
	completer := ai.NewCompleter(provider, cfg.ChatModel)
	if len(cfg.Fallbacks) == 0 {
		return embedder, completer, nil
	}
	embedders := []ai.EmbedderEntry{{Name: cfg.Provider, Embedder: embedder}}
	completers := []ai.CompleterEntry{{Name: cfg.Provider, Completer: completer}}
	for _, fb := range cfg.Fallbacks {
		fbProvider, err := ai.NewProvider(fb.Provider, fb.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("init fallback provider %s: %w", fb.Provider, err)
		}
		embedModel := fb.EmbedModel
		if embedModel == "" {
			embedModel = cfg.EmbedModel
		}
		chatModel := fb.ChatModel
		if chatModel == "" {
			chatModel = cfg.ChatModel
		}
		embedders = append(embedders, ai.EmbedderEntry{Name: fb.Provider, Embedder: ai.NewEmbedder(fbProvider, embedModel)})
		completers = append(completers, ai.CompleterEntry{Name: fb.Provider, Completer: ai.NewCompleter(fbProvider, chatModel)})
	}
	return ai.NewGroupEmbedder(embedders), ai.NewGroupCompleter(completers), nil
}

func buildVectorStore(ctx context.Context, cfg *config.Config, conn *sql.DB) (vectorstore.IStore, error) {
	switch cfg.VectorStore.Type {
	case "pgvector":
		return pgvstore.New(conn), nil
	case "qdrant":
		store, err := qdrant.New(cfg.VectorStore.Data)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureCollection(ctx); err != nil {
			return nil, fmt.Errorf("ensure qdrant collection: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported vector store type: %s", cfg.VectorStore.Type)
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	rootLogger := logutil.GetLogger(context.Background())
	rootLogger.Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userRepo := repo.NewUserRepo(conn)
	docRepo := repo.NewDocumentRepo(conn)
	chunkRepo := repo.NewChunkRepo(conn)
	jobRepo := repo.NewIndexJobRepo(conn)
	cacheRepo := repo.NewEmbeddingCacheRepo(conn)

	embedder, completer, err := buildAI(cfg.AI)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	embedder = embedcache.WrapDBCacheToEmbedder(embedder, cacheRepo)

	vectors, err := buildVectorStore(ctx, cfg, conn)
	if err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}
	files, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	documentService := service.NewDocumentService(docRepo, chunkRepo, files, vectors, cfg.Index.ExtractOnUpload)
	indexer := rag.NewIndexer(embedder, vectors, chunkRepo, documentService.LoadText, rag.IndexerOptions{
		ChunkSize:      cfg.Index.ChunkSize,
		ChunkOverlap:   cfg.Index.ChunkOverlap,
		BatchSize:      cfg.Index.BatchSize,
		DiscardRawText: cfg.Index.DiscardRawText,
	})
	composer := rag.NewComposer(rag.NewRetriever(embedder, vectors), completer)
	askService := service.NewAskService(composer, cfg.Ask.TopKDefault, cfg.Ask.CacheSize,
		time.Duration(cfg.Ask.CacheTTLMins)*time.Minute,
		time.Duration(cfg.AI.Timeout)*time.Second)
	authService := service.NewAuthService(userRepo, []byte(cfg.JWTSecret),
		time.Hour*time.Duration(cfg.JWTTTLHours))

	worker := job.NewIndexWorker(indexer, docRepo, jobRepo, cfg.Index.QueueSize)
	worker.Start(ctx)
	defer worker.Stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewIndexJobCleanupJob(jobRepo,
		time.Duration(cfg.Jobs.JobRetentionDays)*24*time.Hour), cfg.Jobs.CleanupSpec); err != nil {
		return err
	}
	if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(cacheRepo,
		time.Duration(cfg.Jobs.CacheRetentionDays)*24*time.Hour), cfg.Jobs.CleanupSpec); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	deps := handler.RouterDeps{
		Auth:          handler.NewAuthHandler(authService),
		Documents:     handler.NewDocumentHandler(documentService, worker, cfg.ReindexEnabled()),
		Jobs:          handler.NewJobHandler(jobRepo),
		Ask:           handler.NewAskHandler(askService),
		JWTSecret:     []byte(cfg.JWTSecret),
		AskRatePerMin: cfg.Ask.RatePerMinute,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	rootLogger.Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	rootLogger.Info("server stopping...")
	return nil
}
