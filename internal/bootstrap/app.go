package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shoplens/internal/ai"
	"shoplens/internal/config"
	"shoplens/internal/logging"
	"shoplens/internal/model"
	mysqlClient "shoplens/internal/platform/mysql"
	rabbitmqClient "shoplens/internal/platform/rabbitmq"
	redisClient "shoplens/internal/platform/redis"
	"shoplens/internal/repository"
	"shoplens/internal/vecindex"
	"shoplens/internal/worker"
)

type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	MySQL        *gorm.DB
	Redis        *redis.Client
	MQConn       *amqp.Connection
	AIClient     *ai.Client
	IndexStore   *vecindex.Store
	AnswerWorker *worker.AnswerLogWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if cfg.LLM.APIKey == "" {
		return nil, errors.New("LLM api key is not configured (set LLM_API_KEY or llm.api_key)")
	}

	logger := logging.New(cfg.Log, cfg.App.Env)

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.ScrapeRun{}, &model.AnswerLog{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	store := vecindex.NewStore(cfg.IndexPath(), cfg.DocsPath())
	if err := store.Load(); err != nil {
		// Missing artifacts just mean no rebuild has run yet; the ask
		// endpoint reports not-loaded until one does.
		if errors.Is(err, vecindex.ErrArtifactsMissing) {
			logger.Info("vector index artifacts not found; starting without an index")
		} else {
			logger.Warn("load vector index failed; starting without an index", zap.Error(err))
		}
	} else {
		logger.Info("vector index loaded", zap.Uint64("version", store.Version()))
	}

	answerLogRepo := repository.NewAnswerLogRepository(mysqlDB)
	answerWorker := worker.NewAnswerLogWorker(mqConn, answerLogRepo, cfg.RabbitMQ.AnswerLogQueue, logger)
	if err := answerWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start answer log worker failed: %w", err)
	}

	return &App{
		Config:       cfg,
		Logger:       logger,
		MySQL:        mysqlDB,
		Redis:        redisCli,
		MQConn:       mqConn,
		AIClient:     ai.NewClient(),
		IndexStore:   store,
		AnswerWorker: answerWorker,
		StartedAt:    time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.AnswerWorker != nil {
		a.AnswerWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
