package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"shoplens/internal/ai"
	appsvc "shoplens/internal/app"
	"shoplens/internal/bootstrap"
	"shoplens/internal/cache"
	rabbitmqClient "shoplens/internal/platform/rabbitmq"
	"shoplens/internal/repository"
	"shoplens/internal/scrape"
	"shoplens/internal/transport/http/handler"
	"shoplens/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(app.Logger), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	aiConfig := ai.Config{
		BaseURL:        app.Config.LLM.BaseURL,
		APIKey:         app.Config.LLM.APIKey,
		Model:          app.Config.LLM.Model,
		EmbeddingModel: app.Config.LLM.EmbeddingModel,
	}

	fetcher := scrape.NewFetcher(
		app.Config.Scrape.MaxRetries,
		time.Duration(app.Config.Scrape.BackoffSeconds*float64(time.Second)),
	)
	scraper := scrape.NewScraper(fetcher, app.Logger, scrape.Options{
		BaseURL:      app.Config.Scrape.BaseURL,
		UseLocalHTML: app.Config.Scrape.UseLocalHTML,
		SnapshotDir:  app.Config.Scrape.SnapshotDir,
	})

	runRepo := repository.NewScrapeRunRepository(app.MySQL)
	answerRepo := repository.NewAnswerLogRepository(app.MySQL)
	answerCache := cache.NewAnswerCache(app.Redis, time.Duration(app.Config.Redis.AnswerTTLSeconds)*time.Second)
	answerPublisher := rabbitmqClient.NewAnswerPublisher(app.MQConn, app.Config.RabbitMQ.AnswerLogQueue)

	pipelineService := appsvc.NewPipelineService(
		scraper, runRepo, app.Logger,
		app.Config.ProductsPath(), app.Config.MatrixPath(),
	)
	indexService := appsvc.NewIndexService(
		app.AIClient, aiConfig, app.IndexStore, app.Logger, app.Config.MatrixPath(),
	)
	answerService := appsvc.NewAnswerService(
		app.AIClient, aiConfig, app.IndexStore,
		answerCache, answerPublisher, app.Logger, app.Config.LLM.TopK,
	)

	pipelineHandler := handler.NewPipelineHandler(pipelineService)
	indexHandler := handler.NewIndexHandler(indexService)
	askHandler := handler.NewAskHandler(answerService)
	historyHandler := handler.NewHistoryHandler(runRepo, answerRepo)

	v1 := router.Group("/api/v1")
	v1.POST("/scrape", pipelineHandler.Scrape)
	v1.POST("/index", indexHandler.Rebuild)
	v1.POST("/ask", askHandler.Ask)
	v1.GET("/runs", historyHandler.ListRuns)
	v1.GET("/answers", historyHandler.ListAnswers)

	return router
}
