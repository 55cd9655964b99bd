package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron"
	"k8s.io/klog/v2"

	"github.com/contentpilot/backend/config"
	"github.com/contentpilot/backend/internal/handler"
	"github.com/contentpilot/backend/internal/model"
	"github.com/contentpilot/backend/internal/pkg/database"
	"github.com/contentpilot/backend/internal/pkg/imagen"
	"github.com/contentpilot/backend/internal/pkg/llm"
	"github.com/contentpilot/backend/internal/pkg/storage"
	"github.com/contentpilot/backend/internal/repository"
	"github.com/contentpilot/backend/internal/router"
	"github.com/contentpilot/backend/internal/service"
	"github.com/contentpilot/backend/internal/service/orchestrator"
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	godotenv.Load()

	cfg := config.GetConfig()

	if cfg.Database.Type == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}
	db, err := database.InitDB(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	projectRepo := repository.NewProjectRepository(db)
	requestRepo := repository.NewContentRequestRepository(db)
	itemRepo := repository.NewContentItemRepository(db)
	regenRepo := repository.NewRegenerateLogRepository(db)

	llmClient := llm.NewClient(cfg)
	imageClient := imagen.NewClient(cfg)
	assets, err := storage.NewService(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	pipeline := service.NewPipelineService(cfg, llmClient, imageClient, assets, projectRepo, requestRepo, itemRepo)
	orch, err := orchestrator.NewOrchestrator(cfg.Pipeline.Workers, pipeline)
	if err != nil {
		log.Fatalf("Failed to initialize orchestrator: %v", err)
	}
	orch.Start()
	defer orch.Stop()

	quota := service.NewQuotaService(cfg, requestRepo, regenRepo)
	planner := service.NewPlannerService(cfg, llmClient, quota, orch, projectRepo, requestRepo, itemRepo)
	content := service.NewContentService(assets, projectRepo, requestRepo, itemRepo)
	regenerate := service.NewRegenerateService(pipeline, llmClient, assets, quota, projectRepo, requestRepo, itemRepo)
	projects := service.NewProjectService(projectRepo)

	recoverUnfinished(requestRepo, orch)
	startJanitor(cfg, itemRepo)

	engine := router.Setup(cfg,
		handler.NewProjectHandler(projects),
		handler.NewContentHandler(planner, content, regenerate),
		handler.NewStatusHandler(orch),
	)

	klog.V(6).Infof("server listening on :%s", cfg.Server.Port)
	if err := engine.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// recoverUnfinished re-queues requests that still have items without images,
// so generation interrupted by a restart picks up where it stopped.
func recoverUnfinished(requestRepo repository.ContentRequestRepository, orch *orchestrator.Orchestrator) {
	ids, err := requestRepo.UnfinishedIDs(time.Now().Add(-24 * time.Hour))
	if err != nil {
		klog.Errorf("failed to scan for unfinished requests: %v", err)
		return
	}
	for _, id := range ids {
		if err := orch.Enqueue(orchestrator.NewJob(id)); err != nil {
			klog.Errorf("failed to re-enqueue request %d: %v", id, err)
		}
	}
	if len(ids) > 0 {
		klog.V(6).Infof("re-enqueued %d unfinished requests", len(ids))
	}
}

// startJanitor periodically fails items stuck in text_pending, usually left
// behind by a worker that died mid-call.
func startJanitor(cfg *config.Config, itemRepo repository.ContentItemRepository) {
	c := cron.New()
	err := c.AddFunc("@every 5m", func() {
		n, err := itemRepo.FailStuck(model.ItemStatusTextPending, cfg.Pipeline.StuckTimeout)
		if err != nil {
			klog.Errorf("stuck item sweep failed: %v", err)
			return
		}
		if n > 0 {
			klog.Warningf("marked %d stuck items as failed", n)
		}
	})
	if err != nil {
		klog.Errorf("failed to schedule stuck item sweep: %v", err)
		return
	}
	c.Start()
}
