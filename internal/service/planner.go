package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"github.com/contentpilot/backend/config"
	"github.com/contentpilot/backend/internal/model"
	"github.com/contentpilot/backend/internal/pkg/llm"
	"github.com/contentpilot/backend/internal/repository"
	"github.com/contentpilot/backend/internal/service/orchestrator"
	"github.com/contentpilot/backend/internal/utils"
)

// DefaultDirection is used when a request does not specify content directions.
const DefaultDirection = "informational"

// CampaignParams are the user-supplied inputs of a planning run.
type CampaignParams struct {
	TrendIssue       string   `json:"trend_issue"`
	SnsEvent         string   `json:"sns_event"`
	EssentialKeyword string   `json:"essential_keyword"`
	Competitor       string   `json:"competitor"`
	UploadCycle      int      `json:"upload_cycle"`
	ToneMannerList   []string `json:"tone_manner_list"`
	DirectionList    []string `json:"direction_list"`
	ImageRatio       string   `json:"image_ratio"`
}

// Dispatcher hands finished plans to the background generation workers.
type Dispatcher interface {
	Enqueue(job *orchestrator.Job) error
}

// PlannerService runs the synchronous half of a content run: quota check,
// research, subject planning and persistence. Generation itself happens on
// the orchestrator workers after Enqueue.
type PlannerService struct {
	cfg         *config.Config
	llm         CompletionClient
	quota       *QuotaService
	dispatcher  Dispatcher
	projectRepo repository.ProjectRepository
	requestRepo repository.ContentRequestRepository
	itemRepo    repository.ContentItemRepository
}

func NewPlannerService(
	cfg *config.Config,
	llmClient CompletionClient,
	quota *QuotaService,
	dispatcher Dispatcher,
	projectRepo repository.ProjectRepository,
	requestRepo repository.ContentRequestRepository,
	itemRepo repository.ContentItemRepository,
) *PlannerService {
	return &PlannerService{
		cfg:         cfg,
		llm:         llmClient,
		quota:       quota,
		dispatcher:  dispatcher,
		projectRepo: projectRepo,
		requestRepo: requestRepo,
		itemRepo:    itemRepo,
	}
}

// PlanAndGenerate creates a content request with its planned items and queues
// it for generation. Nothing is persisted when research or planning fails.
func (s *PlannerService) PlanAndGenerate(ctx context.Context, userID, projectID uint, params CampaignParams) (*model.ContentRequest, error) {
	if err := s.quota.CheckAndConsume(userID, QuotaCreate); err != nil {
		return nil, err
	}

	project, err := s.projectRepo.Get(projectID)
	if err != nil {
		return nil, err
	}
	if project.UserID != userID {
		return nil, repository.ErrNotFound
	}

	synthesis, searchTokens, err := s.research(ctx, project, params)
	if err != nil {
		klog.Errorf("research failed: projectID=%d, err=%v", projectID, err)
		return nil, fmt.Errorf("%w: research: %v", ErrPlanningFailed, err)
	}

	today := s.quota.Today()
	count := PlanItemCount(s.cfg.Pipeline.PlanWeeks, params.UploadCycle)
	dates, err := BuildSchedule(today, params.UploadCycle, count)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanningFailed, err)
	}

	plan, subjectTokens, err := s.planSubjects(ctx, project, params, synthesis, today, dates, count)
	if err != nil {
		klog.Errorf("subject planning failed: projectID=%d, err=%v", projectID, err)
		return nil, err
	}

	request := &model.ContentRequest{
		ProjectID:        projectID,
		TrendIssue:       params.TrendIssue,
		SnsEvent:         params.SnsEvent,
		EssentialKeyword: params.EssentialKeyword,
		Competitor:       params.Competitor,
		UploadCycle:      params.UploadCycle,
		ToneMannerList:   utils.ToJSON(params.ToneMannerList),
		DirectionList:    utils.ToJSON(params.DirectionList),
		ImageRatio:       params.ImageRatio,
		SearchResult:     utils.Truncate(synthesis, maxSynthesisLen),
		SearchTokens:     searchTokens,
		SubjectTokens:    subjectTokens,
	}
	if err := s.requestRepo.Create(request); err != nil {
		return nil, err
	}

	directions := params.DirectionList
	if len(directions) == 0 {
		directions = []string{DefaultDirection}
	}
	for i := 0; i < count; i++ {
		item := &model.ContentItem{
			ContentRequestID: request.ID,
			PostDate:         dates[i].Format("2006-01-02"),
			Subject:          utils.Truncate(plan.SubjectList[i], maxSubjectLen),
			Direction:        directions[i%len(directions)],
			Status:           model.ItemStatusPlanned,
		}
		if err := s.itemRepo.Create(item); err != nil {
			return nil, err
		}
	}

	if err := s.dispatcher.Enqueue(orchestrator.NewJob(request.ID)); err != nil {
		// The plan is saved; startup recovery will pick it up if the queue
		// rejected it.
		klog.Errorf("failed to enqueue generation: contentRequestID=%d, err=%v", request.ID, err)
	}

	klog.V(6).Infof("plan created: contentRequestID=%d, items=%d", request.ID, count)
	return request, nil
}

func (s *PlannerService) research(ctx context.Context, project *model.Project, params CampaignParams) (string, int, error) {
	result, err := s.llm.Complete(ctx, llm.CompletionRequest{
		Role:      researchRole,
		Prompt:    researchPrompt(project, params),
		MaxTokens: researchMaxTokens,
		WebSearch: true,
	})
	if err != nil {
		return "", 0, err
	}
	return result.Message, result.TotalTokens, nil
}

func (s *PlannerService) planSubjects(ctx context.Context, project *model.Project, params CampaignParams, synthesis string, today time.Time, dates []time.Time, count int) (*planResponse, int, error) {
	result, err := s.llm.Complete(ctx, llm.CompletionRequest{
		Role:      planRole,
		Prompt:    planPrompt(project, params, synthesis, today, dates, count),
		MaxTokens: planMaxTokens,
		JSONMode:  true,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: planning: %v", ErrPlanningFailed, err)
	}

	var plan planResponse
	if err := json.Unmarshal([]byte(utils.ExtractJSON(result.Message)), &plan); err != nil {
		return nil, 0, fmt.Errorf("%w: malformed planning response: %v", ErrPlanningFailed, err)
	}
	if len(plan.SubjectList) != count {
		return nil, 0, fmt.Errorf("%w: expected %d subjects, got %d", ErrPlanningFailed, count, len(plan.SubjectList))
	}
	return &plan, result.TotalTokens, nil
}
