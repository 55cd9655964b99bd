package service

import (
	"github.com/contentpilot/backend/internal/model"
	"github.com/contentpilot/backend/internal/repository"
)

// ProjectService manages the brand profiles content runs are planned for.
type ProjectService struct {
	projectRepo repository.ProjectRepository
}

func NewProjectService(projectRepo repository.ProjectRepository) *ProjectService {
	return &ProjectService{projectRepo: projectRepo}
}

func (s *ProjectService) Create(project *model.Project) error {
	return s.projectRepo.Create(project)
}

func (s *ProjectService) Get(userID, projectID uint) (*model.Project, error) {
	project, err := s.projectRepo.Get(projectID)
	if err != nil {
		return nil, err
	}
	if project.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return project, nil
}

func (s *ProjectService) GetByUser(userID uint) (*model.Project, error) {
	return s.projectRepo.GetByUser(userID)
}
