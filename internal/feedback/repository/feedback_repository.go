package repository

import (
	"betalift_service/internal/feedback/domain"

	"gorm.io/gorm"
)

// FeedbackRepo definition feedback storage
type FeedbackRepo interface {
	AutoMigrate() error

	CreateProject(project *domain.Project) error
	GetProjectByID(id uint) (*domain.Project, error)
	ListProjectsByOwner(ownerID string) ([]domain.Project, error)

	CreateMembership(m *domain.Membership) error
	HasMembership(projectID uint, userID string) (bool, error)

	CreateFeedback(fb *domain.Feedback) error
	ListFeedback(projectID uint, kind domain.FeedbackKind) ([]domain.Feedback, error)
}

type feedbackRepo struct {
	db *gorm.DB
}

// NewFeedbackRepo create FeedbackRepo
func NewFeedbackRepo(db *gorm.DB) FeedbackRepo {
	return &feedbackRepo{db: db}
}

// AutoMigrate 建表, 開發環境用
func (r *feedbackRepo) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Project{}, &domain.Membership{}, &domain.Feedback{})
}

// CreateProject insert project
func (r *feedbackRepo) CreateProject(project *domain.Project) error {
	return r.db.Create(project).Error
}

// GetProjectByID get project by id
func (r *feedbackRepo) GetProjectByID(id uint) (*domain.Project, error) {
	var p domain.Project
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjectsByOwner list projects owned by user
func (r *feedbackRepo) ListProjectsByOwner(ownerID string) ([]domain.Project, error) {
	var projects []domain.Project
	if err := r.db.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// CreateMembership insert membership, unique index 擋重複加入
func (r *feedbackRepo) CreateMembership(m *domain.Membership) error {
	return r.db.Create(m).Error
}

// HasMembership check user joined project
func (r *feedbackRepo) HasMembership(projectID uint, userID string) (bool, error) {
	var count int64
	if err := r.db.Model(&domain.Membership{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateFeedback insert feedback
func (r *feedbackRepo) CreateFeedback(fb *domain.Feedback) error {
	return r.db.Create(fb).Error
}

// ListFeedback list feedback for project, kind 為空時不過濾
func (r *feedbackRepo) ListFeedback(projectID uint, kind domain.FeedbackKind) ([]domain.Feedback, error) {
	q := r.db.Where("project_id = ?", projectID)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var fbs []domain.Feedback
	if err := q.Order("created_at DESC").Find(&fbs).Error; err != nil {
		return nil, err
	}
	return fbs, nil
}
