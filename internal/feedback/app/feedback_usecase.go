package app

import (
	"encoding/json"
	"log"
	"time"

	"betalift_service/internal/feedback/domain"
	"betalift_service/internal/feedback/repository"
	notifydomain "betalift_service/internal/notification/domain"
	"betalift_service/pkg/database"
	"betalift_service/pkg/encrypt"
	errprocess "betalift_service/pkg/err"

	"github.com/streadway/amqp"
)

// FeedbackUseCase 負責 project / membership / feedback 的業務邏輯
type FeedbackUseCase struct {
	repo              repository.FeedbackRepo
	rabbit            database.RabbitRepo
	notificationQueue string
}

// NewFeedbackUseCase init feedback use case
func NewFeedbackUseCase(repo repository.FeedbackRepo, rabbit database.RabbitRepo, notificationQueue string) *FeedbackUseCase {
	return &FeedbackUseCase{
		repo:              repo,
		rabbit:            rabbit,
		notificationQueue: notificationQueue,
	}
}

// CreateProject 建立專案, access code 只存 bcrypt hash
func (uc *FeedbackUseCase) CreateProject(ownerID, name, description, accessCode string) (*domain.Project, error) {
	hash, err := encrypt.HashAccessCode(accessCode)
	if err != nil {
		return nil, err
	}
	project := &domain.Project{
		Name:           name,
		OwnerID:        ownerID,
		AccessCodeHash: hash,
		Description:    description,
	}
	if err := uc.repo.CreateProject(project); err != nil {
		return nil, err
	}
	return project, nil
}

// ListProjects 專案擁有者的專案列表
func (uc *FeedbackUseCase) ListProjects(ownerID string) ([]domain.Project, error) {
	return uc.repo.ListProjectsByOwner(ownerID)
}

// JoinProject tester 用 access code 加入專案
func (uc *FeedbackUseCase) JoinProject(projectID uint, userID, accessCode string) error {
	project, err := uc.repo.GetProjectByID(projectID)
	if err != nil {
		return errprocess.Set("project not found")
	}
	if err := encrypt.CompareAccessCode(project.AccessCodeHash, accessCode); err != nil {
		return errprocess.Set("access code mismatch")
	}

	joined, err := uc.repo.HasMembership(projectID, userID)
	if err != nil {
		return err
	}
	if joined {
		// 重複加入視為成功
		return nil
	}
	return uc.repo.CreateMembership(&domain.Membership{
		ProjectID: projectID,
		UserID:    userID,
	})
}

// SubmitFeedback 只有成員能送回饋, 成功後通知專案擁有者
func (uc *FeedbackUseCase) SubmitFeedback(projectID uint, userID string, kind domain.FeedbackKind, title, body string) (*domain.Feedback, error) {
	project, err := uc.repo.GetProjectByID(projectID)
	if err != nil {
		return nil, errprocess.Set("project not found")
	}

	joined, err := uc.repo.HasMembership(projectID, userID)
	if err != nil {
		return nil, err
	}
	if !joined && project.OwnerID != userID {
		return nil, errprocess.Set("not a project member")
	}

	fb := &domain.Feedback{
		ProjectID: projectID,
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Body:      body,
	}
	if err := uc.repo.CreateFeedback(fb); err != nil {
		return nil, err
	}

	uc.notifyOwner(project, fb)
	return fb, nil
}

// ListFeedback 擁有者或成員查看專案回饋
func (uc *FeedbackUseCase) ListFeedback(projectID uint, userID string, kind domain.FeedbackKind) ([]domain.Feedback, error) {
	project, err := uc.repo.GetProjectByID(projectID)
	if err != nil {
		return nil, errprocess.Set("project not found")
	}
	if project.OwnerID != userID {
		joined, err := uc.repo.HasMembership(projectID, userID)
		if err != nil {
			return nil, err
		}
		if !joined {
			return nil, errprocess.Set("not a project member")
		}
	}
	return uc.repo.ListFeedback(projectID, kind)
}

func (uc *FeedbackUseCase) notifyOwner(project *domain.Project, fb *domain.Feedback) {
	if uc.rabbit == nil {
		return
	}
	// 自己給自己的專案回饋不用通知
	if project.OwnerID == fb.UserID {
		return
	}
	n := notifydomain.Notification{
		UserID: project.OwnerID,
		Title:  "new feedback on " + project.Name,
		Body:   fb.Title,
		Type:   notifydomain.NotifyFeedback,
		Data: map[string]string{
			"kind": string(fb.Kind),
		},
		CreatedAt: time.Now().Unix(),
		Save:      true,
	}
	body, err := json.Marshal(n)
	if err != nil {
		log.Printf("notification marshal error: %v", err)
		return
	}
	if err := uc.rabbit.Publish("", uc.notificationQueue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	}); err != nil {
		log.Printf("notification publish error: %v", err)
	}
}
