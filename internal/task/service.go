package task

import (
	"fmt"
	"time"

	"eventhub/internal/auth"
	"eventhub/internal/errs"
	"eventhub/internal/logger"
	"eventhub/internal/models"

	"github.com/google/uuid"
)

type DBLayer interface {
	CreateTask(task models.Task) error
	GetTaskByID(id string) (*models.Task, error)
	ListTasksAssignedTo(userID string) ([]models.Task, error)
	ListTasksAssignedBy(userID string) ([]models.Task, error)
	SetCompleted(id string, completed bool) error
	SetVerified(id string, verified bool) error
	GetUserByID(id string) (*models.User, error)
}

type Service struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewService(db DBLayer, log *logger.Logger) *Service {
	return &Service{DB: db, Logger: log}
}

// Create assigns a task. Only admins and managers assign, and only to
// employees or guests in the same company.
func (s *Service) Create(actor auth.Actor, req models.CreateTaskRequest) (*models.Task, error) {
	if !auth.Can(actor, auth.TaskCreate, auth.Resource{CompanyID: actor.CompanyID}) {
		return nil, errs.Forbidden("Only admins and managers can assign tasks")
	}
	if req.Name == "" {
		return nil, errs.Validation("Task name is required")
	}
	if req.AssignedTo == "" {
		return nil, errs.Validation("Assignee is required")
	}

	assignee, err := s.DB.GetUserByID(req.AssignedTo)
	if err != nil {
		return nil, err
	}
	if assignee.CompanyID != actor.CompanyID {
		return nil, errs.Validation("Assignee is not part of your company")
	}
	if assignee.Role != models.RoleEmployee && assignee.Role != models.RoleGuest {
		return nil, errs.Validation("Tasks can only be assigned to employees or guests")
	}

	task := models.Task{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		AssignedBy:  actor.ID,
		AssignedTo:  req.AssignedTo,
		Priority:    req.Priority,
		CreatedAt:   time.Now(),
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if req.StartDate != "" {
		start, err := time.Parse(time.RFC3339, req.StartDate)
		if err != nil {
			return nil, errs.Validation("Invalid start date. Use ISO 8601 (YYYY-MM-DDTHH:mm:ssZ)")
		}
		task.StartDate = start
	}
	if req.EndDate != "" {
		end, err := time.Parse(time.RFC3339, req.EndDate)
		if err != nil {
			return nil, errs.Validation("Invalid end date. Use ISO 8601 (YYYY-MM-DDTHH:mm:ssZ)")
		}
		if !task.StartDate.IsZero() && end.Before(task.StartDate) {
			return nil, errs.Validation("End date cannot be before start date")
		}
		task.EndDate = end
	}

	if err := s.DB.CreateTask(task); err != nil {
		return nil, err
	}
	s.Logger.Info("TASK", fmt.Sprintf("Task %s assigned to %s by %s", task.ID, task.AssignedTo, actor.ID))
	return &task, nil
}

// Complete marks a task done. Only the assignee can complete it.
func (s *Service) Complete(actor auth.Actor, taskID string) (*models.Task, error) {
	task, err := s.DB.GetTaskByID(taskID)
	if err != nil {
		return nil, err
	}
	if !auth.Can(actor, auth.TaskComplete, auth.Resource{OwnerID: task.AssignedTo}) {
		return nil, errs.Forbidden("Only the assignee can complete this task")
	}
	if task.IsCompleted {
		return task, nil
	}

	if err := s.DB.SetCompleted(taskID, true); err != nil {
		return nil, err
	}
	task.IsCompleted = true
	return task, nil
}

// Verify confirms a completed task, admin only.
func (s *Service) Verify(actor auth.Actor, taskID string) (*models.Task, error) {
	if !auth.Can(actor, auth.TaskVerify, auth.Resource{CompanyID: actor.CompanyID}) {
		return nil, errs.Forbidden("Only admins can verify tasks")
	}

	task, err := s.DB.GetTaskByID(taskID)
	if err != nil {
		return nil, err
	}
	if !task.IsCompleted {
		return nil, errs.Validation("Task is not completed yet")
	}
	if task.IsVerified {
		return task, nil
	}

	if err := s.DB.SetVerified(taskID, true); err != nil {
		return nil, err
	}
	task.IsVerified = true
	return task, nil
}

// List returns assigned-by tasks for admins and managers, assigned-to
// tasks for everyone else.
func (s *Service) List(actor auth.Actor) ([]models.Task, error) {
	if actor.Role == models.RoleAdmin || actor.Role == models.RoleManager {
		return s.DB.ListTasksAssignedBy(actor.ID)
	}
	return s.DB.ListTasksAssignedTo(actor.ID)
}
