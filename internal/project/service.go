package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()

	// ErrProjectNotFound indicates that the requested project id does not exist.
	ErrProjectNotFound = errors.New("project: not found")
	// ErrMissingName indicates that a project create request had no usable name.
	ErrMissingName = errors.New("project: name is required")
)

// ServiceError wraps a failure with a dotted operation.reason code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the dotted operation.reason identifier.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew    = "project.service.new"
	opListProjects  = "project.list"
	opGetProject    = "project.get"
	opCreateProject = "project.create"
	opUpdateProject = "project.update"
	opDeleteProject = "project.delete"
	opSeedDefault   = "project.seed_default"
	opImportScript  = "project.import_script"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig collects the dependencies for constructing a Service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service owns all reads and writes against the project aggregate.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService validates the configuration and returns a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:     cfg.Database,
		clock:  clock,
		logger: logger,
	}, nil
}

// aggregateQuery applies the full eager graph: script, scenes ordered by
// order_index, dialogues ordered by order_index with their character, and the
// project's characters.
func (s *Service) aggregateQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Characters", func(db *gorm.DB) *gorm.DB {
			return db.Order("characters.id ASC")
		}).
		Preload("Script").
		Preload("Script.Scenes", func(db *gorm.DB) *gorm.DB {
			return db.Order("scenes.order_index ASC, scenes.id ASC")
		}).
		Preload("Script.Scenes.Dialogues", func(db *gorm.DB) *gorm.DB {
			return db.Order("dialogues.order_index ASC, dialogues.id ASC")
		}).
		Preload("Script.Scenes.Dialogues.Character")
}

// ListProjects returns every project with its full aggregate graph loaded.
func (s *Service) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := s.aggregateQuery(ctx).Order("projects.id ASC").Find(&projects).Error; err != nil {
		s.logError(opListProjects, "query_failed", err)
		return nil, newServiceError(opListProjects, "query_failed", err)
	}
	return projects, nil
}

// GetProject returns one project with its full aggregate graph, or
// ErrProjectNotFound.
func (s *Service) GetProject(ctx context.Context, id int64) (*Project, error) {
	var loaded Project
	err := s.aggregateQuery(ctx).Take(&loaded, "projects.id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		s.logError(opGetProject, "query_failed", err, zap.Int64("project_id", id))
		return nil, newServiceError(opGetProject, "query_failed", err)
	}
	return &loaded, nil
}

// CreateProject creates a project and its empty script in one transaction.
func (s *Service) CreateProject(ctx context.Context, req CreateRequest) (*Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrMissingName
	}

	now := s.clock()
	created := Project{
		Name:      name,
		Genres:    StringList(req.Genres),
		Tones:     StringList(req.Tones),
		CreatedAt: now,
		UpdatedAt: now,
	}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&created).Error; err != nil {
			return newServiceError(opCreateProject, "project_insert_failed", err)
		}
		script := Script{Content: "", WordCount: 0, ProjectID: created.ID, CreatedAt: now, UpdatedAt: now}
		if err := tx.Create(&script).Error; err != nil {
			return newServiceError(opCreateProject, "script_insert_failed", err)
		}
		created.Script = &script
		return nil
	})
	if txErr != nil {
		s.logError(opCreateProject, "transaction_failed", txErr, zap.String("name", name))
		return nil, txErr
	}

	s.logger.Info("project created",
		zap.Int64("project_id", created.ID),
		zap.String("name", created.Name))
	return &created, nil
}

// DeleteProject removes a project and everything it owns. The cascade is
// explicit so it does not depend on driver foreign-key enforcement.
func (s *Service) DeleteProject(ctx context.Context, id int64) error {
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target Project
		if err := tx.Take(&target, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProjectNotFound
			}
			return newServiceError(opDeleteProject, "project_select_failed", err)
		}

		var script Script
		err := tx.Take(&script, "project_id = ?", id).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opDeleteProject, "script_select_failed", err)
		}
		if err == nil {
			if err := tx.Where("scene_id IN (?)",
				tx.Model(&Scene{}).Select("id").Where("script_id = ?", script.ID),
			).Delete(&Dialogue{}).Error; err != nil {
				return newServiceError(opDeleteProject, "dialogue_delete_failed", err)
			}
			if err := tx.Where("script_id = ?", script.ID).Delete(&Scene{}).Error; err != nil {
				return newServiceError(opDeleteProject, "scene_delete_failed", err)
			}
			if err := tx.Delete(&script).Error; err != nil {
				return newServiceError(opDeleteProject, "script_delete_failed", err)
			}
		}

		if err := tx.Where("project_id = ?", id).Delete(&Character{}).Error; err != nil {
			return newServiceError(opDeleteProject, "character_delete_failed", err)
		}
		if err := tx.Delete(&target).Error; err != nil {
			return newServiceError(opDeleteProject, "project_delete_failed", err)
		}
		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrProjectNotFound) {
			s.logError(opDeleteProject, "transaction_failed", txErr, zap.Int64("project_id", id))
		}
		return txErr
	}

	s.logger.Info("project deleted", zap.Int64("project_id", id))
	return nil
}

// CreateDefaultIfEmpty seeds the initial project on a fresh database.
func (s *Service) CreateDefaultIfEmpty(ctx context.Context) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Project{}).Count(&count).Error; err != nil {
		s.logError(opSeedDefault, "count_failed", err)
		return newServiceError(opSeedDefault, "count_failed", err)
	}
	if count > 0 {
		return nil
	}

	seeded, err := s.CreateProject(ctx, CreateRequest{Name: "My First Project"})
	if err != nil {
		return err
	}
	s.logger.Info("default project created", zap.Int64("project_id", seeded.ID))
	return nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("project service error", attrs...)
}

func (s *Service) logSkip(operation, reason string, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Warn("descriptor skipped", attrs...)
}
