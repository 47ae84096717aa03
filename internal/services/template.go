package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"promptsculptor/internal/logger"
	"promptsculptor/internal/models"
	"promptsculptor/internal/repository"

	"go.uber.org/zap"
)

type TemplateService interface {
	Create(ctx context.Context, ownerID *int64, req models.CreateTemplateRequest) (*models.PromptTemplate, error)
	GetAll(ctx context.Context, limit, offset int, tag string, onlyPublic bool) ([]*models.PromptTemplate, error)
	GetByID(ctx context.Context, id int64) (*models.PromptTemplate, error)
	Update(ctx context.Context, id int64, req models.CreateTemplateRequest) (*models.PromptTemplate, error)
	Delete(ctx context.Context, id int64) error
}

type templateService struct {
	repo repository.TemplateRepo
}

func NewTemplateService(repo repository.TemplateRepo) TemplateService {
	return &templateService{repo: repo}
}

func (s *templateService) Create(ctx context.Context, ownerID *int64, req models.CreateTemplateRequest) (*models.PromptTemplate, error) {
	log := logger.WithCtx(ctx)
	log.Info("Создание шаблона",
		zap.Any("owner_id", ownerID),
		zap.String("title", strings.TrimSpace(req.Title)),
		zap.Int("tags_count", len(req.Tags)),
	)

	if err := validateTemplate(req); err != nil {
		log.Warn("Валидация шаблона не пройдена", zap.Error(err))
		return nil, err
	}

	t := &models.PromptTemplate{
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(req.Title),
		Description: strPtr(req.Description),
		Content:     req.Content,
		Tags:        normalizeTags(req.Tags),
		IsPublic:    req.IsPublic,
	}

	created, err := s.repo.Create(ctx, t)
	if err != nil {
		log.Error("Ошибка создания шаблона (repo)", zap.Error(err))
		return nil, err
	}

	log.Info("Шаблон создан", zap.Int64("id", created.ID))
	return created, nil
}

func (s *templateService) GetAll(ctx context.Context, limit, offset int, tag string, onlyPublic bool) ([]*models.PromptTemplate, error) {
	log := logger.WithCtx(ctx)
	log.Debug("Получение списка шаблонов",
		zap.Int("limit", limit),
		zap.Int("offset", offset),
		zap.String("tag", tag),
		zap.Bool("only_public", onlyPublic),
	)

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.GetAll(ctx, limit, offset, strings.TrimSpace(tag), onlyPublic)
}

func (s *templateService) GetByID(ctx context.Context, id int64) (*models.PromptTemplate, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *templateService) Update(ctx context.Context, id int64, req models.CreateTemplateRequest) (*models.PromptTemplate, error) {
	log := logger.WithCtx(ctx)

	if err := validateTemplate(req); err != nil {
		log.Warn("Валидация шаблона не пройдена", zap.Error(err), zap.Int64("id", id))
		return nil, err
	}

	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.New("шаблон не найден")
	}

	t := &models.PromptTemplate{
		ID:          id,
		Title:       strings.TrimSpace(req.Title),
		Description: strPtr(req.Description),
		Content:     req.Content,
		Tags:        normalizeTags(req.Tags),
		IsPublic:    req.IsPublic,
	}
	if err := s.repo.Update(ctx, t); err != nil {
		log.Error("Ошибка обновления шаблона (repo)", zap.Error(err), zap.Int64("id", id))
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *templateService) Delete(ctx context.Context, id int64) error {
	logger.WithCtx(ctx).Info("Удаление шаблона", zap.Int64("id", id))
	return s.repo.Delete(ctx, id)
}

func validateTemplate(req models.CreateTemplateRequest) error {
	title := strings.TrimSpace(req.Title)
	if l := utf8.RuneCountInString(title); l < 3 || l > 255 {
		return errors.New("длина заголовка должна быть от 3 до 255 символов")
	}
	if strings.TrimSpace(req.Content) == "" {
		return errors.New("контент шаблона пуст")
	}
	if len(req.Tags) > 5 {
		return errors.New("максимум 5 тегов")
	}
	return nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func strPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
