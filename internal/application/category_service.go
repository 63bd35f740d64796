package application

import (
	"context"
	"errors"
	"strings"

	"github.com/ims-platform/inventory-service/internal/domain"
	apperrors "github.com/ims-platform/inventory-service/pkg/errors"
	"github.com/ims-platform/inventory-service/pkg/logging"
)

// CategoryService handles category lifecycle
type CategoryService struct {
	categories domain.CategoryRepository
	logger     *logging.Logger
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(categories domain.CategoryRepository, logger *logging.Logger) *CategoryService {
	return &CategoryService{categories: categories, logger: logger}
}

// CreateCategory creates a new category
func (s *CategoryService) CreateCategory(ctx context.Context, cmd CreateCategoryCommand) (*CategoryDTO, error) {
	exists, err := s.categories.ExistsByName(ctx, cmd.Name)
	if err != nil {
		s.logger.Error("Failed to check category name", "name", cmd.Name, "error", err)
		return nil, apperrors.ErrStorageUnavailable("category lookup").Wrap(err)
	}
	if exists {
		return nil, apperrors.ErrConflict("category with this name already exists").WithDetail("name", cmd.Name)
	}

	category, err := domain.NewCategory(cmd.Name, cmd.ImageURL)
	if err != nil {
		return nil, apperrors.ErrValidation(err.Error()).Wrap(err)
	}

	if err := s.categories.Save(ctx, category); err != nil {
		if errors.Is(err, domain.ErrDuplicateCategoryName) {
			return nil, apperrors.ErrConflict(err.Error()).WithDetail("name", cmd.Name)
		}
		s.logger.Error("Failed to create category", "name", cmd.Name, "error", err)
		return nil, apperrors.ErrStorageUnavailable("category create").Wrap(err)
	}

	s.logger.Info("Created category", "categoryId", category.ID.Hex(), "name", category.Name)
	return toCategoryDTO(category), nil
}

// GetCategory retrieves a single category
func (s *CategoryService) GetCategory(ctx context.Context, id string) (*CategoryDTO, error) {
	category, err := s.findCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	return toCategoryDTO(category), nil
}

// ListCategories retrieves every category
func (s *CategoryService) ListCategories(ctx context.Context) ([]*CategoryDTO, error) {
	categories, err := s.categories.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list categories", "error", err)
		return nil, apperrors.ErrStorageUnavailable("category list").Wrap(err)
	}
	return toCategoryDTOs(categories), nil
}

// UpdateCategory renames a category or changes its image. Items keep the
// category name they were created with.
func (s *CategoryService) UpdateCategory(ctx context.Context, cmd UpdateCategoryCommand) (*CategoryDTO, error) {
	category, err := s.findCategory(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cmd.Name) == "" {
		return nil, apperrors.ErrValidation(domain.ErrEmptyCategoryName.Error())
	}

	if !strings.EqualFold(category.Name, cmd.Name) {
		exists, err := s.categories.ExistsByName(ctx, cmd.Name)
		if err != nil {
			s.logger.Error("Failed to check category name", "name", cmd.Name, "error", err)
			return nil, apperrors.ErrStorageUnavailable("category lookup").Wrap(err)
		}
		if exists {
			return nil, apperrors.ErrConflict("category with this name already exists").WithDetail("name", cmd.Name)
		}
	}

	category.Name = cmd.Name
	category.ImageURL = cmd.ImageURL

	if err := s.categories.Save(ctx, category); err != nil {
		if errors.Is(err, domain.ErrDuplicateCategoryName) {
			return nil, apperrors.ErrConflict(err.Error()).WithDetail("name", cmd.Name)
		}
		s.logger.Error("Failed to update category", "categoryId", cmd.ID, "error", err)
		return nil, apperrors.ErrStorageUnavailable("category update").Wrap(err)
	}

	s.logger.Info("Updated category", "categoryId", category.ID.Hex(), "name", category.Name)
	return toCategoryDTO(category), nil
}

// DeleteCategory removes a category. Items in the category are left in place.
func (s *CategoryService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return apperrors.ErrNotFoundWithID("category", id).Wrap(err)
		}
		s.logger.Error("Failed to delete category", "categoryId", id, "error", err)
		return apperrors.ErrStorageUnavailable("category delete").Wrap(err)
	}

	s.logger.Info("Deleted category", "categoryId", id)
	return nil
}

func (s *CategoryService) findCategory(ctx context.Context, id string) (*domain.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get category", "categoryId", id, "error", err)
		return nil, apperrors.ErrStorageUnavailable("category lookup").Wrap(err)
	}
	if category == nil {
		return nil, apperrors.ErrNotFoundWithID("category", id)
	}
	return category, nil
}
