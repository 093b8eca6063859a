package service

import (
	"context"
	"fmt"
	"strings"

	"PriceSync/internal/config"
	"PriceSync/internal/model"
	"PriceSync/internal/repository"
	"PriceSync/internal/utils/textnorm"

	"github.com/sirupsen/logrus"
)

// RetailerService 超市注册与查询
type RetailerService struct {
	store  *repository.Store
	logger *logrus.Logger
}

func NewRetailerService(store *repository.Store, logger *logrus.Logger) *RetailerService {
	return &RetailerService{store: store, logger: logger}
}

// RetailerInput 新建超市参数
type RetailerInput struct {
	Name       string  `json:"name"`
	WebsiteURL *string `json:"websiteUrl"`
	LogoURL    *string `json:"logoUrl"`
	ChainGroup *string `json:"chainGroup"`
	Location   string  `json:"location"`
}

// EnsureRetailers 按配置确保超市存在，已存在的保持不变
func (s *RetailerService) EnsureRetailers(ctx context.Context, list []config.RetailerConfig) ([]*model.Supermarket, error) {
	// 先校验全部 slug，不同名称生成相同 slug 时整体拒绝，避免两个超市共用一行
	slugs := make([]string, len(list))
	seen := make(map[string]bool, len(list))
	ve := &model.ValidationError{}
	for i, rc := range list {
		slug := rc.ResolvedSlug()
		field := fmt.Sprintf("retailers[%d].slug", i)
		switch {
		case slug == "" || slug != textnorm.Slugify(slug):
			ve.Add(field, "must be a lowercase hyphenated slug")
		case seen[slug]:
			ve.Add(field, "duplicate slug "+slug)
		}
		seen[slug] = true
		slugs[i] = slug
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	out := make([]*model.Supermarket, 0, len(list))
	for i, rc := range list {
		slug := slugs[i]
		existing, err := s.store.Supermarkets.GetBySlug(ctx, slug)
		if err != nil {
			return nil, fmt.Errorf("查询超市失败 %s: %w", slug, err)
		}
		if existing != nil {
			out = append(out, existing)
			continue
		}
		sm, err := s.create(ctx, slug, RetailerInput{
			Name:       rc.Name,
			WebsiteURL: optional(rc.WebsiteURL),
			LogoURL:    optional(rc.LogoURL),
			ChainGroup: optional(rc.ChainGroup),
			Location:   rc.Location,
		})
		if err != nil {
			return nil, err
		}
		s.logger.WithFields(logrus.Fields{"slug": sm.Slug, "id": sm.ID}).Info("已注册超市")
		out = append(out, sm)
	}
	return out, nil
}

// Create 新建超市，slug 由名称生成
func (s *RetailerService) Create(ctx context.Context, in RetailerInput) (*model.Supermarket, error) {
	ve := &model.ValidationError{}
	if strings.TrimSpace(in.Name) == "" {
		ve.Add("name", "must not be empty")
	}
	slug := textnorm.Slugify(in.Name)
	if slug == "" && len(ve.Fields) == 0 {
		ve.Add("name", "cannot derive slug")
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	return s.create(ctx, slug, in)
}

func (s *RetailerService) create(ctx context.Context, slug string, in RetailerInput) (*model.Supermarket, error) {
	location := strings.TrimSpace(in.Location)
	if location == "" {
		location = model.DefaultLocation
	}
	sm := &model.Supermarket{
		Name:       strings.TrimSpace(in.Name),
		Slug:       slug,
		WebsiteURL: in.WebsiteURL,
		LogoURL:    in.LogoURL,
		ChainGroup: in.ChainGroup,
		Location:   location,
		IsActive:   true,
	}
	if err := s.store.Supermarkets.Create(ctx, sm); err != nil {
		return nil, fmt.Errorf("创建超市失败 %s: %w", slug, err)
	}
	return sm, nil
}

func (s *RetailerService) List(ctx context.Context, activeOnly bool) ([]*model.Supermarket, error) {
	return s.store.Supermarkets.List(ctx, activeOnly)
}

func (s *RetailerService) Get(ctx context.Context, id uint64) (*model.Supermarket, error) {
	sm, err := s.store.Supermarkets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sm == nil {
		return nil, fmt.Errorf("超市 %d: %w", id, model.ErrNotFound)
	}
	return sm, nil
}

func (s *RetailerService) GetBySlug(ctx context.Context, slug string) (*model.Supermarket, error) {
	sm, err := s.store.Supermarkets.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if sm == nil {
		return nil, fmt.Errorf("超市 %s: %w", slug, model.ErrNotFound)
	}
	return sm, nil
}

func (s *RetailerService) ListByChainGroup(ctx context.Context, group string) ([]*model.Supermarket, error) {
	return s.store.Supermarkets.ListByChainGroup(ctx, group)
}

func (s *RetailerService) Count(ctx context.Context, activeOnly bool) (int64, error) {
	return s.store.Supermarkets.Count(ctx, activeOnly)
}

// Update 修改超市信息，slug 仅在显式要求时按名称重新生成
func (s *RetailerService) Update(ctx context.Context, id uint64, patch model.SupermarketPatch) (*model.Supermarket, error) {
	sm, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, &model.ValidationError{Fields: []model.FieldError{{Field: "name", Message: "must not be empty"}}}
		}
		sm.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.RegenerateSlug {
		slug := textnorm.Slugify(sm.Name)
		if slug == "" {
			return nil, &model.ValidationError{Fields: []model.FieldError{{Field: "name", Message: "cannot derive slug"}}}
		}
		sm.Slug = slug
	}
	if patch.WebsiteURL != nil {
		sm.WebsiteURL = patch.WebsiteURL
	}
	if patch.LogoURL != nil {
		sm.LogoURL = patch.LogoURL
	}
	if patch.ChainGroup != nil {
		sm.ChainGroup = patch.ChainGroup
	}
	if patch.Location != nil {
		sm.Location = *patch.Location
	}
	if patch.IsActive != nil {
		sm.IsActive = *patch.IsActive
	}
	if err := s.store.Supermarkets.Save(ctx, sm); err != nil {
		return nil, fmt.Errorf("更新超市失败 %d: %w", id, err)
	}
	return sm, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
