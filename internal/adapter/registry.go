package adapter

import (
	"fmt"
	"sort"

	"PriceSync/internal/config"
	"PriceSync/internal/interfaces"
	"PriceSync/internal/model"

	"github.com/sirupsen/logrus"
)

// FeedRegistry 按超市 slug 管理数据源适配器实例
type FeedRegistry struct {
	logger   *logrus.Logger
	adapters map[string]interfaces.FeedAdapter
}

// NewFeedRegistry 按配置为每个配置了数据源的超市创建适配器
func NewFeedRegistry(retailers []config.RetailerConfig, factories map[string]Factory, logger *logrus.Logger) (*FeedRegistry, error) {
	r := &FeedRegistry{
		logger:   logger,
		adapters: make(map[string]interfaces.FeedAdapter),
	}
	for i := range retailers {
		rc := retailers[i]
		if rc.Feed.Type == "" {
			continue
		}
		slug := rc.ResolvedSlug()
		factory, ok := factories[rc.Feed.Type]
		if !ok {
			return nil, fmt.Errorf("%s: 未支持的数据源类型 %s", slug, rc.Feed.Type)
		}
		feedCfg := rc.Feed
		ad, err := factory(slug, &feedCfg, logger)
		if err != nil {
			return nil, err
		}
		r.adapters[slug] = ad
		logger.WithFields(logrus.Fields{"slug": slug, "adapter": ad.GetName()}).Info("数据源适配器初始化成功")
	}
	return r, nil
}

// Register 手动注册适配器（测试或动态数据源）
func (r *FeedRegistry) Register(slug string, ad interfaces.FeedAdapter) {
	r.adapters[slug] = ad
}

// GetAdapter 获取超市对应的适配器
func (r *FeedRegistry) GetAdapter(slug string) (interfaces.FeedAdapter, error) {
	ad, ok := r.adapters[slug]
	if !ok {
		return nil, fmt.Errorf("超市%s未配置数据源: %w", slug, model.ErrNotFound)
	}
	return ad, nil
}

// ListRegistered 已配置数据源的超市 slug
func (r *FeedRegistry) ListRegistered() []string {
	out := make([]string, 0, len(r.adapters))
	for slug := range r.adapters {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}
