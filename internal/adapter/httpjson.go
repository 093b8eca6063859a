package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"PriceSync/internal/config"
	"PriceSync/internal/interfaces"
	"PriceSync/internal/model"
	"PriceSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// 分页数据源最多跟随的页数
const maxFeedPages = 100

// HTTPJSONAdapter 拉取 HTTP JSON 数据源，支持 next 分页
type HTTPJSONAdapter struct {
	slug    string
	cfg     *config.FeedConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

func NewHTTPJSONAdapter(slug string, cfg *config.FeedConfig, logger *logrus.Logger) (interfaces.FeedAdapter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%s: http 数据源缺少 url", slug)
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("%s: url 非法: %w", slug, err)
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &HTTPJSONAdapter{
		slug:    slug,
		cfg:     cfg,
		client:  httpclient.NewHTTPClient(cfg, logger),
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}, nil
}

func (a *HTTPJSONAdapter) GetName() string { return "http:" + a.slug }

func (a *HTTPJSONAdapter) FetchProducts(ctx context.Context) ([]*model.ScrapedProduct, error) {
	var out []*model.ScrapedProduct
	next := a.cfg.URL
	for page := 0; next != "" && page < maxFeedPages; page++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		fp, err := a.fetchPage(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("%s 第%d页: %w", a.slug, page+1, err)
		}
		out = append(out, toScraped(a.slug, fp.Items, a.logger)...)
		next, err = a.resolve(next, fp.Next)
		if err != nil {
			return nil, err
		}
	}
	a.logger.WithFields(logrus.Fields{"slug": a.slug, "count": len(out)}).Info("拉取HTTP数据源完成")
	return out, nil
}

func (a *HTTPJSONAdapter) fetchPage(ctx context.Context, target string) (*feedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if a.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.AuthToken)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("响应状态异常: %d", resp.StatusCode)
	}
	return decodeFeed(body)
}

// resolve next 可以是相对地址
func (a *HTTPJSONAdapter) resolve(current, next string) (string, error) {
	if next == "" {
		return "", nil
	}
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", fmt.Errorf("next 地址非法 %q: %w", next, err)
	}
	return base.ResolveReference(ref).String(), nil
}
