// Package instagram fetches recent media through the Graph API's
// business discovery endpoint.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/renolink/renolink/internal/config"
	contentdomain "github.com/renolink/renolink/internal/content/domain"
	"go.uber.org/zap"
)

const (
	requestTimeout  = 10 * time.Second
	mediaTimeLayout = "2006-01-02T15:04:05-0700"
)

type Client struct {
	http *resty.Client
	log  *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Instagram.BaseURL, "/")).
		SetTimeout(requestTimeout).
		SetQueryParam("access_token", cfg.Instagram.AccessToken)
	return &Client{
		http: client,
		log:  log.Named("content.instagram"),
	}
}

type discoveryResponse struct {
	BusinessDiscovery struct {
		Media struct {
			Data []mediaItem `json:"data"`
		} `json:"media"`
	} `json:"business_discovery"`
	Error *apiError `json:"error"`
}

type mediaItem struct {
	ID           string `json:"id"`
	Caption      string `json:"caption"`
	MediaType    string `json:"media_type"`
	MediaURL     string `json:"media_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Permalink    string `json:"permalink"`
	Timestamp    string `json:"timestamp"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// FetchRecent pulls up to limit posts for the handle. Every failure is
// reported as upstream-unavailable so the caller can fall back to
// stale cache content.
func (c *Client) FetchRecent(ctx context.Context, handle string, limit int) ([]contentdomain.FetchedPost, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return nil, contentdomain.ErrNoHandle
	}
	if limit <= 0 {
		limit = 50
	}

	fields := fmt.Sprintf(
		"business_discovery.username(%s){media.limit(%d){id,caption,media_type,media_url,thumbnail_url,permalink,timestamp}}",
		handle, limit,
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("fields", fields).
		Get("/me")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contentdomain.ErrUpstreamUnavailable, err)
	}

	var out discoveryResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", contentdomain.ErrUpstreamUnavailable, err)
	}
	if resp.IsError() || out.Error != nil {
		message := "status " + resp.Status()
		if out.Error != nil {
			message = out.Error.Message
		}
		c.log.Warn("media fetch failed",
			zap.String("handle", handle),
			zap.Int("status", resp.StatusCode()),
		)
		return nil, fmt.Errorf("%w: %s", contentdomain.ErrUpstreamUnavailable, message)
	}

	items := out.BusinessDiscovery.Media.Data
	posts := make([]contentdomain.FetchedPost, 0, len(items))
	for _, item := range items {
		if item.Permalink == "" || item.MediaURL == "" {
			continue
		}
		posts = append(posts, contentdomain.FetchedPost{
			MediaID:      item.ID,
			MediaType:    item.MediaType,
			Caption:      item.Caption,
			MediaURL:     item.MediaURL,
			ThumbnailURL: item.ThumbnailURL,
			Permalink:    item.Permalink,
			PostedAt:     parseMediaTime(item.Timestamp),
		})
	}
	return posts, nil
}

func parseMediaTime(value string) time.Time {
	ts, err := time.Parse(mediaTimeLayout, value)
	if err != nil {
		return time.Now().UTC()
	}
	return ts.UTC()
}
