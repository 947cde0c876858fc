// Package client talks to the X API v2 with OAuth 1.0a user context. It
// fetches the authenticated user's posts for a period, following
// pagination and accumulating the includes side-table without duplicates.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"go.uber.org/zap"

	"ximport/internal/config"
	"ximport/internal/types"
)

const (
	defaultBaseURL = "https://api.x.com/2"
	pageSize       = 100
	batchSize      = 100
)

var (
	tweetFields = strings.Join([]string{
		"created_at", "public_metrics", "entities", "referenced_tweets",
		"author_id", "attachments", "note_tweet", "article",
	}, ",")
	expansions = strings.Join([]string{
		"referenced_tweets.id", "referenced_tweets.id.author_id",
		"attachments.media_keys", "article.cover_media", "article.media_entities",
	}, ",")
	mediaFields = strings.Join([]string{
		"url", "type", "variants", "preview_image_url",
	}, ",")
)

// UserInfo identifies the authenticated user.
type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Client is an X API v2 client.
type Client struct {
	httpc   *http.Client
	baseURL string
	log     *zap.Logger
}

// New creates a Client signing requests with the given credentials.
func New(cfg config.APIConfig, log *zap.Logger) *Client {
	oaConfig := oauth1.NewConfig(cfg.Key, cfg.Secret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret)
	httpc := oaConfig.Client(oauth1.NoContext, token)
	httpc.Timeout = 30 * time.Second

	return &Client{httpc: httpc, baseURL: defaultBaseURL, log: log}
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

type meResponse struct {
	Data *UserInfo `json:"data"`
}

type tweetsResponse struct {
	Data     []types.Post   `json:"data"`
	Includes types.Includes `json:"includes"`
	Meta     struct {
		NextToken string `json:"next_token"`
	} `json:"meta"`
	Errors []apiError `json:"errors"`
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*UserInfo, error) {
	var resp meResponse
	if err := c.get(ctx, "/users/me", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("no user data in /users/me response")
	}
	return resp.Data, nil
}

// FetchUserTweets fetches the user's posts within the half-open period,
// following pagination. Includes from all pages are merged without
// duplication.
func (c *Client) FetchUserTweets(ctx context.Context, userID string, p types.Period) (*types.FetchResult, error) {
	result := &types.FetchResult{}
	paginationToken := ""

	for {
		params := url.Values{}
		params.Set("start_time", p.Start.UTC().Format(time.RFC3339))
		params.Set("end_time", p.End.UTC().Format(time.RFC3339))
		params.Set("max_results", fmt.Sprint(pageSize))
		params.Set("tweet.fields", tweetFields)
		params.Set("expansions", expansions)
		params.Set("media.fields", mediaFields)
		if paginationToken != "" {
			params.Set("pagination_token", paginationToken)
		}

		var page tweetsResponse
		if err := c.get(ctx, "/users/"+userID+"/tweets", params, &page); err != nil {
			return nil, err
		}
		result.RequestCount++

		result.Tweets = append(result.Tweets, page.Data...)
		result.Includes = types.MergeIncludes(result.Includes, page.Includes)

		paginationToken = page.Meta.NextToken
		if paginationToken == "" {
			break
		}
	}

	c.log.Debug("tweets fetched",
		zap.Int("count", len(result.Tweets)),
		zap.Int("requests", result.RequestCount))
	return result, nil
}

// FetchMissingMedia backfills media metadata for referenced posts whose
// attachment keys or article covers are absent from the includes media
// list. Returns the number of extra API requests made.
func (c *Client) FetchMissingMedia(ctx context.Context, result *types.FetchResult) (int, error) {
	have := make(map[string]struct{}, len(result.Includes.Media))
	for _, m := range result.Includes.Media {
		have[m.MediaKey] = struct{}{}
	}

	var missingIDs []string
	seen := make(map[string]struct{})
	for _, ref := range result.Includes.Tweets {
		needed := false
		for _, key := range ref.MediaKeys() {
			if _, ok := have[key]; !ok {
				needed = true
				break
			}
		}
		if !needed && ref.Article != nil && ref.Article.CoverMedia != "" {
			if _, ok := have[ref.Article.CoverMedia]; !ok {
				needed = true
			}
		}
		if !needed {
			continue
		}
		if _, dup := seen[ref.ID]; dup {
			continue
		}
		seen[ref.ID] = struct{}{}
		missingIDs = append(missingIDs, ref.ID)
	}
	if len(missingIDs) == 0 {
		return 0, nil
	}

	requests := 0
	for start := 0; start < len(missingIDs); start += batchSize {
		end := min(start+batchSize, len(missingIDs))

		params := url.Values{}
		params.Set("ids", strings.Join(missingIDs[start:end], ","))
		params.Set("tweet.fields", "attachments,article")
		params.Set("expansions", "attachments.media_keys,article.cover_media")
		params.Set("media.fields", mediaFields)

		var page tweetsResponse
		if err := c.get(ctx, "/tweets", params, &page); err != nil {
			return requests, err
		}
		requests++
		result.Includes = types.MergeIncludes(result.Includes, types.Includes{Media: page.Includes.Media})
	}

	result.RequestCount += requests
	return requests, nil
}
