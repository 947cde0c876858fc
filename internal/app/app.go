// Package app wires the pipeline together: cache lookup, API fetch,
// title resolution, media download and Markdown rendering.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ximport/internal/cache"
	"ximport/internal/client"
	"ximport/internal/config"
	"ximport/internal/markdown"
	"ximport/internal/media"
	"ximport/internal/resolver"
	"ximport/internal/types"
)

// App runs the export pipeline.
type App struct {
	cfg      *config.Config
	log      *zap.Logger
	client   *client.Client
	cache    *cache.Store
	resolver *resolver.Resolver
	media    *media.Downloader
}

// New builds an App from validated configuration.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:      cfg,
		log:      log,
		client:   client.New(cfg.API, log),
		cache:    cache.New(cfg.CacheDir(), loc, log),
		resolver: resolver.New(log),
		media:    media.New(cfg.OutputPath(), log),
	}, nil
}

// RunOptions selects what a single run covers.
type RunOptions struct {
	Period  types.Period
	Refresh bool // bypass the cache and refetch
}

// Run exports the period's posts as per-day Markdown documents and
// returns the written file paths.
func (a *App) Run(ctx context.Context, opts RunOptions) ([]string, error) {
	a.log.Info("export starting",
		zap.Time("start", opts.Period.Start),
		zap.Time("end", opts.Period.End),
		zap.Bool("refresh", opts.Refresh))

	me, err := a.client.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("identify user: %w", err)
	}
	a.log.Debug("authenticated", zap.String("username", me.Username))

	var result *types.FetchResult
	if !opts.Refresh {
		result, err = a.cache.Load(opts.Period)
		if err != nil {
			return nil, fmt.Errorf("load cache: %w", err)
		}
		if result != nil {
			a.log.Info("cache hit", zap.Int("posts", len(result.Tweets)))
		}
	}

	if result == nil {
		result, err = a.client.FetchUserTweets(ctx, me.ID, opts.Period)
		if err != nil {
			return nil, fmt.Errorf("fetch posts: %w", err)
		}
		if len(result.Tweets) > 0 {
			if _, err := a.cache.Save(result); err != nil {
				a.log.Warn("cache save failed", zap.Error(err))
			}
		}
	}

	if len(result.Tweets) == 0 {
		a.log.Info("no posts in period")
		return nil, nil
	}

	a.resolver.ResolveTitles(result.Tweets)

	extra, err := a.client.FetchMissingMedia(ctx, result)
	if err != nil {
		a.log.Warn("media backfill failed", zap.Error(err))
	} else if extra > 0 {
		a.log.Debug("media metadata backfilled", zap.Int("requests", extra))
	}

	// Persist resolved titles and backfilled media for future runs.
	if _, err := a.cache.Save(result); err != nil {
		a.log.Warn("cache save failed", zap.Error(err))
	}

	mediaMap, err := a.media.Download(ctx, result.Tweets, result.Includes)
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}

	loc, err := a.cfg.Location()
	if err != nil {
		return nil, err
	}
	assembler := markdown.New(markdown.Options{
		OutputDir:      a.cfg.OutputPath(),
		Username:       me.Username,
		Location:       loc,
		HeadingFormat:  a.cfg.Format.Heading,
		FilenameFormat: a.cfg.Format.Filename,
		CostPerRead:    a.cfg.API.CostPerRead,
	}, a.log)

	paths, err := assembler.WriteFiles(result, mediaMap)
	if err != nil {
		return nil, fmt.Errorf("write markdown: %w", err)
	}

	if !result.FromCache && result.RequestCount > 0 {
		a.log.Info("api usage",
			zap.Int("requests", result.RequestCount),
			zap.Int("posts", len(result.Tweets)),
			zap.String("estimated_cost", fmt.Sprintf("$%.3f", float64(len(result.Tweets))*a.cfg.API.CostPerRead)))
	}
	a.log.Info("export finished", zap.Int("files", len(paths)), zap.Strings("paths", paths))
	return paths, nil
}
