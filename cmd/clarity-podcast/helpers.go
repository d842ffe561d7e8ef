package main

import (
	"fmt"

	"github.com/charmbracelet/log"

	"clarity-podcast/internal/catalog"
	"clarity-podcast/internal/config"
	"clarity-podcast/internal/feed"
	"clarity-podcast/internal/pages"
)

func openStore(logger *log.Logger) (*catalog.Store, error) {
	path, err := config.ResolveCatalogFile()
	if err != nil {
		return nil, fmt.Errorf("resolve catalog file: %w", err)
	}
	return catalog.NewStore(path, logger), nil
}

func newFeedRenderer(logger *log.Logger) (*feed.Renderer, error) {
	meta, err := config.ResolveFeedMetadata()
	if err != nil {
		return nil, fmt.Errorf("resolve feed metadata: %w", err)
	}

	return feed.New(feed.Config{
		SiteBaseURL:    meta.SiteBaseURL,
		Title:          meta.Title,
		Description:    meta.Description,
		Language:       meta.Language,
		TTL:            meta.TTL,
		ITunesAuthor:   meta.ITunesAuthor,
		ITunesSummary:  meta.ITunesSummary,
		ITunesCategory: meta.ITunesCategory,
		ITunesImageURL: meta.ITunesImageURL,
		ITunesOwner: feed.Owner{
			Name:  meta.OwnerName,
			Email: meta.OwnerEmail,
		},
	}, logger), nil
}

// newPageRenderer also returns the public directory the pages are served
// next to.
func newPageRenderer(logger *log.Logger) (*pages.Renderer, string, error) {
	publicDir, err := config.ResolvePublicDir()
	if err != nil {
		return nil, "", fmt.Errorf("resolve public dir: %w", err)
	}
	episodesDir, err := config.ResolveEpisodesDir(publicDir)
	if err != nil {
		return nil, "", fmt.Errorf("resolve episodes dir: %w", err)
	}
	site, err := config.ResolveSiteMetadata()
	if err != nil {
		return nil, "", fmt.Errorf("resolve site metadata: %w", err)
	}

	renderer, err := pages.New(pages.Config{
		EpisodesDir: episodesDir,
		Title:       site.Title,
		ShortTitle:  site.ShortTitle,
		Tagline:     site.Tagline,
		HostedBy:    site.HostedBy,
		FeedPath:    feed.FeedPath,
	}, logger)
	if err != nil {
		return nil, "", err
	}
	return renderer, publicDir, nil
}
