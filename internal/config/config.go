package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultFeedListenAddr    = "127.0.0.1:3001"
	defaultWebListenAddr     = "127.0.0.1:3000"
	defaultRefreshDebounceMS = 500
	defaultCatalogFile       = "content/posts.json"
	defaultPublicDir         = "public"
	defaultEpisodesSubdir    = "episodes"

	// Item links and enclosures always use https, whatever scheme the feed
	// request arrived on. Set site_base_url to override.
	defaultSiteBaseURL     = "https://socialmediaclarity.net"
	defaultFeedTitle       = "The Social Media Clarity Podcast"
	defaultFeedDescription = "15 minutes of concentrated analysis and advice about social media in platform and product design."
	defaultFeedLanguage    = "en"
	defaultFeedTTL         = 60
	defaultFeedAuthor      = "Randy Farmer, Scott Moore, Marc Smith"
	defaultFeedCategory    = "Technology"
	defaultOwnerName       = "Randy Farmer"
	defaultOwnerEmail      = "randy.farmer@pobox.com"

	defaultSiteShortTitle = "Social Media Clarity Podcast"
	defaultSiteTagline    = "15 minutes of concentrated analysis and advice about social media in platform and product design"
	defaultSiteHostedBy   = "Randy Farmer, Scott Moore, and Marc Smith"
)

// ResolveCatalogFile returns the absolute path of the episode catalog. The file
// itself is not required to exist; a missing catalog simply renders as empty.
func ResolveCatalogFile() (string, error) {
	return resolvePath(os.Getenv("PODCAST_CATALOG_FILE"), defaultCatalogFile)
}

// ResolvePublicDir returns the directory served as static assets by the web process.
func ResolvePublicDir() (string, error) {
	return resolvePath(os.Getenv("PODCAST_PUBLIC_DIR"), defaultPublicDir)
}

// ResolveEpisodesDir returns the directory holding pre-rendered episode pages.
// It defaults to the episodes folder inside the public directory.
func ResolveEpisodesDir(publicDir string) (string, error) {
	value := strings.TrimSpace(os.Getenv("PODCAST_EPISODES_DIR"))
	if value == "" {
		return filepath.Join(publicDir, defaultEpisodesSubdir), nil
	}
	return resolvePath(value, "")
}

func resolvePath(value, fallback string) (string, error) {
	path := strings.TrimSpace(value)
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		path = filepath.Join(cwd, fallback)
	}
	return expandHome(path)
}

// FeedListenAddr returns the TCP address for the feed process.
func FeedListenAddr() string {
	return listenAddr("PODCAST_FEED_LISTEN_ADDR", defaultFeedListenAddr)
}

// WebListenAddr returns the TCP address for the web process.
func WebListenAddr() string {
	return listenAddr("PODCAST_WEB_LISTEN_ADDR", defaultWebListenAddr)
}

func listenAddr(key, fallback string) string {
	addr := strings.TrimSpace(os.Getenv(key))
	if addr == "" {
		return fallback
	}
	return addr
}

// RefreshDebounce returns the duration to wait before re-validating the
// catalog after file-system change events.
func RefreshDebounce() time.Duration {
	value := strings.TrimSpace(os.Getenv("PODCAST_REFRESH_DEBOUNCE_MS"))
	if value == "" {
		return time.Duration(defaultRefreshDebounceMS) * time.Millisecond
	}

	ms, err := strconv.Atoi(value)
	if err != nil || ms < 0 {
		return time.Duration(defaultRefreshDebounceMS) * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}

// ValidateListenAddr ensures the configured listen address is restricted to localhost.
// Both processes are meant to sit behind a reverse proxy.
func ValidateListenAddr(addr string) error {
	addr = strings.TrimSpace(strings.ToLower(addr))
	if strings.HasPrefix(addr, "127.0.0.1:") || strings.HasPrefix(addr, "localhost:") || strings.HasPrefix(addr, "[::1]:") {
		return nil
	}
	return errors.New("listen address must bind to localhost for security")
}

// FeedMetadata holds the channel-level values of the podcast feed.
type FeedMetadata struct {
	SiteBaseURL    string
	Title          string
	Description    string
	Language       string
	TTL            int
	ITunesAuthor   string
	ITunesSummary  string
	ITunesCategory string
	ITunesImageURL string
	OwnerName      string
	OwnerEmail     string
}

// SiteMetadata holds the fixed header and footer text of the HTML pages.
type SiteMetadata struct {
	Title      string
	ShortTitle string
	Tagline    string
	HostedBy   string
}

type ownerYAML struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

type siteYAML struct {
	ShortTitle string `yaml:"short_title"`
	Tagline    string `yaml:"tagline"`
	HostedBy   string `yaml:"hosted_by"`
}

type metadataYAML struct {
	SiteBaseURL string    `yaml:"site_base_url"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Language    string    `yaml:"language"`
	TTL         int       `yaml:"ttl"`
	Author      string    `yaml:"author"`
	Summary     string    `yaml:"summary"`
	Category    string    `yaml:"category"`
	ImageURL    string    `yaml:"image_url"`
	Owner       ownerYAML `yaml:"owner"`
	Site        siteYAML  `yaml:"site"`
}

// ResolveFeedMetadata returns the podcast feed metadata after applying defaults,
// YAML configuration (when enabled), and environment variable overrides.
func ResolveFeedMetadata() (FeedMetadata, error) {
	meta := FeedMetadata{
		SiteBaseURL:    defaultSiteBaseURL,
		Title:          defaultFeedTitle,
		Description:    defaultFeedDescription,
		Language:       defaultFeedLanguage,
		TTL:            defaultFeedTTL,
		ITunesAuthor:   defaultFeedAuthor,
		ITunesCategory: defaultFeedCategory,
		OwnerName:      defaultOwnerName,
		OwnerEmail:     defaultOwnerEmail,
	}

	file, err := readMetadataFile()
	if err != nil {
		return FeedMetadata{}, err
	}
	if file != nil {
		overlay(&meta.SiteBaseURL, file.SiteBaseURL)
		overlay(&meta.Title, file.Title)
		overlay(&meta.Description, file.Description)
		overlay(&meta.Language, file.Language)
		overlay(&meta.ITunesAuthor, file.Author)
		overlay(&meta.ITunesSummary, file.Summary)
		overlay(&meta.ITunesCategory, file.Category)
		overlay(&meta.ITunesImageURL, file.ImageURL)
		overlay(&meta.OwnerName, file.Owner.Name)
		overlay(&meta.OwnerEmail, file.Owner.Email)
		if file.TTL > 0 {
			meta.TTL = file.TTL
		}
	}

	overlay(&meta.SiteBaseURL, os.Getenv("PODCAST_SITE_BASE_URL"))
	overlay(&meta.Title, os.Getenv("PODCAST_FEED_TITLE"))
	overlay(&meta.Description, os.Getenv("PODCAST_FEED_DESCRIPTION"))
	overlay(&meta.Language, os.Getenv("PODCAST_FEED_LANGUAGE"))
	overlay(&meta.ITunesAuthor, os.Getenv("PODCAST_FEED_AUTHOR"))
	overlay(&meta.ITunesCategory, os.Getenv("PODCAST_FEED_CATEGORY"))
	overlay(&meta.ITunesImageURL, os.Getenv("PODCAST_FEED_IMAGE_URL"))
	overlay(&meta.OwnerName, os.Getenv("PODCAST_FEED_OWNER_NAME"))
	overlay(&meta.OwnerEmail, os.Getenv("PODCAST_FEED_OWNER_EMAIL"))

	meta.SiteBaseURL = strings.TrimRight(meta.SiteBaseURL, "/")
	if meta.ITunesSummary == "" {
		meta.ITunesSummary = meta.Description
	}
	if meta.ITunesImageURL == "" {
		meta.ITunesImageURL = meta.SiteBaseURL + "/icon.jpg"
	}

	return meta, nil
}

// ResolveSiteMetadata returns the page header/footer text. The title is shared
// with the feed so both processes agree on the show name.
func ResolveSiteMetadata() (SiteMetadata, error) {
	feed, err := ResolveFeedMetadata()
	if err != nil {
		return SiteMetadata{}, err
	}

	meta := SiteMetadata{
		Title:      feed.Title,
		ShortTitle: defaultSiteShortTitle,
		Tagline:    defaultSiteTagline,
		HostedBy:   defaultSiteHostedBy,
	}

	file, err := readMetadataFile()
	if err != nil {
		return SiteMetadata{}, err
	}
	if file != nil {
		overlay(&meta.ShortTitle, file.Site.ShortTitle)
		overlay(&meta.Tagline, file.Site.Tagline)
		overlay(&meta.HostedBy, file.Site.HostedBy)
	}

	overlay(&meta.Tagline, os.Getenv("PODCAST_SITE_TAGLINE"))
	overlay(&meta.HostedBy, os.Getenv("PODCAST_SITE_HOSTED_BY"))

	return meta, nil
}

func readMetadataFile() (*metadataYAML, error) {
	configPath := strings.TrimSpace(os.Getenv("PODCAST_FEED_CONFIG"))
	if configPath == "" {
		return nil, nil
	}

	resolved, err := expandHome(configPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, err
	}

	var file metadataYAML
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

func overlay(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

func expandHome(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	return filepath.Abs(path)
}
