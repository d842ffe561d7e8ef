// Package feed renders the podcast catalog as an RSS 2.0 document carrying the
// iTunes podcast extensions.
package feed

import (
	"encoding/xml"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"clarity-podcast/internal/models"
)

const (
	itunesNS = "http://www.itunes.com/dtds/podcast-1.0.dtd"
	atomNS   = "http://www.w3.org/2005/Atom"
	dcNS     = "http://purl.org/dc/elements/1.1/"

	// FeedPath is where the feed process serves the document; the self link
	// always points here.
	FeedPath = "/feed.xml"

	enclosureType  = "audio/mpeg"
	subtitleLength = 100
	rfc822GMT      = "Mon, 02 Jan 2006 15:04:05 GMT"
)

// Owner is the contact published in itunes:owner.
type Owner struct {
	Name  string
	Email string
}

// Config holds the channel-level metadata. SiteBaseURL prefixes every item
// link and enclosure; the feed's own URL comes from the request instead.
type Config struct {
	SiteBaseURL    string
	Title          string
	Description    string
	Language       string
	TTL            int
	ITunesAuthor   string
	ITunesSummary  string
	ITunesCategory string
	ITunesImageURL string
	ITunesOwner    Owner
}

// Renderer turns episodes into feed XML.
type Renderer struct {
	cfg    Config
	logger *log.Logger
	now    func() time.Time
}

// New returns a Renderer for cfg.
func New(cfg Config, logger *log.Logger) *Renderer {
	if logger == nil {
		logger = log.Default()
	}
	cfg.SiteBaseURL = strings.TrimRight(cfg.SiteBaseURL, "/")
	if cfg.ITunesSummary == "" {
		cfg.ITunesSummary = cfg.Description
	}
	return &Renderer{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Render builds the feed document. scheme and host describe the request that
// asked for the feed and only affect the atom self link. Items keep the order
// of episodes.
func (r *Renderer) Render(episodes []models.Episode, scheme, host string) ([]byte, error) {
	self := url.URL{Scheme: scheme, Host: host, Path: FeedPath}
	built := r.now().UTC().Format(rfc822GMT)

	rss := rssFeed{
		Version:  "2.0",
		DCNS:     dcNS,
		AtomNS:   atomNS,
		ITunesNS: itunesNS,
		Channel: rssChannel{
			Title:         r.cfg.Title,
			Description:   newCDATA(r.cfg.Description),
			Link:          r.cfg.SiteBaseURL,
			Generator:     "clarity-podcast",
			LastBuildDate: built,
			AtomLink: rssAtomLink{
				Href: self.String(),
				Rel:  "self",
				Type: "application/rss+xml",
			},
			PubDate:        built,
			Language:       r.cfg.Language,
			TTL:            r.cfg.TTL,
			ITunesAuthor:   r.cfg.ITunesAuthor,
			ITunesSummary:  r.cfg.ITunesSummary,
			ITunesCategory: rssITunesCategory{Text: r.cfg.ITunesCategory},
			ITunesImage:    rssITunesImage{Href: r.cfg.ITunesImageURL},
			ITunesExplicit: "false",
			ITunesOwner: rssITunesOwner{
				Name:  r.cfg.ITunesOwner.Name,
				Email: r.cfg.ITunesOwner.Email,
			},
			Items: make([]rssItem, 0, len(episodes)),
		},
	}

	for _, ep := range episodes {
		link := r.siteURL(ep.URL)
		item := rssItem{
			Title:       ep.Title,
			Description: newCDATA(ep.Description),
			Link:        link,
			GUID:        rssGUID{IsPermaLink: "true", Value: link},
			Categories:  ep.Categories,
			Creator:     ep.Author,
			Enclosure: rssEnclosure{
				URL:    r.siteURL(ep.AudioURL),
				Length: strconv.FormatInt(ep.FileSize, 10),
				Type:   enclosureType,
			},
			ITunesDuration: ep.Duration,
			ITunesExplicit: "false",
			ITunesSubtitle: Subtitle(ep.Description),
		}

		if published, ok := ParsePubDate(ep.PubDate); ok {
			item.PubDate = published.UTC().Format(rfc822GMT)
		} else {
			r.logger.Warn("unparseable episode pubDate; omitting", "id", ep.ID, "pubDate", ep.PubDate)
		}

		rss.Channel.Items = append(rss.Channel.Items, item)
	}

	output, err := xml.MarshalIndent(rss, "", "  ")
	if err != nil {
		return nil, err
	}

	return append([]byte(xml.Header), output...), nil
}

func (r *Renderer) siteURL(relative string) string {
	if relative == "" {
		return r.cfg.SiteBaseURL
	}
	if strings.HasPrefix(relative, "/") {
		return r.cfg.SiteBaseURL + relative
	}
	return r.cfg.SiteBaseURL + "/" + relative
}

// Subtitle is the itunes:subtitle for a description: its first 100
// characters followed by "...". The ellipsis is appended even when nothing
// was cut. Characters are counted as runes, so an emoji counts once.
func Subtitle(description string) string {
	runes := []rune(description)
	if len(runes) > subtitleLength {
		runes = runes[:subtitleLength]
	}
	return string(runes) + "..."
}

var pubDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006/01/02",
}

// ParsePubDate accepts the date spellings that show up in the catalog. Values
// without a zone are read as UTC.
func ParsePubDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type cdata struct {
	Value string `xml:",cdata"`
}

// newCDATA wraps s for a CDATA section. encoding/xml writes CDATA content
// unchecked, so runes XML 1.0 forbids are replaced with U+FFFD, as
// xml.EscapeText does for character data.
func newCDATA(s string) cdata {
	return cdata{Value: strings.Map(func(r rune) rune {
		if isXMLChar(r) {
			return r
		}
		return utf8.RuneError
	}, s)}
}

func isXMLChar(r rune) bool {
	return r == 0x09 ||
		r == 0x0A ||
		r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}

type rssFeed struct {
	XMLName  xml.Name   `xml:"rss"`
	Version  string     `xml:"version,attr"`
	DCNS     string     `xml:"xmlns:dc,attr"`
	AtomNS   string     `xml:"xmlns:atom,attr"`
	ITunesNS string     `xml:"xmlns:itunes,attr"`
	Channel  rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title          string            `xml:"title"`
	Description    cdata             `xml:"description"`
	Link           string            `xml:"link"`
	Generator      string            `xml:"generator"`
	LastBuildDate  string            `xml:"lastBuildDate"`
	AtomLink       rssAtomLink       `xml:"atom:link"`
	PubDate        string            `xml:"pubDate"`
	Language       string            `xml:"language,omitempty"`
	TTL            int               `xml:"ttl,omitempty"`
	ITunesAuthor   string            `xml:"itunes:author,omitempty"`
	ITunesSummary  string            `xml:"itunes:summary,omitempty"`
	ITunesCategory rssITunesCategory `xml:"itunes:category"`
	ITunesImage    rssITunesImage    `xml:"itunes:image"`
	ITunesExplicit string            `xml:"itunes:explicit"`
	ITunesOwner    rssITunesOwner    `xml:"itunes:owner"`
	Items          []rssItem         `xml:"item"`
}

type rssAtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssITunesCategory struct {
	Text string `xml:"text,attr"`
}

type rssITunesImage struct {
	Href string `xml:"href,attr"`
}

type rssITunesOwner struct {
	Name  string `xml:"itunes:name"`
	Email string `xml:"itunes:email"`
}

type rssItem struct {
	Title          string       `xml:"title"`
	Description    cdata        `xml:"description"`
	Link           string       `xml:"link"`
	GUID           rssGUID      `xml:"guid"`
	Categories     []string     `xml:"category"`
	Creator        string       `xml:"dc:creator,omitempty"`
	PubDate        string       `xml:"pubDate,omitempty"`
	Enclosure      rssEnclosure `xml:"enclosure"`
	ITunesDuration string       `xml:"itunes:duration"`
	ITunesExplicit string       `xml:"itunes:explicit"`
	ITunesSubtitle string       `xml:"itunes:subtitle"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length string `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}
