package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

const (
	// DefaultSearchURL is the YouTube results page.
	DefaultSearchURL = "https://www.youtube.com/results"

	defaultTimeout    = 10 * time.Second
	defaultMaxResults = 3
	maxPageBytes      = 8 << 20

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

var errNoResults = errors.New("no video results in page")

// Options configures a Searcher.
type Options struct {
	// SearchURL overrides DefaultSearchURL.
	SearchURL  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Searcher scrapes the YouTube results page for a query.
type Searcher struct {
	searchURL string
	client    *http.Client
	timeout   time.Duration
	logger    *slog.Logger
}

// NewSearcher returns a Searcher with defaults filled in.
func NewSearcher(opts Options) *Searcher {
	s := &Searcher{
		searchURL: opts.SearchURL,
		client:    opts.HTTPClient,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
	}
	if s.searchURL == "" {
		s.searchURL = DefaultSearchURL
	}
	if s.client == nil {
		s.client = http.DefaultClient
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Search returns up to max videos for query. It never fails: when the page
// cannot be fetched or parsed, templated suggestions pointing at the search
// page are returned instead.
func (s *Searcher) Search(ctx context.Context, query string, max int) []Video {
	if max <= 0 {
		max = defaultMaxResults
	}
	videos, err := s.scrape(ctx, query, max)
	if err != nil {
		s.logger.Warn("video search failed, using suggestions", "query", query, "err", err)
		return Fallback(query, max)
	}
	return videos
}

func (s *Searcher) scrape(ctx context.Context, query string, max int) ([]Video, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	u := s.searchURL + "?search_query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch results page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch results page: HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}
	videos := parseResultsPage(doc, max)
	if len(videos) == 0 {
		return nil, errNoResults
	}
	return videos, nil
}

// parseResultsPage finds the script that assigns ytInitialData and reads
// video renderers out of it. Scripts whose payload is not valid JSON are skipped.
func parseResultsPage(doc *goquery.Document, max int) []Video {
	var videos []Video
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		if !strings.Contains(text, "var ytInitialData") {
			return true
		}
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return true
		}
		payload := text[start : end+1]
		if !gjson.Valid(payload) {
			return true
		}
		videos = extractVideos(gjson.Parse(payload), max)
		return false
	})
	return videos
}

func extractVideos(data gjson.Result, max int) []Video {
	var videos []Video
	sections := data.Get("contents.twoColumnSearchResultsRenderer.primaryContents.sectionListRenderer.contents")
	sections.ForEach(func(_, section gjson.Result) bool {
		section.Get("itemSectionRenderer.contents").ForEach(func(_, item gjson.Result) bool {
			r := item.Get("videoRenderer")
			if !r.Exists() {
				return true
			}
			id := r.Get("videoId").String()
			title := joinRuns(r.Get("title"))
			if id == "" || title == "" {
				return true
			}
			videos = append(videos, Video{
				Title:    title,
				URL:      "https://www.youtube.com/watch?v=" + id,
				Channel:  r.Get("ownerText.runs.0.text").String(),
				Views:    joinRuns(r.Get("viewCountText")),
				Duration: r.Get("lengthText.simpleText").String(),
				Platform: "YouTube",
			})
			return len(videos) < max
		})
		return len(videos) < max
	})
	return videos
}

// joinRuns reads YouTube's text objects, which carry either a "runs" array or
// a "simpleText" string.
func joinRuns(v gjson.Result) string {
	if st := v.Get("simpleText"); st.Exists() {
		return st.String()
	}
	var b strings.Builder
	for _, run := range v.Get("runs.#.text").Array() {
		b.WriteString(run.String())
	}
	return b.String()
}

var suggestionTemplates = []struct {
	title    string
	channel  string
	duration string
}{
	{"%s Tutorial", "Tutorial Hub", "15:30"},
	{"Learn %s - Complete Guide", "Learning Academy", "22:45"},
	{"%s for Beginners", "Beginner Friendly", "18:20"},
}

// Fallback builds up to three suggestions that all link to the YouTube
// search page for query.
func Fallback(query string, max int) []Video {
	searchURL := DefaultSearchURL + "?search_query=" + url.QueryEscape(query)
	topic := titleCase(query)

	if max <= 0 {
		max = defaultMaxResults
	}
	n := min(max, len(suggestionTemplates))
	videos := make([]Video, 0, n)
	for i, tpl := range suggestionTemplates[:n] {
		videos = append(videos, Video{
			Title:    fmt.Sprintf(tpl.title, topic),
			URL:      searchURL,
			Channel:  tpl.channel,
			Views:    fmt.Sprintf("%dK+ views", 50+i*25),
			Duration: tpl.duration,
			Platform: "YouTube",
		})
	}
	return videos
}
