package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kdimtricp/moviesearch/internal/metrics"
	"github.com/kdimtricp/moviesearch/internal/models"
)

const (
	DefaultBaseURL      = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p"
	DefaultLanguage     = "en-US"

	PosterSize   = "w500"
	BackdropSize = "original"
)

// ErrFetchFailed is the only error kind the catalog reports. Transport
// failures, non-2xx statuses and undecodable bodies are all marked with it.
var ErrFetchFailed = errors.New("fetch failed")

type Config struct {
	BaseURL      string
	ImageBaseURL string
	Token        string
	Language     string
	// Timeout of zero leaves the HTTP stack default in place.
	Timeout    time.Duration
	HTTPClient *http.Client
}

type TMDbClient struct {
	baseURL      string
	imageBaseURL string
	token        string
	language     string
	httpClient   *http.Client
	tracer       trace.Tracer
	metrics      *metrics.Metrics
}

type searchMovieResponse struct {
	Page         int         `json:"page"`
	Results      []tmdbMovie `json:"results"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
}

type tmdbMovie struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	VoteAverage  float64 `json:"vote_average"`
}

// NewTMDbClient builds a client from process-wide configuration. m may be nil.
func NewTMDbClient(cfg Config, m *metrics.Metrics) *TMDbClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ImageBaseURL == "" {
		cfg.ImageBaseURL = DefaultImageBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &TMDbClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		imageBaseURL: strings.TrimRight(cfg.ImageBaseURL, "/"),
		token:        cfg.Token,
		language:     cfg.Language,
		httpClient:   httpClient,
		tracer:       otel.Tracer("moviesearch-catalog"),
		metrics:      m,
	}
}

// FetchPage runs one search request for query at the given 1-based page.
func (c *TMDbClient) FetchPage(ctx context.Context, query string, page int) (result *models.ResultPage, err error) {
	ctx, span := c.tracer.Start(ctx, "catalog.fetch_page",
		trace.WithAttributes(
			attribute.String("catalog.query", query),
			attribute.Int("catalog.page", page),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		c.metrics.ObserveFetch(start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "catalog fetch failed")
			return
		}
		span.SetStatus(codes.Ok, "")
	}()

	if page < 1 {
		return nil, errors.Mark(errors.Newf("invalid page %d", page), ErrFetchFailed)
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	params.Set("language", c.language)
	params.Set("page", strconv.Itoa(page))

	fullURL := fmt.Sprintf("%s/search/movie?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fetchFailed(err, "creating request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fetchFailed(err, "executing request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fetchFailed(errors.Newf("TMDb API returned status %d", resp.StatusCode), "checking status")
	}

	var body searchMovieResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fetchFailed(err, "decoding response")
	}

	span.SetAttributes(
		attribute.Int("catalog.total_pages", body.TotalPages),
		attribute.Int("catalog.results", len(body.Results)),
	)

	return body.toResultPage(page), nil
}

func fetchFailed(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrFetchFailed)
}

func (r searchMovieResponse) toResultPage(requested int) *models.ResultPage {
	items := make([]models.Movie, 0, len(r.Results))
	for _, m := range r.Results {
		items = append(items, models.Movie{
			ID:           m.ID,
			Title:        m.Title,
			PosterPath:   m.PosterPath,
			BackdropPath: m.BackdropPath,
			Overview:     m.Overview,
			ReleaseDate:  m.ReleaseDate,
			VoteAverage:  m.VoteAverage,
		})
	}

	pageNumber := r.Page
	if pageNumber < 1 {
		pageNumber = requested
	}

	return &models.ResultPage{
		PageNumber:   pageNumber,
		Items:        items,
		TotalPages:   max(r.TotalPages, 0),
		TotalResults: max(r.TotalResults, 0),
	}
}

func (c *TMDbClient) GetImageURL(path string, size string) string {
	return imageURL(c.imageBaseURL, size, path)
}

func (c *TMDbClient) PosterURL(path string) string {
	return c.GetImageURL(path, PosterSize)
}

func (c *TMDbClient) BackdropURL(path string) string {
	return c.GetImageURL(path, BackdropSize)
}
