// Package lms talks to the Moodle REST web-service API.
package lms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/edumetrics/lms-kpi-api/internal/models"
	appErrors "github.com/edumetrics/lms-kpi-api/pkg/errors"
)

// Cache is the subset of the cache service the client needs for the
// slow-changing catalog endpoints.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Config holds the connection parameters for one Moodle instance.
type Config struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Client wraps the Moodle web-service endpoint. All calls go through the
// single REST entry point with wstoken/wsfunction query parameters and
// JSON responses.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	cache    Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewClient constructs a Moodle client. The cache is optional; when
// present, category and course-contents responses are cached.
func NewClient(cfg Config, cache Cache, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		token:    cfg.Token,
		http:     &http.Client{Timeout: timeout},
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// wsError is the error payload Moodle returns with HTTP 200.
type wsError struct {
	Exception string `json:"exception"`
	ErrorCode string `json:"errorcode"`
	Message   string `json:"message"`
}

func (c *Client) call(ctx context.Context, wsfunction string, params url.Values, dest interface{}) error {
	query := url.Values{}
	query.Set("wstoken", c.token)
	query.Set("wsfunction", wsfunction)
	query.Set("moodlewsrestformat", "json")
	for key, values := range params {
		for _, v := range values {
			query.Add(key, v)
		}
	}

	endpoint := c.baseURL + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrLMSUnavailable.Code, appErrors.ErrLMSUnavailable.Status, "build lms request")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrLMSUnavailable.Code, appErrors.ErrLMSUnavailable.Status, fmt.Sprintf("call %s", wsfunction))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrLMSUnavailable.Code, appErrors.ErrLMSUnavailable.Status, fmt.Sprintf("read %s response", wsfunction))
	}

	c.logger.Debug("lms call",
		zap.String("wsfunction", wsfunction),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return appErrors.Wrap(fmt.Errorf("http %d", resp.StatusCode),
			appErrors.ErrLMSUnavailable.Code, appErrors.ErrLMSUnavailable.Status, fmt.Sprintf("call %s", wsfunction))
	}

	// Moodle reports logic errors (invalid token, missing capability)
	// as a JSON object with HTTP 200.
	if len(body) > 0 && body[0] == '{' {
		var werr wsError
		if json.Unmarshal(body, &werr) == nil && werr.Exception != "" {
			return appErrors.Wrap(fmt.Errorf("%s: %s", werr.ErrorCode, werr.Message),
				appErrors.ErrLMSUnavailable.Code, appErrors.ErrLMSUnavailable.Status, fmt.Sprintf("moodle exception on %s", wsfunction))
		}
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrLMSUnavailable.Code, appErrors.ErrLMSUnavailable.Status, fmt.Sprintf("decode %s response", wsfunction))
	}
	return nil
}

// GradeReport fetches the full user grade report for a course. userid=0
// asks for every enrolled student.
func (c *Client) GradeReport(ctx context.Context, courseID int64) (*models.GradeReport, error) {
	params := url.Values{}
	params.Set("courseid", strconv.FormatInt(courseID, 10))
	params.Set("userid", "0")

	var report models.GradeReport
	if err := c.call(ctx, "gradereport_user_get_grade_items", params, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// CourseContents fetches the section/module structure of a course.
func (c *Client) CourseContents(ctx context.Context, courseID int64) ([]models.CourseSection, error) {
	key := fmt.Sprintf("lms:contents:%d", courseID)

	var sections []models.CourseSection
	if c.cache != nil {
		if hit, _ := c.cache.Get(ctx, key, &sections); hit {
			return sections, nil
		}
	}

	params := url.Values{}
	params.Set("courseid", strconv.FormatInt(courseID, 10))
	if err := c.call(ctx, "core_course_get_contents", params, &sections); err != nil {
		return nil, err
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, key, sections, c.cacheTTL)
	}
	return sections, nil
}

// Categories fetches the full category tree.
func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	const key = "lms:categories"

	var categories []models.Category
	if c.cache != nil {
		if hit, _ := c.cache.Get(ctx, key, &categories); hit {
			return categories, nil
		}
	}

	if err := c.call(ctx, "core_course_get_categories", nil, &categories); err != nil {
		return nil, err
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, key, categories, c.cacheTTL)
	}
	return categories, nil
}

// Courses fetches the whole course catalog.
func (c *Client) Courses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if err := c.call(ctx, "core_course_get_courses", nil, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// EnrolledUsers fetches the participants of a course with their roles.
func (c *Client) EnrolledUsers(ctx context.Context, courseID int64) ([]models.EnrolledUser, error) {
	params := url.Values{}
	params.Set("courseid", strconv.FormatInt(courseID, 10))

	var users []models.EnrolledUser
	if err := c.call(ctx, "core_enrol_get_enrolled_users", params, &users); err != nil {
		return nil, err
	}
	return users, nil
}
