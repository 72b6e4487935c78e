package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/miradorstack/microres/internal/cache"
	"github.com/miradorstack/microres/internal/models"
)

// MiradorCoreClient fetches metric matrices from the mirador-core RCA helper API.
type MiradorCoreClient struct {
	baseURL    string
	matrixPath string
	httpClient *http.Client
	cache      cache.Provider
	cacheTTL   time.Duration
}

// NewMiradorCoreClient constructs a client targeting the configured mirador-core instance.
func NewMiradorCoreClient(baseURL, matrixPath string, timeout time.Duration, cacheProvider cache.Provider, cacheTTL time.Duration) *MiradorCoreClient {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MiradorCoreClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		matrixPath: matrixPath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cache:    cacheProvider,
		cacheTTL: cacheTTL,
	}
}

type matrixResponse struct {
	Timestamps []time.Time `json:"timestamps"`
	Series     []struct {
		Name   string     `json:"name"`
		Values []*float64 `json:"values"`
	} `json:"series"`
}

// FetchMatrix queries mirador-core for one series per metric on a shared timestamp grid.
// Null samples are filled from their neighbours.
func (c *MiradorCoreClient) FetchMatrix(ctx context.Context, q models.MatrixQuery) (models.MetricMatrix, error) {
	if c == nil {
		return models.MetricMatrix{}, fmt.Errorf("mirador-core client not initialised")
	}
	if c.baseURL == "" {
		return models.MetricMatrix{}, fmt.Errorf("mirador-core base URL not configured")
	}
	if err := checkQuery(q); err != nil {
		return models.MetricMatrix{}, err
	}

	payload := map[string]interface{}{
		"test_id":      q.TestID,
		"metrics":      q.Metrics,
		"start":        q.Range.Start.Format(time.RFC3339),
		"end":          q.Range.End.Format(time.RFC3339),
		"step_seconds": int64(q.Step / time.Second),
	}

	key, err := matrixCacheKey(payload)
	if err != nil {
		return models.MetricMatrix{}, err
	}
	var response matrixResponse
	if err := cache.GetJSON(ctx, c.cache, key, &response); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			return models.MetricMatrix{}, fmt.Errorf("mirador-core cache lookup failed: %w", err)
		}
		response = matrixResponse{}
		if err := c.postJSON(ctx, c.matrixURL(), payload, &response); err != nil {
			return models.MetricMatrix{}, fmt.Errorf("mirador-core matrix request failed: %w", err)
		}
		_ = cache.SetJSON(ctx, c.cache, key, response, c.cacheTTL)
	}

	return response.toMatrix(q.Metrics)
}

func (r matrixResponse) toMatrix(metrics []string) (models.MetricMatrix, error) {
	if len(r.Timestamps) == 0 {
		return models.MetricMatrix{}, fmt.Errorf("mirador-core matrix returned no timestamps")
	}
	byName := make(map[string][]*float64, len(r.Series))
	for _, s := range r.Series {
		byName[s.Name] = s.Values
	}

	values := make(models.RawMetricMatrix, len(metrics))
	for i, name := range metrics {
		samples, ok := byName[name]
		if !ok {
			return models.MetricMatrix{}, fmt.Errorf("%w: %s", ErrNoSamples, name)
		}
		if len(samples) != len(r.Timestamps) {
			return models.MetricMatrix{}, fmt.Errorf("mirador-core series %s has %d samples for %d timestamps", name, len(samples), len(r.Timestamps))
		}
		row := make([]float64, len(samples))
		for j, v := range samples {
			if v == nil {
				row[j] = math.NaN()
				continue
			}
			row[j] = *v
		}
		if err := fillGaps(name, row); err != nil {
			return models.MetricMatrix{}, err
		}
		values[i] = row
	}
	return models.MetricMatrix{
		Names:      append([]string(nil), metrics...),
		Timestamps: r.Timestamps,
		Values:     values,
	}, nil
}

func matrixCacheKey(payload map[string]interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode matrix query: %w", err)
	}
	return cache.Key("matrix", data), nil
}

func (c *MiradorCoreClient) matrixURL() string { return c.resolvePath(c.matrixPath) }

func (c *MiradorCoreClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *MiradorCoreClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mirador-core returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
