package repo

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/miradorstack/microres/internal/models"
)

// FluxRow is one sample returned by a Flux query.
type FluxRow struct {
	Time   time.Time
	Metric string
	Value  float64
}

// FluxQuerier runs a Flux query and flattens the resulting tables.
type FluxQuerier interface {
	QueryRows(ctx context.Context, flux string) ([]FluxRow, error)
}

// InfluxSourceConfig selects where samples live in InfluxDB.
type InfluxSourceConfig struct {
	Bucket      string
	Measurement string
	Field       string
}

// InfluxSource reads metric matrices from InfluxDB. Series are tagged with test_id and metric.
type InfluxSource struct {
	querier FluxQuerier
	cfg     InfluxSourceConfig
	closer  func()
}

// NewInfluxSource connects to InfluxDB at url.
func NewInfluxSource(url, token, org string, timeout time.Duration, cfg InfluxSourceConfig) *InfluxSource {
	opts := influxdb2.DefaultOptions()
	if timeout > 0 {
		opts.SetHTTPRequestTimeout(uint(math.Ceil(timeout.Seconds())))
	}
	client := influxdb2.NewClientWithOptions(url, token, opts)
	return &InfluxSource{
		querier: influxQuerier{api: client.QueryAPI(org)},
		cfg:     cfg,
		closer:  client.Close,
	}
}

// NewInfluxSourceWithQuerier builds a source over an arbitrary querier.
func NewInfluxSourceWithQuerier(querier FluxQuerier, cfg InfluxSourceConfig) *InfluxSource {
	return &InfluxSource{querier: querier, cfg: cfg}
}

// Close releases the underlying client.
func (s *InfluxSource) Close() {
	if s != nil && s.closer != nil {
		s.closer()
	}
}

// FetchMatrix aggregates each metric onto q.Step windows and pivots rows into a matrix.
func (s *InfluxSource) FetchMatrix(ctx context.Context, q models.MatrixQuery) (models.MetricMatrix, error) {
	if s == nil || s.querier == nil {
		return models.MetricMatrix{}, fmt.Errorf("influx source not initialised")
	}
	if err := checkQuery(q); err != nil {
		return models.MetricMatrix{}, err
	}
	rows, err := s.querier.QueryRows(ctx, s.buildQuery(q))
	if err != nil {
		return models.MetricMatrix{}, fmt.Errorf("influx query failed: %w", err)
	}
	return pivotRows(q.Metrics, rows)
}

func (s *InfluxSource) buildQuery(q models.MatrixQuery) string {
	step := q.Step
	if step <= 0 {
		step = time.Minute
	}
	quoted := make([]string, len(q.Metrics))
	for i, m := range q.Metrics {
		quoted[i] = strconv.Quote(m)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %s)\n", strconv.Quote(s.cfg.Bucket))
	fmt.Fprintf(&b, "  |> range(start: %s, stop: %s)\n", q.Range.Start.UTC().Format(time.RFC3339), q.Range.End.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %s and r._field == %s)\n", strconv.Quote(s.cfg.Measurement), strconv.Quote(s.cfg.Field))
	if q.TestID != "" {
		fmt.Fprintf(&b, "  |> filter(fn: (r) => r.test_id == %s)\n", strconv.Quote(q.TestID))
	}
	fmt.Fprintf(&b, "  |> filter(fn: (r) => contains(value: r.metric, set: [%s]))\n", strings.Join(quoted, ", "))
	fmt.Fprintf(&b, "  |> aggregateWindow(every: %ds, fn: mean, createEmpty: true)\n", int64(step/time.Second))
	b.WriteString(`  |> keep(columns: ["_time", "metric", "_value"])`)
	return b.String()
}

// pivotRows lays rows out on the sorted union of their timestamps.
func pivotRows(metrics []string, rows []FluxRow) (models.MetricMatrix, error) {
	slot := make(map[string]int, len(metrics))
	for i, m := range metrics {
		slot[m] = i
	}

	seen := make(map[int64]struct{})
	timestamps := make([]time.Time, 0)
	for _, r := range rows {
		if _, ok := slot[r.Metric]; !ok {
			continue
		}
		key := r.Time.UnixNano()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		timestamps = append(timestamps, r.Time)
	}
	if len(timestamps) == 0 {
		return models.MetricMatrix{}, ErrNoSamples
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })
	column := make(map[int64]int, len(timestamps))
	for i, ts := range timestamps {
		column[ts.UnixNano()] = i
	}

	values := make(models.RawMetricMatrix, len(metrics))
	for i := range values {
		row := make([]float64, len(timestamps))
		for j := range row {
			row[j] = math.NaN()
		}
		values[i] = row
	}
	for _, r := range rows {
		i, ok := slot[r.Metric]
		if !ok {
			continue
		}
		values[i][column[r.Time.UnixNano()]] = r.Value
	}
	for i, name := range metrics {
		if err := fillGaps(name, values[i]); err != nil {
			return models.MetricMatrix{}, err
		}
	}
	return models.MetricMatrix{
		Names:      append([]string(nil), metrics...),
		Timestamps: timestamps,
		Values:     values,
	}, nil
}

type influxQuerier struct {
	api api.QueryAPI
}

func (q influxQuerier) QueryRows(ctx context.Context, flux string) ([]FluxRow, error) {
	result, err := q.api.Query(ctx, flux)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	rows := make([]FluxRow, 0)
	for result.Next() {
		record := result.Record()
		metric, _ := record.ValueByKey("metric").(string)
		rows = append(rows, FluxRow{
			Time:   record.Time(),
			Metric: metric,
			Value:  toFloat(record.Value()),
		})
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	default:
		return math.NaN()
	}
}
