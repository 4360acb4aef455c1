package datasource

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/cementlab/plantpulse/internal/plant"
)

const historyMeasurement = "plant_history"

// InfluxLoader fetches recorded plant operating points from an InfluxDB
// bucket and expands them into full snapshots. Falls back rows-for-rows
// on the same builder as the embedded dataset.
type InfluxLoader struct {
	queryAPI api.QueryAPI
	bucket   string
}

// NewInfluxLoader wraps an InfluxDB client for recorded-data loading.
func NewInfluxLoader(client influxdb2.Client, org, bucket string) *InfluxLoader {
	return &InfluxLoader{
		queryAPI: client.QueryAPI(org),
		bucket:   bucket,
	}
}

// Load queries the recorded operating points tagged with the given kind,
// ordered by time. Returns an error when the bucket holds no rows for
// the kind, so callers never end up replaying an empty sequence.
func (l *InfluxLoader) Load(ctx context.Context, kind string) ([]plant.DashboardSnapshot, error) {
	if kind == "" {
		kind = "kiln"
	}

	query := fmt.Sprintf(`from(bucket: %q)
		|> range(start: 0)
		|> filter(fn: (r) => r._measurement == %q and r.kind == %q)
		|> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
		|> sort(columns: ["_time"])`,
		l.bucket, historyMeasurement, kind)

	result, err := l.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query recorded data: %w", err)
	}
	defer result.Close()

	var records []plant.DashboardSnapshot
	for result.Next() {
		values := result.Record().Values()
		row := refRow{
			kilnTemp:   floatField(values, "kiln_temperature"),
			production: floatField(values, "production_rate"),
			energy:     floatField(values, "energy_consumption"),
			fineness:   floatField(values, "cement_fineness"),
			strength28: floatField(values, "strength_28d"),
			co2:        floatField(values, "co2_emissions"),
		}
		records = append(records, buildRecorded(row, result.Record().Time()))
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("read recorded data: %w", result.Err())
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no recorded data for kind %q in bucket %q", kind, l.bucket)
	}
	return records, nil
}

func floatField(values map[string]interface{}, field string) float64 {
	if v, ok := values[field].(float64); ok {
		return v
	}
	return 0
}
