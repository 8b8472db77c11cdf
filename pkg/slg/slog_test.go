package slg_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"texttoaudio/pkg/slg"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/require"
)

type pointRecorder struct {
	mu     sync.Mutex
	points []*write.Point
}

func (r *pointRecorder) WritePoint(point *write.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.points = append(r.points, point)
}

func fieldsOf(point *write.Point) map[string]any {
	out := map[string]any{}
	for _, f := range point.FieldList() {
		out[f.Key] = f.Value
	}

	return out
}

func TestGetSlogFallsBackToDefault(t *testing.T) {
	assert := require.New(t)

	assert.Equal(slog.Default(), slg.GetSlog(context.Background()))

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := slg.WithSlog(context.Background(), logger)

	assert.Same(logger, slg.GetSlog(ctx))
}

func TestInfluxDBHandlerWritesPoints(t *testing.T) {
	assert := require.New(t)

	recorder := &pointRecorder{}
	var console bytes.Buffer

	logger := slog.New(&slg.InfluxDBHandler{
		InfluxDBWriter: recorder,
		Next:           slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})

	logger.WithGroup("api").With("model", "facebook/musicgen-small").Info("audio generated", "bytes", 42, "err", errors.New("boom"))
	logger.Debug("debug only on console")

	assert.Len(recorder.points, 1)

	point := recorder.points[0]
	assert.Equal("syslog", point.Name())

	tags := point.TagList()
	assert.Len(tags, 1)
	assert.Equal("level", tags[0].Key)
	assert.Equal("INFO", tags[0].Value)

	fields := fieldsOf(point)
	assert.Equal("audio generated", fields["message"])
	assert.Equal("facebook/musicgen-small", fields["api.model"])
	assert.EqualValues(42, fields["api.bytes"])
	assert.Equal("boom", fields["api.err"])

	assert.Contains(console.String(), "audio generated")
	assert.Contains(console.String(), "debug only on console")
}

func TestInfluxDBHandlerLevel(t *testing.T) {
	assert := require.New(t)

	recorder := &pointRecorder{}

	logger := slog.New(&slg.InfluxDBHandler{
		InfluxDBWriter: recorder,
		Level:          slog.LevelWarn,
		Measurement:    "tts_logs",
	})

	logger.Info("skipped")
	logger.Error("kept")

	assert.Len(recorder.points, 1)
	assert.Equal("tts_logs", recorder.points[0].Name())
	assert.Equal("kept", fieldsOf(recorder.points[0])["message"])
}
