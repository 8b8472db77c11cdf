package slg

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	slogcommon "github.com/samber/slog-common"
)

var _ slog.Handler = (*InfluxDBHandler)(nil)

// PointWriter is the part of the influx api.WriteAPI the handler needs.
type PointWriter interface {
	WritePoint(point *write.Point)
}

// InfluxDBHandler writes every record at or above Level as a point and then
// passes it on to Next, so console output keeps working.
type InfluxDBHandler struct {
	InfluxDBWriter PointWriter
	Next           slog.Handler
	Level          slog.Leveler
	Measurement    string

	attrs  []slog.Attr
	groups []string
}

func (h *InfluxDBHandler) minLevel() slog.Level {
	if h.Level == nil {
		return slog.LevelInfo
	}

	return h.Level.Level()
}

func (h *InfluxDBHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= h.minLevel() {
		return true
	}

	return h.Next != nil && h.Next.Enabled(ctx, level)
}

func (h *InfluxDBHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level >= h.minLevel() {
		recordAttrs := make([]slog.Attr, 0, record.NumAttrs())
		record.Attrs(func(a slog.Attr) bool {
			recordAttrs = append(recordAttrs, a)

			return true
		})

		attrs := slogcommon.AppendAttrsToGroup(h.groups, h.attrs, recordAttrs...)

		fields := make(map[string]any, len(attrs)+1)
		flatten(fields, "", attrs)
		fields["message"] = record.Message

		measurement := h.Measurement
		if measurement == "" {
			measurement = "syslog"
		}

		point := write.NewPoint(measurement, map[string]string{
			"level": record.Level.String(),
		}, fields, record.Time)

		h.InfluxDBWriter.WritePoint(point)
	}

	if h.Next != nil && h.Next.Enabled(ctx, record.Level) {
		return h.Next.Handle(ctx, record)
	}

	return nil
}

func (h *InfluxDBHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := h.clone()
	out.attrs = slogcommon.AppendAttrsToGroup(h.groups, h.attrs, attrs...)

	if h.Next != nil {
		out.Next = h.Next.WithAttrs(attrs)
	}

	return out
}

func (h *InfluxDBHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	out := h.clone()
	out.groups = append(append([]string(nil), h.groups...), name)

	if h.Next != nil {
		out.Next = h.Next.WithGroup(name)
	}

	return out
}

func (h *InfluxDBHandler) clone() *InfluxDBHandler {
	return &InfluxDBHandler{
		InfluxDBWriter: h.InfluxDBWriter,
		Next:           h.Next,
		Level:          h.Level,
		Measurement:    h.Measurement,

		attrs:  h.attrs,
		groups: h.groups,
	}
}

// flatten turns grouped attrs into dotted field keys, influx fields can't nest.
func flatten(fields map[string]any, prefix string, attrs []slog.Attr) {
	for _, a := range attrs {
		if a.Key == "" && a.Value.Kind() != slog.KindGroup {
			continue
		}

		key := a.Key
		if prefix != "" && key != "" {
			key = prefix + "." + key
		} else if key == "" {
			key = prefix
		}

		v := a.Value.Resolve()

		switch v.Kind() {
		case slog.KindGroup:
			flatten(fields, key, v.Group())
		case slog.KindString:
			fields[key] = v.String()
		case slog.KindInt64:
			fields[key] = v.Int64()
		case slog.KindUint64:
			fields[key] = v.Uint64()
		case slog.KindFloat64:
			fields[key] = v.Float64()
		case slog.KindBool:
			fields[key] = v.Bool()
		case slog.KindDuration:
			fields[key] = v.Duration().String()
		case slog.KindTime:
			fields[key] = v.Time()
		default:
			if err, ok := v.Any().(error); ok {
				fields[key] = err.Error()
			} else {
				fields[key] = fmt.Sprint(v.Any())
			}
		}
	}
}
