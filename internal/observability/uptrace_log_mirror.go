package observability

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/riskibarqy/ladder-cache/internal/platform/logging"
	otellog "go.opentelemetry.io/otel/log"
	otelglobal "go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap/zapcore"
)

const (
	logMirrorInstrumentation = "ladder-cache/internal/platform/logging"
	requestLogMessage        = "http request"
	maxMirrorDepth           = 3
)

// Probe and scrape traffic would drown the exported request logs.
var quietPaths = map[string]struct{}{
	"/healthz": {},
	"/metrics": {},
}

func newUptraceLogMirror(serviceVersion string) logging.MirrorFunc {
	otelLogger := otelglobal.Logger(
		logMirrorInstrumentation,
		otellog.WithInstrumentationVersion(serviceVersion),
	)

	return func(ctx context.Context, level logging.Level, msg string, args ...any) {
		if isQuietRequestLog(msg, args) {
			return
		}
		if ctx == nil {
			ctx = context.Background()
		}

		severity := severityOf(level)
		if !otelLogger.Enabled(ctx, otellog.EnabledParameters{Severity: severity, EventName: msg}) {
			return
		}

		now := time.Now().UTC()
		var record otellog.Record
		record.SetTimestamp(now)
		record.SetObservedTimestamp(now)
		record.SetSeverity(severity)
		record.SetSeverityText(strings.ToUpper(level.String()))
		record.SetEventName(msg)
		record.SetBody(otellog.StringValue(msg))
		if attrs := mirrorAttributes(args); len(attrs) > 0 {
			record.AddAttributes(attrs...)
		}

		otelLogger.Emit(ctx, record)
	}
}

func isQuietRequestLog(msg string, args []any) bool {
	if msg != requestLogMessage {
		return false
	}
	for i := 0; i+1 < len(args); i += 2 {
		if key, _ := args[i].(string); key != "path" {
			continue
		}
		path, _ := args[i+1].(string)
		_, quiet := quietPaths[path]
		return quiet
	}
	return false
}

// mirrorAttributes pairs up slog-style args. A dangling key becomes an empty
// attribute and a non-string key is replaced by its position.
func mirrorAttributes(args []any) []otellog.KeyValue {
	if len(args) == 0 {
		return nil
	}

	attrs := make([]otellog.KeyValue, 0, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		key, _ := args[i].(string)
		if strings.TrimSpace(key) == "" {
			key = fmt.Sprintf("arg_%d", i/2)
		}
		if i+1 == len(args) {
			attrs = append(attrs, otellog.Empty(key))
			break
		}
		attrs = append(attrs, otellog.KeyValue{Key: key, Value: mirrorValue(args[i+1], 0)})
	}
	return attrs
}

func severityOf(level zapcore.Level) otellog.Severity {
	switch {
	case level <= zapcore.DebugLevel:
		return otellog.SeverityDebug
	case level == zapcore.InfoLevel:
		return otellog.SeverityInfo
	case level == zapcore.WarnLevel:
		return otellog.SeverityWarn
	case level == zapcore.ErrorLevel:
		return otellog.SeverityError
	default:
		return otellog.SeverityFatal
	}
}

func mirrorValue(value any, depth int) otellog.Value {
	if value == nil {
		return otellog.Value{}
	}
	if depth >= maxMirrorDepth {
		return otellog.StringValue(fmt.Sprint(value))
	}
	if v, ok := scalarValue(value); ok {
		return v
	}
	return reflectedValue(reflect.ValueOf(value), depth)
}

func scalarValue(value any) (otellog.Value, bool) {
	switch v := value.(type) {
	case string:
		return otellog.StringValue(v), true
	case bool:
		return otellog.BoolValue(v), true
	case int:
		return otellog.IntValue(v), true
	case int64:
		return otellog.Int64Value(v), true
	case int32, int16, int8:
		return otellog.Int64Value(reflect.ValueOf(v).Int()), true
	case uint, uint64, uint32, uint16, uint8:
		u := reflect.ValueOf(v).Uint()
		if u > math.MaxInt64 {
			return otellog.StringValue(fmt.Sprint(u)), true
		}
		return otellog.Int64Value(int64(u)), true
	case float64:
		return otellog.Float64Value(v), true
	case float32:
		return otellog.Float64Value(float64(v)), true
	case []byte:
		return otellog.BytesValue(slices.Clone(v)), true
	case time.Time:
		return otellog.StringValue(v.UTC().Format(time.RFC3339Nano)), true
	case time.Duration:
		return otellog.StringValue(v.String()), true
	case error:
		return otellog.StringValue(v.Error()), true
	case fmt.Stringer:
		return otellog.StringValue(v.String()), true
	}
	return otellog.Value{}, false
}

func reflectedValue(rv reflect.Value, depth int) otellog.Value {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return otellog.Value{}
		}
		return mirrorValue(rv.Elem().Interface(), depth+1)
	case reflect.Slice, reflect.Array:
		items := make([]otellog.Value, rv.Len())
		for i := range items {
			items[i] = mirrorValue(rv.Index(i).Interface(), depth+1)
		}
		return otellog.SliceValue(items...)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return otellog.StringValue(fmt.Sprint(rv.Interface()))
		}
		keys := rv.MapKeys()
		slices.SortFunc(keys, func(a, b reflect.Value) int { return strings.Compare(a.String(), b.String()) })
		kvs := make([]otellog.KeyValue, 0, len(keys))
		for _, k := range keys {
			kvs = append(kvs, otellog.KeyValue{Key: k.String(), Value: mirrorValue(rv.MapIndex(k).Interface(), depth+1)})
		}
		return otellog.MapValue(kvs...)
	case reflect.String:
		return otellog.StringValue(rv.String())
	default:
		return otellog.StringValue(fmt.Sprint(rv.Interface()))
	}
}
