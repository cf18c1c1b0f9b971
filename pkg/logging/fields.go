package logging

import (
	"time"

	"github.com/rs/zerolog"
)

// Field is a typed key/value attached to a log entry
type Field struct {
	Key   string
	Value any
}

func (f Field) apply(ev *zerolog.Event) {
	switch v := f.Value.(type) {
	case string:
		ev.Str(f.Key, v)
	case int:
		ev.Int(f.Key, v)
	case int64:
		ev.Int64(f.Key, v)
	case float64:
		ev.Float64(f.Key, v)
	case bool:
		ev.Bool(f.Key, v)
	case time.Duration:
		ev.Dur(f.Key, v)
	case []string:
		ev.Strs(f.Key, v)
	default:
		ev.Interface(f.Key, v)
	}
}

func (f Field) context(ctx zerolog.Context) zerolog.Context {
	switch v := f.Value.(type) {
	case string:
		return ctx.Str(f.Key, v)
	case int:
		return ctx.Int(f.Key, v)
	case float64:
		return ctx.Float64(f.Key, v)
	default:
		return ctx.Interface(f.Key, v)
	}
}

func String(key, value string) Field { return Field{Key: key, Value: value} }
func Int(key string, value int) Field { return Field{Key: key, Value: value} }
func Float(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }
func Strings(key string, value []string) Field { return Field{Key: key, Value: value} }
func Any(key string, value any) Field { return Field{Key: key, Value: value} }
func Duration(key string, d time.Duration) Field { return Field{Key: key, Value: d} }

// Component tags the entry with the emitting pipeline stage or subsystem
func Component(name string) Field { return Field{Key: "component", Value: name} }

// RequestID tags the entry with an HTTP request id
func RequestID(id string) Field { return Field{Key: "request_id", Value: id} }
