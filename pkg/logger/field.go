package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// Field is one structured key/value pair. A nil value is skipped.
type Field struct {
	key   string
	value interface{}
}

func String(key, value string) Field { return Field{key, value} }
func Strings(key string, value []string) Field { return Field{key, value} }
func Int(key string, value int) Field { return Field{key, value} }
func Int64(key string, value int64) Field { return Field{key, value} }
func Float64(key string, value float64) Field { return Field{key, value} }
func Bool(key string, value bool) Field { return Field{key, value} }
func Time(key string, value time.Time) Field { return Field{key, value} }
func Any(key string, value interface{}) Field { return Field{key, value} }
func Error(err error) Field { return Field{zerolog.ErrorFieldName, err} }

// Duration logs value in milliseconds.
func Duration(key string, value time.Duration) Field { return Field{key, value} }

func (f Field) event(e *zerolog.Event) {
	switch v := f.value.(type) {
	case nil:
	case string:
		e.Str(f.key, v)
	case []string:
		e.Strs(f.key, v)
	case int:
		e.Int(f.key, v)
	case int64:
		e.Int64(f.key, v)
	case float64:
		e.Float64(f.key, v)
	case bool:
		e.Bool(f.key, v)
	case time.Time:
		e.Time(f.key, v)
	case time.Duration:
		e.Int64(f.key, v.Milliseconds())
	case error:
		e.AnErr(f.key, v)
	default:
		e.Interface(f.key, v)
	}
}

func (f Field) context(c zerolog.Context) zerolog.Context {
	switch v := f.value.(type) {
	case nil:
		return c
	case string:
		return c.Str(f.key, v)
	case []string:
		return c.Strs(f.key, v)
	case int:
		return c.Int(f.key, v)
	case int64:
		return c.Int64(f.key, v)
	case float64:
		return c.Float64(f.key, v)
	case bool:
		return c.Bool(f.key, v)
	case time.Time:
		return c.Time(f.key, v)
	case time.Duration:
		return c.Int64(f.key, v.Milliseconds())
	case error:
		return c.AnErr(f.key, v)
	default:
		return c.Interface(f.key, v)
	}
}
