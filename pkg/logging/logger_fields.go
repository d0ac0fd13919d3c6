package logging

import (
	"time"
)

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Domain helpers

func Component(name string) Field {
	return String("component", name)
}

func NodeID(id string) Field {
	return String("node_id", id)
}

func NodeType(t string) Field {
	return String("node_type", t)
}

// Scope names the collection a graph snapshot was loaded for
func Scope(scope string) Field {
	return String("scope", scope)
}

func Action(name string) Field {
	return String("action", name)
}

func RequestID(id string) Field {
	return String("request_id", id)
}

// Generation identifies which loaded snapshot a simulation loop belongs to
func Generation(gen uint64) Field {
	return Uint64("generation", gen)
}

func Tick(n int) Field {
	return Int("tick", n)
}

func Viewport(width, height float64) Field {
	return Any("viewport", [2]float64{width, height})
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}
