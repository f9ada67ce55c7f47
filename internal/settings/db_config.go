package settings

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// dbConfigSnapshot holds the in-memory DB setting values.
type dbConfigSnapshot struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

var globalDBConfig atomic.Value // stores dbConfigSnapshot

func init() {
	globalDBConfig.Store(dbConfigSnapshot{values: map[string]json.RawMessage{}})
}

// StoreDBConfig replaces the in-memory snapshot of DB-backed settings.
func StoreDBConfig(updatedAt time.Time, values map[string]json.RawMessage) {
	next := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		next[key] = bytes.Clone(v)
	}
	globalDBConfig.Store(dbConfigSnapshot{updatedAt: updatedAt.UTC(), values: next})
}

// DBConfigUpdatedAt returns the newest update time seen in the snapshot.
func DBConfigUpdatedAt() time.Time {
	return loadDBConfig().updatedAt
}

// DBConfigValue returns a copy of the raw value for a key.
func DBConfigValue(key string) (json.RawMessage, bool) {
	cfg := loadDBConfig()
	val, ok := cfg.values[strings.TrimSpace(key)]
	if !ok {
		return nil, false
	}
	return bytes.Clone(val), true
}

// Values returns a copy of every value in the snapshot.
func Values() map[string]json.RawMessage {
	cfg := loadDBConfig()
	out := make(map[string]json.RawMessage, len(cfg.values))
	for k, v := range cfg.values {
		out[k] = bytes.Clone(v)
	}
	return out
}

// Bool reads a boolean setting, accepting JSON booleans, numbers and strings.
func Bool(key string, def bool) bool {
	raw, ok := DBConfigValue(key)
	if !ok {
		return def
	}
	if v, okParse := ParseBool(raw); okParse {
		return v
	}
	return def
}

// Int reads an integer setting.
func Int(key string, def int) int {
	raw, ok := DBConfigValue(key)
	if !ok {
		return def
	}
	if v, okParse := ParseInt(raw); okParse {
		return v
	}
	return def
}

// WheelEnabled reports whether spins are currently allowed.
func WheelEnabled() bool {
	return Bool(WheelEnabledKey, DefaultWheelEnabled)
}

// ParseBool decodes a raw setting as a boolean.
func ParseBool(raw json.RawMessage) (bool, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false, false
	}
	var b bool
	if json.Unmarshal(raw, &b) == nil {
		return b, true
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		parsed, errParse := strconv.ParseBool(strings.TrimSpace(s))
		return parsed, errParse == nil
	}
	if n, ok := ParseInt(raw); ok {
		return n != 0, true
	}
	return false, false
}

// ParseInt decodes a raw setting as an integer.
func ParseInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		parsed, errParse := strconv.Atoi(strings.TrimSpace(s))
		return parsed, errParse == nil
	}
	return 0, false
}

func loadDBConfig() dbConfigSnapshot {
	cfg, ok := globalDBConfig.Load().(dbConfigSnapshot)
	if !ok || cfg.values == nil {
		return dbConfigSnapshot{updatedAt: cfg.updatedAt, values: map[string]json.RawMessage{}}
	}
	return cfg
}
