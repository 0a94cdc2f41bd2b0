package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ToInt converts query values and loosely typed numbers to int. Unparseable
// input yields fallback.
func ToInt(val any, fallback int) int {
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case uint32:
		return int(v)
	case float64:
		return int(v)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
		return fallback
	case []byte:
		return ToInt(string(v), fallback)
	default:
		return ToInt(fmt.Sprintf("%v", v), fallback)
	}
}

// ToBool converts flags such as "1", "true", "yes" to bool.
func ToBool(val any) bool {
	switch v := val.(type) {
	case bool:
		return v
	case int, int64, int32:
		return ToInt(v, 0) == 1
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			return true
		}
		return false
	case []byte:
		return ToBool(string(v))
	default:
		return false
	}
}

// Clamp01 limits f to the closed interval [0,1].
func Clamp01(f float64) float64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
