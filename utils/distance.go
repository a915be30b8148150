package utils

import (
	"fmt"
	"strconv"
)

// PresentableLength formats a track length for display: metres below one
// kilometre, kilometres with one decimal otherwise.
func PresentableLength(km float64) string {
	if km < 0 {
		km = 0
	}
	if km < 1 {
		m := int(km*1000 + 0.5)
		return fmt.Sprintf("%d m", m)
	}
	return strconv.FormatFloat(km, 'f', 1, 64) + " km"
}

// PresentablePoints formats a point count, e.g. "1 point" or "12 points".
func PresentablePoints(n int) string {
	return fmt.Sprintf("%d point%s", n, ternary(n == 1, "", "s"))
}

func ternary[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}
