// Package stats contains statistics calculations and reporting.
package stats

import "math"

// CharsPerWord is the conventional word length used for WPM.
const CharsPerWord = 5

// Round rounds half up, the way browser displays do.
func Round(v float64) int {
	return int(math.Floor(v + 0.5))
}

// GrossWPM is the typing speed ignoring errors. It is 0 until time has elapsed.
func GrossWPM(cursor int, elapsedMinutes float64) int {
	if elapsedMinutes <= 0 {
		return 0
	}
	return Round(float64(cursor) / CharsPerWord / elapsedMinutes)
}

// NetWPM is the typing speed after subtracting erroneous keystrokes, floored at 0.
func NetWPM(cursor, errors int, elapsedMinutes float64) int {
	if elapsedMinutes <= 0 {
		return 0
	}
	wpm := Round(float64(cursor-errors) / CharsPerWord / elapsedMinutes)
	if wpm < 0 {
		return 0
	}
	return wpm
}

// Accuracy is the percentage of correct positions, floored at 0. emptyValue
// is returned when nothing has been typed.
func Accuracy(cursor, errors, emptyValue int) int {
	if cursor <= 0 {
		return emptyValue
	}
	acc := Round(float64(cursor-errors) / float64(cursor) * 100)
	if acc < 0 {
		return 0
	}
	return acc
}

// Level is a performance badge for a final WPM.
type Level struct {
	Name  string
	Color string
}

// PerformanceLevel returns the badge earned by a net WPM.
func PerformanceLevel(wpm int) Level {
	switch {
	case wpm >= 80:
		return Level{Name: "Elite", Color: "yellow"}
	case wpm >= 60:
		return Level{Name: "Expert", Color: "green"}
	case wpm >= 40:
		return Level{Name: "Advanced", Color: "cyan"}
	default:
		return Level{Name: "Beginner", Color: "cyan"}
	}
}
