package bot

import (
	"errors"
	"strings"
	"time"
)

// deadlineLayout is the trailing date-time part of a single-line task,
// e.g. "Сделать отчёт 28.10.2025 14:30".
const deadlineLayout = "02.01.2006 15:04"

var errBadTaskLine = errors.New("expected \"<title> dd.mm.yyyy HH:MM\"")

// parseTaskLine splits a one-line task into title and deadline. The date-time
// is always the last 16 characters; everything before it is the title.
func parseTaskLine(text string, loc *time.Location) (string, time.Time, error) {
	text = strings.TrimSpace(text)
	if len(text) < len(deadlineLayout)+2 {
		return "", time.Time{}, errBadTaskLine
	}

	datePart := text[len(text)-len(deadlineLayout):]
	title := strings.TrimSpace(text[:len(text)-len(deadlineLayout)])
	if title == "" {
		return "", time.Time{}, errBadTaskLine
	}

	deadline, err := time.ParseInLocation(deadlineLayout, datePart, loc)
	if err != nil {
		return "", time.Time{}, errBadTaskLine
	}
	return title, deadline, nil
}
