package medical

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	slashDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	dashDate  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)
	isoDate   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
)

// textualLayouts cover common printed date styles on lab reports.
var textualLayouts = []string{
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02 Jan 2006",
	"2006/01/02",
}

// NormalizeDate converts a report date to ISO form (YYYY-MM-DD).
// If the input cannot be parsed the trimmed original is returned unchanged;
// the date is transcribed metadata, not something worth failing a page over.
func NormalizeDate(date string) string {
	trimmed := strings.TrimSpace(date)
	if trimmed == "" {
		return ""
	}

	if m := isoDate.FindStringSubmatch(trimmed); m != nil {
		return isoString(m[1], m[2], m[3])
	}

	// DD/MM/YYYY vs MM/DD/YYYY: a first component above 12 has to be a day.
	if m := slashDate.FindStringSubmatch(trimmed); m != nil {
		first, _ := strconv.Atoi(m[1])
		if first > 12 {
			return isoString(m[3], m[2], m[1])
		}
		return isoString(m[3], m[1], m[2])
	}

	if m := dashDate.FindStringSubmatch(trimmed); m != nil {
		return isoString(m[3], m[2], m[1])
	}

	for _, layout := range textualLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("2006-01-02")
		}
	}

	return trimmed
}

func isoString(year, month, day string) string {
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	return fmt.Sprintf("%s-%02d-%02d", year, m, d)
}
