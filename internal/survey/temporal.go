package survey

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// BucketLayout formats a month bucket key
const BucketLayout = "2006-01"

// DefaultDateLayouts are tried in order. Day-first forms come before ISO forms
// so that "03/04/2025" reads as 3 April.
var DefaultDateLayouts = []string{
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"2-1-2006 15:04:05",
	"2-1-2006 15:04",
	"2-1-2006",
	"2.1.2006 15:04:05",
	"2.1.2006",
	"2/1/06 15:04:05",
	"2/1/06 15:04",
	"2/1/06",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// Excel serials outside this range are treated as garbage, not dates. The
// lower bound is 1970-01-01, so bare years and day numbers never qualify.
const (
	minExcelSerial = 25569.0
	maxExcelSerial = 2958465.0
)

// Bucketizer parses heterogeneous timestamp text and derives month buckets.
type Bucketizer struct {
	layouts  []string
	location *time.Location
}

// NewBucketizer creates a Bucketizer. Nil layouts select DefaultDateLayouts and
// a nil location selects UTC.
func NewBucketizer(layouts []string, loc *time.Location) *Bucketizer {
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Bucketizer{layouts: layouts, location: loc}
}

// Parse converts raw timestamp text into an instant in the configured
// location. It tries every layout on the whole value, then on its leading
// token (dropping garbled time parts), then reads the value as an Excel serial
// day number on or after 1970-01-01.
func (b *Bucketizer) Parse(raw string) (time.Time, error) {
	s := Clean(raw)
	if s == "" {
		return time.Time{}, &ParseError{Value: raw}
	}

	if t, ok := b.tryLayouts(s); ok {
		return t, nil
	}

	if head, _, found := strings.Cut(s, " "); found {
		if t, ok := b.tryLayouts(head); ok {
			return t, nil
		}
	}

	if serial, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil &&
		serial >= minExcelSerial && serial <= maxExcelSerial {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, b.location), nil
		}
	}

	return time.Time{}, &ParseError{Value: raw}
}

func (b *Bucketizer) tryLayouts(s string) (time.Time, bool) {
	for _, layout := range b.layouts {
		if t, err := time.ParseInLocation(layout, s, b.location); err == nil {
			return t.In(b.location), true
		}
	}
	return time.Time{}, false
}

// Bucket returns the YYYY-MM key of t
func Bucket(t time.Time) string {
	return t.Format(BucketLayout)
}

// ValidBucket reports whether s is a well-formed month bucket
func ValidBucket(s string) bool {
	if len(s) != len(BucketLayout) {
		return false
	}
	_, err := time.Parse(BucketLayout, s)
	return err == nil
}

// SortBucketsDesc sorts bucket keys latest first. Keys are zero-padded so
// lexicographic order equals calendar order.
func SortBucketsDesc(buckets []string) {
	sort.Sort(sort.Reverse(sort.StringSlice(buckets)))
}
