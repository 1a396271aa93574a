package db

import (
	"strings"
	"time"
)

// remoteTimestampLayout is how GitHub timestamps read when printed, e.g.
// "2014-10-31 23:21:44 UTC".
const remoteTimestampLayout = "2006-01-02 15:04:05 UTC"

// NormalizeTimestamp converts a remote timestamp to the stored form:
// "2014-10-31 23:21:44 UTC" becomes "2014-10-31T23:21:44+00:00". nil stays nil.
func NormalizeTimestamp(ts *string) *string {
	if ts == nil {
		return nil
	}
	s := strings.Replace(*ts, " ", "T", 1)
	s = strings.Replace(s, " UTC", "+00:00", 1)
	return &s
}

// FormatTimestamp renders t in the remote form and normalizes it for storage.
func FormatTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(remoteTimestampLayout)
	return NormalizeTimestamp(&s)
}

// CursorTimestamp converts a stored timestamp to the form the remote accepts
// as a since bound: "2015-04-18 14:17:02" becomes "2015-04-18T14:17:02Z".
func CursorTimestamp(stored string) string {
	s := strings.Replace(stored, " ", "T", 1)
	for _, zone := range []string{" UTC", "+00:00", "Z"} {
		if strings.HasSuffix(s, zone) {
			s = strings.TrimSuffix(s, zone)
			break
		}
	}
	return s + "Z"
}
