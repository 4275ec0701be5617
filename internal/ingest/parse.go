package ingest

import (
	"path/filepath"
	"strings"
	"time"
)

// SnapshotMeta is what a snapshot filename tells us about the capture.
type SnapshotMeta struct {
	CameraIP    string
	Gender      string
	CaptureTime time.Time
}

// ParseFilename recovers metadata from snapshot filenames of the form
// "ip_gender_timestamp", e.g. "10.0.1.5_1_20250114093045.jpg". Tokens are
// recognized by shape, not position: a dotted token is the camera IP, a
// bare 0/1 is gender, a 14 or 17 digit run is the capture time in local
// yyyyMMddHHmmss[fff]. Anything unrecognized falls back to the provided
// defaults; the parser never fails.
func ParseFilename(name string, fallbackTime time.Time, defaultCamera string) SnapshotMeta {
	meta := SnapshotMeta{
		CameraIP:    defaultCamera,
		CaptureTime: fallbackTime.UTC(),
	}

	base := filepath.Base(name)
	switch strings.ToLower(filepath.Ext(base)) {
	case ".jpg", ".jpeg", ".png", ".bmp", ".gif":
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}

	for _, token := range strings.Split(base, "_") {
		switch {
		case strings.Count(token, ".") == 3:
			meta.CameraIP = token
		case token == "0":
			meta.Gender = "female"
		case token == "1":
			meta.Gender = "male"
		case (len(token) == 14 || len(token) == 17) && isDigits(token):
			if t, ok := parseCompactTime(token); ok {
				meta.CaptureTime = t
			}
		}
	}

	return meta
}

// parseCompactTime parses yyyyMMddHHmmss with optional trailing millis,
// interpreted in local time and converted to UTC.
func parseCompactTime(s string) (time.Time, bool) {
	layout := "20060102150405"
	if len(s) == 17 {
		layout = "20060102150405.000"
		s = s[:14] + "." + s[14:]
	}
	t, err := time.ParseInLocation(layout, s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
