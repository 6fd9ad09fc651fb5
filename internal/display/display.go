// Package display formats record values for people. Nothing here may be used
// when comparing, diffing or validating values.
package display

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"
)

const (
	unknownLabel  = "Unknown"
	unnamedLabel  = "Unknown Character"
	avatarBaseURL = "https://api.dicebear.com/7.x/bottts/svg?seed="
)

func isSentinel(v string) bool {
	return v == "unknown" || v == "n/a"
}

// Value renders the upstream sentinels "unknown" and "n/a" as "Unknown".
func Value(v string) string {
	if isSentinel(v) {
		return unknownLabel
	}
	return v
}

// HasValue reports whether v carries real data.
func HasValue(v string) bool {
	return !isSentinel(v) && strings.TrimSpace(v) != ""
}

// Height renders a height in centimetres.
func Height(v string) string {
	if isSentinel(v) {
		return unknownLabel
	}
	return v + " cm"
}

// Mass renders a mass in kilograms.
func Mass(v string) string {
	if isSentinel(v) {
		return unknownLabel
	}
	return v + " kg"
}

// Name renders a display name, substituting a label for blank names.
func Name(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return unnamedLabel
	}
	return v
}

// Initials returns the upper-cased first letters of the first two words, or
// "?" for a blank name.
func Initials(name string) string {
	words := strings.Fields(name)
	if len(words) == 0 {
		return "?"
	}
	if len(words) > 2 {
		words = words[:2]
	}
	var b strings.Builder
	for _, w := range words {
		r := []rune(w)[0]
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// AvatarURL returns a generated avatar image for name.
func AvatarURL(name string) string {
	return avatarBaseURL + url.QueryEscape(name)
}

// LastModified renders ts relative to now: minutes, hours and days for the
// first week, the calendar date after that.
func LastModified(ts, now time.Time) string {
	d := now.Sub(ts)
	minutes := int(d / time.Minute)
	hours := minutes / 60
	days := hours / 24

	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return plural(minutes, "minute") + " ago"
	case hours < 24:
		return plural(hours, "hour") + " ago"
	case days < 7:
		return plural(days, "day") + " ago"
	}
	return ts.Local().Format("2006-01-02")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
