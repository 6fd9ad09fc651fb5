package display

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSentinels(t *testing.T) {
	assert.Equal(t, "Unknown", Value("unknown"))
	assert.Equal(t, "Unknown", Value("n/a"))
	assert.Equal(t, "Unknown", Value("Unknown"))
	assert.Equal(t, "Unknown Value", Value("Unknown Value"))
	assert.Equal(t, "blond", Value("blond"))

	assert.False(t, HasValue("n/a"))
	assert.False(t, HasValue("  "))
	assert.True(t, HasValue("blue"))
}

func TestUnits(t *testing.T) {
	assert.Equal(t, "172 cm", Height("172"))
	assert.Equal(t, "Unknown", Height("unknown"))
	assert.Equal(t, "77 kg", Mass("77"))
	assert.Equal(t, "Unknown", Mass("n/a"))
}

func TestName(t *testing.T) {
	assert.Equal(t, "Unknown Character", Name("   "))
	assert.Equal(t, "Leia Organa", Name(" Leia Organa "))
}

func TestInitials(t *testing.T) {
	cases := map[string]string{
		"":                      "?",
		"Chewbacca":             "C",
		"luke skywalker":        "LS",
		"Jabba Desilijic Tiure": "JD",
		"  obi-wan   kenobi ":   "OK",
	}
	for in, want := range cases {
		assert.Equal(t, want, Initials(in), "Initials(%q)", in)
	}
}

func TestAvatarURL(t *testing.T) {
	assert.Equal(t, "https://api.dicebear.com/7.x/bottts/svg?seed=R2-D2+%26+C-3PO", AvatarURL("R2-D2 & C-3PO"))
}

func TestLastModified(t *testing.T) {
	now := time.Date(2025, 5, 4, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "Just now"},
		{time.Minute, "1 minute ago"},
		{42 * time.Minute, "42 minutes ago"},
		{time.Hour, "1 hour ago"},
		{5 * time.Hour, "5 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{6 * 24 * time.Hour, "6 days ago"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LastModified(now.Add(-tc.ago), now), "ago=%s", tc.ago)
	}

	old := now.Add(-30 * 24 * time.Hour)
	assert.Equal(t, old.Local().Format("2006-01-02"), LastModified(old, now))
}
