package render

import (
	"html"
	"html/template"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

const (
	fallbackSiteName = "le site original"
	dateLayout       = "02 January 2006"
)

// dateLayouts are the token shapes the listings API is known to emit.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// EscapeHTML escapes text for insertion into markup. Empty input yields "".
func EscapeHTML(text string) string {
	if text == "" {
		return ""
	}
	return html.EscapeString(text)
}

// TextBlock escapes plain text and keeps its line breaks.
func TextBlock(text string) template.HTML {
	escaped := EscapeHTML(strings.ReplaceAll(text, "\r\n", "\n"))
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

// SiteName derives a readable label for a job board link.
func SiteName(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return fallbackSiteName
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case strings.Contains(host, "linkedin"):
		return "LinkedIn"
	case strings.Contains(host, "indeed"):
		return "Indeed"
	default:
		return host
	}
}

// ParseDate parses a date token from the listings API.
func ParseDate(token string) (time.Time, bool) {
	token = strings.TrimSpace(token)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders a date token as a French long date ("02 janvier 2024").
// Tokens that do not parse are returned unchanged.
func FormatDate(token string) string {
	t, ok := ParseDate(token)
	if !ok {
		return token
	}
	return monday.Format(t, dateLayout, monday.LocaleFrFR)
}

// CountLabel is the job counter shown above the list.
func CountLabel(n int) string {
	label := strconv.Itoa(n) + " offre"
	if n > 1 {
		label += "s"
	}
	return label
}

// StaggerDelay is the reveal delay, in seconds, of the card at index i.
func StaggerDelay(i int) string {
	return strconv.FormatFloat(float64(i)*0.05, 'f', 2, 64)
}
