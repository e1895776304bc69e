package chat

import (
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Segment is a piece of a formatted reply: plain text, or a link when Href
// is set.
type Segment struct {
	Text string `json:"text"`
	Href string `json:"href,omitempty"`
}

// MeetingLink relabels links to a meeting or booking platform.
type MeetingLink struct {
	Domain string
	Label  string
}

// MeetingLinks are matched against the link host, including subdomains.
var MeetingLinks = []MeetingLink{
	{Domain: "calendly.com", Label: "📅 Book a meeting"},
	{Domain: "cal.com", Label: "📅 Book a meeting"},
	{Domain: "zoom.us", Label: "🎥 Join Zoom meeting"},
	{Domain: "meet.google.com", Label: "🎥 Join Google Meet"},
	{Domain: "teams.microsoft.com", Label: "🎥 Join Teams meeting"},
}

var (
	fencePattern    = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*\n?(.*?)```")
	linkPattern     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)\s]+)\)`)
	boldPattern     = regexp.MustCompile(`(\*\*|__)(.+?)(\*\*|__)`)
	italicPattern   = regexp.MustCompile(`(^|[^\w*])[*_]([^*_\n]+)[*_]`)
	codePattern     = regexp.MustCompile("`([^`]+)`")
	headingPattern  = regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}[ \t]+`)
	bulletPattern   = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`)
	numberedPattern = regexp.MustCompile(`(?m)^[ \t]*\d+[.)][ \t]+`)
	urlPattern      = regexp.MustCompile(`https?://[^\s<>"'\x00]+`)
	maskPattern     = regexp.MustCompile(`\x00[0-9]+\x00`)
)

const urlMark = "\x00"

// StripMarkup removes lightweight markdown from a bot reply. Links keep
// their text and URL so the URL can still be linked.
func StripMarkup(s string) string {
	s = fencePattern.ReplaceAllString(s, "$1")
	s = linkPattern.ReplaceAllString(s, "$1 ($2)")

	// URLs are masked so emphasis markers inside them survive.
	s, urls := maskURLs(s)
	s = boldPattern.ReplaceAllString(s, "$2")
	s = italicPattern.ReplaceAllString(s, "$1$2")
	s = codePattern.ReplaceAllString(s, "$1")
	s = unmaskURLs(s, urls)

	s = headingPattern.ReplaceAllString(s, "")
	s = bulletPattern.ReplaceAllString(s, "")
	s = numberedPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// maskURLs swaps every URL for a NUL-delimited index. Trailing markup
// characters stay outside the URL so "**https://x.io**" still unbolds.
func maskURLs(s string) (string, []string) {
	var (
		b    strings.Builder
		urls []string
		last int
	)
	for _, loc := range urlPattern.FindAllStringIndex(s, -1) {
		start, end := loc[0], loc[1]
		for end > start && strings.ContainsRune("*_`", rune(s[end-1])) {
			end--
		}
		b.WriteString(s[last:start])
		b.WriteString(urlMark + strconv.Itoa(len(urls)) + urlMark)
		urls = append(urls, s[start:end])
		last = end
	}
	if urls == nil {
		return s, nil
	}
	b.WriteString(s[last:])
	return b.String(), urls
}

func unmaskURLs(s string, urls []string) string {
	if len(urls) == 0 {
		return s
	}
	return maskPattern.ReplaceAllStringFunc(s, func(m string) string {
		i, err := strconv.Atoi(strings.Trim(m, urlMark))
		if err != nil || i >= len(urls) {
			return m
		}
		return urls[i]
	})
}

// Linkify splits s into text and link segments.
func Linkify(s string) []Segment {
	var segments []Segment
	last := 0
	for _, loc := range urlPattern.FindAllStringIndex(s, -1) {
		start, end := loc[0], loc[1]
		// Sentence punctuation is not part of the URL.
		for end > start && strings.ContainsRune(".,;:!?)", rune(s[end-1])) {
			end--
		}
		if start > last {
			segments = append(segments, Segment{Text: s[last:start]})
		}
		href := s[start:end]
		segments = append(segments, Segment{Text: linkLabel(href), Href: href})
		last = end
	}
	if last < len(s) {
		segments = append(segments, Segment{Text: s[last:]})
	}
	return segments
}

// Format strips markup and linkifies a reply.
func Format(s string) []Segment {
	return Linkify(StripMarkup(s))
}

// RenderHTML renders segments as escaped HTML with line breaks.
func RenderHTML(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg.Href == "" {
			b.WriteString(strings.ReplaceAll(html.EscapeString(seg.Text), "\n", "<br>"))
			continue
		}
		b.WriteString(`<a href="`)
		b.WriteString(html.EscapeString(seg.Href))
		b.WriteString(`" target="_blank" rel="noopener noreferrer">`)
		b.WriteString(html.EscapeString(seg.Text))
		b.WriteString(`</a>`)
	}
	return b.String()
}

func linkLabel(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	host := strings.ToLower(u.Hostname())
	for _, m := range MeetingLinks {
		if host == m.Domain || strings.HasSuffix(host, "."+m.Domain) {
			return m.Label
		}
	}
	return href
}
