package chat

import (
	"reflect"
	"testing"
)

func TestStripMarkup(t *testing.T) {
	cases := map[string]string{
		"**Bold** and *italic* and __under__":       "Bold and italic and under",
		"Run `make build` now":                      "Run make build now",
		"## Pricing\n- Starter\n- Pro\n1. Pick one": "Pricing\nStarter\nPro\nPick one",
		"See [our docs](https://example.com/docs).": "See our docs (https://example.com/docs).",
		"```go\nfmt.Println(1)\n```":                "fmt.Println(1)",
		"keep snake_case_names intact":              "keep snake_case_names intact",
		"**Guide: https://example.com/a_b_/c**":     "Guide: https://example.com/a_b_/c",
		"Open https://example.com/*draft*/v2 *now*": "Open https://example.com/*draft*/v2 now",
	}
	for in, want := range cases {
		if got := StripMarkup(in); got != want {
			t.Fatalf("StripMarkup(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLinkify(t *testing.T) {
	got := Linkify("Book at https://calendly.com/acme/intro. Docs: https://example.com/a?b=1")
	want := []Segment{
		{Text: "Book at "},
		{Text: "📅 Book a meeting", Href: "https://calendly.com/acme/intro"},
		{Text: ". Docs: "},
		{Text: "https://example.com/a?b=1", Href: "https://example.com/a?b=1"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected segments:\n got %#v\nwant %#v", got, want)
	}

	zoom := Linkify("https://us02web.zoom.us/j/123")
	if len(zoom) != 1 || zoom[0].Text != "🎥 Join Zoom meeting" {
		t.Fatalf("subdomain not relabelled: %#v", zoom)
	}
}

func TestRenderHTMLEscapes(t *testing.T) {
	html := RenderHTML(Format("<b>hi</b>\nvisit https://example.com"))
	want := `&lt;b&gt;hi&lt;/b&gt;<br>visit <a href="https://example.com" target="_blank" rel="noopener noreferrer">https://example.com</a>`
	if html != want {
		t.Fatalf("unexpected html:\n got %s\nwant %s", html, want)
	}
}

func TestFormatKeepsEmphasisCharsInURLs(t *testing.T) {
	got := Format("Read https://example.com/guides/_setup_/start and reply")
	want := []Segment{
		{Text: "Read "},
		{Text: "https://example.com/guides/_setup_/start", Href: "https://example.com/guides/_setup_/start"},
		{Text: " and reply"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected segments:\n got %#v\nwant %#v", got, want)
	}
}
