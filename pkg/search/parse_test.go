package search

import "testing"

func TestParseBlock(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected Result
		ok       bool
	}{
		{
			name: "link title and snippet",
			html: `<div data-rpos="1">
				<span><a href="https://go.dev/"><h3>The Go Programming Language</h3></a></span>
				<span>Build <em>simple</em>, secure, scalable systems.</span>
			</div>`,
			expected: Result{
				Link:    "https://go.dev/",
				Title:   "The Go Programming Language",
				Snippet: "Build simple, secure, scalable systems.",
			},
			ok: true,
		},
		{
			name: "multiple highlighted spans join with newline",
			html: `<div data-rpos="2">
				<span><a href="https://example.com/docs">Docs</a></span>
				<span>First <em>match</em> here.</span>
				<span>plain span without highlight</span>
				<span>Second <em>match</em> there.</span>
			</div>`,
			expected: Result{
				Link:    "https://example.com/docs",
				Title:   "Docs",
				Snippet: "First match here.\nSecond match there.",
			},
			ok: true,
		},
		{
			name: "no snippet spans",
			html: `<div data-rpos="3"><span><a href="https://example.com/">Example</a></span></div>`,
			expected: Result{
				Link:  "https://example.com/",
				Title: "Example",
			},
			ok: true,
		},
		{
			name: "block without anchor is skipped",
			html: `<div data-rpos="4"><span>People also ask</span><span>Related <em>question</em></span></div>`,
			ok:   false,
		},
		{
			name: "anchor without href is skipped",
			html: `<div data-rpos="5"><span><a>Broken</a></span></div>`,
			ok:   false,
		},
		{
			name: "nested markup in title flattens to text",
			html: `<div data-rpos="6"><span><a href="https://pkg.go.dev/"><h3><b>pkg</b>.go.dev</h3></a></span></div>`,
			expected: Result{
				Link:  "https://pkg.go.dev/",
				Title: "pkg.go.dev",
			},
			ok: true,
		},
		{
			name: "first linked span wins",
			html: `<div data-rpos="7">
				<span><a href="https://first.test/">First</a></span>
				<span><a href="https://second.test/">Second</a></span>
			</div>`,
			expected: Result{
				Link:  "https://first.test/",
				Title: "First",
			},
			ok: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseBlock(tt.html)
			if ok != tt.ok {
				t.Fatalf("parseBlock() ok = %v, expected %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.Link != tt.expected.Link {
				t.Errorf("Link = %q, expected %q", got.Link, tt.expected.Link)
			}
			if got.Title != tt.expected.Title {
				t.Errorf("Title = %q, expected %q", got.Title, tt.expected.Title)
			}
			if got.Snippet != tt.expected.Snippet {
				t.Errorf("Snippet = %q, expected %q", got.Snippet, tt.expected.Snippet)
			}
		})
	}
}
