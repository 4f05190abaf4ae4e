package extract

import (
	"net/url"
	"slices"
	"testing"

	"github.com/nao1215/webarchive/internal/model"
)

// TestPageLinks tests hyperlink extraction and resolution.
func TestPageLinks(t *testing.T) {
	t.Parallel()

	t.Run("relative links resolve against the page URL", func(t *testing.T) {
		t.Parallel()

		body := []byte(`<html><body>
			<a href="/about">About</a>
			<a href="contact">Contact</a>
			<a href="https://other.example/page">External</a>
		</body></html>`)
		res := Page(mustParse(t, "https://example.com/blog/post"), body)

		want := []string{
			"https://example.com/about",
			"https://example.com/blog/contact",
			"https://other.example/page",
		}
		if !slices.Equal(res.Links, want) {
			t.Errorf("Links = %v, want %v", res.Links, want)
		}
	})

	t.Run("duplicate links appear once", func(t *testing.T) {
		t.Parallel()

		body := []byte(`<a href="/a">one</a><a href="/a">two</a><a href="/b">three</a>`)
		res := Page(mustParse(t, "https://example.com/"), body)
		if len(res.Links) != 2 {
			t.Errorf("Links = %v, want 2 entries", res.Links)
		}
	})

	t.Run("non-navigational schemes are skipped", func(t *testing.T) {
		t.Parallel()

		body := []byte(`<body>
			<a href="javascript:void(0)">js</a>
			<a href="mailto:x@example.com">mail</a>
			<a href="tel:+15551234">call</a>
			<a href="data:text/plain,hi">data</a>
			<a href="/real">real</a>
		</body>`)
		res := Page(mustParse(t, "https://example.com/"), body)
		if len(res.Links) != 1 || res.Links[0] != "https://example.com/real" {
			t.Errorf("Links = %v, want only /real", res.Links)
		}
	})
}

// TestPageAssets tests asset classification.
func TestPageAssets(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><head>
		<title>  Demo Page  </title>
		<link rel="stylesheet" href="/css/site.css">
		<link rel="icon" href="/favicon.ico">
		<link rel="preload" as="font" href="/fonts/sans.woff2">
		<meta property="og:image" content="/img/card.png">
		<script src="/js/app.js"></script>
	</head><body>
		<img src="/img/hero.jpg">
		<img data-src="/img/lazy.jpg">
	</body></html>`)

	res := Page(mustParse(t, "https://example.com/"), body)

	if res.Title != "Demo Page" {
		t.Errorf("Title = %q, want %q", res.Title, "Demo Page")
	}

	want := map[string]model.AssetType{
		"https://example.com/css/site.css":     model.AssetCSS,
		"https://example.com/favicon.ico":      model.AssetFavicon,
		"https://example.com/fonts/sans.woff2": model.AssetFont,
		"https://example.com/img/card.png":     model.AssetMetaImage,
		"https://example.com/js/app.js":        model.AssetJS,
		"https://example.com/img/hero.jpg":     model.AssetImage,
		"https://example.com/img/lazy.jpg":     model.AssetImage,
	}
	if len(res.Assets) != len(want) {
		t.Fatalf("got %d assets, want %d: %v", len(res.Assets), len(want), res.Assets)
	}
	for _, a := range res.Assets {
		typ, ok := want[a.URL]
		if !ok {
			t.Errorf("unexpected asset %q", a.URL)
			continue
		}
		if a.Type != typ {
			t.Errorf("asset %q classified %s, want %s", a.URL, a.Type, typ)
		}
	}
}

// TestPageBrokenHTML verifies extraction degrades instead of failing on
// damaged markup.
func TestPageBrokenHTML(t *testing.T) {
	t.Parallel()

	t.Run("unclosed tags still yield links", func(t *testing.T) {
		t.Parallel()

		body := []byte(`<html><body><a href="/ok">ok<div><a href="/also`)
		res := Page(mustParse(t, "https://example.com/"), body)
		if len(res.Links) == 0 {
			t.Error("expected at least one link from broken markup")
		}
		if res.Links[0] != "https://example.com/ok" {
			t.Errorf("Links[0] = %q, want /ok", res.Links[0])
		}
	})

	t.Run("empty body yields an empty result", func(t *testing.T) {
		t.Parallel()

		res := Page(mustParse(t, "https://example.com/"), nil)
		if res.Title != "" || len(res.Links) != 0 || len(res.Assets) != 0 {
			t.Errorf("expected empty result, got %+v", res)
		}
	})

	t.Run("binary garbage yields an empty result", func(t *testing.T) {
		t.Parallel()

		res := Page(mustParse(t, "https://example.com/"), []byte{0x00, 0xff, 0xfe, 0x7f})
		if len(res.Links) != 0 || len(res.Assets) != 0 {
			t.Errorf("expected empty result, got %+v", res)
		}
	})
}

// mustParse parses a URL or fails the test.
func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}
