package utils

import (
	"bytes"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer maps raw comment text to safe HTML for a given parser tag.
// Implementations must be idempotent and side-effect free.
type Renderer interface {
	Render(parserTag, raw string) string
}

// HTMLRenderer converts and sanitizes comment messages. It understands the
// "markdown" and "html" parser tags; anything unknown is sanitized as-is,
// so the worst case is escaped output rather than a failure.
type HTMLRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	cache  *lru.Cache[string, string]
}

// NewHTMLRenderer builds the default renderer. Rendering is pure, so
// results are memoized in a small LRU keyed by parser tag and source.
func NewHTMLRenderer() *HTMLRenderer {
	policy := bluemonday.UGCPolicy()
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnLinks(true)

	// Cache creation only fails for a non-positive size.
	cache, _ := lru.New[string, string](512)

	return &HTMLRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
				html.WithXHTML(),
			),
		),
		policy: policy,
		cache:  cache,
	}
}

func (r *HTMLRenderer) Render(parserTag, raw string) string {
	key := parserTag + "\x00" + raw
	if cached, ok := r.cache.Get(key); ok {
		return cached
	}

	var out string
	switch parserTag {
	case "markdown":
		var buf bytes.Buffer
		if err := r.md.Convert([]byte(raw), &buf); err != nil {
			out = r.policy.Sanitize(raw)
		} else {
			out = string(r.policy.SanitizeBytes(buf.Bytes()))
		}
	default:
		// "html" and unknown tags: sanitize only
		out = r.policy.Sanitize(raw)
	}

	r.cache.Add(key, out)
	return out
}
