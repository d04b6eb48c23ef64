// Package extractor turns fetched HTML into structured documents using an
// ordered chain of heuristics. The chain is intentionally first-match: the
// strategies are fallbacks, not signals to merge.
package extractor

import (
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"webharvest/internal/domain"
	"webharvest/internal/textutil"
)

// ErrNoContent indicates no body candidate produced enough text.
var ErrNoContent = errors.New("no main content found")

const (
	// minMainContentLen is the minimum character count for a body candidate.
	minMainContentLen = 200
	// minParagraphLen filters out short paragraphs in the fallback strategy.
	minParagraphLen = 50
	// maxTags caps the number of tags per document.
	maxTags = 10
)

// contentSelectors are the body candidates, tried in order.
var contentSelectors = []string{
	"article", `[role="main"]`, ".content", "#content",
	".post-content", ".entry-content", ".article-body",
}

// titleSelectors are the title candidates, tried before the <title> tag.
var titleSelectors = []string{
	"h1", ".title", ".post-title", ".article-title",
	".entry-title", `[property="og:title"]`,
}

var authorSelectors = []string{
	`[rel="author"]`, ".author", ".byline",
	`[property="article:author"]`, ".post-author",
}

var dateSelectors = []string{
	`[property="article:published_time"]`,
	"[datetime]", ".date", ".publish-date", "time",
}

var tagSelectors = []string{
	".tags a", ".categories a", ".tag", `[property="article:tag"]`,
}

// adClassFragments mark chrome elements removed before extraction, matched
// case-insensitively as substrings of the class attribute.
var adClassFragments = []string{"ad", "advertisement", "social-share", "related-posts"}

// Extractor extracts article content from parsed HTML.
type Extractor struct{}

// New creates an extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract cleans the document and extracts the main text, metadata, and
// reading statistics. It mutates doc: chrome subtrees are removed, which
// the caller may rely on when collecting outbound links afterwards.
// Returns ErrNoContent when no body candidate qualifies; it never fails
// on malformed HTML.
func (e *Extractor) Extract(pageURL string, doc *goquery.Document) (*domain.Document, error) {
	cleanDocument(doc)

	content := extractMainContent(doc)
	if content == "" {
		return nil, ErrNoContent
	}

	wordCount := textutil.WordCount(content)

	return &domain.Document{
		URL:         pageURL,
		Title:       extractTitle(doc),
		Description: extractDescription(doc),
		Content:     content,
		Author:      firstNonEmpty(doc, authorSelectors),
		PublishDate: extractPublishDate(doc),
		Tags:        extractTags(doc),
		WordCount:   wordCount,
		ReadingTime: textutil.ReadingTime(content),
		Readability: textutil.FleschReadingEase(content),
		ExtractedAt: time.Now().UTC().Format(time.RFC3339),
		ContentHash: textutil.ContentHash(content),
	}, nil
}

// cleanDocument strips scripts, styles, page chrome, HTML comments, and
// ad or social widgets.
func cleanDocument(doc *goquery.Document) {
	doc.Find("script, style, nav, header, footer").Remove()

	removeComments(doc)

	doc.Find("[class]").Each(func(_ int, sel *goquery.Selection) {
		class, _ := sel.Attr("class")
		lower := strings.ToLower(class)
		for _, fragment := range adClassFragments {
			if strings.Contains(lower, fragment) {
				sel.Remove()
				return
			}
		}
	})
}

// removeComments drops HTML comment nodes from the whole tree.
func removeComments(doc *goquery.Document) {
	for _, root := range doc.Nodes {
		removeCommentNodes(root)
	}
}

func removeCommentNodes(node *html.Node) {
	child := node.FirstChild
	for child != nil {
		next := child.NextSibling
		if child.Type == html.CommentNode {
			node.RemoveChild(child)
		} else {
			removeCommentNodes(child)
		}
		child = next
	}
}

// extractMainContent tries the selector candidates, then long paragraphs,
// then the whole body, returning the first strategy that yields enough text.
func extractMainContent(doc *goquery.Document) string {
	for _, selector := range contentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}

		if text := normalizeSpace(sel.Text()); len(text) > minMainContentLen {
			return text
		}
	}

	var blocks []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := normalizeSpace(p.Text()); len(text) > minParagraphLen {
			blocks = append(blocks, text)
		}
	})
	if len(blocks) > 0 {
		return strings.Join(blocks, " ")
	}

	if body := doc.Find("body").First(); body.Length() > 0 {
		if text := normalizeSpace(body.Text()); len(text) > minMainContentLen {
			return text
		}
	}

	return ""
}

// extractTitle tries the title selectors, then the <title> tag.
func extractTitle(doc *goquery.Document) string {
	if title := firstNonEmpty(doc, titleSelectors); title != "" {
		return title
	}

	return normalizeSpace(doc.Find("title").First().Text())
}

// extractDescription reads the meta description, then og:description.
func extractDescription(doc *goquery.Document) string {
	if desc, exists := doc.Find(`meta[name="description"]`).Attr("content"); exists {
		if trimmed := strings.TrimSpace(desc); trimmed != "" {
			return trimmed
		}
	}

	if desc, exists := doc.Find(`meta[property="og:description"]`).Attr("content"); exists {
		return strings.TrimSpace(desc)
	}

	return ""
}

// extractPublishDate reads the first date candidate, preferring the
// datetime or content attribute over element text, and normalizes it to
// ISO-8601. Unparseable dates are reported as absent.
func extractPublishDate(doc *goquery.Document) string {
	for _, selector := range dateSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}

		raw, ok := sel.Attr("datetime")
		if !ok || raw == "" {
			raw, _ = sel.Attr("content")
		}
		if raw == "" {
			raw = normalizeSpace(sel.Text())
		}

		if raw != "" {
			return parseDate(raw)
		}
	}

	return ""
}

// dateLayouts are tried in order when normalizing publish dates.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"January 2, 2006",
	"Jan 2, 2006",
	"02 Jan 2006",
}

func parseDate(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.Format(time.RFC3339)
		}
	}
	return ""
}

// extractTags collects tags in DOM order across the tag selectors,
// deduplicated preserving first occurrence, truncated to maxTags.
func extractTags(doc *goquery.Document) domain.Tags {
	var tags domain.Tags
	seen := make(map[string]struct{})

	for _, selector := range tagSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			tag := elementText(sel)
			if tag == "" {
				return
			}
			if _, dup := seen[tag]; dup {
				return
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		})
	}

	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}

	return tags
}

// firstNonEmpty returns the first selector whose element has text, falling
// back to the element's content attribute for meta-style elements.
func firstNonEmpty(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if text := elementText(sel); text != "" {
			return text
		}
	}
	return ""
}

// elementText returns the element's trimmed text, or its content
// attribute when the element carries no text (meta tags).
func elementText(sel *goquery.Selection) string {
	if text := normalizeSpace(sel.Text()); text != "" {
		return text
	}

	content, _ := sel.Attr("content")
	return strings.TrimSpace(content)
}

// normalizeSpace trims and collapses runs of whitespace to single spaces.
func normalizeSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
