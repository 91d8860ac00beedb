package stepsheet

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/dancedb/dancedb/internal/config"
)

// RawFields holds the unparsed field blobs located on a stepsheet page.
// Every field is the empty string when its anchor is missing.
type RawFields struct {
	Name            string
	Title           string
	Count           string
	Wall            string
	Level           string
	Choreographer   string // line breaks preserved
	MusicHTML       string // outer HTML of the music block
	StepsText       string // line breaks preserved
	MetaDescription string
}

var (
	labelPrefix  = regexp.MustCompile(`(?i)^(count|wall|level|choreographers?|music)\s*:\s*`)
	metaSummary  = regexp.MustCompile(`(?i)(\d+)\s*count\s*(\d+)\s*wall\s*([^-]*)`)
	lineDanceTag = regexp.MustCompile(`(?i)\s*line\s+dance\s*$`)
)

// Extractor locates stepsheet fields using configured structural anchors
// with metadata fallbacks.
type Extractor struct {
	sel config.SelectorConfig
}

// NewExtractor creates an Extractor for the given anchors.
func NewExtractor(sel config.SelectorConfig) *Extractor {
	return &Extractor{sel: sel}
}

// Extract locates every field in doc. It never fails; fields it cannot
// find are left empty.
func (e *Extractor) Extract(doc *goquery.Document) RawFields {
	var root *html.Node
	if len(doc.Nodes) > 0 {
		root = doc.Nodes[0]
	}

	titleText := cleanText(doc.Find("title").First().Text())
	titleParts := splitDash(titleText)

	f := RawFields{
		Title:           titleText,
		Name:            firstText(doc, e.sel.Name),
		Count:           stripLabel(firstText(doc, e.sel.Count)),
		Wall:            stripLabel(firstText(doc, e.sel.Wall)),
		Level:           stripLabel(firstText(doc, e.sel.Level)),
		MetaDescription: metaContent(root, e.sel.MetaDescription),
	}

	if f.Name == "" {
		for _, expr := range e.sel.MetaTitle {
			if f.Name = metaContent(root, expr); f.Name != "" {
				break
			}
		}
	}
	// "CopperKnob - Power Jam - Kathi Stringer"
	if f.Name == "" && len(titleParts) >= 2 {
		f.Name = titleParts[1]
	}

	if m := metaSummary.FindStringSubmatch(f.MetaDescription); m != nil {
		if f.Count == "" {
			f.Count = m[1]
		}
		if f.Wall == "" {
			f.Wall = m[2]
		}
		if f.Level == "" {
			f.Level = strings.TrimSpace(m[3])
		}
	}
	f.Level = strings.TrimSpace(lineDanceTag.ReplaceAllString(f.Level, ""))

	if s := firstSelection(doc, e.sel.Choreographer); s != nil {
		f.Choreographer = stripLabel(blockText(s))
	}
	if f.Choreographer == "" {
		if i := strings.LastIndex(f.MetaDescription, " - "); i >= 0 {
			f.Choreographer = cleanText(f.MetaDescription[i+3:])
		} else if len(titleParts) >= 3 {
			f.Choreographer = titleParts[2]
		}
	}

	if s := firstSelection(doc, e.sel.Music); s != nil {
		if h, err := goquery.OuterHtml(s); err == nil {
			f.MusicHTML = h
		}
	}

	if s := firstSelection(doc, e.sel.Steps); s != nil {
		f.StepsText = blockText(s)
	}

	return f
}

// metaContent evaluates an XPath expression and returns the content
// attribute of the first match, or its text when it has none.
func metaContent(root *html.Node, expr string) string {
	if root == nil || expr == "" {
		return ""
	}
	node, err := htmlquery.Query(root, expr)
	if err != nil || node == nil {
		return ""
	}
	if v := htmlquery.SelectAttr(node, "content"); v != "" {
		return cleanText(v)
	}
	return cleanText(htmlquery.InnerText(node))
}

// stripLabel removes a leading "Count:" style label.
func stripLabel(s string) string {
	return strings.TrimSpace(labelPrefix.ReplaceAllString(s, ""))
}

// splitDash splits on " - " and trims each part.
func splitDash(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, " - ")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
