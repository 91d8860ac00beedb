package stepsheet

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ParseSongs reads the music block into songs in document order.
//
// Every link in the block is a song. Its artist is the text after the link
// inside the song's span, up to the next link or line break. A block with no
// links at all is read line by line as "Title - Artist". The result is never nil.
func ParseSongs(musicHTML string) []Song {
	songs := []Song{}
	if strings.TrimSpace(musicHTML) == "" {
		return songs
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(musicHTML))
	if err != nil {
		return songs
	}
	block := doc.Find("body")
	if block.Length() == 0 {
		return songs
	}
	root := block.Nodes[0]

	block.Find("a").Each(func(_ int, link *goquery.Selection) {
		title := cleanText(link.Text())
		if title == "" {
			return
		}
		node := link.Nodes[0]
		songs = append(songs, Song{Title: title, Artist: trailingArtist(node, songGroup(node, root))})
	})
	if len(songs) > 0 {
		return songs
	}

	for _, line := range strings.Split(blockText(block), "\n") {
		line = stripLabel(line)
		title, artist := line, ""
		if i := strings.Index(line, " - "); i >= 0 {
			title, artist = line[:i], line[i+3:]
		}
		if title = strings.TrimSpace(title); title != "" {
			songs = append(songs, Song{Title: title, Artist: strings.TrimSpace(artist)})
		}
	}
	return songs
}

// songGroup returns the span that holds link's song: the outermost enclosing
// span with no other link, or the nearest span when that one already holds
// several links. Without a span below root the link's parent is used.
func songGroup(link, root *html.Node) *html.Node {
	var group *html.Node
	for n := link.Parent; n != nil && n != root; n = n.Parent {
		if n.Type != html.ElementNode || n.Data != "span" {
			continue
		}
		multi := countLinks(n) > 1
		if group == nil || !multi {
			group = n
		}
		if multi {
			break
		}
	}
	if group == nil {
		return link.Parent
	}
	return group
}

func countLinks(n *html.Node) int {
	count := 0
	if n.Type == html.ElementNode && n.Data == "a" {
		count++
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count += countLinks(c)
	}
	return count
}

// trailingArtist collects the text after link within group, up to the next
// link or line break, and returns the part after the first " - ".
func trailingArtist(link, group *html.Node) string {
	var b strings.Builder
	for n := nextOutside(link, group); n != nil; {
		if n.Type == html.ElementNode && (n.Data == "a" || n.Data == "br") {
			break
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		if n.FirstChild != nil {
			n = n.FirstChild
		} else {
			n = nextOutside(n, group)
		}
	}

	text := spaceText(b.String())
	if i := strings.Index(text, " - "); i >= 0 {
		text = text[i+3:]
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSpace(strings.TrimLeft(text, "-–"))
	return text
}

// nextOutside returns the node following n's subtree in document order,
// or nil once the walk would leave group.
func nextOutside(n, group *html.Node) *html.Node {
	for ; n != nil && n != group; n = n.Parent {
		if n.NextSibling != nil {
			return n.NextSibling
		}
	}
	return nil
}
