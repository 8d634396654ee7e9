package releases

import (
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Page is one page of release labels in feed order.
type Page struct {
	Number   int
	Releases []string
	HasMore  bool
	Next     int // next page to request; 0 when HasMore is false
}

// NewPage derives pagination from the number of labels found. A full page
// (or more, should the feed ever grow its page size) means another page may
// follow; anything shorter is treated as the last page.
func NewPage(n int, labels []string) *Page {
	p := &Page{Number: n, Releases: labels}
	if len(labels) >= PageSize {
		p.HasMore = true
		p.Next = n + 1
	}
	return p
}

// Empty reports whether the page carried no releases at all.
func (p *Page) Empty() bool {
	return len(p.Releases) == 0
}

// Parse extracts the primary release link labels from a feed page body.
// A primary link is an anchor to a release tag carrying the Link--primary
// class; its visible text is the label, e.g. "Bun v1.1.34".
func Parse(r io.Reader) ([]string, error) {
	z := html.NewTokenizer(r)

	var labels []string
	var text strings.Builder
	inLink := false
	depth := 0
	seen := make(map[string]bool)

	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, err
			}
			return labels, nil

		case html.StartTagToken:
			tok := z.Token()
			if inLink {
				if tok.Data == "a" {
					depth++
				}
				continue
			}
			if tok.Data != "a" {
				continue
			}
			href, class := attr(tok, "href"), attr(tok, "class")
			if !strings.Contains(href, "/releases/tag/") || !hasClass(class, "Link--primary") {
				continue
			}
			// GitHub repeats the same tag link in some layouts.
			if seen[href] {
				continue
			}
			seen[href] = true
			inLink = true
			depth = 0
			text.Reset()

		case html.TextToken:
			if inLink {
				text.Write(z.Text())
			}

		case html.EndTagToken:
			if !inLink {
				continue
			}
			name, _ := z.TagName()
			if string(name) != "a" {
				continue
			}
			if depth > 0 {
				depth--
				continue
			}
			inLink = false
			if label := strings.Join(strings.Fields(text.String()), " "); label != "" {
				labels = append(labels, label)
			}
		}
	}
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(classAttr, want string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == want {
			return true
		}
	}
	return false
}

var versionPattern = regexp.MustCompile(`v?(\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?)`)

// VersionFromLabel returns the version number inside a release label such as
// "Bun v1.1.34", or "" when there is none.
func VersionFromLabel(label string) string {
	m := versionPattern.FindStringSubmatch(label)
	if m == nil {
		return ""
	}
	return m[1]
}
