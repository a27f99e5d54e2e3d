package fetch

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

var (
	scriptRe         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	excessiveLinesRe = regexp.MustCompile(`\n{3,}`)
)

// strippedTags never carry policy text.
var strippedTags = []string{
	"header", "footer", "nav", "aside", "script", "style", "noscript",
	"iframe", "object", "embed", "form", "button", "svg",
}

// strippedClasses mark cookie banners and site chrome.
var strippedClasses = []string{
	"navbar", "navigation", "sidebar", "menu", "footer", "header",
	"cookie-banner", "cookie-consent", "breadcrumb", "share", "social",
}

// Converter turns a policy page into plain markdown text.
type Converter struct {
	converter *md.Converter
}

// NewConverter creates a Converter.
func NewConverter() *Converter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Converter{converter: converter}
}

// Convert strips site chrome from htmlContent and renders the rest as markdown.
func (c *Converter) Convert(htmlContent []byte) (string, error) {
	markdown, err := c.converter.ConvertString(extractMainContent(htmlContent))
	if err != nil {
		return "", err
	}
	return cleanMarkdown(markdown), nil
}

func extractMainContent(content []byte) string {
	doc, err := html.Parse(strings.NewReader(string(content)))
	if err != nil {
		content := scriptRe.ReplaceAllString(string(content), "")
		return styleRe.ReplaceAllString(content, "")
	}

	removeElements(doc, strippedTags)
	removeByClass(doc, strippedClasses)

	for _, tag := range []string{"main", "article"} {
		if node := findElement(doc, tag); node != nil {
			return renderNode(node)
		}
	}
	if body := findElement(doc, "body"); body != nil {
		return renderNode(body)
	}
	return renderNode(doc)
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func removeElements(n *html.Node, tags []string) {
	tagSet := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tagSet[tag] = true
	}
	removeMatching(n, func(node *html.Node) bool { return tagSet[node.Data] })
}

func removeByClass(n *html.Node, classes []string) {
	classSet := make(map[string]bool, len(classes))
	for _, class := range classes {
		classSet[class] = true
	}
	removeMatching(n, func(node *html.Node) bool {
		for _, a := range node.Attr {
			if a.Key != "class" {
				continue
			}
			for _, c := range strings.Fields(strings.ToLower(a.Val)) {
				if classSet[c] {
					return true
				}
			}
		}
		return false
	})
}

func removeMatching(n *html.Node, match func(*html.Node) bool) {
	var toRemove []*html.Node
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.ElementNode && match(node) {
			toRemove = append(toRemove, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)

	for _, node := range toRemove {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}
}

func renderNode(n *html.Node) string {
	var sb strings.Builder
	_ = html.Render(&sb, n)
	return sb.String()
}

func cleanMarkdown(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = strings.Join(lines, "\n")
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
