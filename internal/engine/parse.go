package engine

import (
	"regexp"
	"strings"

	"github.com/ROTl24/ai-web-generator/internal/apperr"
	"github.com/ROTl24/ai-web-generator/internal/versions"
)

var (
	htmlBlock = regexp.MustCompile("(?is)```html[ \\t]*\\n(.*?)```")
	cssBlock  = regexp.MustCompile("(?is)```css[ \\t]*\\n(.*?)```")
	jsBlock   = regexp.MustCompile("(?is)```(?:js|javascript)[ \\t]*\\n(.*?)```")
)

// ParseCode extracts the files of a non-agentic reply, keyed by file
// name. A reply without an html block is taken as html as a whole.
func ParseCode(genType versions.GenType, text string) (map[string]string, error) {
	html := firstBlock(htmlBlock, text)
	if html == "" {
		html = strings.TrimSpace(text)
	}

	switch genType {
	case versions.GenHTML:
		return map[string]string{"index.html": html}, nil
	case versions.GenMultiFile:
		return map[string]string{
			"index.html": html,
			"style.css":  firstBlock(cssBlock, text),
			"script.js":  firstBlock(jsBlock, text),
		}, nil
	default:
		return nil, apperr.System("unsupported code generation type %q", genType)
	}
}

func firstBlock(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
