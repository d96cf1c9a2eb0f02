package csrf

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// MetaToken scans an HTML document for <meta name="csrf-token"> and returns
// its content attribute. A missing tag, a missing attribute or unparsable
// input all yield "".
func MetaToken(r io.Reader) string {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "meta" {
				continue
			}
			var name, content string
			var hasContent bool
			for _, a := range tok.Attr {
				switch strings.ToLower(a.Key) {
				case "name":
					name = a.Val
				case "content":
					content, hasContent = a.Val, true
				}
			}
			if strings.EqualFold(name, MetaName) && hasContent {
				return content
			}
		}
	}
}
