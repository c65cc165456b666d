package extract

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// extractHTML walks the token stream and collects visible text, skipping
// script and style bodies.
func extractHTML(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	var sb strings.Builder
	skipDepth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return strings.TrimSpace(sb.String()), nil
			}
			return "", z.Err()
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				skipDepth++
			case "p", "br", "div", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
				sb.WriteString("\n")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if n := string(name); (n == "script" || n == "style") && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.TrimSpace(string(z.Text()))
			if text == "" {
				continue
			}
			if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
				sb.WriteString(" ")
			}
			sb.WriteString(text)
		}
	}
}
