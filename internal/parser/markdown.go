package parser

import (
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmtext "github.com/yuin/goldmark/text"
)

// extractMarkdown reduces a markdown file to plain text by walking the
// parsed AST, dropping formatting but keeping block structure as blank
// lines.
func extractMarkdown(filePath string) (string, error) {
	src, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	root := md.Parser().Parse(gmtext.NewReader(src))

	var text strings.Builder
	err = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				text.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					text.WriteByte('\n')
				}
			}
		case *ast.CodeSpan:
			// children are Text nodes, handled above
		default:
			if !entering && n.Type() == ast.TypeBlock {
				text.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return collapseBlankLines(text.String()), nil
}

func collapseBlankLines(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(s)
}
