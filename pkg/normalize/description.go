package normalize

import (
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/markers"
	"github.com/agentstation/codeinventory/pkg/policy"
)

// Description returns the host description, or the first prose paragraph of
// the README when the host has none.
func Description(raw inventory.RawRepository, p *policy.Policy) string {
	if d := strings.TrimSpace(raw.Description); d != "" {
		return d
	}
	if raw.Readme == nil {
		return ""
	}
	return FirstParagraph([]byte(*raw.Readme), p)
}

// FirstParagraph returns the plain text of the first top-level paragraph that
// is neither made only of images nor a block of override markers.
func FirstParagraph(body []byte, p *policy.Policy) string {
	root := goldmark.New().Parser().Parse(text.NewReader(body))

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		para, ok := n.(*gmast.Paragraph)
		if !ok {
			continue
		}
		s := paragraphText(para, body)
		if s == "" {
			continue
		}
		if markers.Extract(&s, p).Len() > 0 {
			continue
		}
		return strings.Join(strings.Fields(s), " ")
	}
	return ""
}

func paragraphText(para *gmast.Paragraph, source []byte) string {
	var b strings.Builder
	_ = gmast.Walk(para, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Image:
			return gmast.WalkSkipChildren, nil
		case *gmast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *gmast.String:
			b.Write(node.Value)
		}
		return gmast.WalkContinue, nil
	})

	lines := strings.Split(b.String(), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
