package text

import (
	"bytes"
	"fmt"
	"lcs-image-diff/internal/lcs"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

const (
	symbolAdded     = "[+] "
	symbolRemoved   = "[-] "
	symbolUnchanged = "[ ] "
	indentSize      = 2
)

// DOMDiff aligns the flattened element and text nodes of two HTML documents,
// so formatting changes that do not alter the tree are not reported.
type DOMDiff struct {
	// MaxTokens caps the node count of each document. 0 disables the check.
	MaxTokens int
}

func NewDOMDiff() *DOMDiff {
	return &DOMDiff{}
}

func (d *DOMDiff) Calculate(baseline []byte, target []byte) (*DiffResult, error) {
	baselineNodes, err := d.flatten(baseline)
	if err != nil {
		return nil, fmt.Errorf("failed to parse baseline HTML: %w", err)
	}

	targetNodes, err := d.flatten(target)
	if err != nil {
		return nil, fmt.Errorf("failed to parse target HTML: %w", err)
	}

	if err := checkTokens(d.MaxTokens, len(baselineNodes), len(targetNodes)); err != nil {
		return nil, err
	}

	results := lcs.Bytes(baselineNodes, targetNodes)

	var buf bytes.Buffer
	buf.WriteString("DOM Tree Diff:\n")
	buf.WriteString("==============\n\n")
	buf.Write(render(results, symbolUnchanged, symbolRemoved, symbolAdded))
	buf.WriteString("\n\nLegend:\n")
	buf.WriteString("  " + symbolAdded + "Added\n")
	buf.WriteString("  " + symbolRemoved + "Removed\n")
	buf.WriteString("  " + symbolUnchanged + "Unchanged\n")

	_, removedCount, addedCount := lcs.Count(results)
	return &DiffResult{
		Diff:       buf.Bytes(),
		DiffAmount: changedRatio(addedCount+removedCount, len(baselineNodes)+len(targetNodes)),
	}, nil
}

// flatten renders every element and non-blank text node on its own line,
// indented by depth.
func (d *DOMDiff) flatten(content []byte) ([][]byte, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	var nodes [][]byte
	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		next := depth
		switch n.Type {
		case html.ElementNode:
			nodes = append(nodes, []byte(strings.Repeat(" ", depth*indentSize)+formatElement(n)))
			next = depth + 1
		case html.TextNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				nodes = append(nodes, []byte(fmt.Sprintf("%stext: %q", strings.Repeat(" ", depth*indentSize), text)))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, next)
		}
	}
	walk(doc, 0)

	return nodes, nil
}

func formatElement(n *html.Node) string {
	if len(n.Attr) == 0 {
		return fmt.Sprintf("<%s>", n.Data)
	}

	attrs := make([]string, 0, len(n.Attr))
	for _, attr := range n.Attr {
		attrs = append(attrs, fmt.Sprintf("%s=%q", attr.Key, attr.Val))
	}
	sort.Strings(attrs)
	return fmt.Sprintf("<%s %s>", n.Data, strings.Join(attrs, " "))
}

var _ Differ = (*DOMDiff)(nil)
