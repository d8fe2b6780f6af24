// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package extract

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// htmlDoc holds the parts of an HTML body the extractor looks at.
type htmlDoc struct {
	text     string     // visible text, block elements separated by newlines
	rows     [][]string // <tr> cell texts, in document order
	headings []string   // <h1>-<h4> texts
	hrefs    []string   // <a href> values
}

// parseHTML walks an HTML body once. Malformed markup is tolerated the way
// browsers tolerate it; an empty body yields an empty document.
func parseHTML(src string) *htmlDoc {
	doc := &htmlDoc{}
	if strings.TrimSpace(src) == "" {
		return doc
	}

	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return doc
	}

	var text strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
			text.WriteByte(' ')
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Head:
				return
			case atom.Tr:
				if cells := rowCells(n); len(cells) > 0 {
					doc.rows = append(doc.rows, cells)
				}
			case atom.H1, atom.H2, atom.H3, atom.H4:
				if t := nodeText(n); t != "" {
					doc.headings = append(doc.headings, t)
				}
			case atom.A:
				if href := attr(n, "href"); href != "" {
					doc.hrefs = append(doc.hrefs, href)
				}
			}
			if isBlock(n.DataAtom) {
				text.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.DataAtom) {
			text.WriteByte('\n')
		}
	}
	walk(root)

	doc.text = text.String()
	return doc
}

// rowCells returns the texts of the direct <td>/<th> children of a row.
func rowCells(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			cells = append(cells, nodeText(c))
		}
	}
	return cells
}

// nodeText returns the whitespace-collapsed text content of n.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return collapseSpace(b.String())
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Br, atom.Tr, atom.Table, atom.Li, atom.Ul, atom.Ol,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Section, atom.Article:
		return true
	}
	return false
}
