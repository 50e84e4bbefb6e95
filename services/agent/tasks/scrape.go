// Copyright 2024 The Dataforge Authors <dev@dataforge.dev>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tasks

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// scrapeSelector returns the text content of every node matching a simple
// selector: "tag", "#id" or ".class".
func scrapeSelector(page []byte, selector string) ([]string, error) {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	matches := []string{}
	var visit func(node *html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.ElementNode && matchesSelector(node, selector) {
			if text := strings.TrimSpace(nodeText(node)); text != "" {
				matches = append(matches, text)
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(root)

	return matches, nil
}

func matchesSelector(node *html.Node, selector string) bool {
	switch {
	case strings.HasPrefix(selector, "#"):
		return attribute(node, "id") == selector[1:]
	case strings.HasPrefix(selector, "."):
		for _, class := range strings.Fields(attribute(node, "class")) {
			if class == selector[1:] {
				return true
			}
		}
		return false
	default:
		return node.Data == selector
	}
}

func attribute(node *html.Node, key string) string {
	for _, attr := range node.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func nodeText(node *html.Node) string {
	if node.Type == html.TextNode {
		return node.Data
	}
	var sb strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		sb.WriteString(nodeText(child))
	}
	return sb.String()
}
