// Package structure watches batched page mutations for structural changes
// that require renewed augmentation: fresh media elements and lazily loaded
// thumbnail images.
package structure

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/domtuner/mutation"
)

// Classification of one or more inserted subtrees.
type Classification struct {
	// Media reports an inserted video or audio element.
	Media bool
	// Image reports an inserted image element.
	Image bool
}

// Classify parses a serialised subtree and reports what it contains.
// Unparsable fragments classify as nothing; the html parser is lenient
// enough that this only happens on empty input.
func Classify(fragment string) Classification {
	var c Classification
	if fragment == "" {
		return c
	}
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return c
	}
	walk(root, &c)
	return c
}

// ClassifyBatch folds the classification of every insert record in a batch.
func ClassifyBatch(batch *mutation.Batch) Classification {
	var c Classification
	for _, rec := range batch.Records {
		if rec.Op != mutation.OpInsert {
			continue
		}
		sub := Classify(rec.HTML)
		c.Media = c.Media || sub.Media
		c.Image = c.Image || sub.Image
		if c.Media && c.Image {
			break
		}
	}
	return c
}

func walk(n *html.Node, c *Classification) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Video, atom.Audio:
			c.Media = true
		case atom.Img:
			c.Image = true
		}
	}
	if c.Media && c.Image {
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walk(child, c)
	}
}
