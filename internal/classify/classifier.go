// Package classify assigns support categories to free text by keyword matching.
package classify

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/category"
)

type rule struct {
	category category.Category
	keywords []string
}

// Classifier matches text against an ordered keyword table. The first rule
// with any keyword contained in the text wins.
type Classifier struct {
	rules    []rule
	catchAll category.Category
	lower    cases.Caser
}

// Option configures the classifier.
type Option func(*Classifier)

// WithCatchAll overrides the category returned when nothing matches.
func WithCatchAll(c category.Category) Option {
	return func(cl *Classifier) {
		cl.catchAll = c
	}
}

// New builds a classifier from rules in their declared order. Keywords are
// lower-cased once; empty keywords are dropped since they would match any text.
func New(rules []category.Rule, opts ...Option) *Classifier {
	c := &Classifier{
		catchAll: category.Pending,
		lower:    cases.Lower(language.Spanish),
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, r := range rules {
		var kws []string
		for _, kw := range r.Keywords {
			kw = strings.TrimSpace(c.lower.String(kw))
			if kw == "" {
				continue
			}
			kws = append(kws, kw)
		}
		c.rules = append(c.rules, rule{category: r.Category, keywords: kws})
	}
	return c
}

// Classify returns the category for text, or the catch-all.
func (c *Classifier) Classify(text string) category.Category {
	cat, _ := c.Match(text)
	return cat
}

// Match is Classify plus the keyword that decided the outcome ("" for the
// catch-all).
func (c *Classifier) Match(text string) (category.Category, string) {
	text = c.lower.String(text)
	for _, r := range c.rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.category, kw
			}
		}
	}
	return c.catchAll, ""
}

// CatchAll returns the category used when nothing matches.
func (c *Classifier) CatchAll() category.Category {
	return c.catchAll
}
