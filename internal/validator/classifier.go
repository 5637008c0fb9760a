package validator

import (
	"strings"

	"go-outreach-automation/internal/dom"
)

// Classification is what a profile page says about the account behind it. Valid and
// NotFound are never both true.
type Classification struct {
	Valid    bool
	NotFound bool
	Reason   string
}

// Classifier decides from captured page HTML whether a profile exists.
type Classifier interface {
	Classify(html string) Classification
}

// photoClassifier treats a profile photo element as proof of a live account. "Not found"
// text is only trusted when no photo is present, since the wording varies and appears in
// unrelated places.
type photoClassifier struct {
	// photo is a CSS selector.
	photo    string
	notFound []string
	label    string
}

func (c photoClassifier) Classify(page string) Classification {
	doc, err := dom.Parse(page)
	if err != nil {
		return Classification{Reason: "unparseable page"}
	}
	if doc.Find(c.photo).Length() > 0 {
		return Classification{Valid: true, Reason: c.label + " profile photo present"}
	}
	text := strings.ToLower(dom.Text(doc.Selection))
	for _, sig := range c.notFound {
		if strings.Contains(text, sig) {
			return Classification{NotFound: true, Reason: "page says: " + sig}
		}
	}
	return Classification{Reason: "no profile photo"}
}

// TelegramClassifier reads t.me/<username> pages.
func TelegramClassifier() Classifier {
	return photoClassifier{
		photo: ".tgme_page_photo_image",
		notFound: []string{
			"doesn't exist",
			"does not exist",
			"username not found",
		},
		label: "telegram",
	}
}

// XClassifier reads x.com/<username> pages.
func XClassifier() Classifier {
	return photoClassifier{
		photo: `img[src*="/profile_images/"]`,
		notFound: []string{
			"this account doesn’t exist",
			"this account doesn't exist",
			"account suspended",
			"this page doesn’t exist",
			"this page doesn't exist",
		},
		label: "x",
	}
}
