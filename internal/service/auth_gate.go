package service

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultSignInMarker is the text the timetable site renders on its sign-in page.
const DefaultSignInMarker = "Будь ласка, увійдіть"

// AuthGate decides whether fetched markup belongs to an authenticated session.
type AuthGate struct {
	marker string
}

// NewAuthGate builds a gate that treats any page whose text contains marker as a sign-in page.
func NewAuthGate(marker string) *AuthGate {
	if marker == "" {
		marker = DefaultSignInMarker
	}
	return &AuthGate{marker: collapseSpace(marker)}
}

// IsAuthenticated reports false when the rendered text of markup shows the sign-in marker.
// Entities are decoded and tags dropped first, the same view the browser waits on.
func (g *AuthGate) IsAuthenticated(markup string) bool {
	text := markup
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup)); err == nil {
		doc.Find("script, style, noscript").Remove()
		text = doc.Text()
	}
	return !strings.Contains(collapseSpace(text), g.marker)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
