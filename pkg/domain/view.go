package domain

import "strings"

// Link is an in-app navigation affordance on a view.
type Link struct {
	Label string `json:"label"`
	To    Route  `json:"to"`
}

// View is what the guest renders for a route.
type View struct {
	Route    Route  `json:"route"`
	Title    string `json:"title,omitempty"`
	Body     string `json:"body"`
	Links    []Link `json:"links,omitempty"`
	NotFound bool   `json:"not_found,omitempty"`
}

// FindLink returns the link whose label matches, ignoring case and surrounding spaces.
func (v View) FindLink(label string) (Link, bool) {
	want := strings.TrimSpace(label)
	for _, l := range v.Links {
		if strings.EqualFold(l.Label, want) {
			return l, true
		}
	}
	return Link{}, false
}
