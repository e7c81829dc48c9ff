package tle

import "time"

// ElementSet is a single satellite's two-line element set.
type ElementSet struct {
	NORADID int
	Name    string
	Epoch   time.Time
	Line1   string
	Line2   string
}

// Dataset is the element set currently in use plus where and when it came from.
type Dataset struct {
	Source    string
	FetchedAt time.Time
	Elements  ElementSet
}
