// Package problem turns judge problem URLs into structured references and
// canonical submit-page addresses.
//
// Both operations are pure string transformations: nothing here touches the
// network, and BuildSubmitTarget always yields a target even for URLs it does
// not understand.
package problem

import (
	"fmt"
	"regexp"
)

// Kind identifies which family of judge URL a reference was parsed from.
type Kind string

const (
	// KindContest is a regular round: /contest/<id>/problem/<index>.
	KindContest Kind = "contest"

	// KindGym is a gym training: /gym/<id>/problem/<index>.
	KindGym Kind = "gym"

	// KindProblemSet is the archive view: /problemset/problem/<id>/<index>.
	KindProblemSet Kind = "problemset"

	// KindGroup is a contest inside a group: /group/<token>/contest/<id>/problem/<index>.
	KindGroup Kind = "group"
)

// Reference is a structured pointer to one problem on the judge.
type Reference struct {
	Kind Kind `json:"kind"`

	// ContestID is the numeric contest (or gym) id. For groups it is the
	// contest id inside the group; the group token itself is not kept.
	ContestID string `json:"contest_id"`

	// Index is the problem index within the contest, e.g. "A", "C1", "AB".
	Index string `json:"index"`
}

// String renders the reference the way notification titles show it.
func (r Reference) String() string {
	return fmt.Sprintf("Contest %s Problem %s", r.ContestID, r.Index)
}

// The index must be followed by the end of the URL or a path, query or
// fragment delimiter so that "/problem/A-bad" does not parse as "A".
const indexTail = `(?:[/?#]|$)`

var (
	// contestPattern requires the contest/gym segment directly below the host,
	// otherwise group URLs would be taken for plain contests.
	contestPattern = regexp.MustCompile(
		`^([A-Za-z][A-Za-z0-9+.-]*://[^/?#]+/(contest|gym)/([0-9]+))/problem/([A-Za-z0-9]+)` + indexTail)

	problemSetPattern = regexp.MustCompile(
		`^[A-Za-z][A-Za-z0-9+.-]*://([^/?#]+)/problemset/problem/([0-9]+)/([A-Za-z0-9]+)` + indexTail)

	groupPattern = regexp.MustCompile(
		`^([A-Za-z][A-Za-z0-9+.-]*://[^/?#]+/group/[^/?#]+/contest/([0-9]+))/problem/([A-Za-z0-9]+)` + indexTail)
)

// match runs the pattern families in priority order. prefix is the part of
// the URL that a submit path can be appended to; for problemset URLs it is
// the bare host.
func match(url string) (ref Reference, prefix string, ok bool) {
	if m := contestPattern.FindStringSubmatch(url); m != nil {
		kind := KindContest
		if m[2] == "gym" {
			kind = KindGym
		}
		return Reference{Kind: kind, ContestID: m[3], Index: m[4]}, m[1], true
	}
	if m := problemSetPattern.FindStringSubmatch(url); m != nil {
		return Reference{Kind: KindProblemSet, ContestID: m[2], Index: m[3]}, m[1], true
	}
	if m := groupPattern.FindStringSubmatch(url); m != nil {
		return Reference{Kind: KindGroup, ContestID: m[2], Index: m[3]}, m[1], true
	}
	return Reference{}, "", false
}

// Parse extracts a problem reference from a judge URL. The second return
// value is false when the URL matches none of the known shapes; callers treat
// that as a display-only degradation, never as a failure.
func Parse(url string) (Reference, bool) {
	ref, _, ok := match(url)
	return ref, ok
}
