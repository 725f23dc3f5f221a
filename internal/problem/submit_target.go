package problem

import (
	"strings"

	"cfsubmit/internal/logging"
)

// DefaultHost is used when a reference has to be rebuilt without a usable
// host from the original URL.
const DefaultHost = "codeforces.com"

// SubmitTarget is the page the browser is pointed at.
type SubmitTarget struct {
	CanonicalURL string `json:"canonical_url"`

	// Degraded is true when the URL came from the generic /problem/ rewrite
	// or was passed through unchanged, so no problem index is preselected.
	Degraded bool `json:"degraded"`
}

// BuildSubmitTarget derives the judge's submit page for url. ref is the
// result of Parse on the same url, or nil when parsing failed. It never fails.
func BuildSubmitTarget(url string, ref *Reference) SubmitTarget {
	if ref != nil {
		if target, ok := buildFromReference(url, *ref); ok {
			return target
		}
	}
	return degradedTarget(url)
}

func buildFromReference(url string, ref Reference) (SubmitTarget, bool) {
	matched, prefix, ok := match(url)
	if ok && matched == ref {
		switch ref.Kind {
		case KindContest, KindGym, KindGroup:
			return SubmitTarget{CanonicalURL: prefix + "/submit/" + ref.Index}, true
		case KindProblemSet:
			return SubmitTarget{CanonicalURL: "https://" + prefix + "/contest/" + ref.ContestID + "/submit/" + ref.Index}, true
		}
	}

	logging.ProblemDebug("Reference %s does not match %s, rebuilding", ref, url)

	// The reference does not describe this URL. Rebuild it against the
	// default host where the reference alone carries enough information.
	base := "https://" + DefaultHost
	switch ref.Kind {
	case KindContest, KindProblemSet:
		return SubmitTarget{CanonicalURL: base + "/contest/" + ref.ContestID + "/submit/" + ref.Index}, true
	case KindGym:
		return SubmitTarget{CanonicalURL: base + "/gym/" + ref.ContestID + "/submit/" + ref.Index}, true
	}
	return SubmitTarget{}, false
}

// degradedTarget lands on the generic submit page when there is a /problem/
// segment, and passes the URL through untouched otherwise.
func degradedTarget(url string) SubmitTarget {
	head, _, found := strings.Cut(url, "/problem/")
	logging.ProblemDebug("Degraded submit target for %s (problem segment: %v)", url, found)
	if !found {
		return SubmitTarget{CanonicalURL: url, Degraded: true}
	}
	if i := strings.IndexAny(head, "?#"); i >= 0 {
		head = head[:i]
	}
	return SubmitTarget{CanonicalURL: strings.TrimSuffix(head, "/") + "/submit", Degraded: true}
}
