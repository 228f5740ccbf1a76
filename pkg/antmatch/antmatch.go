package antmatch

import "strings"

// Match reports whether path matches the Ant-style pattern.
//
// Pattern syntax:
//   - '?' matches exactly one character within a segment
//   - '*' matches zero or more characters within a segment
//   - '**' as a full segment matches zero or more segments
//
// Both pattern and path are interpreted relative to '/'; a single leading
// slash on either side is ignored so that "/api/**" and "api/**" behave the
// same way against "/api/users".
func Match(pattern, path string) bool {
	patt := splitSegments(pattern)
	segs := splitSegments(path)

	pattStart, pattEnd := 0, len(patt)-1
	pathStart, pathEnd := 0, len(segs)-1

	// Consume literal prefix up to the first '**'.
	for pattStart <= pattEnd && pathStart <= pathEnd {
		if patt[pattStart] == "**" {
			break
		}
		if !matchSegment(patt[pattStart], segs[pathStart]) {
			return false
		}
		pattStart++
		pathStart++
	}

	if pathStart > pathEnd {
		// Path exhausted; remaining pattern must be all '**'.
		return allDoubleStar(patt, pattStart, pattEnd)
	}
	if pattStart > pattEnd {
		return false
	}

	// Consume literal suffix down to the last '**'.
	for pattStart <= pattEnd && pathStart <= pathEnd {
		if patt[pattEnd] == "**" {
			break
		}
		if !matchSegment(patt[pattEnd], segs[pathEnd]) {
			return false
		}
		pattEnd--
		pathEnd--
	}
	if pathStart > pathEnd {
		return allDoubleStar(patt, pattStart, pattEnd)
	}

	// Middle section: pattern is bracketed by '**' on both sides. Slide each
	// literal group between consecutive '**' markers along the path.
	for pattStart != pattEnd && pathStart <= pathEnd {
		next := -1
		for i := pattStart + 1; i <= pattEnd; i++ {
			if patt[i] == "**" {
				next = i
				break
			}
		}
		if next == pattStart+1 {
			pattStart++
			continue
		}
		groupLen := next - pattStart - 1
		window := pathEnd - pathStart + 1
		found := -1
		for off := 0; off <= window-groupLen; off++ {
			ok := true
			for j := 0; j < groupLen; j++ {
				if !matchSegment(patt[pattStart+1+j], segs[pathStart+off+j]) {
					ok = false
					break
				}
			}
			if ok {
				found = pathStart + off
				break
			}
		}
		if found < 0 {
			return false
		}
		pattStart = next
		pathStart = found + groupLen
	}

	return allDoubleStar(patt, pattStart, pattEnd)
}

func allDoubleStar(patt []string, from, to int) bool {
	for i := from; i <= to; i++ {
		if patt[i] != "**" {
			return false
		}
	}
	return true
}

func splitSegments(s string) []string {
	s = strings.TrimPrefix(s, "/")
	return strings.Split(s, "/")
}

// matchSegment matches a single path segment against a pattern segment that
// may contain '*' and '?'. Uses two-pointer scanning with backtracking on the
// most recent '*'.
func matchSegment(pattern, seg string) bool {
	pi, si := 0, 0
	star, mark := -1, 0
	for si < len(seg) {
		switch {
		case pi < len(pattern) && (pattern[pi] == '?' || pattern[pi] == seg[si]):
			pi++
			si++
		case pi < len(pattern) && pattern[pi] == '*':
			star = pi
			mark = si
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}

// Filter selects request paths using include and exclude pattern lists.
// Exclusions always win; an empty include list selects every path.
type Filter struct {
	includes []string
	excludes []string
}

// NewFilter builds a Filter from include and exclude pattern slices. Nil or
// empty slices are valid; blank patterns are dropped.
func NewFilter(includes, excludes []string) *Filter {
	f := &Filter{}
	for _, p := range includes {
		if p != "" {
			f.includes = append(f.includes, p)
		}
	}
	for _, p := range excludes {
		if p != "" {
			f.excludes = append(f.excludes, p)
		}
	}
	return f
}

// Matches reports whether the path is selected by the filter: not excluded,
// and either included explicitly or the include list is empty.
func (f *Filter) Matches(path string) bool {
	for _, p := range f.excludes {
		if Match(p, path) {
			return false
		}
	}
	if len(f.includes) == 0 {
		return true
	}
	for _, p := range f.includes {
		if Match(p, path) {
			return true
		}
	}
	return false
}
