// Copyright 2024 Painter Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package semver parses the semantic-version strings used by the crate
// index (https://semver.org) into their (major, minor, patch, pre, build)
// components, as required by the Version entity of the data model. It is
// a pure, allocation-light parser with no dependency on the rest of
// Painter, independent of anything that reads versions off disk.
package semver

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed semantic version.
type Version struct {
	Major, Minor, Patch uint64
	Pre                 string
	Build               string
}

// String renders v back into canonical semver form.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Pre != "" {
		s += "-" + v.Pre
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// IsPrerelease reports whether v carries a prerelease component.
func (v Version) IsPrerelease() bool { return v.Pre != "" }

// Parse parses s into a Version. It accepts the full semver 2.0 grammar:
// MAJOR.MINOR.PATCH[-PRERELEASE][+BUILD]. An optional leading "v" is
// stripped first, matching how crate versions are sometimes quoted in
// dependency requirements even though the index itself never adds one.
func Parse(s string) (Version, error) {
	orig := s
	s = strings.TrimPrefix(s, "v")

	var build string
	if i := strings.IndexByte(s, '+'); i >= 0 {
		build, s = s[i+1:], s[:i]
		if build == "" || !validIdentifiers(build) {
			return Version{}, fmt.Errorf("semver: invalid build metadata in %q", orig)
		}
	}

	var pre string
	if i := strings.IndexByte(s, '-'); i >= 0 {
		pre, s = s[i+1:], s[:i]
		if pre == "" || !validIdentifiers(pre) {
			return Version{}, fmt.Errorf("semver: invalid prerelease in %q", orig)
		}
	}

	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("semver: expected MAJOR.MINOR.PATCH in %q", orig)
	}

	nums := make([]uint64, 3)
	for i, p := range parts {
		n, err := parseNumericIdentifier(p)
		if err != nil {
			return Version{}, fmt.Errorf("semver: %w in %q", err, orig)
		}
		nums[i] = n
	}

	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2], Pre: pre, Build: build}, nil
}

// parseNumericIdentifier parses one dot-separated MAJOR/MINOR/PATCH
// component: digits only, no leading zero unless the value is exactly 0.
func parseNumericIdentifier(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty numeric identifier")
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, fmt.Errorf("numeric identifier %q has a leading zero", s)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("numeric identifier %q is not all digits", s)
		}
	}
	return strconv.ParseUint(s, 10, 64)
}

// validIdentifiers reports whether s is a dot-separated list of
// non-empty alphanumeric-or-hyphen identifiers, as semver requires for
// both prerelease and build metadata.
func validIdentifiers(s string) bool {
	for _, id := range strings.Split(s, ".") {
		if id == "" {
			return false
		}
		for _, c := range id {
			if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '-') {
				return false
			}
		}
	}
	return true
}

// Compare returns -1, 0, or +1 reporting whether a is less than, equal
// to, or greater than b, per semver 2.0 precedence: build metadata is
// ignored, and any prerelease sorts below the corresponding release.
func Compare(a, b Version) int {
	if c := cmpUint(a.Major, b.Major); c != 0 {
		return c
	}
	if c := cmpUint(a.Minor, b.Minor); c != 0 {
		return c
	}
	if c := cmpUint(a.Patch, b.Patch); c != 0 {
		return c
	}
	return comparePre(a.Pre, b.Pre)
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// comparePre implements semver's prerelease precedence: no prerelease
// outranks any prerelease; otherwise identifiers are compared
// dot-segment by dot-segment, numeric segments compared numerically and
// sorting below alphanumeric ones.
func comparePre(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return 1
	}
	if b == "" {
		return -1
	}
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := comparePreIdentifier(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return cmpUint(uint64(len(as)), uint64(len(bs)))
}

func comparePreIdentifier(a, b string) int {
	an, aErr := strconv.ParseUint(a, 10, 64)
	bn, bErr := strconv.ParseUint(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		return cmpUint(an, bn)
	case aErr == nil:
		return -1 // numeric identifiers always sort lower than alphanumeric
	case bErr == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// IsLatest reports whether candidate is the highest non-prerelease
// version among others, the rule backing the Version.latest flag in the
// data model.
func IsLatest(candidate Version, others []Version) bool {
	if candidate.IsPrerelease() {
		return false
	}
	for _, o := range others {
		if o.IsPrerelease() {
			continue
		}
		if Compare(o, candidate) > 0 {
			return false
		}
	}
	return true
}
