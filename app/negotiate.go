// Copyright 2025 The Rivaas Authors
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

package app

import (
	"strconv"
	"strings"
)

// acceptSpec is one media range of an Accept header.
type acceptSpec struct {
	typ, subtype string
	quality      float64
}

// negotiate returns the offer preferred by the Accept header, or "" when
// none is acceptable. An empty header accepts the first offer. Ties in
// quality go to the more specific range, then to the earlier offer.
func negotiate(accept string, offers ...string) string {
	if len(offers) == 0 {
		return ""
	}
	specs := parseAccept(accept)
	if len(specs) == 0 {
		return offers[0]
	}

	best, bestQ, bestSpec := "", 0.0, 0
	for _, offer := range offers {
		ot, ost := splitMediaType(offer)
		// The most specific matching range decides the quality of an offer.
		q, spec := 0.0, 0
		for _, s := range specs {
			if sq, ss := matchMediaType(ot, ost, s); ss > spec {
				q, spec = sq, ss
			}
		}
		if q <= 0 {
			continue
		}
		if q > bestQ || (q == bestQ && spec > bestSpec) {
			best, bestQ, bestSpec = offer, q, spec
		}
	}
	return best
}

func parseAccept(header string) []acceptSpec {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	specs := make([]acceptSpec, 0, len(parts))
	for _, part := range parts {
		value, params, _ := strings.Cut(part, ";")
		t, st := splitMediaType(value)
		if t == "" {
			continue
		}
		spec := acceptSpec{typ: t, subtype: st, quality: 1}
		for p := range strings.SplitSeq(params, ";") {
			k, v, ok := strings.Cut(p, "=")
			if !ok || strings.TrimSpace(k) != "q" {
				continue
			}
			if q, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && q >= 0 && q <= 1 {
				spec.quality = q
			}
		}
		specs = append(specs, spec)
	}
	return specs
}

// matchMediaType scores an offer against a range.
// Specificity: 3 exact, 2 subtype wildcard, 1 full wildcard.
func matchMediaType(typ, subtype string, s acceptSpec) (float64, int) {
	switch {
	case s.typ == "*" && s.subtype == "*":
		return s.quality, 1
	case s.typ == typ && s.subtype == "*":
		return s.quality, 2
	case s.typ == typ && s.subtype == subtype:
		return s.quality, 3
	}
	return 0, 0
}

func splitMediaType(mediaType string) (string, string) {
	mediaType, _, _ = strings.Cut(mediaType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if t, st, ok := strings.Cut(mediaType, "/"); ok {
		return t, st
	}
	return mediaType, "*"
}
