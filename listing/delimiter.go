// Copyright 2023 The CubeFS Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package listing

import (
	"strings"

	"github.com/cubefs/bucketmetad/kvstore"
)

// delimiterExtension implements the plain prefix/delimiter listing used
// by a conventional object listing (selected whenever ListingType isn't
// "multipartuploads").
type delimiterExtension struct {
	prefixLen int
	delimiter string
	maxKeys   int

	keys           []string
	commonPrefixes []string
	seenPrefix     map[string]bool

	count     int
	truncated bool
	lastKey   string
}

func newDelimiterExtension(params Params) *delimiterExtension {
	return &delimiterExtension{
		prefixLen:  len(params.Prefix),
		delimiter:  params.Delimiter,
		maxKeys:    params.MaxKeys,
		seenPrefix: make(map[string]bool),
	}
}

func (d *delimiterExtension) Filter(e kvstore.Entry) bool {
	key := string(e.Key)

	if d.maxKeys > 0 && d.count >= d.maxKeys {
		// lastKey already holds the last entry actually returned; the
		// marker must resume at this excluded key, not skip past it.
		d.truncated = true
		return false
	}

	if d.delimiter != "" && d.prefixLen <= len(key) {
		if idx := strings.Index(key[d.prefixLen:], d.delimiter); idx >= 0 {
			cp := key[:d.prefixLen+idx+len(d.delimiter)]
			if !d.seenPrefix[cp] {
				d.seenPrefix[cp] = true
				d.commonPrefixes = append(d.commonPrefixes, cp)
				d.count++
			}
			d.lastKey = key
			return true
		}
	}

	d.keys = append(d.keys, key)
	d.count++
	d.lastKey = key
	return true
}

func (d *delimiterExtension) Result() Result {
	r := Result{
		Keys:           d.keys,
		CommonPrefixes: d.commonPrefixes,
		IsTruncated:    d.truncated,
	}
	if d.truncated {
		r.NextMarker = d.lastKey
	}
	return r
}
