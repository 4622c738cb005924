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

// multipartUploadsExtension lists in-progress multipart uploads. Entries
// in the namespace are stored under "overview"+splitter+key+splitter+
// uploadID; this extension parses that back out and groups by delimiter
// against the object key the same way delimiterExtension groups object
// keys.
type multipartUploadsExtension struct {
	splitter  string
	delimiter string
	maxKeys   int

	uploads        []Upload
	commonPrefixes []string
	seenPrefix     map[string]bool

	count     int
	truncated bool
	lastKey   string
	lastID    string
}

func newMultipartUploadsExtension(params Params) *multipartUploadsExtension {
	return &multipartUploadsExtension{
		splitter:   params.Splitter,
		delimiter:  params.Delimiter,
		maxKeys:    params.MaxKeys,
		seenPrefix: make(map[string]bool),
	}
}

func (m *multipartUploadsExtension) Filter(e kvstore.Entry) bool {
	key := string(e.Key)
	parts := strings.SplitN(key, m.splitter, 3)
	if len(parts) != 3 || parts[0] != "overview" {
		// not a well-formed overview record; skip without stopping the scan.
		return true
	}
	objectKey, uploadID := parts[1], parts[2]

	if m.maxKeys > 0 && m.count >= m.maxKeys {
		// lastKey/lastID already hold the last entry actually returned; the
		// marker must resume at this excluded entry, not skip past it.
		m.truncated = true
		return false
	}

	if m.delimiter != "" {
		if idx := strings.Index(objectKey, m.delimiter); idx >= 0 {
			cp := objectKey[:idx+len(m.delimiter)]
			if !m.seenPrefix[cp] {
				m.seenPrefix[cp] = true
				m.commonPrefixes = append(m.commonPrefixes, cp)
				m.count++
			}
			m.lastKey, m.lastID = objectKey, uploadID
			return true
		}
	}

	m.uploads = append(m.uploads, Upload{Key: objectKey, UploadID: uploadID})
	m.count++
	m.lastKey, m.lastID = objectKey, uploadID
	return true
}

func (m *multipartUploadsExtension) Result() Result {
	r := Result{
		Uploads:        m.uploads,
		CommonPrefixes: m.commonPrefixes,
		IsTruncated:    m.truncated,
	}
	if m.truncated {
		r.NextKeyMarker = m.lastKey
		r.NextUploadIDMarker = m.lastID
	}
	return r
}
