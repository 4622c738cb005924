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

package namespace

import "encoding/binary"

// encodePrefix turns a namespace name into a key prefix that cannot alias
// the prefix of any other name: a 4-byte big-endian length followed by the
// raw name bytes. Because the length is encoded at a fixed offset, no
// prefix of one encoding can equal a prefix of another encoding unless the
// names themselves are equal.
func encodePrefix(name string) []byte {
	b := make([]byte, 4+len(name))
	binary.BigEndian.PutUint32(b, uint32(len(name)))
	copy(b[4:], name)
	return b
}

// withinNamespace builds the full key for a caller-supplied key inside the
// namespace identified by prefix.
func withinNamespace(prefix, key []byte) []byte {
	full := make([]byte, len(prefix)+len(key))
	copy(full, prefix)
	copy(full[len(prefix):], key)
	return full
}
