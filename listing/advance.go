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

// Advance returns the smallest byte string strictly greater than s,
// obtained by incrementing s's last byte, leaving the length unchanged.
// It reports ok=false when s is empty or ends in 0xFF: no such string
// exists at that length. Spec REDESIGN FLAG (i) calls the source's
// behavior on that input — silently rolling the last byte over to 0x00,
// unchanged length — a bug, and instructs against reproducing it; callers
// here treat ok=false as "no finite upper bound", which degrades to an
// open-ended scan that maxKeys/the extension's own stop condition still
// bounds, rather than to a wrong one.
func Advance(s []byte) (out []byte, ok bool) {
	if len(s) == 0 || s[len(s)-1] == 0xFF {
		return nil, false
	}
	out = make([]byte, len(s))
	copy(out, s)
	out[len(out)-1]++
	return out, true
}
