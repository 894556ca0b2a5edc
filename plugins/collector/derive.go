// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package collector

import "strings"

// Default address format strings. R and C are the contestant row/column
// tokens, N is the worker sequence number token.
const (
	DefaultContestantFormat = "172.16.C.R"
	DefaultWorkerFormat     = "172.17.1.N"
)

// DeriveAddress substitutes the single-letter placeholder tokens of an
// address format string with the supplied decimal values. Substitution is
// purely textual: a token may appear anywhere in the format, values are not
// zero-padded and no range checking happens here (that is the handler's
// job).
func DeriveAddress(format string, subs map[string]string) string {
	for token, value := range subs {
		format = strings.Replace(format, token, value, -1)
	}
	return format
}
