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

package bootscript

import "strings"

// The iPXE scripts served by pixied. {token} placeholders are filled in by
// Render; ${...} expressions are iPXE runtime variables and must reach the
// client untouched.

// BootScript boots the final image of a matched subnet config directly.
const BootScript = `#!ipxe

:retry
dhcp && isset ${filename} || goto retry

echo Booting from ${filename}
kernel {image_method}://${next-server}/vmlinuz.img quiet pixie_server=${next-server}     ip=${ip}::${gateway}:${netmask}::eth0:none:${dns} {wipe} pixie_root_size={root_size}     pixie_swap_size={swap_size} pixie_sha224={sha224} {extra_args} || goto error
initrd {image_method}://${next-server}//initrd.img || goto error
boot || goto error

error:
shell
`

// ConfigScript boots the configuration image, which walks the operator
// through registering the machine with the collector.
const ConfigScript = `#!ipxe

:retry
dhcp && isset ${filename} || goto retry

echo Booting from ${filename}
kernel {image_method}://${next-server}/vmlinuz.img quiet     ip=${ip}::${gateway}:${netmask}::eth0:none:${dns}     SERVER_IP=${next-server}{collector_prefix} || goto error
initrd {image_method}://${next-server}//doconfig.img || goto error
boot || goto error

error:
shell
`

// Render substitutes {key} placeholders with the values of vars. A brace
// preceded by '$' opens an iPXE runtime variable and is never substituted;
// placeholders missing from vars are left intact. Template authors control
// the exact kernel command-line syntax, Render only does the textual
// replacement.
func Render(template string, vars map[string]string) string {
	var b strings.Builder
	for i := 0; i < len(template); i++ {
		ch := template[i]
		if ch != '{' || (i > 0 && template[i-1] == '$') {
			b.WriteByte(ch)
			continue
		}
		end := strings.IndexByte(template[i:], '}')
		if end < 0 {
			b.WriteString(template[i:])
			break
		}
		if value, ok := vars[template[i+1:i+end]]; ok {
			b.WriteString(value)
			i += end
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}
