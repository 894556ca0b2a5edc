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

// Package collector exposes the address-allocation HTTP endpoints of the
// pixie collector and runs the reboot synchronizer.
//
// Booting clients hit GET /contestant or GET /worker to obtain their
// deterministic address (derived from the configured format string and the
// row/col or num query parameters) and then poll GET /reboot_timestamp.
// The synchronizer periodically re-exports the ethers table, restarts
// dnsmasq and advances the epoch returned by /reboot_timestamp; any change
// of that value tells the client to reboot into its final image.
//
// Example:
//
//      $ curl 'localhost:8080/contestant?mac=52:54:00:12:34:56&row=5&col=9'
//      172.16.9.5
//      $ curl localhost:8080/reboot_timestamp
//      3
package collector
