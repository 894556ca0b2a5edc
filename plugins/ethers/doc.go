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

// Package ethers owns the MAC-to-IP assignment table of the collector.
//
// The table is the single source of truth for persisted allocations: it is
// loaded from the ethers file at startup (or seeded from a static file when
// a wipe is requested), grows monotonically through validated insertions and
// is exported back to the ethers file whenever the reboot synchronizer ticks
// (and, optionally, as soon as a configured number of entries has been
// collected). After each export the downstream dnsmasq instance is signalled
// to re-read the file.
//
// Depending on the configured address family the exported file uses either
// the classic ethers format
//
//      52:54:00:12:34:56 172.16.1.2
//
// or the dnsmasq dhcp-host lease syntax used for IPv6 deployments
//
//      52:54:00:12:34:56,[fd00::1:2],5m
package ethers
