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

// Pixie-collector is the address-allocation and reboot-synchronization
// daemon of the netboot pipeline.
//
// Machines booting the configuration image register over HTTP with their
// MAC and position (row/col for contestants, a sequence number for
// workers); the collector derives their address from a format string,
// records the assignment in the ethers table and answers with the address.
// A background loop periodically exports the table, restarts dnsmasq and
// advances the reboot epoch that clients poll on /reboot_timestamp: any
// change of the epoch (or an unreachable collector) makes a client reboot
// into its final image.
//
// The daemon runs on the same host as dnsmasq and is expected to be the
// only writer of the ethers file.
package main
