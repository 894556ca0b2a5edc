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

// Pixied serves the iPXE boot script that every PXE client chainloads.
//
// It is started with one subnet config file per boot-image class. A client
// whose DHCP-assigned address (echoed back in the "ip" query parameter)
// falls into a configured subnet receives the boot script for that image,
// parameterized with the image sizes, the integrity digest and any extra
// kernel arguments; everyone else receives the generic configuration
// script, which registers the machine with the collector. GET /wipe serves
// the same script with the wipe kernel flag forced, telling the client to
// discard its on-disk state.
package main
