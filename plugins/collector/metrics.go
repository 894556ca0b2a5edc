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

import "github.com/prometheus/client_golang/prometheus"

var (
	allocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixie_allocations_total",
			Help: "Address allocation requests by role and result.",
		},
		[]string{"role", "result"},
	)
	syncTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pixie_sync_ticks_total",
			Help: "Completed reboot synchronizer ticks.",
		},
	)
	epochGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pixie_reboot_epoch",
			Help: "Last published reboot epoch.",
		},
	)
)

func init() {
	prometheus.MustRegister(allocations, syncTicks, epochGauge)
}
