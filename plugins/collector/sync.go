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

import (
	"sync/atomic"
	"time"

	"github.com/ligato/cn-infra/logging"

	"github.com/pixienet/pixie/plugins/ethers"
)

const (
	// DefaultPeriod is the default interval between synchronizer ticks.
	DefaultPeriod = 30 * time.Second
	// DefaultGrace is how long the synchronizer waits between publishing
	// a new epoch and restarting dnsmasq, so that in-flight DHCP/DNS
	// requests can drain before the disruption.
	DefaultGrace = 2 * time.Second
)

// Epoch is the monotonically increasing counter polled by booting clients
// on /reboot_timestamp. It starts at 0 and is advanced exactly once per
// synchronizer tick. Single writer, many lock-free readers.
type Epoch struct {
	n uint64
}

// Current returns the last published value.
func (e *Epoch) Current() uint64 {
	return atomic.LoadUint64(&e.n)
}

func (e *Epoch) next() uint64 {
	return atomic.AddUint64(&e.n, 1)
}

// Synchronizer periodically re-exports the ethers table, advances the
// reboot epoch and restarts dnsmasq. It is the only writer of the epoch.
type Synchronizer struct {
	Log    logging.Logger
	Ethers *ethers.Manager
	Epoch  *Epoch
	Period time.Duration
	Grace  time.Duration

	stop chan struct{}
	done chan struct{}
}

// Start launches the synchronization loop in the background. The first tick
// runs immediately.
func (s *Synchronizer) Start() {
	if s.Period == 0 {
		s.Period = DefaultPeriod
	}
	if s.Grace == 0 {
		s.Grace = DefaultGrace
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run()
}

// Close stops the loop and waits for it to finish.
func (s *Synchronizer) Close() {
	close(s.stop)
	<-s.done
}

func (s *Synchronizer) run() {
	defer close(s.done)
	for {
		s.tick()
		select {
		case <-s.stop:
			return
		case <-time.After(s.Period - s.Grace):
		}
	}
}

// tick performs one synchronization round: export the table as it stood
// when the tick began, publish the next epoch, wait out the grace interval
// and restart dnsmasq. A polling client may observe the new epoch slightly
// before dnsmasq has actually restarted; clients react to epoch changes,
// not to the restart itself, so the staleness window is bounded and
// harmless. Export failures are logged and retried naturally on the next
// tick.
func (s *Synchronizer) tick() {
	if err := s.Ethers.Export(); err != nil {
		s.Log.Errorf("ethers export failed: %v", err)
	}
	s.Log.Infof("Publishing reboot epoch %d", s.Epoch.Current()+1)
	epochGauge.Set(float64(s.Epoch.next()))
	syncTicks.Inc()

	select {
	case <-s.stop:
		return
	case <-time.After(s.Grace):
	}
	s.Ethers.Reload()
}
