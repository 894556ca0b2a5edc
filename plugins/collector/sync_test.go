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
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/pixienet/pixie/plugins/ethers"
)

func setupSynchronizer(t *testing.T, period, grace time.Duration, reload ethers.ReloadFunc) (*Synchronizer, string) {
	RegisterTestingT(t)
	dir, err := ioutil.TempDir("", "sync-test")
	Expect(err).To(BeNil())

	path := filepath.Join(dir, "ethers")
	Expect(ioutil.WriteFile(path, nil, 0644)).To(BeNil())
	manager, err := ethers.NewManager(&ethers.Config{
		Path:   path,
		Reload: reload,
	}, logger)
	Expect(err).To(BeNil())

	return &Synchronizer{
		Log:    logger,
		Ethers: manager,
		Epoch:  &Epoch{},
		Period: period,
		Grace:  grace,
	}, dir
}

func TestSynchronizerAdvancesEpoch(t *testing.T) {
	var mu sync.Mutex
	reloads := 0
	s, dir := setupSynchronizer(t, 40*time.Millisecond, 5*time.Millisecond, func() error {
		mu.Lock()
		reloads++
		mu.Unlock()
		return nil
	})
	defer os.RemoveAll(dir)

	Expect(s.Ethers.Put("00:11:22:33:44:55", "172.16.1.2")).To(BeNil())

	s.Start()
	time.Sleep(150 * time.Millisecond)
	s.Close()

	// several ticks must have elapsed, each advancing the epoch exactly once
	published := s.Epoch.Current()
	Expect(published).To(BeNumerically(">=", 2))
	mu.Lock()
	Expect(reloads).To(BeNumerically(">=", 2), "dnsmasq restarted on every full tick")
	mu.Unlock()

	// the tick exported the table before publishing the epoch
	content, err := ioutil.ReadFile(filepath.Join(dir, "ethers"))
	Expect(err).To(BeNil())
	Expect(string(content)).To(Equal("00:11:22:33:44:55 172.16.1.2\n"))
}

func TestEpochStrictlyIncreasing(t *testing.T) {
	s, dir := setupSynchronizer(t, 20*time.Millisecond, 2*time.Millisecond, func() error { return nil })
	defer os.RemoveAll(dir)

	s.Start()

	// concurrent readers must observe a consistent, never decreasing value
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last uint64
			for i := 0; i < 200; i++ {
				cur := s.Epoch.Current()
				Expect(cur).To(BeNumerically(">=", last))
				last = cur
				time.Sleep(time.Millisecond)
			}
		}()
	}
	wg.Wait()
	s.Close()
}

func TestSynchronizerSurvivesExportFailure(t *testing.T) {
	s, dir := setupSynchronizer(t, 30*time.Millisecond, 2*time.Millisecond, func() error { return nil })
	defer os.RemoveAll(dir)

	// make the export destination unwritable by turning it into a directory
	Expect(os.Remove(filepath.Join(dir, "ethers"))).To(BeNil())
	Expect(os.Mkdir(filepath.Join(dir, "ethers"), 0755)).To(BeNil())

	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Close()

	// export failed on every tick, yet the loop kept running and the epoch
	// kept advancing
	Expect(s.Epoch.Current()).To(BeNumerically(">=", 2))
}
