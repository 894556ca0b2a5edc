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

package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/ligato/cn-infra/logging/logrus"
	"github.com/namsral/flag"

	"github.com/pixienet/pixie/plugins/collector"
	"github.com/pixienet/pixie/plugins/ethers"
)

var (
	contestantFormat = flag.String("contestant", collector.DefaultContestantFormat,
		"contestant address format (R = row, C = col)")
	workerFormat = flag.String("worker", collector.DefaultWorkerFormat,
		"worker address format (N = number)")
	ethersPath = flag.String("ethers", "/etc/ethers",
		"path to the ethers file")
	staticPath = flag.String("static", "",
		"path to static ethers, loaded only together with -wipe")
	wipe = flag.Bool("wipe", false,
		"wipe the ethers file and start from static (or from scratch)")
	exportAfter = flag.Int("num", 0,
		"export the ethers file as soon as this many entries were collected (0 = periodic export only)")
	ipv6 = flag.Bool("ipv6", false,
		"allocate IPv6 addresses and export dnsmasq dhcp-host lease lines")
	listenAddr = flag.String("listen", "0.0.0.0",
		"address to listen on")
	listenPort = flag.Int("port", 8080,
		"port to listen on")
	rebootDelay = flag.Duration("reboot-delay", collector.DefaultPeriod,
		"delay between reboot epochs")
	grace = flag.Duration("grace", collector.DefaultGrace,
		"wait between publishing an epoch and restarting dnsmasq")
)

func main() {
	flag.Parse()
	log := logrus.NewLogger("pixie-collector")

	if *grace >= *rebootDelay {
		log.Fatalf("-grace (%v) must be shorter than -reboot-delay (%v)", *grace, *rebootDelay)
	}

	mode := ethers.ModeIPv4
	if *ipv6 {
		mode = ethers.ModeIPv6
	}
	manager, err := ethers.NewManager(&ethers.Config{
		Path:        *ethersPath,
		StaticPath:  *staticPath,
		Wipe:        *wipe,
		Mode:        mode,
		ExportAfter: *exportAfter,
	}, log)
	if err != nil {
		log.Fatalf("ethers setup failed: %v", err)
	}

	epoch := &collector.Epoch{}
	server := &collector.Server{
		Log:              log,
		Ethers:           manager,
		Epoch:            epoch,
		ContestantFormat: *contestantFormat,
		WorkerFormat:     *workerFormat,
	}
	router := mux.NewRouter()
	server.RegisterHandlers(router)

	synchronizer := &collector.Synchronizer{
		Log:    log,
		Ethers: manager,
		Epoch:  epoch,
		Period: *rebootDelay,
		Grace:  *grace,
	}
	synchronizer.Start()

	addr := fmt.Sprintf("%s:%d", *listenAddr, *listenPort)
	go func() {
		log.Infof("Listening at http://%s", addr)
		if err := http.ListenAndServe(addr, router); err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// wait until SIGINT/SIGTERM signal
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.Infof("%v signal received, exiting", sig)

	synchronizer.Close()
}
