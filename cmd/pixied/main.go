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

	"github.com/pixienet/pixie/plugins/bootcfg"
	"github.com/pixienet/pixie/plugins/bootscript"
)

var (
	listenAddr = flag.String("addr", "0.0.0.0",
		"address to bind to")
	listenPort = flag.Int("port", 8080,
		"port to bind to")
	collectorPrefix = flag.String("collector-prefix", bootscript.DefaultCollectorPrefix,
		"prefix on which the collector is served")
	imageMethod = flag.String("image-method", bootscript.DefaultImageMethod,
		"protocol the bootloader uses to fetch kernel and initrd images")
)

func main() {
	flag.Parse()
	log := logrus.NewLogger("pixied")

	configs, err := bootcfg.LoadAll(flag.Args(), log)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if len(configs) == 0 {
		log.Warn("No subnet configs loaded, every client will get the configuration script")
	}

	resolver := &bootscript.Resolver{
		Log:             log,
		Configs:         configs,
		ImageMethod:     *imageMethod,
		CollectorPrefix: *collectorPrefix,
	}
	router := mux.NewRouter()
	resolver.RegisterHandlers(router)

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
}
