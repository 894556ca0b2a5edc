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

import (
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/ligato/cn-infra/logging"
	"github.com/unrolled/render"

	"github.com/pixienet/pixie/plugins/bootcfg"
)

// Defaults for the script parameters not coming from subnet configs.
const (
	DefaultImageMethod     = "tftp"
	DefaultCollectorPrefix = "/pixie_collector"
)

// wipeKernelArg is injected into the kernel command line when the client
// requested the wipe-variant route.
const wipeKernelArg = "pixie_wipe=force"

// Resolver renders the iPXE boot script for a requesting client. Subnet
// configs are loaded once at startup and are immutable, so requests are
// served without locking.
type Resolver struct {
	Log             logging.Logger
	Configs         []*bootcfg.SubnetConfig
	ImageMethod     string
	CollectorPrefix string
}

// RegisterHandlers attaches the resolver routes to the router. The default
// route renders without forcing a wipe; the wipe-variant route forces the
// wipe kernel flag regardless of subnet match.
func (r *Resolver) RegisterHandlers(router *mux.Router) {
	formatter := render.New()

	router.HandleFunc("/", r.scriptHandler(formatter, false)).Methods("GET")
	router.HandleFunc("/wipe", r.scriptHandler(formatter, true)).Methods("GET")
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		formatter.Text(w, http.StatusNotFound, "Not found")
	})
}

func (r *Resolver) scriptHandler(formatter *render.Render, forceWipe bool) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		formatter.Text(w, http.StatusOK, r.Resolve(req.URL.Query(), forceWipe))
	}
}

// Resolve picks the script for a client and fills in its parameters.
//
// The client's current DHCP-assigned address is echoed back by the
// bootloader in the "ip" query parameter; the first loaded subnet config
// containing that address wins. Without a match (or without a parsable
// address) the client gets the generic configuration script. Query
// parameters seed the substitution namespace, but every server-declared key
// (sizes, digest, extra args, image method) overwrites a request-supplied
// key of the same name, and the wipe flag is controlled solely by the
// route.
func (r *Resolver) Resolve(query map[string][]string, forceWipe bool) string {
	var config *bootcfg.SubnetConfig
	vars := map[string]string{}
	for key, values := range query {
		if len(values) > 0 {
			vars[key] = values[0]
		}
	}

	if raw, ok := vars["ip"]; ok {
		if ip := net.ParseIP(raw); ip != nil {
			config = bootcfg.Match(r.Configs, ip)
		} else {
			r.Log.Warnf("Unparsable client address %q, serving config script", raw)
		}
	}

	if config == nil {
		return Render(ConfigScript, map[string]string{
			"image_method":     r.ImageMethod,
			"collector_prefix": r.CollectorPrefix,
		})
	}

	vars["image_method"] = r.ImageMethod
	vars["root_size"] = strconv.FormatInt(config.RootSize, 10)
	vars["swap_size"] = strconv.FormatInt(config.SwapSize, 10)
	vars["sha224"] = config.SHA224
	vars["extra_args"] = config.ExtraArgs
	if forceWipe {
		vars["wipe"] = wipeKernelArg
	} else {
		vars["wipe"] = ""
	}
	r.Log.Debugf("Serving boot script for subnet %s (wipe=%v)", config.Subnet, forceWipe)
	return Render(BootScript, vars)
}
