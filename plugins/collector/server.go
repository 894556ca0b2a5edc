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
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/ligato/cn-infra/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/render"

	"github.com/pixienet/pixie/plugins/ethers"
)

// Server dispatches the collector HTTP endpoints to the ethers manager.
type Server struct {
	Log              logging.Logger
	Ethers           *ethers.Manager
	Epoch            *Epoch
	ContestantFormat string
	WorkerFormat     string
}

// RegisterHandlers attaches all collector routes to the router.
func (s *Server) RegisterHandlers(router *mux.Router) {
	formatter := render.New()

	router.Use(s.recoverPanic)
	router.HandleFunc("/contestant", s.contestantHandler(formatter)).Methods("GET")
	router.HandleFunc("/worker", s.workerHandler(formatter)).Methods("GET")
	router.HandleFunc("/reboot_timestamp", s.epochHandler(formatter)).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		formatter.Text(w, http.StatusNotFound, "Not found")
	})
}

// recoverPanic turns an unanticipated handler failure into a logged 500
// instead of killing the process.
func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if r := recover(); r != nil {
				s.Log.Errorf("panic while serving %s %s: %v", req.Method, req.URL.Path, r)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

func (s *Server) contestantHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		args := req.URL.Query()
		if missing := missingParams(args, "mac", "row", "col"); missing != "" {
			formatter.Text(w, http.StatusBadRequest, "Required query parameters: "+missing)
			return
		}
		mac, row, col := args.Get("mac"), args.Get("row"), args.Get("col")
		if !inByteRange(row) || !inByteRange(col) {
			formatter.Text(w, http.StatusBadRequest,
				fmt.Sprintf("Invalid row/col: row=%s col=%s", row, col))
			return
		}

		ip := DeriveAddress(s.ContestantFormat, map[string]string{"R": row, "C": col})
		s.Log.Infof("Contestant PC connected: MAC=%s IP=%s", mac, ip)
		s.allocate(formatter, w, "contestant", mac, ip)
	}
}

func (s *Server) workerHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		args := req.URL.Query()
		if missing := missingParams(args, "mac", "num"); missing != "" {
			formatter.Text(w, http.StatusBadRequest, "Required query parameters: "+missing)
			return
		}
		mac, num := args.Get("mac"), args.Get("num")
		if !inByteRange(num) {
			formatter.Text(w, http.StatusBadRequest, fmt.Sprintf("Invalid num: num=%s", num))
			return
		}

		ip := DeriveAddress(s.WorkerFormat, map[string]string{"N": num})
		s.Log.Infof("Worker PC connected: MAC=%s IP=%s", mac, ip)
		s.allocate(formatter, w, "worker", mac, ip)
	}
}

// allocate runs the validated insertion and writes the HTTP outcome. Any
// refusal from the ethers manager carries the specific reason and maps to
// a 400 without mutating the table.
func (s *Server) allocate(formatter *render.Render, w http.ResponseWriter, role, mac, ip string) {
	if err := s.Ethers.Put(mac, ip); err != nil {
		s.Log.Warnf("Refused %s allocation: %v", role, err)
		allocations.WithLabelValues(role, "refused").Inc()
		formatter.Text(w, http.StatusBadRequest, err.Error())
		return
	}
	allocations.WithLabelValues(role, "ok").Inc()
	formatter.Text(w, http.StatusOK, ip)
}

func (s *Server) epochHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		formatter.Text(w, http.StatusOK, strconv.FormatUint(s.Epoch.Current(), 10))
	}
}

// missingParams returns a comma-separated list of the required query
// parameters absent from args, or "" when all are present. A parameter
// present with an empty value is not missing, it fails validation instead.
func missingParams(args url.Values, required ...string) string {
	var missing []string
	for _, name := range required {
		if _, present := args[name]; !present {
			missing = append(missing, name)
		}
	}
	return strings.Join(missing, ", ")
}

// inByteRange reports whether s parses as a decimal integer in [1,255].
func inByteRange(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= 1 && n <= 255
}
