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
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/ligato/cn-infra/logging/logrus"
	. "github.com/onsi/gomega"

	"github.com/pixienet/pixie/plugins/ethers"
)

var logger = logrus.DefaultLogger()

func setupServer(t *testing.T) (*Server, *mux.Router, string) {
	RegisterTestingT(t)
	dir, err := ioutil.TempDir("", "collector-test")
	Expect(err).To(BeNil())

	path := filepath.Join(dir, "ethers")
	Expect(ioutil.WriteFile(path, nil, 0644)).To(BeNil())
	manager, err := ethers.NewManager(&ethers.Config{
		Path:   path,
		Reload: func() error { return nil },
	}, logger)
	Expect(err).To(BeNil())

	server := &Server{
		Log:              logger,
		Ethers:           manager,
		Epoch:            &Epoch{},
		ContestantFormat: DefaultContestantFormat,
		WorkerFormat:     DefaultWorkerFormat,
	}
	router := mux.NewRouter()
	server.RegisterHandlers(router)
	return server, router, dir
}

func get(router *mux.Router, url string) (int, string) {
	req := httptest.NewRequest("GET", url, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec.Code, rec.Body.String()
}

func TestContestantAllocation(t *testing.T) {
	server, router, dir := setupServer(t)
	defer os.RemoveAll(dir)

	code, body := get(router, "/contestant?mac=00:11:22:33:44:55&row=5&col=9")
	Expect(code).To(Equal(http.StatusOK))
	Expect(body).To(Equal("172.16.9.5"))

	Expect(server.Ethers.Snapshot()).To(Equal(
		map[string]string{"00:11:22:33:44:55": "172.16.9.5"}))
}

func TestContestantMissingParams(t *testing.T) {
	_, router, dir := setupServer(t)
	defer os.RemoveAll(dir)

	code, body := get(router, "/contestant?mac=00:11:22:33:44:55")
	Expect(code).To(Equal(http.StatusBadRequest))
	Expect(body).To(Equal("Required query parameters: row, col"))

	code, body = get(router, "/contestant")
	Expect(code).To(Equal(http.StatusBadRequest))
	Expect(body).To(Equal("Required query parameters: mac, row, col"))
}

func TestEmptyParamFailsValidationNotMissing(t *testing.T) {
	_, router, dir := setupServer(t)
	defer os.RemoveAll(dir)

	// an empty value counts as present and falls through to validation
	code, body := get(router, "/contestant?mac=&row=5&col=9")
	Expect(code).To(Equal(http.StatusBadRequest))
	Expect(body).To(ContainSubstring("invalid MAC"))

	code, body = get(router, "/contestant?mac=00:11:22:33:44:55&row=&col=9")
	Expect(code).To(Equal(http.StatusBadRequest))
	Expect(body).To(HavePrefix("Invalid row/col:"))

	code, body = get(router, "/worker?mac=00:11:22:33:44:55&num=")
	Expect(code).To(Equal(http.StatusBadRequest))
	Expect(body).To(Equal("Invalid num: num="))
}

func TestContestantRangeValidation(t *testing.T) {
	server, router, dir := setupServer(t)
	defer os.RemoveAll(dir)

	for _, url := range []string{
		"/contestant?mac=00:11:22:33:44:55&row=0&col=9",
		"/contestant?mac=00:11:22:33:44:55&row=5&col=256",
		"/contestant?mac=00:11:22:33:44:55&row=abc&col=9",
		"/contestant?mac=00:11:22:33:44:55&row=-1&col=9",
	} {
		code, body := get(router, url)
		Expect(code).To(Equal(http.StatusBadRequest), url)
		Expect(body).To(HavePrefix("Invalid row/col:"), url)
	}

	// range violations must not touch the table
	Expect(server.Ethers.Size()).To(Equal(0))
}

func TestContestantConflicts(t *testing.T) {
	_, router, dir := setupServer(t)
	defer os.RemoveAll(dir)

	code, _ := get(router, "/contestant?mac=00:11:22:33:44:55&row=5&col=9")
	Expect(code).To(Equal(http.StatusOK))

	// same MAC, different seat
	code, body := get(router, "/contestant?mac=00:11:22:33:44:55&row=6&col=9")
	Expect(code).To(Equal(http.StatusBadRequest))
	Expect(body).To(ContainSubstring("MAC already present"))

	// different MAC, same seat
	code, body = get(router, "/contestant?mac=00:11:22:33:44:56&row=5&col=9")
	Expect(code).To(Equal(http.StatusBadRequest))
	Expect(body).To(ContainSubstring("IP already present"))

	// malformed MAC
	code, body = get(router, "/contestant?mac=00:11:22:33:44:5g&row=7&col=9")
	Expect(code).To(Equal(http.StatusBadRequest))
	Expect(body).To(ContainSubstring("invalid MAC"))
}

func TestWorkerAllocation(t *testing.T) {
	_, router, dir := setupServer(t)
	defer os.RemoveAll(dir)

	code, body := get(router, "/worker?mac=00:11:22:33:44:55&num=7")
	Expect(code).To(Equal(http.StatusOK))
	Expect(body).To(Equal("172.17.1.7"))

	code, body = get(router, "/worker?mac=00:11:22:33:44:56")
	Expect(code).To(Equal(http.StatusBadRequest))
	Expect(body).To(Equal("Required query parameters: num"))

	code, body = get(router, "/worker?mac=00:11:22:33:44:56&num=300")
	Expect(code).To(Equal(http.StatusBadRequest))
	Expect(body).To(Equal("Invalid num: num=300"))
}

func TestEpochEndpoint(t *testing.T) {
	server, router, dir := setupServer(t)
	defer os.RemoveAll(dir)

	code, body := get(router, "/reboot_timestamp")
	Expect(code).To(Equal(http.StatusOK))
	Expect(body).To(Equal("0"))

	server.Epoch.next()
	server.Epoch.next()

	code, body = get(router, "/reboot_timestamp")
	Expect(code).To(Equal(http.StatusOK))
	Expect(body).To(Equal("2"))
}

func TestUnknownRoute(t *testing.T) {
	_, router, dir := setupServer(t)
	defer os.RemoveAll(dir)

	code, _ := get(router, "/no_such_route")
	Expect(code).To(Equal(http.StatusNotFound))
}

func TestPanicRecovery(t *testing.T) {
	_, router, dir := setupServer(t)
	defer os.RemoveAll(dir)

	router.HandleFunc("/boom", func(w http.ResponseWriter, req *http.Request) {
		panic("kaboom")
	}).Methods("GET")

	code, _ := get(router, "/boom")
	Expect(code).To(Equal(http.StatusInternalServerError))

	// the process keeps serving after a handler panic
	code, _ = get(router, "/reboot_timestamp")
	Expect(code).To(Equal(http.StatusOK))
}
