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

package ethers

import (
	"io/ioutil"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"
)

// Mode selects the address family accepted and persisted by the manager.
// It is fixed for the lifetime of the process.
type Mode int

const (
	// ModeIPv4 exports plain "MAC ADDRESS" ethers lines.
	ModeIPv4 Mode = iota
	// ModeIPv6 exports dnsmasq dhcp-host lease lines ("MAC,[ADDRESS],5m").
	ModeIPv6
)

// leaseTime is the lease duration written on every dhcp-host line in ModeIPv6.
const leaseTime = "5m"

// Allocation failure causes. HTTP handlers match on these (via errors.Cause)
// to turn a refused insertion into a 400 response.
var (
	ErrInvalidMAC       = errors.New("invalid MAC address")
	ErrInvalidAddress   = errors.New("invalid IP address")
	ErrDuplicateMAC     = errors.New("MAC already present")
	ErrDuplicateAddress = errors.New("IP already present")
)

var macRegexp = regexp.MustCompile(`^([0-9a-fA-F]{2}:){5}[0-9a-fA-F]{2}$`)

// ReloadFunc signals the downstream DHCP/DNS resolver to re-read the
// exported ethers file.
type ReloadFunc func() error

// DnsmasqSIGHUP makes dnsmasq re-read its hosts/ethers files.
func DnsmasqSIGHUP() error {
	return exec.Command("killall", "-s", "SIGHUP", "dnsmasq").Run()
}

// Config groups the startup parameters of the ethers manager.
type Config struct {
	// Path is the ethers file the table is persisted to (and loaded from
	// unless Wipe is set).
	Path string
	// StaticPath optionally seeds the table when Wipe is set.
	StaticPath string
	// Wipe discards the persisted file and starts from StaticPath or empty.
	Wipe bool
	// Mode is the address family of the deployment.
	Mode Mode
	// ExportAfter, when positive, exports the table as soon as it holds
	// this many entries, without waiting for the next synchronizer tick.
	ExportAfter int
	// Reload overrides the dnsmasq SIGHUP (used by tests). Nil means
	// DnsmasqSIGHUP.
	Reload ReloadFunc
}

// Manager is the exclusive owner of the MAC-to-IP table. All insertions and
// all reads-for-export are serialized on its mutex, so two concurrent
// requests can never both claim the same address.
type Manager struct {
	log    logging.Logger
	path   string
	mode   Mode
	target int
	reload ReloadFunc

	mu     sync.Mutex
	byMAC  map[string]string // canonical MAC -> address
	byAddr map[string]string // address -> canonical MAC
}

// NewManager validates the configured paths, loads the initial table and
// returns a ready-to-serve manager. A path that cannot be read or written
// is a fatal configuration error: the caller is expected to abort.
func NewManager(cfg *Config, log logging.Logger) (*Manager, error) {
	m := &Manager{
		log:    log,
		path:   cfg.Path,
		mode:   cfg.Mode,
		target: cfg.ExportAfter,
		reload: cfg.Reload,
		byMAC:  map[string]string{},
		byAddr: map[string]string{},
	}
	if m.reload == nil {
		m.reload = DnsmasqSIGHUP
	}

	if cfg.Wipe {
		// the persisted file is disregarded, it only has to be creatable
		if err := assertWritable(cfg.Path, true); err != nil {
			return nil, err
		}
		log.Warnf("The ethers file %s will be wiped", cfg.Path)
		if cfg.StaticPath != "" {
			log.Infof("Loading static ethers from %s", cfg.StaticPath)
			if err := m.load(cfg.StaticPath); err != nil {
				return nil, err
			}
		} else {
			log.Info("The ethers file will be created from scratch")
		}
	} else {
		// the persisted file carries state across restarts, so it has to
		// exist already and be both readable and writable
		if err := assertWritable(cfg.Path, false); err != nil {
			return nil, err
		}
		if err := m.load(cfg.Path); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// assertWritable opens the file for writing to surface permission problems
// at startup instead of on the first export.
func assertWritable(path string, create bool) error {
	flags := os.O_WRONLY
	if create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return errors.Wrapf(err, "%s is not writable", path)
	}
	return f.Close()
}

// ValidateMAC accepts only the canonical colon-separated six-octet form.
func ValidateMAC(mac string) bool {
	return macRegexp.MatchString(mac)
}

// ValidateAddress accepts only a syntactically valid address of the
// configured family.
func (m *Manager) ValidateAddress(addr string) bool {
	_, ok := m.canonicalAddr(addr)
	return ok
}

// canonicalAddr parses addr and returns its canonical string form, so that
// two spellings of the same address cannot both be assigned.
func (m *Manager) canonicalAddr(addr string) (string, bool) {
	ip := net.ParseIP(addr)
	if ip == nil {
		return "", false
	}
	switch m.mode {
	case ModeIPv4:
		if ip.To4() == nil || !strings.Contains(addr, ".") {
			return "", false
		}
	case ModeIPv6:
		if ip.To4() != nil || !strings.Contains(addr, ":") {
			return "", false
		}
	}
	return ip.String(), true
}

// Put inserts a validated MAC-to-address assignment. The read-check-write
// sequence is atomic: a concurrent reader never observes a partial update
// and two concurrent insertions cannot claim the same address. In
// count-triggered mode reaching the configured table size exports the file
// and reloads dnsmasq immediately.
func (m *Manager) Put(mac, addr string) error {
	size, err := m.insert(mac, addr)
	if err != nil {
		return err
	}
	if m.target > 0 && size >= m.target {
		m.log.Infof("Collected %d ethers, exporting", size)
		if err := m.Export(); err != nil {
			m.log.Errorf("ethers export failed: %v", err)
		} else {
			m.Reload()
		}
	}
	return nil
}

func (m *Manager) insert(mac, addr string) (size int, err error) {
	if !ValidateMAC(mac) {
		return 0, errors.Wrapf(ErrInvalidMAC, "%q", mac)
	}
	canon, ok := m.canonicalAddr(addr)
	if !ok {
		return 0, errors.Wrapf(ErrInvalidAddress, "%q", addr)
	}
	mac = strings.ToLower(mac)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byMAC[mac]; taken {
		return 0, errors.Wrapf(ErrDuplicateMAC, "%s", mac)
	}
	if owner, taken := m.byAddr[canon]; taken {
		return 0, errors.Wrapf(ErrDuplicateAddress, "%s is held by %s", canon, owner)
	}
	m.byMAC[mac] = canon
	m.byAddr[canon] = mac
	return len(m.byMAC), nil
}

// Size returns the number of assignments in the table.
func (m *Manager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byMAC)
}

// Snapshot returns a copy of the current MAC-to-address table.
func (m *Manager) Snapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.byMAC))
	for mac, addr := range m.byMAC {
		out[mac] = addr
	}
	return out
}

// Export serializes the full table to the ethers file. The file is written
// to a uniquely named temporary sibling and renamed into place, so that a
// concurrent dnsmasq reload never observes it half-written and two exports
// racing each other (synchronizer tick vs. count-triggered) never touch the
// same inode.
func (m *Manager) Export() error {
	content := m.formatTable()
	tmp, err := ioutil.TempFile(filepath.Dir(m.path), filepath.Base(m.path)+".tmp")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file for %s", m.path)
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "failed to write %s", tmp.Name())
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "failed to chmod %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "failed to write %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "failed to replace %s", m.path)
	}
	m.log.Infof("%s written (%d entries)", m.path, m.Size())
	return nil
}

// formatTable renders the table in the persisted line format, sorted by MAC
// for reproducible output.
func (m *Manager) formatTable() string {
	m.mu.Lock()
	macs := make([]string, 0, len(m.byMAC))
	for mac := range m.byMAC {
		macs = append(macs, mac)
	}
	sort.Strings(macs)
	var b strings.Builder
	for _, mac := range macs {
		b.WriteString(m.formatLine(mac, m.byMAC[mac]))
		b.WriteByte('\n')
	}
	m.mu.Unlock()
	return b.String()
}

func (m *Manager) formatLine(mac, addr string) string {
	if m.mode == ModeIPv6 {
		return mac + ",[" + addr + "]," + leaseTime
	}
	return mac + " " + addr
}

// parseLine is the inverse of formatLine. It reports false for any line
// that does not round-trip.
func (m *Manager) parseLine(line string) (mac, addr string, ok bool) {
	if m.mode == ModeIPv6 {
		pieces := strings.Split(line, ",")
		if len(pieces) != 3 || pieces[2] != leaseTime {
			return "", "", false
		}
		addr = strings.TrimSuffix(strings.TrimPrefix(pieces[1], "["), "]")
		if len(addr)+2 != len(pieces[1]) {
			return "", "", false
		}
		return pieces[0], addr, true
	}
	pieces := strings.Fields(line)
	if len(pieces) != 2 {
		return "", "", false
	}
	return pieces[0], pieces[1], true
}

// load parses a persisted ethers file into the table. Malformed or
// conflicting lines are skipped with a warning, never fatal.
func (m *Manager) load(path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "%s is not readable", path)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		mac, addr, ok := m.parseLine(line)
		if !ok {
			m.log.Warnf("Skipping malformed ethers line %q", line)
			continue
		}
		if _, err := m.insert(mac, addr); err != nil {
			m.log.Warnf("Skipping ethers line %q: %v", line, err)
		}
	}
	m.log.Infof("Loaded %d ethers from %s", m.Size(), path)
	return nil
}

// Reload signals dnsmasq to pick up the exported file. This is a
// best-effort side effect: failure is logged and never propagated to the
// request that triggered it.
func (m *Manager) Reload() {
	m.log.Info("Reloading dnsmasq")
	if err := m.reload(); err != nil {
		m.log.Errorf("dnsmasq reload failed: %v", err)
	}
}
