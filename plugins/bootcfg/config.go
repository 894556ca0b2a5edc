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

// Package bootcfg loads the per-subnet boot-image configuration of pixied.
//
// Each config file describes one boot-image class: the network prefix whose
// clients boot this image, the root/swap partition sizes, extra kernel
// arguments and the list of image files covered by the integrity digest.
// The digest (SHA-224 over the subnet, the sizes, the extra arguments and
// the raw bytes of every declared file, in declared order) is passed to the
// booting kernel so the client can detect a stale on-disk image: changing a
// single byte of any declared file changes the digest.
//
// Config files are parsed as YAML, of which the historic JSON configs are a
// subset:
//
//      subnet: 10.0.0.0/24
//      root_size: 20000000000
//      swap_size: 2000000000
//      extra_args: quiet splash
//      hashes:
//        - /srv/pixie/vmlinuz.img
//        - /srv/pixie/initrd.img
package bootcfg

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"net"

	"github.com/apparentlymart/go-cidr/cidr"
	"github.com/ghodss/yaml"
	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"
)

// fileConfig mirrors the on-disk config schema.
type fileConfig struct {
	Subnet    string   `json:"subnet"`
	RootSize  int64    `json:"root_size"`
	SwapSize  int64    `json:"swap_size"`
	ExtraArgs string   `json:"extra_args"`
	Hashes    []string `json:"hashes"`
}

// SubnetConfig is one loaded boot-image class, scoped to a network prefix.
// Immutable after Load.
type SubnetConfig struct {
	Subnet    *net.IPNet
	RootSize  int64
	SwapSize  int64
	ExtraArgs string
	// SHA224 is the hex-encoded integrity digest described in the package
	// comment.
	SHA224 string
}

// Contains reports whether the client address belongs to this config's
// subnet.
func (c *SubnetConfig) Contains(ip net.IP) bool {
	return c.Subnet.Contains(ip)
}

// Load parses one config file and computes its integrity digest. Any
// unreadable declared file or unparsable network prefix is an error; the
// caller treats it as fatal at startup.
func Load(path string, log logging.Logger) (*SubnetConfig, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config %s", path)
	}
	fc := &fileConfig{}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, errors.Wrapf(err, "cannot parse config %s", path)
	}

	_, subnet, err := net.ParseCIDR(fc.Subnet)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s: invalid subnet %q", path, fc.Subnet)
	}

	digest := sha256.New224()
	digest.Write([]byte(fc.Subnet))
	fmt.Fprintf(digest, "%d%d", fc.SwapSize, fc.RootSize)
	digest.Write([]byte(fc.ExtraArgs))
	for _, file := range fc.Hashes {
		content, err := ioutil.ReadFile(file)
		if err != nil {
			return nil, errors.Wrapf(err, "config %s: cannot read image file %s", path, file)
		}
		digest.Write(content)
	}

	cfg := &SubnetConfig{
		Subnet:    subnet,
		RootSize:  fc.RootSize,
		SwapSize:  fc.SwapSize,
		ExtraArgs: fc.ExtraArgs,
		SHA224:    hex.EncodeToString(digest.Sum(nil)),
	}
	log.Infof("Loaded %s: subnet %s (%d addresses), sha224 %s",
		path, subnet, cidr.AddressCount(subnet), cfg.SHA224)
	return cfg, nil
}

// LoadAll loads every config file, preserving the given order. Matching is
// first-match-wins in this order, so overlapping subnets are permitted and
// resolve to the earliest file.
func LoadAll(paths []string, log logging.Logger) ([]*SubnetConfig, error) {
	var configs []*SubnetConfig
	for _, path := range paths {
		cfg, err := Load(path, log)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// Match returns the first config whose subnet contains ip, or nil.
func Match(configs []*SubnetConfig, ip net.IP) *SubnetConfig {
	for _, cfg := range configs {
		if cfg.Contains(ip) {
			return cfg
		}
	}
	return nil
}
