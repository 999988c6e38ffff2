// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package link checks the wireless link the broker is reached through.
// Association itself is owned by the OS (wpa_supplicant / NetworkManager);
// the device only needs to know whether the interface is usable.
package link

import (
	"context"
	"fmt"
	"net"
)

// Link brings up (or verifies) network connectivity.
type Link interface {
	Connect(ctx context.Context) error
}

// Interface is a Link backed by a named network interface.
type Interface struct {
	Name string

	// lookup and addrs are replaced in tests.
	lookup func(name string) (*net.Interface, error)
	addrs  func(ifi *net.Interface) ([]net.Addr, error)
}

func NewInterface(name string) *Interface {
	return &Interface{
		Name:   name,
		lookup: net.InterfaceByName,
		addrs:  func(ifi *net.Interface) ([]net.Addr, error) { return ifi.Addrs() },
	}
}

func (i *Interface) String() string { return "link(" + i.Name + ")" }

// Connect succeeds when the interface is up and holds a global unicast
// address.
func (i *Interface) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ifi, err := i.lookup(i.Name)
	if err != nil {
		return fmt.Errorf("interface %s: %w", i.Name, err)
	}
	if ifi.Flags&net.FlagUp == 0 {
		return fmt.Errorf("interface %s is down", i.Name)
	}
	addrs, err := i.addrs(ifi)
	if err != nil {
		return fmt.Errorf("interface %s addresses: %w", i.Name, err)
	}
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if ok && ipn.IP.IsGlobalUnicast() {
			return nil
		}
	}
	return fmt.Errorf("interface %s has no usable address", i.Name)
}
