// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

// Package policy is the Shared Policy Registry: the single source of truth
// for ring definitions, the capability whitelist, the injection pattern
// set, and the destructive-action classifier. Both the VSM server and the
// embedded SDK link against this package.
package policy

// Ring is the ordinal privilege level of a proposing agent. Smaller values
// are more trusted. Rings are totally ordered: KERNEL < DRIVER < SERVICE <
// USER.
type Ring int

const (
	KERNEL  Ring = 0
	DRIVER  Ring = 1
	SERVICE Ring = 2
	USER    Ring = 3
)

// RingFromInt maps an arbitrary integer to a Ring, clamping any value
// outside [0,3] to USER — the least-trusted ring is always the safe
// default for an unrecognized privilege level.
func RingFromInt(v int) Ring {
	switch v {
	case 0:
		return KERNEL
	case 1:
		return DRIVER
	case 2:
		return SERVICE
	case 3:
		return USER
	default:
		return USER
	}
}

// String returns the ring's canonical name, as used in recovery
// instructions and log fields.
func (r Ring) String() string {
	switch r {
	case KERNEL:
		return "KERNEL"
	case DRIVER:
		return "DRIVER"
	case SERVICE:
		return "SERVICE"
	case USER:
		return "USER"
	default:
		return "USER"
	}
}
