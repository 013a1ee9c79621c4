// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package sacn builds and transmits ANSI E1.31 (sACN) packets: one
// unconditional send per universe every 24ms, carrying the universe's
// 512-slot DMX buffer.
package sacn

import (
	"encoding/binary"
)

// UniverseSize is the number of DMX slots per universe.
const UniverseSize = 512

// MaxUniverse is the highest universe number ANSI E1.31 allows.
const MaxUniverse = 63999

const sourceName = "Attitude sACN Client"

const (
	rootVectorData     = 0x00000004
	framingVectorData  = 0x00000002
	dmpVectorSetData   = 0x02
	defaultPriority    = 100
	vendorStartCode    = 0x00
)

// cid is a 16-byte component identifier, fixed per process lifetime.
type cid [16]byte

// BuildPacket assembles a full E1.31 data packet for one universe, per the
// root/framing/DMP layer layout of ANSI E1.31-2016 §4. Slots is copied, not
// referenced — safe to call from under the caller's own lock.
func BuildPacket(id cid, universe int, sequence uint8, slots []byte, previewMode bool) []byte {
	data := make([]byte, UniverseSize+1)
	data[0] = vendorStartCode
	copy(data[1:], slots)

	dmpLen := 10 + len(data)
	framingLen := 77 + dmpLen
	rootLen := 22 + framingLen

	buf := make([]byte, 0, rootLen+2)

	// Preamble + postamble size, ACN packet identifier.
	buf = append(buf, 0x00, 0x10)
	buf = append(buf, 0x00, 0x00)
	buf = append(buf, []byte("ASC-E1.17\x00\x00\x00")...)

	// Root layer (PDU length + vendor flags, vector, CID).
	buf = appendFlagsAndLength(buf, rootLen)
	buf = appendU32(buf, rootVectorData)
	buf = append(buf, id[:]...)

	// Framing layer.
	buf = appendFlagsAndLength(buf, framingLen)
	buf = appendU32(buf, framingVectorData)
	buf = appendPaddedString(buf, sourceName, 64)
	buf = append(buf, defaultPriority)
	buf = append(buf, 0x00, 0x00) // sync address
	buf = append(buf, sequence)
	if previewMode {
		buf = append(buf, 0x80)
	} else {
		buf = append(buf, 0x00)
	}
	buf = appendU16(buf, uint16(universe))

	// DMP layer.
	buf = appendFlagsAndLength(buf, dmpLen)
	buf = append(buf, dmpVectorSetData)
	buf = append(buf, 0xa1)                 // address type & data type
	buf = appendU16(buf, 0x0000)            // first property address
	buf = appendU16(buf, 0x0001)            // address increment
	buf = appendU16(buf, uint16(len(data))) // property value count
	buf = append(buf, data...)

	return buf
}

func appendFlagsAndLength(buf []byte, length int) []byte {
	v := uint16(length&0x0fff) | 0x7000
	return appendU16(buf, v)
}

func appendU16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendPaddedString(buf []byte, s string, width int) []byte {
	padded := make([]byte, width)
	copy(padded, s)
	return append(buf, padded...)
}
