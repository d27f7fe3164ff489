// Package ir provides the module representation that tmlink loads, transforms
// and writes back.
//
// This package contains the data model and its serialization only. Passes live
// in internal/passes; ir imports nothing internal.
//
// Key design constraints:
//   - A module round-trips through the bitstream byte-for-byte: encoding is
//     canonical (sorted keys, NFC-normalized strings, no HTML escaping)
//   - Integers only; there is no floating point anywhere in the IR
//   - Operands are plain strings with a sigil: %local, @global, a decimal
//     literal, undef, or a bare block label for branch targets
package ir
