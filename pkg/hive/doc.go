/*
Package hive reads offline Windows registry hive files.

# Quick Start

	h, err := hive.Open("/mnt/image/Windows/System32/config/SYSTEM")
	if err != nil {
	    return err
	}
	defer h.Close()

	k, found, err := h.Navigate(`CurrentControlSet\Control\ComputerName\ComputerName`)
	if err != nil || !found {
	    return err
	}
	v, found, err := k.Value("ComputerName")
	...
	name, err := v.StringData()

# Lookups

Path segments are separated by a backslash and compared case-insensitively,
the way Windows compares key names. A missing key or value is reported with
found == false and a nil error; errors are reserved for structure that cannot
be decoded, and carry a *types.Error with Kind types.ErrKindFormat or
types.ErrKindCorrupt.

# Control sets

A path whose first segment is CurrentControlSet is rewritten to the control
set named by Select\Current. Hives without a Select key fall back to
ControlSet001. SetControlSet overrides the choice.

# Value decoding

Value accessors check the stored type: asking a REG_SZ for DwordData fails
with types.ErrTypeMismatch, and payloads shorter than their type requires fail
with types.ErrTruncated. Data returns the raw bytes of any type.
*/
package hive
