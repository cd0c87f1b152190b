// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rtkit

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// ErrUnsupportedWireType is returned by [WireValue.Int64] and
// [DecodeProperty] when a property reply is not int32 or int64.
var ErrUnsupportedWireType = errors.New("rtkit: unsupported wire type")

// WireKind tags the representation a value arrived in.
type WireKind int

const (
	// WireOther is any type other than the two integer widths.
	WireOther WireKind = iota
	WireInt32
	WireInt64
)

func (k WireKind) String() string {
	switch k {
	case WireInt32:
		return "int32"
	case WireInt64:
		return "int64"
	default:
		return "other"
	}
}

// WireValue is a tagged union over a property reply. Only the payload
// matching Kind is meaningful.
type WireValue struct {
	Kind WireKind

	int32Value int32
	int64Value int64

	// signature is the D-Bus type signature of the original value,
	// kept for error messages.
	signature string
}

// Int32Value returns a WireValue tagged WireInt32.
func Int32Value(v int32) WireValue {
	return WireValue{Kind: WireInt32, int32Value: v, signature: "i"}
}

// Int64Value returns a WireValue tagged WireInt64.
func Int64Value(v int64) WireValue {
	return WireValue{Kind: WireInt64, int64Value: v, signature: "x"}
}

// WireValueFromVariant classifies a variant by its payload type.
func WireValueFromVariant(variant dbus.Variant) WireValue {
	switch value := variant.Value().(type) {
	case int64:
		return Int64Value(value)
	case int32:
		return Int32Value(value)
	default:
		return WireValue{Kind: WireOther, signature: variant.Signature().String()}
	}
}

// Signature returns the D-Bus signature the value was received with.
func (w WireValue) Signature() string {
	return w.signature
}

// Int64 returns the value as a signed 64-bit integer. int32 values are
// sign-extended. Any other kind is an error and the returned number is
// always zero.
func (w WireValue) Int64() (int64, error) {
	switch w.Kind {
	case WireInt64:
		return w.int64Value, nil
	case WireInt32:
		return int64(w.int32Value), nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnsupportedWireType, w.signature)
	}
}

// DecodeProperty extracts the int64 from a Properties.Get reply body,
// which is a single variant.
func DecodeProperty(body []any) (int64, error) {
	if len(body) != 1 {
		return 0, fmt.Errorf("%w: reply has %d values, want 1", ErrUnsupportedWireType, len(body))
	}
	variant, ok := body[0].(dbus.Variant)
	if !ok {
		return 0, fmt.Errorf("%w: reply value is %T, not a variant", ErrUnsupportedWireType, body[0])
	}
	return WireValueFromVariant(variant).Int64()
}
