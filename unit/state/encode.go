/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package state

import (
	"encoding/json"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// MarshalJSON returns the JSON encoding of the active state as its
// canonical string form.
func (a Active) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON parses a JSON string into an active state.
func (a *Active) UnmarshalJSON(b []byte) error {
	var s string
	if e := json.Unmarshal(b, &s); e != nil {
		return e
	}

	if v, e := ParseActive(s); e != nil {
		return e
	} else {
		*a = v
		return nil
	}
}

// MarshalYAML returns the YAML encoding of the active state.
func (a Active) MarshalYAML() (interface{}, error) {
	return a.String(), nil
}

// UnmarshalYAML parses a YAML scalar into an active state.
func (a *Active) UnmarshalYAML(value *yaml.Node) error {
	if v, e := ParseActive(value.Value); e != nil {
		return e
	} else {
		*a = v
		return nil
	}
}

// MarshalCBOR returns the CBOR encoding of the active state as an uint8.
func (a Active) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(uint8(a))
}

// UnmarshalCBOR parses a CBOR uint8 into an active state.
func (a *Active) UnmarshalCBOR(b []byte) error {
	var v uint8
	if e := cbor.Unmarshal(b, &v); e != nil {
		return e
	}

	*a = Active(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Active) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Active) UnmarshalText(b []byte) error {
	if v, e := ParseActive(string(b)); e != nil {
		return e
	} else {
		*a = v
		return nil
	}
}

// MarshalJSON returns the JSON encoding of the load state as its
// canonical string form.
func (l Load) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON parses a JSON string into a load state.
func (l *Load) UnmarshalJSON(b []byte) error {
	var s string
	if e := json.Unmarshal(b, &s); e != nil {
		return e
	}

	if v, e := ParseLoad(s); e != nil {
		return e
	} else {
		*l = v
		return nil
	}
}

// MarshalCBOR returns the CBOR encoding of the load state as an uint8.
func (l Load) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(uint8(l))
}

// UnmarshalCBOR parses a CBOR uint8 into a load state.
func (l *Load) UnmarshalCBOR(b []byte) error {
	var v uint8
	if e := cbor.Unmarshal(b, &v); e != nil {
		return e
	}

	*l = Load(v)
	return nil
}
