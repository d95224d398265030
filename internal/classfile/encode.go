package classfile

import (
	"bytes"
	"encoding/gob"

	"github.com/pkg/errors"
)

// Encode serializes c's ClassDef to the byte form a ClassFinder returns and
// Loader.Load consumes. gob is enough here — every ClassDef field is a
// plain exported struct/slice/string, no interfaces to register.
func (c *ClassBuilder) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(c.def); err != nil {
		return nil, errors.Wrapf(err, "classfile: encode %s", c.def.Name)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode.
func Decode(raw []byte) (*ClassDef, error) {
	var def ClassDef
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&def); err != nil {
		return nil, errors.Wrap(err, "classfile: decode")
	}
	return &def, nil
}
