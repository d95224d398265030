// Package finder provides the class-byte supplier side of §6's external
// collaborator contract: find(name) → (bytes, length) | absent, called
// under the class monitor by classloader.ResolveClass. It ships two
// implementations — an in-memory map for tests and the demo launcher, and
// a filesystem directory lookup for anything closer to a real deployment.
package finder

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// MemoryFinder serves class bytes registered ahead of time — the one
// classloader.ClassFileLoader / machine.ClassFinder pairing internal/
// classfile's tests and cmd/corevm's demo both build classes against.
type MemoryFinder struct {
	mu      sync.RWMutex
	classes map[string][]byte
}

func NewMemoryFinder() *MemoryFinder {
	return &MemoryFinder{classes: make(map[string][]byte)}
}

// Register stores raw (already-encoded) class bytes under name, overwriting
// any previous registration — classfile.ClassBuilder.Encode() is the usual
// producer.
func (f *MemoryFinder) Register(name string, raw []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classes[name] = raw
}

func (f *MemoryFinder) Find(name string) ([]byte, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	b, ok := f.classes[name]
	return b, ok
}

// FileFinder serves class bytes from <root>/<name>.class on disk. §6
// requires returned bytes to remain valid until the loader finishes with
// them; Find reads the whole file up front so that holds trivially.
type FileFinder struct {
	Root string
}

func NewFileFinder(root string) *FileFinder { return &FileFinder{Root: root} }

func (f *FileFinder) Find(name string) ([]byte, bool) {
	path := filepath.Join(f.Root, name+".class")
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return b, true
}

// MustRegister is a MemoryFinder convenience that encodes a class builder
// (any Encoder) and panics on an encode error — every
// caller builds these classes by hand, so a failure here is a programmer
// error, not a runtime condition to recover from.
type Encoder interface {
	Encode() ([]byte, error)
}

func (f *MemoryFinder) MustRegister(name string, b Encoder) {
	raw, err := b.Encode()
	if err != nil {
		panic(errors.Wrapf(err, "finder: encode class %q", name))
	}
	f.Register(name, raw)
}
