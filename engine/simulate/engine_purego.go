package simulate

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// candidateLibraryPaths are searched in order for the native SPICE shared
// library; the first one that exists on disk, or the first bare file name
// (handed to dlopen unchecked), wins. An explicit SIMULATE_NGSPICE_LIB
// environment variable always comes first.
func candidateLibraryPaths() []string {
	paths := []string{
		"libngspice.so",
		"libngspice.so.0",
		"/usr/lib/libngspice.so",
		"/usr/lib/x86_64-linux-gnu/libngspice.so.0",
		"/usr/local/lib/libngspice.so",
		"/opt/homebrew/lib/libngspice.dylib",
		"/usr/local/lib/libngspice.dylib",
	}
	if v := os.Getenv("SIMULATE_NGSPICE_LIB"); v != "" {
		paths = append([]string{v}, paths...)
	}
	return paths
}

func findLibrary() (string, error) {
	for _, p := range candidateLibraryPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
		if !strings.Contains(p, "/") {
			// Bare names are handed to dlopen as-is so the dynamic
			// linker's own search path (LD_LIBRARY_PATH, ldconfig
			// cache) gets a chance too.
			return p, nil
		}
	}
	return "", &Error{Kind: LibraryNotFound, Detail: "no ngspice shared library found; set SIMULATE_NGSPICE_LIB"}
}

// pureGoEngine binds to libngspice via purego (dlopen/dlsym, no cgo).
type pureGoEngine struct {
	handle uintptr

	ngSpiceInit    func(sendChar, sendStat, controlledExit, sendData, sendInitData, bgRunning uintptr, userData unsafe.Pointer) int32
	ngSpiceCommand func(cmd *byte) int32
	ngGetVecInfo   func(name *byte) uintptr
	ngAllVecs      func(plot *byte) uintptr
	ngCurPlot      func() *byte

	mu       sync.Mutex
	messages []string

	sendCharCB       uintptr
	sendStatCB       uintptr
	controlledExitCB uintptr
}

func newPureGoEngine() (*pureGoEngine, error) {
	path, err := findLibrary()
	if err != nil {
		return nil, err
	}

	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, &Error{Kind: LibraryNotFound, Detail: fmt.Sprintf("dlopen %s: %v", path, err)}
	}

	e := &pureGoEngine{handle: handle}
	purego.RegisterLibFunc(&e.ngSpiceInit, handle, "ngSpice_Init")
	purego.RegisterLibFunc(&e.ngSpiceCommand, handle, "ngSpice_Command")
	purego.RegisterLibFunc(&e.ngGetVecInfo, handle, "ngGet_Vec_Info")
	purego.RegisterLibFunc(&e.ngAllVecs, handle, "ngSpice_AllVecs")
	purego.RegisterLibFunc(&e.ngCurPlot, handle, "ngSpice_CurPlot")

	return e, nil
}

func (e *pureGoEngine) init(onMessage func(string), onExit func(int)) error {
	e.sendCharCB = purego.NewCallback(func(message *byte, _ int32, _ unsafe.Pointer) int32 {
		if message != nil {
			line := cString(message)
			e.appendMessage(line)
			onMessage(line)
		}
		return 0
	})
	e.sendStatCB = purego.NewCallback(func(message *byte, _ int32, _ unsafe.Pointer) int32 {
		if message != nil {
			line := cString(message)
			e.appendMessage(line)
			onMessage(line)
		}
		return 0
	})
	e.controlledExitCB = purego.NewCallback(func(status int32, _, _ int32, _ int32, _ unsafe.Pointer) int32 {
		onExit(int(status))
		return 0
	})

	rc := e.ngSpiceInit(e.sendCharCB, e.sendStatCB, e.controlledExitCB, 0, 0, 0, nil)
	if rc != 0 {
		return &Error{Kind: InitFailed, Detail: fmt.Sprintf("ngSpice_Init returned %d", rc)}
	}
	return nil
}

func (e *pureGoEngine) command(cmd string) error {
	cstr := cBytes(cmd)
	rc := e.ngSpiceCommand(&cstr[0])
	if rc != 0 {
		return &Error{Kind: CommandFailed, Detail: fmt.Sprintf("%q returned %d", cmd, rc)}
	}
	return nil
}

// vecInfo mirrors ngspice's pvector_info struct layout closely enough to
// read the fields this package needs: name, length, and a pointer to the
// real-valued data. v_compdata (AC complex data) is not read: a vector
// with no real-valued data is reported as missing.
type vecInfo struct {
	name     *byte
	vtype    int32
	flags    int16
	_        int16 // padding
	realData *float64
	compData uintptr
	length   int32
	_        int32 // padding
}

func (e *pureGoEngine) vector(name string) ([]float64, bool) {
	cstr := cBytes(name)
	ptr := e.ngGetVecInfo(&cstr[0])
	if ptr == 0 {
		return nil, false
	}
	info := (*vecInfo)(unsafe.Pointer(ptr))
	if info.length <= 0 || info.realData == nil {
		return nil, false
	}

	n := int(info.length)
	out := make([]float64, n)
	src := unsafe.Slice(info.realData, n)
	copy(out, src)
	return out, true
}

func (e *pureGoEngine) vectorNames() []string {
	plot := e.ngCurPlot()
	if plot == nil {
		return nil
	}
	listPtr := e.ngAllVecs(plot)
	if listPtr == 0 {
		return nil
	}

	var names []string
	base := (*[1 << 20]*byte)(unsafe.Pointer(listPtr))
	for i := 0; base[i] != nil; i++ {
		names = append(names, cString(base[i]))
	}
	return names
}

func (e *pureGoEngine) recentMessages() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.messages))
	copy(out, e.messages)
	return out
}

func (e *pureGoEngine) clearMessages() {
	e.mu.Lock()
	e.messages = nil
	e.mu.Unlock()
}

func (e *pureGoEngine) appendMessage(line string) {
	e.mu.Lock()
	e.messages = append(e.messages, line)
	e.mu.Unlock()
}

func (e *pureGoEngine) close() error {
	// libngspice has no documented clean-unload entry point; the process
	// that owns the singleton Adapter is expected to exit rather than
	// reload a second instance, matching spec.md's "process-wide handle"
	// framing.
	return nil
}

func cBytes(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	b[len(s)] = 0
	return b
}

func cString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for {
		b := *(*byte)(unsafe.Pointer(uintptr(unsafe.Pointer(p)) + uintptr(n)))
		if b == 0 {
			break
		}
		n++
	}
	return unsafe.String(p, n)
}
