package wasmrt

import "github.com/Hyphaeic/radixrunner-wasm/region"

var wasmHeader = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// Section ids.
const (
	secType     = 1
	secImport   = 2
	secFunction = 3
	secMemory   = 5
	secExport   = 7
	secCode     = 10
)

// Descriptor kinds in import and export entries.
const (
	kindFunc   = 0x00
	kindMemory = 0x02
)

// Opcodes used by the reference ticker.
const (
	opLoop     = 0x03
	opBr       = 0x0c
	opEnd      = 0x0b
	opI32Const = 0x41
	opI64Const = 0x42
	opI64Load  = 0x29
	opI64Store = 0x37
	opI64Add   = 0x7c
	blockEmpty = 0x40
	alignI64   = 0x03
)

// MemoryModule builds a module that defines a single memory of pages pages,
// fixed size, and exports it as exportName.
func MemoryModule(pages uint32, shared bool, exportName string) []byte {
	out := append([]byte{}, wasmHeader...)
	out = append(out, section(secMemory, vec(limits(pages, shared)))...)
	out = append(out, section(secExport, vec(
		cat(name(exportName), []byte{kindMemory}, uleb(0)),
	))...)

	return out
}

// TickerModule builds a reference computation module. It imports env.memory
// with pages pages and exports init_memory_base, which does nothing, and
// tick_worker_main, which adds one to the head counter in an endless loop.
func TickerModule(pages uint32, shared bool) []byte {
	head := sleb(region.HeadOffset)

	run := cat(
		[]byte{0x00}, // no locals
		[]byte{opLoop, blockEmpty},
		[]byte{opI32Const}, head,
		[]byte{opI32Const}, head,
		[]byte{opI64Load, alignI64, 0x00},
		[]byte{opI64Const, 0x01},
		[]byte{opI64Add},
		[]byte{opI64Store, alignI64, 0x00},
		[]byte{opBr, 0x00},
		[]byte{opEnd},
		[]byte{opEnd},
	)
	init := []byte{0x00, opEnd}

	out := append([]byte{}, wasmHeader...)
	out = append(out, section(secType, vec([]byte{0x60, 0x00, 0x00}))...)
	out = append(out, section(secImport, vec(
		cat(name("env"), name("memory"), []byte{kindMemory}, limits(pages, shared)),
	))...)
	out = append(out, section(secFunction, vec([]byte{0x00}, []byte{0x00}))...)
	out = append(out, section(secExport, vec(
		cat(name(DefaultInitExport), []byte{kindFunc}, uleb(0)),
		cat(name(DefaultRunExport), []byte{kindFunc}, uleb(1)),
	))...)
	out = append(out, section(secCode, vec(
		cat(uleb(uint64(len(init))), init),
		cat(uleb(uint64(len(run))), run),
	))...)

	return out
}

func limits(pages uint32, shared bool) []byte {
	flag := byte(0x01)
	if shared {
		flag = 0x03
	}

	return cat([]byte{flag}, uleb(uint64(pages)), uleb(uint64(pages)))
}

func section(id byte, body []byte) []byte {
	return cat([]byte{id}, uleb(uint64(len(body))), body)
}

func vec(items ...[]byte) []byte {
	return cat(uleb(uint64(len(items))), cat(items...))
}

func name(s string) []byte {
	return cat(uleb(uint64(len(s))), []byte(s))
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}

	return out
}

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7

		if v == 0 {
			return append(out, b)
		}

		out = append(out, b|0x80)
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7

		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}

		out = append(out, b|0x80)
	}
}
