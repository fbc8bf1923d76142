// Package host exposes SM3 to WebAssembly guests running on wazero.
//
// Guests import these functions from the "sm3" module (all i32):
//
//	sum(ptr, len, out) -> errno
//	new() -> handle
//	write(handle, ptr, len) -> errno
//	final(handle, out) -> errno
//
// out must point at 32 writable bytes of guest memory.
package host

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/opentoys/sm3/crypto/sm3"
	"github.com/opentoys/sm3/logx"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Errno values returned to guests.
const (
	ErrnoOK uint32 = iota
	ErrnoMemory
	ErrnoHandle
	ErrnoDigest
)

const DefaultModuleName = "sm3"

type Host struct {
	name   string
	logger *slog.Logger

	mu      sync.Mutex
	next    uint32
	digests map[uint32]*sm3.Digest
}

type Option func(*Host)

func WithLogger(l *slog.Logger) Option {
	return func(h *Host) {
		h.logger = l
	}
}

func WithModuleName(name string) Option {
	return func(h *Host) {
		h.name = name
	}
}

func New(opts ...Option) *Host {
	h := &Host{
		name:    DefaultModuleName,
		digests: make(map[uint32]*sm3.Digest),
	}
	for _, v := range opts {
		v(h)
	}
	if h.logger == nil {
		h.logger = logx.NewLogger(io.Discard)
	}
	return h
}

// Instantiate registers the host module in r. It must happen before any
// guest importing it is instantiated.
func (h *Host) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	i32 := api.ValueTypeI32
	return r.NewHostModuleBuilder(h.name).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.sum), []api.ValueType{i32, i32, i32}, []api.ValueType{i32}).
		WithParameterNames("ptr", "len", "out").
		Export("sum").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.open), nil, []api.ValueType{i32}).
		Export("new").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.write), []api.ValueType{i32, i32, i32}, []api.ValueType{i32}).
		WithParameterNames("handle", "ptr", "len").
		Export("write").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.final), []api.ValueType{i32, i32}, []api.ValueType{i32}).
		WithParameterNames("handle", "out").
		Export("final").
		Instantiate(ctx)
}

// Live returns the number of streaming digests guests have not finalized.
func (h *Host) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.digests)
}

func (h *Host) sum(ctx context.Context, m api.Module, stack []uint64) {
	ptr, size, out := api.DecodeU32(stack[0]), api.DecodeU32(stack[1]), api.DecodeU32(stack[2])
	buf, ok := read(m, ptr, size)
	if !ok {
		h.logger.WarnContext(ctx, "sm3 sum: input out of range", "module", m.Name(), "ptr", ptr, "len", size)
		stack[0] = api.EncodeU32(ErrnoMemory)
		return
	}
	digest := sm3.Sum(buf)
	stack[0] = api.EncodeU32(h.store(ctx, m, out, digest))
}

func (h *Host) open(ctx context.Context, m api.Module, stack []uint64) {
	h.mu.Lock()
	h.next++
	for h.next == 0 || h.digests[h.next] != nil {
		h.next++
	}
	handle := h.next
	h.digests[handle] = sm3.New()
	h.mu.Unlock()
	stack[0] = api.EncodeU32(handle)
}

func (h *Host) write(ctx context.Context, m api.Module, stack []uint64) {
	handle, ptr, size := api.DecodeU32(stack[0]), api.DecodeU32(stack[1]), api.DecodeU32(stack[2])
	h.mu.Lock()
	defer h.mu.Unlock()
	d := h.digests[handle]
	if d == nil {
		h.logger.WarnContext(ctx, "sm3 write: unknown handle", "module", m.Name(), "handle", handle)
		stack[0] = api.EncodeU32(ErrnoHandle)
		return
	}
	buf, ok := read(m, ptr, size)
	if !ok {
		h.logger.WarnContext(ctx, "sm3 write: input out of range", "module", m.Name(), "ptr", ptr, "len", size)
		stack[0] = api.EncodeU32(ErrnoMemory)
		return
	}
	if _, e := d.Write(buf); e != nil {
		h.logger.ErrorContext(ctx, "sm3 write", "module", m.Name(), "handle", handle, "error", e)
		stack[0] = api.EncodeU32(ErrnoDigest)
		return
	}
	stack[0] = api.EncodeU32(ErrnoOK)
}

// final releases the handle even when the guest memory write fails.
func (h *Host) final(ctx context.Context, m api.Module, stack []uint64) {
	handle, out := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])
	h.mu.Lock()
	d := h.digests[handle]
	delete(h.digests, handle)
	h.mu.Unlock()
	if d == nil {
		h.logger.WarnContext(ctx, "sm3 final: unknown handle", "module", m.Name(), "handle", handle)
		stack[0] = api.EncodeU32(ErrnoHandle)
		return
	}
	digest, e := d.Finalize()
	if e != nil {
		h.logger.ErrorContext(ctx, "sm3 final", "module", m.Name(), "handle", handle, "error", e)
		stack[0] = api.EncodeU32(ErrnoDigest)
		return
	}
	stack[0] = api.EncodeU32(h.store(ctx, m, out, digest))
}

func read(m api.Module, ptr, size uint32) ([]byte, bool) {
	mem := m.Memory()
	if mem == nil {
		return nil, false
	}
	return mem.Read(ptr, size)
}

func (h *Host) store(ctx context.Context, m api.Module, out uint32, digest [sm3.Size]byte) uint32 {
	if mem := m.Memory(); mem == nil || !mem.Write(out, digest[:]) {
		h.logger.WarnContext(ctx, "sm3: output out of range", "module", m.Name(), "out", out)
		return ErrnoMemory
	}
	return ErrnoOK
}
