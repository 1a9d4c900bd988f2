// Package naive implements portable CPU kernels for tensor devices.
//
// Tensor memory lives on the Go heap and every kernel is a plain loop over
// float32 slices, except matrix products which go through gonum's BLAS.
// Sampling uses a device-local PCG source so that a fixed seed reproduces
// the same random tensors.
package naive

import (
	"log/slog"
	"time"

	"github.com/born-ml/dagrad/internal/envconfig"
	"github.com/born-ml/dagrad/internal/memory"
	"github.com/born-ml/dagrad/internal/parallel"
	"github.com/born-ml/dagrad/internal/tensor"
	"golang.org/x/exp/rand"
)

// Config holds the options for a naive device.
type Config struct {
	// Seed initializes the device RNG. Zero selects a time-based seed.
	Seed uint64

	// MemoryLimit caps the bytes the device may hold (0 = unlimited).
	MemoryLimit int

	// Parallel splits batched matrix products across goroutines.
	Parallel parallel.Config
}

// DefaultConfig reads the options from DAGRAD_SEED and DAGRAD_MEMORY_LIMIT.
func DefaultConfig() Config {
	return Config{
		Seed:        envconfig.Seed(),
		MemoryLimit: envconfig.MemoryLimit(),
		Parallel:    parallel.DefaultConfig(),
	}
}

// Backend implements tensor.Kernels on the CPU.
type Backend struct {
	src rand.Source
	par parallel.Config
}

// NewBackend creates the kernels with an RNG seeded by seed.
func NewBackend(seed uint64) *Backend {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Backend{src: rand.NewSource(seed)}
}

// WithParallel sets how batched kernels are split across goroutines.
func (be *Backend) WithParallel(cfg parallel.Config) *Backend {
	be.par = cfg
	return be
}

// New creates a device backed by naive kernels and the Go heap.
func New(cfg Config) *tensor.Device {
	d := tensor.NewDevice(NewBackend(cfg.Seed).WithParallel(cfg.Parallel), memory.NewHeapAllocator(cfg.MemoryLimit))
	slog.Debug("created device", "device", d, "seed", cfg.Seed, "memory_limit", cfg.MemoryLimit)
	return d
}

// Name returns the backend name.
func (be *Backend) Name() string {
	return "naive"
}

// Fill sets every element of x to k.
func (be *Backend) Fill(x *tensor.Tensor, k float32) {
	data := x.Data()
	for i := range data {
		data[i] = k
	}
}

// Load copies values into x.
func (be *Backend) Load(x *tensor.Tensor, values []float32) {
	copy(x.Data(), values)
}

// Copy copies x into y.
func (be *Backend) Copy(x, y *tensor.Tensor) {
	copy(y.Data(), x.Data())
}

// Identity writes an identity matrix into y.
func (be *Backend) Identity(y *tensor.Tensor) {
	data := y.Data()
	clear(data)
	size := y.Shape().Dim(0)
	for i := range size {
		data[i+i*size] = 1
	}
}

var _ tensor.Kernels = (*Backend)(nil)
