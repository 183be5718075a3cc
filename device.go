package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// Device describes where the graphs execute.
type Device struct {
	GPU  bool
	Name string
}

func (d Device) String() string {
	if d.GPU {
		return "gpu: " + d.Name
	}
	return "cpu: " + d.Name
}

// SelectDevice honours the gpu request when a CUDA device is present and
// otherwise warns on w and falls back to the CPU.
func SelectDevice(gpu bool, w io.Writer) Device {
	if gpu {
		name, err := cudaDevice()
		if err == nil {
			return Device{GPU: true, Name: name}
		}
		fmt.Fprintf(w, "warning: --gpu requested but %v; running on CPU\n", err)
	}
	return cpuDevice()
}

func cpuDevice() Device {
	var feats []string
	for _, f := range []cpuid.FeatureID{cpuid.AVX, cpuid.AVX2, cpuid.FMA3, cpuid.AVX512F} {
		if cpuid.CPU.Supports(f) {
			feats = append(feats, f.String())
		}
	}
	name := fmt.Sprintf("%s, %d cores", strings.TrimSpace(cpuid.CPU.BrandName), cpuid.CPU.PhysicalCores)
	if len(feats) > 0 {
		name += " (" + strings.Join(feats, " ") + ")"
	}
	return Device{Name: name}
}
