//go:build cuda

package main

import (
	"fmt"

	"gorgonia.org/cu"
)

func cudaDevice() (string, error) {
	n, err := cu.NumDevices()
	if err != nil {
		return "", fmt.Errorf("probing CUDA: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("no CUDA device found")
	}
	name, err := cu.Device(0).Name()
	if err != nil {
		return "", err
	}
	return name, nil
}
