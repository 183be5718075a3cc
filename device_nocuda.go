//go:build !cuda

package main

import "errors"

func cudaDevice() (string, error) {
	return "", errors.New("binary built without the cuda tag")
}
