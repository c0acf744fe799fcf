//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the testbed on the software backend and prints the translated layouts.
func (Run) Inspect() error {
	fmt.Println("Run testbed...")
	_, err := executeCmd("go", withArgs("run", ".", "-backend", "software"), withStream())
	return err
}

// Runs the testbed on the real D3D12 runtime.
func (Run) D3D12() error {
	mg.Deps(Build.Vet)
	_, err := executeCmd("go", withArgs("run", ".", "-backend", "d3d12"), withStream())
	return err
}
