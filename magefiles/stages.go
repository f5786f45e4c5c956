//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// runCLI executes the built binary with the given arguments.
func runCLI(args ...string) error {
	bin := filepath.Join(binDir, binName)
	cmd := exec.Command(bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %w", bin, args, err)
	}
	return nil
}

// Harvest builds the CLI and collects new records from the source tracker.
func Harvest() error {
	mg.Deps(Build)
	return runCLI("harvest")
}

// Verify builds the CLI and classifies pending books against the target tracker.
func Verify() error {
	mg.Deps(Build)
	return runCLI("verify")
}

// Candidates builds the CLI and prints the upload-candidate list.
func Candidates() error {
	mg.Deps(Build)
	return runCLI("candidates")
}
