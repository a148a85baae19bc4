//go:build !windows

package browser

import (
	"fmt"
	"os/exec"
	"runtime"
)

func open(url string) error {
	name := "xdg-open"
	if runtime.GOOS == "darwin" {
		name = "open"
	}
	cmd := exec.Command(name, url)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	go cmd.Wait()
	return nil
}
