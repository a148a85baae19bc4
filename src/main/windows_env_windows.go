//go:build windows

package main

import (
	"log"
	"syscall"

	"github.com/lxn/win"
)

const (
	processPerMonitorDPIAware = 2

	smCMonitors       = 80
	smXVirtualScreen  = 76
	smYVirtualScreen  = 77
	smCXVirtualScreen = 78
	smCYVirtualScreen = 79
	smCXScreen        = 0
	smCYScreen        = 1
)

// enableDPIAwareness makes GDI report physical pixels so window rectangles
// and the virtual screen capture agree on scaled monitors.
func enableDPIAwareness() {
	setAwareness := syscall.NewLazyDLL("Shcore.dll").NewProc("SetProcessDpiAwareness")
	if setAwareness.Find() == nil {
		if ret, _, _ := setAwareness.Call(processPerMonitorDPIAware); ret != 0 {
			log.Printf("DPI: SetProcessDpiAwareness returned 0x%x", ret)
		}
		return
	}
	setAware := syscall.NewLazyDLL("user32.dll").NewProc("SetProcessDPIAware")
	if setAware.Find() != nil {
		log.Printf("DPI: no DPI awareness API available")
		return
	}
	if ret, _, _ := setAware.Call(); ret == 0 {
		log.Printf("DPI: SetProcessDPIAware failed")
	}
}

func logMonitorConfiguration() {
	metric := func(i int32) int32 { return win.GetSystemMetrics(i) }
	log.Printf("Monitors: %d, virtual screen x:%d y:%d w:%d h:%d, primary w:%d h:%d",
		metric(smCMonitors),
		metric(smXVirtualScreen), metric(smYVirtualScreen),
		metric(smCXVirtualScreen), metric(smCYVirtualScreen),
		metric(smCXScreen), metric(smCYScreen))
}
