// Package statsview serves runtime statistics of the emulator process over
// HTTP, using github.com/go-echarts/statsview.
//
// After launch, graphs are available at
//
//	<addr>/debug/statsview
//
// and the standard pprof endpoints at <addr>/debug/pprof/.
package statsview

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const DefaultAddress = "localhost:12600"

const path = "/debug/statsview"

// URL returns where the statistics page is served for addr.
func URL(addr string) string {
	if addr == "" {
		addr = DefaultAddress
	}
	return "http://" + addr + path
}

// Launch a new goroutine running the statsview server on addr.
func Launch(addr string, output io.Writer) {
	if addr == "" {
		addr = DefaultAddress
	}
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(addr))
		mgr := statsview.New()
		mgr.Start()
	}()

	fmt.Fprintf(output, "stats server available at %s\n", URL(addr))
}
