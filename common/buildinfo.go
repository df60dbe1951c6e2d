package common

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"
)

// ServiceName is reported as the build name on the info endpoint and used as the
// default log service tag.
const ServiceName = "python-service"

// BuildInfo is the static build metadata served by the application info endpoint.
type BuildInfo struct {
	Name            string  `json:"name"`
	OperatingSystem string  `json:"operatingSystem"`
	Time            float64 `json:"time"`
	Machine         string  `json:"machine"`
	Number          string  `json:"number"`
	Version         string  `json:"version"`
}

// NewBuildInfo collects build metadata once at startup. The build time comes from
// BuildTime (unix seconds) when it was set at link time, otherwise the process start
// time is reported.
func NewBuildInfo(now time.Time) BuildInfo {
	machine, err := os.Hostname()
	if err != nil {
		machine = "unknown"
	}

	buildTime := float64(now.UnixMilli()) / 1000
	if BuildTime != "" {
		if parsed, err := strconv.ParseFloat(BuildTime, 64); err == nil {
			buildTime = parsed
		}
	}

	return BuildInfo{
		Name:            ServiceName,
		OperatingSystem: fmt.Sprintf("%s (%s)", runtime.GOOS, runtime.GOARCH),
		Time:            buildTime,
		Machine:         machine,
		Number:          "n/a",
		Version:         Version,
	}
}
