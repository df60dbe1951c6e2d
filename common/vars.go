package common

// Set at link time, e.g. -ldflags "-X .../common.Version=2.3.1". The default is the
// released sample version reported by /application/info.
var (
	Version   = "2.3.0"
	BuildTime = ""
)
