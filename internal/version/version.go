package version

// Version is overridden at build time with -ldflags "-X ...".
var Version = "0.3.0"

// UserAgent identifies the tool to remote APIs.
func UserAgent() string {
	return "taxiclock/" + Version
}
