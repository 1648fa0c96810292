package version

// Version and Commit are set at build time via:
//
//	go build -ldflags "-X github.com/psconn-dev/psconn/internal/version.VERSION=1.0.0 -X github.com/psconn-dev/psconn/internal/version.Commit=abc123" ./cmd/psconn
var (
	VERSION = "dev"
	Commit  = "dev"
)
