package natsx

import (
	"os"

	"github.com/nats-io/nats.go"
)

// URL picks the server to dial: url when set, then the NATS_URL environment
// variable, then the NATS default.
func URL(url string) string {
	if url != "" {
		return url
	}
	if env := os.Getenv("NATS_URL"); env != "" {
		return env
	}
	return nats.DefaultURL
}

// NewClient connects to the server chosen by URL. Without options the
// connection is named "swamp" and uses compression.
func NewClient(url string, opts ...nats.Option) (*nats.Conn, error) {
	if len(opts) == 0 {
		opts = append(opts, nats.Name("swamp"), nats.Compression(true))
	}
	return nats.Connect(URL(url), opts...)
}
