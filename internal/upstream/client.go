package upstream

import (
	"io"
)

// maxBodyBytes caps upstream response bodies; provider payloads for a
// single point are well under this.
const maxBodyBytes = 4 << 20

func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxBodyBytes))
}
