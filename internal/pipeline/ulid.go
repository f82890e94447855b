package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Job IDs are ULIDs: 48-bit millisecond timestamp plus 80 random bits,
// Crockford base32 encoded. IDs from one process sort by creation order;
// within a millisecond the random part is incremented.

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var (
	ulidMu   sync.Mutex
	lastMs   uint64
	lastRand [10]byte
)

func generateULID() string {
	return newULID(time.Now())
}

func newULID(t time.Time) string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	ms := uint64(t.UnixMilli())
	if ms <= lastMs {
		ms = lastMs
		incrementRand(&lastRand)
	} else {
		lastMs = ms
		rand.Read(lastRand[:])
	}

	var b [16]byte
	binary.BigEndian.PutUint16(b[0:2], uint16(ms>>32))
	binary.BigEndian.PutUint32(b[2:6], uint32(ms))
	copy(b[6:], lastRand[:])
	return encodeULID(b)
}

func incrementRand(r *[10]byte) {
	for i := len(r) - 1; i >= 0; i-- {
		r[i]++
		if r[i] != 0 {
			return
		}
	}
}

// encodeULID writes the 128 bits as 26 base32 digits, most significant
// first. The leading digit carries the top 3 bits.
func encodeULID(b [16]byte) string {
	hi := binary.BigEndian.Uint64(b[:8])
	lo := binary.BigEndian.Uint64(b[8:])
	var out [26]byte
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = crockford[lo&31]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}
