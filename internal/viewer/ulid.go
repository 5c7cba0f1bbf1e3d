package viewer

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Session IDs are ULIDs: a 48-bit millisecond timestamp plus 80 random bits,
// Crockford base32 encoded to 26 characters. Sessions never outlive the
// process, so local generation with a per-millisecond sequence is enough.

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var (
	idMu   sync.Mutex
	idLast uint64
	idSeq  uint16
)

func newSessionID() string {
	idMu.Lock()
	defer idMu.Unlock()

	ts := uint64(time.Now().UnixMilli())
	if ts == idLast {
		idSeq++
	} else {
		idLast = ts
		idSeq = 0
	}

	var b [16]byte
	binary.BigEndian.PutUint16(b[0:2], uint16(ts>>32))
	binary.BigEndian.PutUint32(b[2:6], uint32(ts))
	rand.Read(b[6:])
	// The sequence occupies the leading random bytes so IDs minted in the
	// same millisecond stay distinct and ordered.
	binary.BigEndian.PutUint16(b[6:8], idSeq)
	return encodeCrockford(b)
}

// encodeCrockford packs 128 bits into 26 base32 characters, consuming the
// bytes from the least significant end so the timestamp lands in the prefix.
func encodeCrockford(b [16]byte) string {
	var out [26]byte
	acc, bits := 0, 0
	j := len(out)
	for i := len(b) - 1; i >= 0; i-- {
		acc |= int(b[i]) << bits
		bits += 8
		for bits >= 5 {
			j--
			out[j] = crockford[acc&31]
			acc >>= 5
			bits -= 5
		}
	}
	j--
	out[j] = crockford[acc&31]
	return string(out[:])
}
