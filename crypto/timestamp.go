package crypto

import (
	"encoding/binary"
	"time"
)

// TimestampSize is the length of a TAI64N timestamp.
const TimestampSize = 12

// tai64nOffset converts a Unix second count to TAI64 label space. The ten
// leap seconds match the handshake peer's encoding.
const tai64nOffset = uint64(1)<<62 + 10

// Timestamp encodes the current time as TAI64N: 8 bytes big-endian seconds
// followed by 4 bytes big-endian nanoseconds. The responder rejects
// initiations whose timestamp does not exceed the last one seen, so the
// encoding must be monotonic across handshake attempts.
func Timestamp() [TimestampSize]byte {
	return timestampAt(time.Now())
}

func timestampAt(t time.Time) [TimestampSize]byte {
	var ts [TimestampSize]byte
	binary.BigEndian.PutUint64(ts[0:8], uint64(t.Unix())+tai64nOffset)
	binary.BigEndian.PutUint32(ts[8:12], uint32(t.Nanosecond()))
	return ts
}
