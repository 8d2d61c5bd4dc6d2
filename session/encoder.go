package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/internal/stores"
)

// CurrentSchemaVersion is the version byte written by Encode.
const CurrentSchemaVersion = 1

// Encode serializes s without its id, which is carried by the key.
//
//	v1: version(1) | user_id(16) | terminated(1) | last_refreshed unix ms(8)
func Encode(s *Session) ([]byte, error) {
	return stores.NewRecord(CurrentSchemaVersion).
		Fixed(s.UserID[:]).
		Bool(s.Terminated).
		Int64(s.LastRefreshed.UnixMilli()).
		Bytes()
}

// Decode parses a record produced by Encode. The caller sets ID.
func Decode(data []byte) (*Session, error) {
	rd := stores.OpenRecord(data, CurrentSchemaVersion)

	s := &Session{}
	rd.Fixed(s.UserID[:])
	s.Terminated = rd.Bool()
	s.LastRefreshed = time.UnixMilli(rd.Int64())
	if err := rd.Err(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if s.UserID == uuid.Nil {
		return nil, fmt.Errorf("session: %w: nil user id", stores.ErrCorruptRecord)
	}
	return s, nil
}
