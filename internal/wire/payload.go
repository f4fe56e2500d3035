package wire

import (
	"encoding/binary"
	"errors"
	"unicode/utf8"

	c2werrors "github.com/alxayo/c2w/internal/errors"
)

var (
	errShortHeader    = errors.New("buffer shorter than header size")
	errLengthMismatch = errors.New("declared length does not match buffer length")
	errTruncatedField = errors.New("truncated field")
	errBadUTF8        = errors.New("invalid utf-8")
	errBadRecordLen   = errors.New("inconsistent record length")
)

// movieRecordFixedSize is the byte count of a movie record before its
// variable-length title: 4 octets of IPv4 + port(u16) + recordLen(u16) + movieId(u8).
const movieRecordFixedSize = 4 + 2 + 2 + 1

// Movie is one entry of a MOVIE_LIST payload.
type Movie struct {
	IP    [4]byte
	Port  uint16
	ID    uint8
	Title string
}

// UserRecord is one entry of a USER_LIST payload. Status is 0 for MainRoom,
// otherwise a movie id.
type UserRecord struct {
	Status uint8
	Pseudo string
}

// EncodeText builds the payload for a CONNECT or SELECT_MOVIE frame: the
// whole remainder of the frame is the UTF-8 string, no length prefix.
func EncodeText(s string) []byte {
	return []byte(s)
}

// DecodeText validates and returns a bare UTF-8 payload (CONNECT, SELECT_MOVIE).
func DecodeText(payload []byte) (string, error) {
	if !utf8.Valid(payload) {
		return "", c2werrors.NewFrameError("decode.text", errBadUTF8)
	}
	return string(payload), nil
}

// EncodeChat builds the payload for a CHAT frame: pseudoLen(u8), pseudo, text.
func EncodeChat(pseudo, text string) []byte {
	buf := make([]byte, 1+len(pseudo)+len(text))
	buf[0] = uint8(len(pseudo))
	copy(buf[1:], pseudo)
	copy(buf[1+len(pseudo):], text)
	return buf
}

// DecodeChat parses a CHAT payload into sender pseudo and message text.
func DecodeChat(payload []byte) (pseudo, text string, err error) {
	if len(payload) < 1 {
		return "", "", c2werrors.NewFrameError("decode.chat", errTruncatedField)
	}
	pseudoLen := int(payload[0])
	if len(payload) < 1+pseudoLen {
		return "", "", c2werrors.NewFrameError("decode.chat", errTruncatedField)
	}
	pseudoBytes := payload[1 : 1+pseudoLen]
	textBytes := payload[1+pseudoLen:]
	if !utf8.Valid(pseudoBytes) || !utf8.Valid(textBytes) {
		return "", "", c2werrors.NewFrameError("decode.chat", errBadUTF8)
	}
	return string(pseudoBytes), string(textBytes), nil
}

// EncodeMovieList concatenates one record per movie.
func EncodeMovieList(movies []Movie) []byte {
	var buf []byte
	for _, m := range movies {
		recordLen := movieRecordFixedSize + len(m.Title)
		rec := make([]byte, recordLen)
		copy(rec[0:4], m.IP[:])
		binary.BigEndian.PutUint16(rec[4:6], m.Port)
		binary.BigEndian.PutUint16(rec[6:8], uint16(recordLen))
		rec[8] = m.ID
		copy(rec[9:], m.Title)
		buf = append(buf, rec...)
	}
	return buf
}

// DecodeMovieList parses a MOVIE_LIST payload into its constituent records.
func DecodeMovieList(payload []byte) ([]Movie, error) {
	var movies []Movie
	i := 0
	for i < len(payload) {
		if len(payload)-i < movieRecordFixedSize {
			return nil, c2werrors.NewFrameError("decode.movie_list", errTruncatedField)
		}
		rec := payload[i:]
		recordLen := int(binary.BigEndian.Uint16(rec[6:8]))
		if recordLen < movieRecordFixedSize || i+recordLen > len(payload) {
			return nil, c2werrors.NewFrameError("decode.movie_list", errBadRecordLen)
		}
		titleBytes := rec[9:recordLen]
		if !utf8.Valid(titleBytes) {
			return nil, c2werrors.NewFrameError("decode.movie_list", errBadUTF8)
		}
		var m Movie
		copy(m.IP[:], rec[0:4])
		m.Port = binary.BigEndian.Uint16(rec[4:6])
		m.ID = rec[8]
		m.Title = string(titleBytes)
		movies = append(movies, m)
		i += recordLen
	}
	return movies, nil
}

// EncodeUserList concatenates one record per user.
func EncodeUserList(users []UserRecord) []byte {
	var buf []byte
	for _, u := range users {
		rec := make([]byte, 2+len(u.Pseudo))
		rec[0] = uint8(len(u.Pseudo))
		rec[1] = u.Status
		copy(rec[2:], u.Pseudo)
		buf = append(buf, rec...)
	}
	return buf
}

// DecodeUserList parses a USER_LIST payload into its constituent records.
func DecodeUserList(payload []byte) ([]UserRecord, error) {
	var users []UserRecord
	i := 0
	for i < len(payload) {
		if len(payload)-i < 2 {
			return nil, c2werrors.NewFrameError("decode.user_list", errTruncatedField)
		}
		pseudoLen := int(payload[i])
		status := payload[i+1]
		end := i + 2 + pseudoLen
		if end > len(payload) {
			return nil, c2werrors.NewFrameError("decode.user_list", errTruncatedField)
		}
		pseudoBytes := payload[i+2 : end]
		if !utf8.Valid(pseudoBytes) {
			return nil, c2werrors.NewFrameError("decode.user_list", errBadUTF8)
		}
		users = append(users, UserRecord{Status: status, Pseudo: string(pseudoBytes)})
		i = end
	}
	return users, nil
}
