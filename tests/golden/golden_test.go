// Package golden decodes the checked-in wire-frame vector files (produced
// by gen_wire_vectors.go) and asserts they match internal/wire's own
// decode/encode output, catching any accidental wire-format drift.
package golden

import (
	"bytes"
	"os"
	"testing"

	"github.com/alxayo/c2w/internal/wire"
)

func loadVector(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("read golden vector %s: %v", name, err)
	}
	return b
}

func TestConnectVector(t *testing.T) {
	raw := loadVector(t, "connect_bob.bin")
	f, err := wire.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Sequence != 0 || f.Type != wire.CONNECT {
		t.Fatalf("unexpected frame: %+v", f)
	}
	name, err := wire.DecodeText(f.Payload)
	if err != nil || name != "bob" {
		t.Fatalf("DecodeText: %q, %v", name, err)
	}
	if !bytes.Equal(raw, wire.Encode(0, wire.CONNECT, wire.EncodeText("bob"))) {
		t.Fatal("re-encoding the decoded frame does not reproduce the golden vector")
	}
}

func TestChatVector(t *testing.T) {
	raw := loadVector(t, "chat_al_hi.bin")
	f, err := wire.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Sequence != 5 || f.Type != wire.CHAT {
		t.Fatalf("unexpected frame: %+v", f)
	}
	pseudo, text, err := wire.DecodeChat(f.Payload)
	if err != nil || pseudo != "al" || text != "hi" {
		t.Fatalf("DecodeChat: %q %q, %v", pseudo, text, err)
	}
}

func TestUserListVector(t *testing.T) {
	raw := loadVector(t, "user_list_two.bin")
	f, err := wire.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Sequence != 10 || f.Type != wire.USER_LIST {
		t.Fatalf("unexpected frame: %+v", f)
	}
	users, err := wire.DecodeUserList(f.Payload)
	if err != nil {
		t.Fatalf("DecodeUserList: %v", err)
	}
	want := []wire.UserRecord{{Status: 0, Pseudo: "al"}, {Status: 3, Pseudo: "bo"}}
	if len(users) != len(want) || users[0] != want[0] || users[1] != want[1] {
		t.Fatalf("got %+v, want %+v", users, want)
	}
}

func TestMovieListVector(t *testing.T) {
	raw := loadVector(t, "movie_list_one.bin")
	f, err := wire.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Sequence != 0 || f.Type != wire.MOVIE_LIST {
		t.Fatalf("unexpected frame: %+v", f)
	}
	movies, err := wire.DecodeMovieList(f.Payload)
	if err != nil {
		t.Fatalf("DecodeMovieList: %v", err)
	}
	if len(movies) != 1 {
		t.Fatalf("expected 1 movie, got %d", len(movies))
	}
	m := movies[0]
	if m.IP != [4]byte{127, 0, 0, 1} || m.Port != 8080 || m.ID != 1 || m.Title != "Up" {
		t.Fatalf("unexpected movie: %+v", m)
	}
}

func TestAckMaxSequenceVector(t *testing.T) {
	raw := loadVector(t, "ack_maxseq.bin")
	f, err := wire.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Sequence != wire.MaxSequence || f.Type != wire.ACK || len(f.Payload) != 0 {
		t.Fatalf("unexpected frame: %+v", f)
	}
}
