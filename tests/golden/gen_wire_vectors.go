//go:build ignore

// Generates deterministic c2w wire-frame golden vector binary files.
// Run: go run ./tests/golden/gen_wire_vectors.go
//
// Files (each one complete frame: header + payload, see internal/wire):
//   - connect_bob.bin     CONNECT, seq=0,    payload="bob"
//   - chat_al_hi.bin      CHAT,    seq=5,    pseudo="al", text="hi"
//   - user_list_two.bin   USER_LIST, seq=10, records [{0,"al"},{3,"bo"}]
//   - movie_list_one.bin  MOVIE_LIST, seq=0, one record (127.0.0.1:8080, id=1, "Up")
//   - ack_maxseq.bin      ACK, seq=4095 (0x0FFF, the largest 12-bit sequence)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alxayo/c2w/internal/wire"
)

func write(dir, name string, b []byte) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
		os.Exit(1)
	}
	fmt.Println("wrote", path)
}

func main() {
	dir := "tests/golden"

	write(dir, "connect_bob.bin", wire.Encode(0, wire.CONNECT, wire.EncodeText("bob")))
	write(dir, "chat_al_hi.bin", wire.Encode(5, wire.CHAT, wire.EncodeChat("al", "hi")))
	write(dir, "user_list_two.bin", wire.Encode(10, wire.USER_LIST, wire.EncodeUserList([]wire.UserRecord{
		{Status: 0, Pseudo: "al"},
		{Status: 3, Pseudo: "bo"},
	})))
	write(dir, "movie_list_one.bin", wire.Encode(0, wire.MOVIE_LIST, wire.EncodeMovieList([]wire.Movie{
		{IP: [4]byte{127, 0, 0, 1}, Port: 8080, ID: 1, Title: "Up"},
	})))
	write(dir, "ack_maxseq.bin", wire.Encode(wire.MaxSequence, wire.ACK, nil))
}
