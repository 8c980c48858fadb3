package discord

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	payload := []byte(`{"cmd":"SET_ACTIVITY"}`)
	go func() {
		_ = writeFrame(client, opFrame, payload)
	}()

	op, data, err := readFrame(server)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if op != opFrame {
		t.Errorf("opcode = %d, want %d", op, opFrame)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("payload = %q, want %q", data, payload)
	}
}

func TestReadFrameLargePayload(t *testing.T) {
	var buf bytes.Buffer
	payload := bytes.Repeat([]byte("x"), 64*1024)
	if err := writeFrame(&buf, opFrame, payload); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	_, data, err := readFrame(&buf)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if len(data) != len(payload) {
		t.Errorf("got %d bytes, want %d", len(data), len(payload))
	}
}

func TestReadFrameRejectsOversizedFrame(t *testing.T) {
	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:4], opFrame)
	binary.LittleEndian.PutUint32(header[4:8], maxFrameSize+1)

	if _, _, err := readFrame(bytes.NewReader(header)); err == nil {
		t.Fatal("expected an error for an oversized frame")
	}
}

// fakeDiscord answers one handshake, then replies to each frame with reply.
func fakeDiscord(t *testing.T, conn net.Conn, handshakeOp uint32, handshakeReply string, reply string) <-chan []byte {
	t.Helper()
	frames := make(chan []byte, 4)
	go func() {
		defer close(frames)
		op, data, err := readFrame(conn)
		if err != nil || op != opHandshake {
			return
		}
		frames <- data
		if err := writeFrame(conn, handshakeOp, []byte(handshakeReply)); err != nil {
			return
		}
		for {
			op, data, err := readFrame(conn)
			if err != nil || op == opClose {
				return
			}
			frames <- data
			if err := writeFrame(conn, opFrame, []byte(reply)); err != nil {
				return
			}
		}
	}()
	return frames
}

func TestHandshake(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	frames := fakeDiscord(t, server, opFrame, `{"cmd":"DISPATCH","evt":"READY"}`, `{"cmd":"SET_ACTIVITY","evt":null}`)

	c, err := handshake(client, "1234")
	if err != nil {
		t.Fatalf("handshake: %v", err)
	}
	defer c.Close()

	var hello struct {
		V        int    `json:"v"`
		ClientID string `json:"client_id"`
	}
	if err := json.Unmarshal(<-frames, &hello); err != nil {
		t.Fatalf("decode handshake: %v", err)
	}
	if hello.V != 1 || hello.ClientID != "1234" {
		t.Errorf("unexpected handshake %+v", hello)
	}

	if err := c.SetActivity(&Activity{Type: activityListening, Details: "Song"}); err != nil {
		t.Fatalf("SetActivity: %v", err)
	}
	var cmd struct {
		Cmd   string `json:"cmd"`
		Nonce string `json:"nonce"`
		Args  struct {
			Activity *Activity `json:"activity"`
		} `json:"args"`
	}
	if err := json.Unmarshal(<-frames, &cmd); err != nil {
		t.Fatalf("decode command: %v", err)
	}
	if cmd.Cmd != "SET_ACTIVITY" || cmd.Nonce == "" {
		t.Errorf("unexpected command %+v", cmd)
	}
	if cmd.Args.Activity == nil || cmd.Args.Activity.Details != "Song" {
		t.Errorf("unexpected activity %+v", cmd.Args.Activity)
	}
}

func TestHandshakeRejected(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	fakeDiscord(t, server, opClose, `{"code":4000,"message":"Invalid Client ID"}`, "")

	_, err := handshake(client, "bogus")

	var ipcErr *ipcError
	if !errors.As(err, &ipcErr) {
		t.Fatalf("expected *ipcError, got %v", err)
	}
	if ipcErr.Code != 4000 {
		t.Errorf("code = %d, want 4000", ipcErr.Code)
	}
}

func TestSetActivityErrorEvent(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	fakeDiscord(t, server, opFrame, `{"evt":"READY"}`,
		`{"cmd":"SET_ACTIVITY","evt":"ERROR","data":{"code":4002,"message":"child \"activity\" fails"}}`)

	c, err := handshake(client, "1234")
	if err != nil {
		t.Fatalf("handshake: %v", err)
	}
	defer c.Close()

	err = c.SetActivity(&Activity{Details: "Song"})
	var ipcErr *ipcError
	if !errors.As(err, &ipcErr) || ipcErr.Code != 4002 {
		t.Fatalf("expected discord error 4002, got %v", err)
	}
}

func TestSocketDirs(t *testing.T) {
	runtime := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", runtime)

	dirs := socketDirs()
	if len(dirs) == 0 || dirs[0] != runtime {
		t.Fatalf("expected %s first, got %v", runtime, dirs)
	}

	seen := make(map[string]bool)
	var flatpak bool
	for _, dir := range dirs {
		if seen[dir] {
			t.Errorf("duplicate directory %s", dir)
		}
		seen[dir] = true
		if dir == filepath.Join(runtime, "app", "com.discordapp.Discord") {
			flatpak = true
		}
	}
	if !flatpak {
		t.Errorf("expected flatpak directory in %v", dirs)
	}
}

func TestIPCConnectWithoutDiscord(t *testing.T) {
	orig := dial
	t.Cleanup(func() { dial = orig })
	dial = func() (net.Conn, error) {
		return nil, errors.New("no discord socket found")
	}

	_, err := ipcConnect("1234")
	if err == nil || !strings.Contains(err.Error(), "no discord socket") {
		t.Fatalf("expected dial error, got %v", err)
	}
}
