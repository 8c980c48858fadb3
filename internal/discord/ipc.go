package discord

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Discord IPC opcodes.
const (
	opHandshake uint32 = 0
	opFrame     uint32 = 1
	opClose     uint32 = 2
)

const (
	headerSize   = 8
	maxFrameSize = 1 << 20
	dialTimeout  = time.Second
)

// Activity is the Rich Presence payload sent with SET_ACTIVITY.
type Activity struct {
	Type       int         `json:"type,omitempty"`
	Name       string      `json:"name,omitempty"`
	Details    string      `json:"details,omitempty"`
	State      string      `json:"state,omitempty"`
	Timestamps *Timestamps `json:"timestamps,omitempty"`
	Assets     *Assets     `json:"assets,omitempty"`
	Instance   bool        `json:"instance"`
}

// Timestamps are unix milliseconds.
type Timestamps struct {
	Start *int64 `json:"start,omitempty"`
	End   *int64 `json:"end,omitempty"`
}

type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// ipcError is an error event or close frame sent by the Discord client.
type ipcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ipcError) Error() string {
	return fmt.Sprintf("discord error %d: %s", e.Code, e.Message)
}

type ipcClient struct {
	conn io.ReadWriteCloser
}

// dial opens the first Discord IPC socket that accepts a connection.
var dial = dialSocket

func ipcConnect(appID string) (rpcClient, error) {
	conn, err := dial()
	if err != nil {
		return nil, err
	}
	c, err := handshake(conn, appID)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

func handshake(conn io.ReadWriteCloser, appID string) (*ipcClient, error) {
	payload, err := json.Marshal(map[string]any{
		"v":         1,
		"client_id": appID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode handshake: %w", err)
	}
	if err := writeFrame(conn, opHandshake, payload); err != nil {
		return nil, fmt.Errorf("failed to send handshake: %w", err)
	}

	op, data, err := readFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to read handshake reply: %w", err)
	}
	if op == opClose {
		return nil, decodeClose(data)
	}

	var ready struct {
		Evt string `json:"evt"`
	}
	if err := json.Unmarshal(data, &ready); err != nil {
		return nil, fmt.Errorf("failed to decode handshake reply: %w", err)
	}
	if ready.Evt != "READY" {
		return nil, fmt.Errorf("unexpected handshake reply %q", ready.Evt)
	}
	return &ipcClient{conn: conn}, nil
}

func dialSocket() (net.Conn, error) {
	var lastErr error
	for _, dir := range socketDirs() {
		for i := 0; i <= 9; i++ {
			path := filepath.Join(dir, fmt.Sprintf("discord-ipc-%d", i))
			conn, err := net.DialTimeout("unix", path, dialTimeout)
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
	}
	return nil, fmt.Errorf("no discord socket found: %w", lastErr)
}

// socketDirs lists the directories Discord may place its socket in,
// including the Flatpak and Snap sandboxes.
func socketDirs() []string {
	var bases []string
	for _, env := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if dir := os.Getenv(env); dir != "" {
			bases = append(bases, dir)
		}
	}
	bases = append(bases, os.TempDir(), "/tmp")

	seen := make(map[string]bool)
	var dirs []string
	for _, base := range bases {
		for _, dir := range []string{
			base,
			filepath.Join(base, "app", "com.discordapp.Discord"),
			filepath.Join(base, "snap.discord"),
		} {
			if !seen[dir] {
				seen[dir] = true
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}

func (c *ipcClient) SetActivity(a *Activity) error {
	payload, err := json.Marshal(map[string]any{
		"cmd": "SET_ACTIVITY",
		"args": map[string]any{
			"pid":      os.Getpid(),
			"activity": a,
		},
		"nonce": uuid.NewString(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode activity: %w", err)
	}
	if err := writeFrame(c.conn, opFrame, payload); err != nil {
		return fmt.Errorf("failed to send activity: %w", err)
	}

	op, data, err := readFrame(c.conn)
	if err != nil {
		return fmt.Errorf("failed to read activity reply: %w", err)
	}
	if op == opClose {
		return decodeClose(data)
	}

	var resp struct {
		Evt  string   `json:"evt"`
		Data ipcError `json:"data"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("failed to decode activity reply: %w", err)
	}
	if resp.Evt == "ERROR" {
		return &resp.Data
	}
	return nil
}

func (c *ipcClient) Close() error {
	werr := writeFrame(c.conn, opClose, []byte("{}"))
	return errors.Join(werr, c.conn.Close())
}

func decodeClose(data []byte) error {
	var e ipcError
	if err := json.Unmarshal(data, &e); err != nil {
		return fmt.Errorf("discord closed the connection: %w", err)
	}
	return &e
}

// writeFrame sends one frame: [opcode LE u32][length LE u32][payload].
func writeFrame(w io.Writer, opcode uint32, payload []byte) error {
	frame := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint32(frame[0:4], opcode)
	binary.LittleEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[headerSize:], payload)
	_, err := w.Write(frame)
	return err
}

// readFrame reads one frame, sized by its header.
func readFrame(r io.Reader) (uint32, []byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}
	opcode := binary.LittleEndian.Uint32(header[0:4])
	length := binary.LittleEndian.Uint32(header[4:8])
	if length > maxFrameSize {
		return 0, nil, fmt.Errorf("frame of %d bytes exceeds limit", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	return opcode, payload, nil
}
