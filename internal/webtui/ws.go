package webtui

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/gorilla/websocket"
)

// resizeMsg is the only control frame the browser sends.
type resizeMsg struct {
	Type string `json:"type"`
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 32 * 1024,
	CheckOrigin:     sameOrigin,
}

func sameOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	return strings.HasSuffix(origin, "://"+strings.TrimSpace(r.Host))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ptmx, cmd, err := s.startSession()
	if err != nil {
		s.log.Error("start tui session", "err", err)
		_ = conn.WriteMessage(websocket.TextMessage, []byte("failed to start session: "+err.Error()))
		return
	}
	s.log.Info("tui session started", "pid", cmd.Process.Pid, "remote", r.RemoteAddr)
	defer func() {
		_ = ptmx.Close()
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
		s.log.Info("tui session ended", "pid", cmd.Process.Pid)
	}()

	var wg sync.WaitGroup
	done := make(chan struct{}, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = copyPTYToWS(ctx, ptmx, conn)
		done <- struct{}{}
	}()
	go func() {
		defer wg.Done()
		_ = copyWSToPTY(ctx, conn, ptmx)
		done <- struct{}{}
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
	cancel()
	_ = cmd.Process.Kill()
	_ = conn.Close()
	wg.Wait()
}

func (s *Server) startSession() (*os.File, *exec.Cmd, error) {
	cmd := exec.Command(s.cfg.Exe, s.sessionArgs()...)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color", "COLORTERM=truecolor")
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: 120, Rows: 40})
	if err != nil {
		return nil, nil, err
	}
	return ptmx, cmd, nil
}

func copyPTYToWS(ctx context.Context, ptmx io.Reader, conn *websocket.Conn) error {
	buf := make([]byte, 32*1024)
	for ctx.Err() == nil {
		n, err := ptmx.Read(buf)
		if n > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if werr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return ctx.Err()
}

func copyWSToPTY(ctx context.Context, conn *websocket.Conn, ptmx *os.File) error {
	for ctx.Err() == nil {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if len(data) == 0 {
			continue
		}
		if m, ok := parseResize(mt, data); ok {
			_ = pty.Setsize(ptmx, &pty.Winsize{Cols: uint16(m.Cols), Rows: uint16(m.Rows)})
			continue
		}
		if _, err := ptmx.Write(data); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// parseResize recognises a JSON resize frame. Anything else is keystrokes.
func parseResize(mt int, data []byte) (resizeMsg, bool) {
	if mt != websocket.TextMessage || len(data) == 0 || data[0] != '{' {
		return resizeMsg{}, false
	}
	var m resizeMsg
	if err := json.Unmarshal(data, &m); err != nil {
		return resizeMsg{}, false
	}
	if !strings.EqualFold(strings.TrimSpace(m.Type), "resize") || m.Cols <= 0 || m.Rows <= 0 {
		return resizeMsg{}, false
	}
	return m, true
}
