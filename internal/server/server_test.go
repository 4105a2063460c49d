package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"net"
	"net/http"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/phayes/freeport"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/ocr-api/internal/ocr"
	mock_ocr "github.com/ironsheep/ocr-api/internal/ocr/mocks"
)

// createTextImage renders text with basicfont and scales it up by pixel
// replication.
func createTextImage(text string, scale int) *image.RGBA {
	w, h := len(text)*7+40, 40
	small := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(small, small.Bounds(), image.White, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(20), Y: fixed.I(25)},
	}
	d.DrawString(text)

	img := image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
	for y := 0; y < h*scale; y++ {
		for x := 0; x < w*scale; x++ {
			img.Set(x, y, small.At(x/scale, y/scale))
		}
	}
	return img
}

func waitForServer(t *testing.T, network, addr string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout(network, addr, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("server on %s %s did not come up", network, addr)
}

// serve runs srv in the background and returns a stop function that cancels
// it and reports the Serve result.
func serve(t *testing.T, srv *Server) (stop func() error) {
	t.Helper()
	ln, err := srv.Listen()
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, ln)
	}()

	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(ShutdownTimeout):
			return fmt.Errorf("serve did not return within %s", ShutdownTimeout)
		}
	}
}

func TestServer_TCP(t *testing.T) {
	port, err := freeport.GetFreePort()
	if err != nil {
		t.Fatalf("failed to get a free port: %v", err)
	}

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	command := mock_ocr.NewMockRecognizer(ctrl)
	library := mock_ocr.NewMockRecognizer(ctrl)
	command.EXPECT().Recognize(gomock.Any(), gomock.Any(), "").Return("hello", nil)

	cfg := testConfig()
	cfg.Port = port
	stop := serve(t, New(cfg, command, library))

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	waitForServer(t, "tcp", addr)

	body := requestBody(map[string]any{"image": encodeBase64PNG(t, createBlockImage(8, 8))})
	resp, err := http.Post("http://"+addr+"/imagetostring", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	var env Response
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if env.Status != StatusSuccess || env.Message != "All OK" {
		t.Errorf("unexpected envelope: %+v", env)
	}

	if err := stop(); err != nil {
		t.Errorf("Serve returned %v after shutdown", err)
	}
}

func TestServer_UnixSocket(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testConfig()
	cfg.SocketPath = filepath.Join(t.TempDir(), "ocr.sock")
	stop := serve(t, New(cfg, mock_ocr.NewMockRecognizer(ctrl), mock_ocr.NewMockRecognizer(ctrl)))
	waitForServer(t, "unix", cfg.SocketPath)

	client := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", cfg.SocketPath)
			},
		},
	}
	resp, err := client.Get("http://unix/missing")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
	if err := stop(); err != nil {
		t.Errorf("Serve returned %v after shutdown", err)
	}
}

func TestServer_ReplacesStaleSocket(t *testing.T) {
	cfg := testConfig()
	cfg.SocketPath = filepath.Join(t.TempDir(), "ocr.sock")

	stale, err := net.Listen("unix", cfg.SocketPath)
	if err != nil {
		t.Fatalf("failed to create socket: %v", err)
	}
	// Leave the file behind the way a crashed process would.
	stale.(*net.UnixListener).SetUnlinkOnClose(false)
	stale.Close()

	ln, err := New(cfg, nil, nil).Listen()
	if err != nil {
		t.Fatalf("Listen failed on stale socket: %v", err)
	}
	ln.Close()
}

func TestServer_PortInUse(t *testing.T) {
	taken, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer taken.Close()

	cfg := testConfig()
	cfg.Port = taken.Addr().(*net.TCPAddr).Port
	if _, err := New(cfg, nil, nil).Listen(); err == nil {
		t.Error("expected an error listening on a port in use")
	}
}

// TestServer_EndToEnd drives the real tesseract binary through the HTTP
// API. Skipped when tesseract is not installed.
func TestServer_EndToEnd(t *testing.T) {
	path, err := exec.LookPath("tesseract")
	if err != nil {
		t.Skip("tesseract not available")
	}

	cfg := testConfig()
	cfg.TempDir = t.TempDir()
	cfg.MaxPixels = 10_000_000
	command := ocr.NewCommand(path, cfg.TempDir, "", cfg.OCRTimeout)
	library := ocr.NewLibrary("", cfg.OCRTimeout)
	srv := New(cfg, command, library)

	img := createTextImage("TEST", 4)
	rec := post(srv.Handler(), requestBody(map[string]any{
		"image":  encodeBase64PNG(t, img),
		"config": "--psm 7",
	}))
	if rec.Code == http.StatusInternalServerError {
		t.Skip("tesseract failed, language data may be missing")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}

	var data OutputData
	if err := json.Unmarshal(decodeEnvelope(rec).Data, &data); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if !strings.Contains(strings.ToUpper(data.Output), "TEST") {
		t.Errorf("output %q does not contain TEST", data.Output)
	}
}
