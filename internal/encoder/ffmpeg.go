package encoder

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/bryanchriswhite/screenreel/internal/config"
	"github.com/bryanchriswhite/screenreel/internal/logger"
)

// ffmpegEncoder pipes raw RGBA frames to an ffmpeg subprocess that encodes
// H.264 into an MP4 container.
type ffmpegEncoder struct {
	cfg   config.Recording
	cmd   *exec.Cmd
	stdin io.WriteCloser

	stderrMu sync.Mutex
	stderr   bytes.Buffer

	done    chan struct{}
	waitErr error
}

func openFFmpeg(cfg config.Recording) (Encoder, error) {
	args := ffmpegArgs(cfg)

	log := logger.WithComponent("ffmpeg")
	log.Debug().Strs("args", args).Msg("Starting ffmpeg")

	e := &ffmpegEncoder{
		cfg:  cfg,
		done: make(chan struct{}),
	}

	e.cmd = exec.Command("ffmpeg", args...)
	e.cmd.Stderr = &lockedWriter{mu: &e.stderrMu, buf: &e.stderr}

	stdin, err := e.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdin pipe: %w", err)
	}
	e.stdin = stdin

	if err := e.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	// Reap the process in the background so Submit can tell "encoder died"
	// apart from an ordinary pipe error.
	go func() {
		e.waitErr = e.cmd.Wait()
		close(e.done)
	}()

	log.Info().
		Str("path", cfg.OutputPath).
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Int("frame_rate", cfg.FrameRate).
		Int("bitrate", cfg.Bitrate).
		Msg("ffmpeg encoder opened")

	return e, nil
}

// ffmpegArgs builds the command line for one recording: raw RGBA on stdin,
// H.264 in MP4 on disk.
func ffmpegArgs(cfg config.Recording) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-framerate", strconv.Itoa(cfg.FrameRate),
		"-i", "pipe:0",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-b:v", strconv.Itoa(cfg.Bitrate),
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		cfg.OutputPath,
	}
}

func (e *ffmpegEncoder) Submit(frame *image.RGBA) error {
	select {
	case <-e.done:
		return &SubmitError{Err: fmt.Errorf("ffmpeg exited early: %w%s", e.waitErr, e.stderrTail())}
	default:
	}

	bounds := frame.Bounds()
	if bounds.Dx() != e.cfg.Width || bounds.Dy() != e.cfg.Height {
		return &SubmitError{Err: fmt.Errorf("frame is %dx%d, encoder expects %dx%d",
			bounds.Dx(), bounds.Dy(), e.cfg.Width, e.cfg.Height)}
	}

	rowBytes := e.cfg.Width * 4
	if frame.Stride == rowBytes {
		if _, err := e.stdin.Write(frame.Pix[:rowBytes*e.cfg.Height]); err != nil {
			return &SubmitError{Err: fmt.Errorf("writing frame to ffmpeg: %w%s", err, e.stderrTail())}
		}
		return nil
	}

	// Padded stride: write row by row.
	for y := 0; y < e.cfg.Height; y++ {
		row := frame.Pix[y*frame.Stride : y*frame.Stride+rowBytes]
		if _, err := e.stdin.Write(row); err != nil {
			return &SubmitError{Err: fmt.Errorf("writing frame to ffmpeg: %w%s", err, e.stderrTail())}
		}
	}
	return nil
}

func (e *ffmpegEncoder) Finalize() error {
	if err := e.stdin.Close(); err != nil {
		logger.WithComponent("ffmpeg").Warn().Err(err).Msg("Closing ffmpeg stdin failed")
	}

	<-e.done
	if e.waitErr != nil {
		return fmt.Errorf("ffmpeg failed to finalize container: %w%s", e.waitErr, e.stderrTail())
	}

	logger.WithComponent("ffmpeg").Info().
		Str("path", e.cfg.OutputPath).
		Msg("Container finalized")
	return nil
}

// stderrTail returns the last ffmpeg diagnostics for error context.
func (e *ffmpegEncoder) stderrTail() string {
	e.stderrMu.Lock()
	defer e.stderrMu.Unlock()

	s := strings.TrimSpace(e.stderr.String())
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	return " (ffmpeg: " + strings.Join(lines, "; ") + ")"
}

// lockedWriter guards the stderr buffer, which the subprocess writes from its
// own goroutine while Submit/Finalize read it for error context.
type lockedWriter struct {
	mu  *sync.Mutex
	buf *bytes.Buffer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}
