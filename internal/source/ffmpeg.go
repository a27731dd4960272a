package source

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// buildFFmpegArgs assembles the capture command for a target. Network
// streams are re-encoded to an MJPEG pipe; local devices are read via v4l2.
func buildFFmpegArgs(target string, fps, width, height int) []string {
	if strings.HasPrefix(target, "rtsp://") {
		return []string{
			"-rtsp_transport", "tcp",
			"-i", target,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-r", fmt.Sprintf("%d", fps),
			"-q:v", "5",
			"-",
		}
	}
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return []string{
			"-i", target,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-r", fmt.Sprintf("%d", fps),
			"-q:v", "5",
			"-",
		}
	}
	// V4L2 device (USB camera)
	return []string{
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", target,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "5",
		"-",
	}
}

// startFFmpeg launches the capture process and returns it with its stdout
// pipe. stderr is drained silently so ffmpeg never blocks on a full pipe.
func startFFmpeg(args []string) (*exec.Cmd, io.ReadCloser, error) {
	cmd := exec.Command("ffmpeg", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
		}
	}()

	return cmd, stdout, nil
}

// extractJPEGFrame pulls one complete JPEG (FFD8..FFD9) out of the buffer,
// consuming the bytes it used. Returns nil until a full frame is available.
func extractJPEGFrame(buffer *[]byte) []byte {
	if len(*buffer) < 4 {
		return nil
	}

	startIdx := -1
	for i := 0; i < len(*buffer)-1; i++ {
		if (*buffer)[i] == 0xFF && (*buffer)[i+1] == 0xD8 {
			startIdx = i
			break
		}
	}
	if startIdx == -1 {
		return nil
	}

	endIdx := -1
	for i := startIdx + 2; i < len(*buffer)-1; i++ {
		if (*buffer)[i] == 0xFF && (*buffer)[i+1] == 0xD9 {
			endIdx = i + 2
			break
		}
	}
	if endIdx == -1 {
		return nil
	}

	frame := make([]byte, endIdx-startIdx)
	copy(frame, (*buffer)[startIdx:endIdx])
	*buffer = (*buffer)[endIdx:]

	return frame
}
