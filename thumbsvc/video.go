package thumbsvc

import (
	"bytes"
	"fmt"
	"image"
	"os/exec"
	"regexp"
	"time"
)

var durationRe = regexp.MustCompile(`Duration: (\d{2}):(\d{2}):(\d{2})\.(\d{2})`)

// videoFrame grabs the frame in the middle of the video with ffmpeg.
func (s *Service) videoFrame(path string) (image.Image, error) {
	duration, err := s.videoDuration(path)
	if err != nil {
		duration = 1 * time.Second
	}

	seekTime := duration / 2
	seekStr := fmt.Sprintf("%02d:%02d:%02d.%03d",
		int(seekTime.Hours()),
		int(seekTime.Minutes())%60,
		int(seekTime.Seconds())%60,
		seekTime.Milliseconds()%1000)

	// -ss before -i seeks on input: less accurate, much faster.
	cmd := exec.Command(s.ffmpegPath, "-ss", seekStr, "-i", path, "-vframes", "1", "-f", "image2", "-strict", "unofficial", "-")
	applyHiddenWindow(cmd)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame %s: %w", path, err)
	}

	img, _, err := image.Decode(&buf)
	return img, err
}

func (s *Service) videoDuration(path string) (time.Duration, error) {
	cmd := exec.Command(s.ffmpegPath, "-i", path)
	applyHiddenWindow(cmd)
	// ffmpeg prints stream info to stderr and exits non-zero without an output file.
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	_ = cmd.Run()

	matches := durationRe.FindStringSubmatch(stderr.String())
	if len(matches) < 5 {
		return 0, fmt.Errorf("could not find duration in output")
	}
	return parseDuration(matches[1], matches[2], matches[3], matches[4]), nil
}

func parseDuration(h, m, sec, cs string) time.Duration {
	var hours, minutes, seconds, centiseconds int
	fmt.Sscanf(h, "%d", &hours)
	fmt.Sscanf(m, "%d", &minutes)
	fmt.Sscanf(sec, "%d", &seconds)
	fmt.Sscanf(cs, "%d", &centiseconds)

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(centiseconds*10)*time.Millisecond
}
