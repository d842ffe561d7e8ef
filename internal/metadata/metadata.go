package metadata

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/gabriel-vasile/mimetype"
	"github.com/tcolgate/mp3"
)

// AudioInfo is what can be learned about an episode's audio file on disk.
type AudioInfo struct {
	SizeBytes int64
	MIMEType  string
	Title     string
	Artist    string
	Album     string
	// Duration is zero when the file is not MP3 or could not be decoded.
	Duration time.Duration
}

// IsMPEGAudio reports whether the file matches the enclosure type the feed
// declares for every episode.
func (a AudioInfo) IsMPEGAudio() bool {
	return a.MIMEType == "audio/mpeg"
}

// Probe inspects the audio file at path.
func Probe(path string) (AudioInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return AudioInfo{}, err
	}
	if info.IsDir() {
		return AudioInfo{}, fmt.Errorf("%s is a directory", path)
	}

	result := AudioInfo{SizeBytes: info.Size()}

	mimetype.SetLimit(1024 * 1024)
	if mt, err := mimetype.DetectFile(path); err == nil {
		result.MIMEType = mt.String()
		if idx := strings.IndexByte(result.MIMEType, ';'); idx >= 0 {
			result.MIMEType = strings.TrimSpace(result.MIMEType[:idx])
		}
	}

	result.Title, result.Artist, result.Album = readTags(path)

	if result.IsMPEGAudio() || strings.EqualFold(filepath.Ext(path), ".mp3") {
		if seconds, err := computeMP3Duration(path); err == nil && seconds > 0 {
			result.Duration = time.Duration(seconds * float64(time.Second)).Round(time.Second)
		}
	}

	return result, nil
}

// FormatDuration renders d the way the catalog writes durations: MM:SS, or
// H:MM:SS from one hour up.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	total := int64(d.Round(time.Second) / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

func readTags(path string) (string, string, string) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", ""
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return "", "", ""
	}

	return strings.TrimSpace(meta.Title()), strings.TrimSpace(meta.Artist()), strings.TrimSpace(meta.Album())
}

func computeMP3Duration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoder := mp3.NewDecoder(f)
	var frame mp3.Frame
	var skipped int
	var total float64

	for {
		err := decoder.Decode(&frame, &skipped)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
		total += frame.Duration().Seconds()
	}

	return total, nil
}
