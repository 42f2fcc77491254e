package processors

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"videoRecipe/core"
)

// DefaultFrameInterval is the spacing between extracted frames in seconds.
const DefaultFrameInterval = 3.0

func frameInterval() float64 {
	if v := os.Getenv("FRAME_INTERVAL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return DefaultFrameInterval
}

// PreprocessVideo extracts the audio track and sampled frames into the job
// directory using ffmpeg.
func PreprocessVideo(videoPath, jobID string) (core.PreprocessResponse, error) {
	resp := core.PreprocessResponse{JobID: jobID}

	jobDir := filepath.Join(core.DataRoot(), jobID)
	framesDir := filepath.Join(jobDir, "frames")
	if err := os.MkdirAll(framesDir, 0755); err != nil {
		return resp, fmt.Errorf("create job dir: %v", err)
	}

	duration, err := probeDuration(videoPath)
	if err != nil {
		return resp, err
	}
	resp.Duration = duration

	audioPath := filepath.Join(jobDir, "audio.wav")
	cmd := exec.Command("ffmpeg", "-y", "-i", videoPath,
		"-vn", "-acodec", "pcm_s16le", "-ar", "16000", "-ac", "1", audioPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return resp, fmt.Errorf("audio extraction failed: %v: %s", err, lastLine(out))
	}
	resp.AudioPath = audioPath

	interval := frameInterval()
	framePattern := filepath.Join(framesDir, "frame_%05d.jpg")
	cmd = exec.Command("ffmpeg", "-y", "-i", videoPath,
		"-vf", fmt.Sprintf("fps=1/%g", interval), "-q:v", "2", framePattern)
	if out, err := cmd.CombinedOutput(); err != nil {
		return resp, fmt.Errorf("frame extraction failed: %v: %s", err, lastLine(out))
	}

	entries, err := os.ReadDir(framesDir)
	if err != nil {
		return resp, fmt.Errorf("list frames: %v", err)
	}
	for i, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jpg") {
			continue
		}
		resp.Frames = append(resp.Frames, core.Frame{
			FrameNumber:  i + 1,
			TimestampSec: float64(i) * interval,
			Path:         filepath.Join(framesDir, entry.Name()),
		})
	}

	if err := core.SaveJSON(filepath.Join(jobDir, "frames.json"), resp); err != nil {
		return resp, fmt.Errorf("save frame manifest: %v", err)
	}
	log.Printf("[preprocess] job %s: %.1fs video, %d frames", jobID, duration, len(resp.Frames))
	return resp, nil
}

func probeDuration(videoPath string) (float64, error) {
	cmd := exec.Command("ffprobe", "-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1", videoPath)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %v", err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %v", err)
	}
	return duration, nil
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return lines[len(lines)-1]
}

// LoadPreprocess reads a saved frame manifest back for a job.
func LoadPreprocess(jobID string) (core.PreprocessResponse, error) {
	var resp core.PreprocessResponse
	data, err := os.ReadFile(filepath.Join(core.DataRoot(), jobID, "frames.json"))
	if err != nil {
		return resp, fmt.Errorf("load frame manifest: %v", err)
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return resp, fmt.Errorf("parse frame manifest: %v", err)
	}
	return resp, nil
}

// PreprocessHandler extracts audio and frames for a video ahead of analysis.
func PreprocessHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		VideoPath string `json:"video_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}
	if req.VideoPath == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "video_path is required"})
		return
	}
	if _, err := os.Stat(req.VideoPath); os.IsNotExist(err) {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Video file not found: %s", req.VideoPath)})
		return
	}

	resp, err := PreprocessVideo(req.VideoPath, core.NewID())
	if err != nil {
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	core.WriteJSON(w, http.StatusOK, resp)
}
