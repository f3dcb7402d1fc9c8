package session

import (
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"Nocturne/queue"

	"layeh.com/gopus"
)

const (
	sampleRate       = 48000
	channels         = 2
	frameSize        = 960
	maxOpusFrameSize = 4000
)

// FFmpegPlayer streams a cached audio file to a Discord voice connection
// through an ffmpeg PCM pipe and a gopus encoder. One stream at a time.
type FFmpegPlayer struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	stop    chan struct{}
	stopped bool
}

// NewFFmpegPlayer returns an idle player
func NewFFmpegPlayer() *FFmpegPlayer {
	return &FFmpegPlayer{}
}

// Play streams the file until it ends, errors, or Stop is called. A stop
// returns nil, same as a natural finish; the session layer tells the two
// apart with its skip flag.
func (p *FFmpegPlayer) Play(vc VoiceConn, filename string, song *queue.Song, volume int) error {
	dv, ok := vc.(*DiscordVoice)
	if !ok {
		return errNotDiscordVoice
	}
	conn := dv.vc

	if !conn.Ready {
		for i := 0; i < 20; i++ {
			time.Sleep(250 * time.Millisecond)
			if conn.Ready {
				break
			}
		}
		if !conn.Ready {
			return fmt.Errorf("voice connection never became ready")
		}
	}

	conn.Speaking(true)
	defer conn.Speaking(false)

	args := []string{}
	if song.StartOffsetSeconds > 0 {
		args = append(args, "-ss", fmt.Sprintf("%d", song.StartOffsetSeconds))
	}
	args = append(args,
		"-i", filename,
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", fmt.Sprintf("%d", channels),
		"-filter:a", fmt.Sprintf("volume=%.2f", float64(volume)/100),
		"pipe:1",
	)
	cmd := exec.Command("ffmpeg", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	encoder, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		cmd.Process.Kill()
		return err
	}

	stop := make(chan struct{})

	p.mu.Lock()
	p.cmd = cmd
	p.stop = stop
	p.stopped = false
	p.mu.Unlock()

	defer p.reset()

	pcmBuffer := make([]byte, frameSize*channels*2)
	pcmCache := []int16{}

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		n, err := stdout.Read(pcmBuffer)
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}

		for i := 0; i+1 < n; i += 2 {
			pcmCache = append(pcmCache, int16(pcmBuffer[i])|int16(pcmBuffer[i+1])<<8)
		}

		for len(pcmCache) >= frameSize*channels {
			frame := pcmCache[:frameSize*channels]
			pcmCache = pcmCache[frameSize*channels:]

			opusFrame, err := encoder.Encode(frame, frameSize, maxOpusFrameSize)
			if err != nil {
				return err
			}
			if len(opusFrame) == 0 {
				continue
			}

			select {
			case conn.OpusSend <- opusFrame:
			case <-time.After(100 * time.Millisecond):
				return fmt.Errorf("timeout sending opus frame")
			case <-stop:
				return nil
			}
		}
	}

	return cmd.Wait()
}

// Stop forcibly ends the active stream, if any. Safe to call repeatedly.
func (p *FFmpegPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped || p.stop == nil {
		return
	}
	p.stopped = true
	close(p.stop)

	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
		p.cmd.Wait()
	}
}

func (p *FFmpegPlayer) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.stopped && p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
		p.cmd.Wait()
	}
	p.cmd = nil
	p.stop = nil
	p.stopped = true
}
