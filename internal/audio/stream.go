package audio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/chenyang-zz/windj/pkg/logger"
	"github.com/gopxl/beep/v2"
	"go.uber.org/zap"
)

// bytesPerFrame s16le 双声道
const bytesPerFrame = 4

func pcmFormat(rate beep.SampleRate) beep.Format {
	return beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}
}

// pcmStream 从 PCM 字节流读取采样的 beep.Streamer
type pcmStream struct {
	r       io.Reader
	closeFn func() error

	buf []byte
	pos int
	err error
}

// openFFmpeg 启动 ffmpeg 把远程流转码为 s16le 双声道 PCM
func openFFmpeg(bin, url string, rate beep.SampleRate) (*pcmStream, error) {
	cmd := exec.Command(bin,
		"-loglevel", "error",
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", url,
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", "2",
		"-ar", strconv.Itoa(int(rate)),
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", bin, err)
	}

	logger.Debug("ffmpeg started", zap.String("component", "audio"), zap.Int("pid", cmd.Process.Pid))
	return &pcmStream{
		r: bufio.NewReaderSize(stdout, 64*1024),
		closeFn: func() error {
			_ = cmd.Process.Kill()
			err := cmd.Wait()
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				// 被 Kill 时的退出状态
				return nil
			}
			return err
		},
	}, nil
}

// Stream 读取最多 len(samples) 帧
func (s *pcmStream) Stream(samples [][2]float64) (int, bool) {
	if s.err != nil {
		return 0, false
	}

	need := len(samples) * bytesPerFrame
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]

	n, err := io.ReadFull(s.r, buf)
	frames := n / bytesPerFrame
	for i := 0; i < frames; i++ {
		off := i * bytesPerFrame
		left := int16(binary.LittleEndian.Uint16(buf[off:]))
		right := int16(binary.LittleEndian.Uint16(buf[off+2:]))
		samples[i][0] = float64(left) / 32768
		samples[i][1] = float64(right) / 32768
	}
	s.pos += frames

	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		s.err = err
	}
	if frames == 0 {
		return 0, false
	}
	return frames, true
}

func (s *pcmStream) Err() error { return s.err }

// Len 流式来源长度未知
func (s *pcmStream) Len() int { return 0 }

func (s *pcmStream) Position() int { return s.pos }

func (s *pcmStream) Close() error {
	if s.closeFn == nil {
		return nil
	}
	fn := s.closeFn
	s.closeFn = nil
	return fn()
}
