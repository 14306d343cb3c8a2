//go:build linux

package hardware

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/Doaky/pi-alarm-block/internal/logger"
)

// epollWaitMillis bounds a single epoll wait so cancellation is noticed.
const epollWaitMillis = 500

// ErrNoDevices indicates no input device matched the configured globs.
var ErrNoDevices = errors.New("no input devices found")

// Reader pumps panel events from evdev devices into the controls. One
// epoll loop covers every device instead of one goroutine per file.
type Reader struct {
	controls *Controls
	// globs are filepath patterns selecting the event devices.
	globs []string
}

// NewReader builds a reader over the devices matching the given globs.
func NewReader(controls *Controls, globs []string) *Reader {
	return &Reader{controls: controls, globs: globs}
}

// Run opens the matched devices and processes events until ctx is
// canceled or every device has failed.
func (r *Reader) Run(ctx context.Context) error {
	files, err := r.openDevices(ctx)
	if err != nil {
		return err
	}

	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()

	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return fmt.Errorf("epoll create: %w", err)
	}
	defer unix.Close(epfd)

	fdToFile := make(map[int]*os.File, len(files))

	for _, f := range files {
		fd := int(f.Fd())
		fdToFile[fd] = f

		event := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
		if err = unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			return fmt.Errorf("epoll register %s: %w", f.Name(), err)
		}
	}

	logger.InfoKV(ctx, "Hardware input reader started", "devices", len(files))

	epollEvents := make([]unix.EpollEvent, 16)
	buf := make([]byte, eventSize)

	for {
		if ctx.Err() != nil {
			logger.Info(ctx, "Hardware input reader stopped")

			return nil
		}

		n, err := unix.EpollWait(epfd, epollEvents, epollWaitMillis)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}

			return fmt.Errorf("epoll wait: %w", err)
		}

		for i := 0; i < n; i++ {
			fd := int(epollEvents[i].Fd)
			f := fdToFile[fd]

			if epollEvents[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				logger.WarnKV(ctx, "Input device dropped", "device", f.Name())
				_ = unix.EpollCtl(epfd, unix.EPOLL_CTL_DEL, fd, nil)
				_ = f.Close()
				delete(fdToFile, fd)

				if len(fdToFile) == 0 {
					return fmt.Errorf("last input device dropped: %w", ErrNoDevices)
				}

				continue
			}

			if _, err := f.Read(buf); err != nil {
				logger.WarnKV(ctx, "Input device read failed", "device", f.Name(), "error", err)

				continue
			}

			ev, err := decodeEvent(buf)
			if err != nil {
				continue
			}

			dispatch(ctx, r.controls, ev)
		}
	}
}

// openDevices resolves the configured globs into open event devices.
func (r *Reader) openDevices(ctx context.Context) ([]*os.File, error) {
	var files []*os.File

	for _, pattern := range r.globs {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad device glob %q: %w", pattern, err)
		}

		for _, path := range matches {
			f, err := os.Open(path)
			if err != nil {
				logger.WarnKV(ctx, "Cannot open input device", "device", path, "error", err)

				continue
			}

			files = append(files, f)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("globs %v: %w", r.globs, ErrNoDevices)
	}

	return files, nil
}
