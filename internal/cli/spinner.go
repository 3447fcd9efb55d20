package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// spinner animates a status line on uiOut until it is stopped or its
// context ends. Only one goroutine draws; stop may be called any number of
// times.
type spinner struct {
	message string
	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc

	once    sync.Once
	drawing sync.WaitGroup
}

// startSpinner starts animating message. The spinner stops by itself when
// ctx is cancelled.
func startSpinner(ctx context.Context, message string) *spinner {
	sctx, cancel := context.WithCancel(ctx)
	s := &spinner{message: message, parent: ctx, ctx: sctx, cancel: cancel}
	s.drawing.Add(1)
	go s.run()
	return s
}

func (s *spinner) run() {
	defer s.drawing.Done()
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			frame := spinnerFrames[i%len(spinnerFrames)]
			fmt.Fprintf(uiOut, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.message))
		}
	}
}

// stop ends the animation and blanks the status line.
func (s *spinner) stop() {
	s.once.Do(func() {
		s.cancel()
		s.drawing.Wait()
		fmt.Fprintf(uiOut, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
	})
}

// succeed stops the spinner and prints a success line.
func (s *spinner) succeed(format string, args ...any) {
	s.stop()
	printSuccess(format, args...)
}

// fail stops the spinner and prints an error line.
func (s *spinner) fail(format string, args ...any) {
	s.stop()
	printError(format, args...)
}

// interrupted reports whether the parent context ended before stop.
func (s *spinner) interrupted() bool {
	return s.parent.Err() != nil
}
