package browser

import (
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/runtime"
	"github.com/ternarybob/arbor"
)

const maxConsoleLines = 50

// consoleBuffer keeps the tail of a tab's console output
type consoleBuffer struct {
	mu     sync.Mutex
	max    int
	items  []string
	logger arbor.ILogger
}

func newConsoleBuffer(max int, logger arbor.ILogger) *consoleBuffer {
	return &consoleBuffer{max: max, logger: logger}
}

func (b *consoleBuffer) add(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, line)
	if len(b.items) > b.max {
		b.items = b.items[len(b.items)-b.max:]
	}
}

func (b *consoleBuffer) lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.items))
	copy(out, b.items)
	return out
}

// listen is registered with chromedp.ListenTarget
func (b *consoleBuffer) listen(ev interface{}) {
	switch ev := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		args := make([]string, 0, len(ev.Args))
		for _, arg := range ev.Args {
			if len(arg.Value) > 0 {
				args = append(args, strings.Trim(string(arg.Value), `"`))
			} else if arg.Description != "" {
				args = append(args, arg.Description)
			}
		}
		line := fmt.Sprintf("[%s] %s", ev.Type, strings.Join(args, " "))
		b.add(line)
		if ev.Type == runtime.APITypeError {
			b.logger.Warn().Str("console", line).Msg("Browser console error")
		} else {
			b.logger.Debug().Str("console", line).Msg("Browser console")
		}
	case *runtime.EventExceptionThrown:
		if ev.ExceptionDetails == nil {
			return
		}
		msg := ev.ExceptionDetails.Text
		if ev.ExceptionDetails.Exception != nil && ev.ExceptionDetails.Exception.Description != "" {
			msg = ev.ExceptionDetails.Exception.Description
		}
		b.add(fmt.Sprintf("[exception] %s", msg))
		b.logger.Warn().Str("exception", msg).Msg("Uncaught page exception")
	}
}
