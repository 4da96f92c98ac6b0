package report

import (
	"fmt"

	"github.com/fatih/color"
)

var consoleHeadingColor = color.New(color.Bold)                  //nolint:gochecknoglobals
var consolePassedColor = color.New(color.FgGreen)                //nolint:gochecknoglobals
var consoleFailedColor = color.New(color.FgRed)                  //nolint:gochecknoglobals
var consoleMessageColor = color.New(color.FgYellow)              //nolint:gochecknoglobals
var consoleLogColor = color.New(color.Faint)                     //nolint:gochecknoglobals
var consoleSinkTitleColor = color.New(color.Faint, color.FgBlue) //nolint:gochecknoglobals

// ConsoleSink prints entries to standard output with color.
type ConsoleSink struct {
	started bool
}

func (c *ConsoleSink) Append(entry Entry) {
	if !c.started {
		c.started = true
		_, _ = consoleSinkTitleColor.Printf("[%s]\n", SinkName)
	}
	switch entry.Kind {
	case KindHeading:
		fmt.Println()
		_, _ = consoleHeadingColor.Println(entry.Line())
	case KindCase, KindProgress:
		if entry.Failed {
			_, _ = consoleFailedColor.Println(entry.Line())
		} else {
			_, _ = consolePassedColor.Println(entry.Line())
		}
	case KindMessage:
		_, _ = consoleMessageColor.Println(entry.Line())
	case KindLog:
		if entry.Failed {
			_, _ = consoleFailedColor.Println(entry.Line())
		} else {
			_, _ = consoleLogColor.Println(entry.Line())
		}
	}
}
