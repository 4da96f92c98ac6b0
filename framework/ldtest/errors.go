package ldtest

import (
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strings"
)

// ErrorWithStacktrace is an assertion failure together with the location in test code where
// it happened. Frames inside ldtest itself and frames of functions marked with T.Helper are left
// out.
type ErrorWithStacktrace struct {
	Message    string
	Stacktrace []StacktraceInfo
}

type StacktraceInfo struct {
	FileName string
	Package  string
	Function string
	Line     int
}

func (e ErrorWithStacktrace) Error() string { return e.Message }

func (s StacktraceInfo) String() string {
	packageName := strings.TrimPrefix(s.Package, modulePathOf(thisPackage())+"/")
	return fmt.Sprintf("%s.%s (%s:%d)", packageName, s.Function, s.FileName, s.Line)
}

// testifyTracePrefix matches the "Error Trace: ... Error:" preamble that testify puts in front
// of its messages; our own stacktrace replaces it.
var testifyTracePrefix = regexp.MustCompile(`^(?s:\s*Error Trace:.*\sError:\s*)`)

func transformError(err error, stacktrace []StacktraceInfo) error {
	message := err.Error()
	if strings.Contains(message, "Error Trace:") {
		message = strings.TrimSpace(testifyTracePrefix.ReplaceAllLiteralString(message, ""))
	}
	if len(stacktrace) == 0 {
		return errors.New(message)
	}
	return ErrorWithStacktrace{Message: message, Stacktrace: stacktrace}
}

func thisPackage() string {
	pc, _, _, ok := runtime.Caller(0)
	if !ok {
		return "?"
	}
	f := runtime.FuncForPC(pc)
	if f == nil {
		return "?"
	}
	pkg, _ := splitFunctionName(f.Name())
	return pkg
}

// modulePathOf strips the "/framework/ldtest" suffix from this package's import path.
func modulePathOf(pkg string) string {
	if i := strings.Index(pkg, "/framework/"); i >= 0 {
		return pkg[:i]
	}
	return pkg
}

func getStacktrace(includeLDTestCode bool, helperFns []string) []StacktraceInfo {
	frames := []StacktraceInfo{}
	self := thisPackage()
	isHelper := make(map[string]bool, len(helperFns))
	for _, fn := range helperFns {
		isHelper[fn] = true
	}

	for skip := 1; ; skip++ { // 0 is getStacktrace itself
		pc, file, line, ok := runtime.Caller(skip)
		if !ok {
			break
		}
		f := runtime.FuncForPC(pc)
		if f == nil {
			break
		}
		pkg, function := splitFunctionName(f.Name())
		if pkg == self && function == "Run" {
			break // everything below the top-level Run is the caller's own setup
		}
		if (pkg == self && !includeLDTestCode) || isHelper[f.Name()] {
			continue
		}
		frames = append(frames, StacktraceInfo{
			FileName: file[strings.LastIndex(file, "/")+1:],
			Package:  pkg,
			Function: function,
			Line:     line,
		})
	}
	return frames
}

// splitFunctionName splits a runtime function name such as "a.b/c/pkg.(*T).run" into
// "a.b/c/pkg" and "(*T).run".
func splitFunctionName(fullName string) (string, string) {
	lastSlash := strings.LastIndex(fullName, "/")
	dot := strings.Index(fullName[lastSlash+1:], ".")
	if dot < 0 {
		return fullName, ""
	}
	pkg := fullName[:lastSlash+1+dot]
	return pkg, fullName[len(pkg)+1:]
}
