package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// SessionLogger appends a plain-text activity trail (session.log) inside a
// session directory, so every analyze/draft/post invocation against that
// session leaves a durable trace next to the thread records.
type SessionLogger struct {
	logFile   *os.File
	mutex     sync.Mutex
	startTime time.Time
}

// OpenSessionLogger opens (or creates) session.log in the given session
// directory, appending across invocations.
func OpenSessionLogger(sessionDir string) (*SessionLogger, error) {
	path := filepath.Join(sessionDir, "session.log")
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}

	l := &SessionLogger{
		logFile:   logFile,
		startTime: time.Now(),
	}
	l.writeHeader()
	return l, nil
}

// Log writes a timestamped message to the session log.
func (l *SessionLogger) Log(format string, args ...interface{}) {
	if l == nil {
		return
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	timestamp := time.Now().Format("15:04:05.000")
	elapsed := time.Since(l.startTime).Round(time.Millisecond)
	fmt.Fprintf(l.logFile, "[%s] [+%v] %s\n", timestamp, elapsed, fmt.Sprintf(format, args...))
	l.logFile.Sync()
}

// LogSection writes a section header to the log.
func (l *SessionLogger) LogSection(title string) {
	if l == nil {
		return
	}
	separator := strings.Repeat("=", 60)
	l.Log("%s", separator)
	l.Log("= %s", title)
	l.Log("%s", separator)
}

// LogError logs an error with its context.
func (l *SessionLogger) LogError(context string, err error) {
	if l == nil {
		return
	}
	l.Log("ERROR in %s: %v", context, err)
}

// Close finalizes the log file.
func (l *SessionLogger) Close() {
	if l == nil {
		return
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.logFile != nil {
		timestamp := time.Now().Format("15:04:05.000")
		fmt.Fprintf(l.logFile, "[%s] invocation finished after %v\n", timestamp, time.Since(l.startTime).Round(time.Millisecond))
		l.logFile.Sync()
		l.logFile.Close()
		l.logFile = nil
	}
}

func (l *SessionLogger) writeHeader() {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	fmt.Fprintf(l.logFile, "--- invocation at %s ---\n", l.startTime.Format("2006-01-02 15:04:05"))
	l.logFile.Sync()
}
