package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/antibyte/linebasic/pkg/configuration"
)

// LogLevel orders log entries by severity.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var logLevelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

func (l LogLevel) String() string { return logLevelNames[l] }

// LogArea names a part of the program that can be logged separately.
type LogArea string

const (
	AreaParser  LogArea = "parser"
	AreaEngine  LogArea = "engine"
	AreaObjFile LogArea = "objfile"
	AreaStore   LogArea = "store"
	AreaServer  LogArea = "server"
	AreaAuth    LogArea = "auth"
	AreaConfig  LogArea = "config"
	AreaGeneral LogArea = "general"
)

// Logger writes area-scoped entries to a rotating file.
type Logger struct {
	enabled       int32              // atomic bool
	level         int32              // atomic LogLevel
	areaEnabled   map[LogArea]*int32 // atomic bools per area
	file          *os.File
	mutex         sync.RWMutex
	logPath       string
	maxSizeMB     int64
	rotationCount int
	currentSize   int64
}

var (
	globalLogger *Logger
	initOnce     sync.Once
)

// Initialize sets up the global logger from the [Debug] configuration
// section. Until it is called every log function is a no-op.
func Initialize() error {
	var err error
	initOnce.Do(func() {
		globalLogger, err = newLogger()
	})
	return err
}

func newLogger() (*Logger, error) {
	l := &Logger{
		areaEnabled: make(map[LogArea]*int32),
	}
	for _, area := range ListAreas() {
		l.areaEnabled[area] = new(int32)
	}

	if err := l.loadConfig(); err != nil {
		return nil, err
	}
	if l.isEnabled() {
		if err := l.openLogFile(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// loadConfig reads level, file, rotation and the per-area switches.
func (l *Logger) loadConfig() error {
	enabled := configuration.GetBool("Debug", "enable_debug_logging", true)
	atomic.StoreInt32(&l.enabled, boolToInt32(enabled))

	level := parseLogLevel(configuration.GetString("Debug", "log_level", "INFO"))
	atomic.StoreInt32(&l.level, int32(level))

	l.logPath = configuration.GetString("Debug", "log_file", "debug.log")
	l.maxSizeMB = int64(configuration.GetInt("Debug", "max_log_size_mb", 10))
	l.rotationCount = configuration.GetInt("Debug", "log_rotation_count", 3)

	for area, flag := range l.areaEnabled {
		enabled := configuration.GetBool("Debug", "log_"+string(area), false)
		atomic.StoreInt32(flag, boolToInt32(enabled))
	}
	return nil
}

func (l *Logger) openLogFile() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.file != nil {
		l.file.Close()
	}

	if err := os.MkdirAll(filepath.Dir(l.logPath), 0755); err != nil {
		return err
	}
	file, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	l.file = file

	if stat, err := file.Stat(); err == nil {
		l.currentSize = stat.Size()
	}
	return nil
}

// rotateLogFile shifts debug.log to debug.log.1 and so on. The caller holds the mutex.
func (l *Logger) rotateLogFile() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	for i := l.rotationCount - 1; i >= 1; i-- {
		oldName := fmt.Sprintf("%s.%d", l.logPath, i)
		newName := fmt.Sprintf("%s.%d", l.logPath, i+1)
		if i == l.rotationCount-1 {
			os.Remove(newName)
		}
		os.Rename(oldName, newName)
	}
	os.Rename(l.logPath, l.logPath+".1")

	file, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	l.file = file
	l.currentSize = 0
	return nil
}

func (l *Logger) isEnabled() bool {
	return atomic.LoadInt32(&l.enabled) != 0
}

func (l *Logger) isAreaEnabled(area LogArea) bool {
	if flag, exists := l.areaEnabled[area]; exists {
		return atomic.LoadInt32(flag) != 0
	}
	return false
}

func (l *Logger) shouldLog(level LogLevel, area LogArea) bool {
	if !l.isEnabled() {
		return false
	}
	if atomic.LoadInt32(&l.level) > int32(level) {
		return false
	}
	return l.isAreaEnabled(area)
}

// writeLog writes one entry. skip counts the frames between the logging call
// site and writeLog, for runtime.Caller.
func (l *Logger) writeLog(skip int, level LogLevel, area LogArea, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	_, file, line, _ := runtime.Caller(skip)
	logEntry := fmt.Sprintf("[%s] %s [%s:%d] [%s] %s\n",
		time.Now().Format("2006-01-02 15:04:05.000"),
		logLevelNames[level],
		filepath.Base(file),
		line,
		strings.ToUpper(string(area)),
		message)

	l.mutex.Lock()
	if l.file != nil {
		n, err := l.file.WriteString(logEntry)
		if err == nil {
			l.currentSize += int64(n)
			if l.maxSizeMB > 0 && l.currentSize > l.maxSizeMB*1024*1024 {
				l.rotateLogFile()
			}
		}
	}
	l.mutex.Unlock()

	// Warnings and worse also go to the standard log.
	if level >= WARN {
		log.Printf("[%s] [%s] %s", logLevelNames[level], strings.ToUpper(string(area)), message)
	}
}

// logAt must be called directly by the exported logging functions so the
// caller frame is always three up from writeLog.
func logAt(level LogLevel, area LogArea, format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.shouldLog(level, area) {
		globalLogger.writeLog(3, level, area, format, args...)
	}
}

// Debug logs at DEBUG level.
func Debug(area LogArea, format string, args ...interface{}) { logAt(DEBUG, area, format, args...) }

// Info logs at INFO level.
func Info(area LogArea, format string, args ...interface{}) { logAt(INFO, area, format, args...) }

// Warn logs at WARN level.
func Warn(area LogArea, format string, args ...interface{}) { logAt(WARN, area, format, args...) }

// Error logs at ERROR level.
func Error(area LogArea, format string, args ...interface{}) { logAt(ERROR, area, format, args...) }

// Fatal logs and exits.
func Fatal(area LogArea, format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.writeLog(2, FATAL, area, format, args...)
	}
	log.Fatalf("[FATAL] [%s] %s", strings.ToUpper(string(area)), fmt.Sprintf(format, args...))
}

// Store logging
func StoreDebug(format string, args ...interface{}) { logAt(DEBUG, AreaStore, format, args...) }
func StoreInfo(format string, args ...interface{})  { logAt(INFO, AreaStore, format, args...) }
func StoreError(format string, args ...interface{}) { logAt(ERROR, AreaStore, format, args...) }

// Server logging
func ServerDebug(format string, args ...interface{}) { logAt(DEBUG, AreaServer, format, args...) }
func ServerInfo(format string, args ...interface{})  { logAt(INFO, AreaServer, format, args...) }
func ServerWarn(format string, args ...interface{})  { logAt(WARN, AreaServer, format, args...) }
func ServerError(format string, args ...interface{}) { logAt(ERROR, AreaServer, format, args...) }

// Auth logging
func AuthDebug(format string, args ...interface{}) { logAt(DEBUG, AreaAuth, format, args...) }
func AuthInfo(format string, args ...interface{})  { logAt(INFO, AreaAuth, format, args...) }
func AuthWarn(format string, args ...interface{})  { logAt(WARN, AreaAuth, format, args...) }

// SetLevel changes the minimum level that gets written.
func SetLevel(level LogLevel) {
	if globalLogger != nil {
		atomic.StoreInt32(&globalLogger.level, int32(level))
	}
}

// EnableArea turns logging on for area.
func EnableArea(area LogArea) {
	if globalLogger != nil {
		if flag, exists := globalLogger.areaEnabled[area]; exists {
			atomic.StoreInt32(flag, 1)
		}
	}
}

// DisableArea turns logging off for area.
func DisableArea(area LogArea) {
	if globalLogger != nil {
		if flag, exists := globalLogger.areaEnabled[area]; exists {
			atomic.StoreInt32(flag, 0)
		}
	}
}

// ListAreas returns every log area.
func ListAreas() []LogArea {
	return []LogArea{
		AreaParser, AreaEngine, AreaObjFile, AreaStore,
		AreaServer, AreaAuth, AreaConfig, AreaGeneral,
	}
}

// Close flushes and closes the log file.
func Close() error {
	if globalLogger == nil {
		return nil
	}
	globalLogger.mutex.Lock()
	defer globalLogger.mutex.Unlock()
	if globalLogger.file == nil {
		return nil
	}
	err := globalLogger.file.Close()
	globalLogger.file = nil
	return err
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func parseLogLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	}
	return INFO
}
