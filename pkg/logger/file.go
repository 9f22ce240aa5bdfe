package logger

import (
	"log"

	"gopkg.in/natefinch/lumberjack.v2"
)

// File logs to a size-rotated file. Used by the daemon so long idle
// periods between timer fires do not grow an unbounded log.
type File struct {
	l *log.Logger
	w *lumberjack.Logger
}

// NewFile creates a rotating file logger. Rotation keeps up to five
// 10 MB files for 28 days.
func NewFile(path string) *File {
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     28,
	}
	return &File{
		l: log.New(w, "", log.LstdFlags),
		w: w,
	}
}

func (f *File) Info(format string, args ...interface{}) {
	f.l.Printf("[INFO] "+format, args...)
}

func (f *File) Warning(format string, args ...interface{}) {
	f.l.Printf("[WARNING] "+format, args...)
}

func (f *File) Error(format string, args ...interface{}) {
	f.l.Printf("[ERROR] "+format, args...)
}

func (f *File) Close() error { return f.w.Close() }

var _ Logger = (*File)(nil)
