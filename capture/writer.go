// Package capture writes the raw RTCM3 frames received from the caster to
// daily files, for example "data.20250102.rtcm3", so that a session can be
// decoded again later with "ntripanalyser decode".
//
// The frames arrive in blocks, and a block that arrives just after midnight
// could contain messages from yesterday and today.  In any case, the host
// machine's clock may have drifted a little.  To give time for the file to
// be rolled over, the Writer ignores calls to Write within one minute either
// side of midnight UTC.  A cron job runs at one minute before midnight and
// moves the day's file into the subdirectory "data.ready", to signal that
// it's complete.  The first call of Write after 00:01 creates a new file for
// that day.
package capture

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron"

	"github.com/goblimey/go-ntrip-analyser/clock"
)

// ReadyDirectory is the subdirectory that completed files are moved to.
const ReadyDirectory = "data.ready"

// endOfDaySpec runs the end of day job at 23:59:00 UTC.  The first field
// is the seconds.
const endOfDaySpec = "0 59 23 * * *"

// Writer satisfies the io.Writer interface and writes frames to the file
// for the current day.
type Writer struct {
	mutex           sync.Mutex
	directory       string
	clock           clock.Clock
	logger          *slog.Logger
	currentYYYYMMDD string
	file            *os.File // The current file (nil if not writing).
	cronjob         *cron.Cron
}

// This is a compile-time check that Writer implements the io.Writer interface.
var _ io.Writer = (*Writer)(nil)

// New creates a Writer that writes files in the given directory, creating
// it if necessary, and starts the end of day job.
func New(directory string, logger *slog.Logger) (*Writer, error) {
	writer, err := newWriterWithClock(directory, clock.NewSystemClock(), logger)
	if err != nil {
		return nil, err
	}

	cr := cron.NewWithLocation(time.UTC)
	if err := cr.AddFunc(endOfDaySpec, writer.endOfDay); err != nil {
		return nil, fmt.Errorf("scheduling end of day: %w", err)
	}
	cr.Start()
	writer.cronjob = cr

	return writer, nil
}

// newWriterWithClock creates a Writer with a supplied clock and no cron
// job.  (This is used for testing.)
func newWriterWithClock(directory string, clock clock.Clock, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("creating capture directory: %w", err)
	}
	return &Writer{directory: directory, clock: clock, logger: logger}, nil
}

// Write writes the buffer to the day's file, creating the file at the start
// of each day.  Around midnight the data is dropped, but the length is still
// returned so that the caller doesn't think there has been an error.
func (w *Writer) Write(buffer []byte) (int, error) {

	// Avoid a race with endOfDay.
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if !w.writingAllowed() {
		if w.file != nil {
			// The first call after end of day closes the file.
			w.closeFile()
		}
		return len(buffer), nil
	}

	yyyymmdd := w.todayYYYYMMDD()
	if w.file == nil || yyyymmdd != w.currentYYYYMMDD {
		// We have just started up or the day has rolled over.
		if w.file != nil {
			w.closeFile()
		}
		file, err := openFile(filepath.Join(w.directory, Filename(yyyymmdd)))
		if err != nil {
			return 0, err
		}
		w.currentYYYYMMDD = yyyymmdd
		w.file = file
		w.logger.Info("start of day", "file", file.Name())
	}

	return w.file.Write(buffer)
}

// Close stops the end of day job and closes the current file, leaving it in
// place.
func (w *Writer) Close() error {
	if w.cronjob != nil {
		w.cronjob.Stop()
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// todayYYYYMMDD returns today's date in the UTC timezone in yyyymmdd format.
func (w *Writer) todayYYYYMMDD() string {
	return w.clock.Now().In(time.UTC).Format("20060102")
}

// writingAllowed is true all day except for one minute either side of
// midnight UTC.
func (w *Writer) writingAllowed() bool {
	nowUTC := w.clock.Now().In(time.UTC)
	if nowUTC.Hour() == 0 && nowUTC.Minute() == 0 {
		return false
	}
	if nowUTC.Hour() == 23 && nowUTC.Minute() == 59 {
		return false
	}
	return true
}

// endOfDay saves the day's file.  It should run just after writing is
// disabled at the end of the day, so it won't clash with a call of Write,
// but the mutex prevents a race if it's delayed.
func (w *Writer) endOfDay() {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.writingAllowed() {
		w.logger.Warn("end of day job ran when writing is allowed")
		return
	}

	w.closeFile()
}

// closeFile closes the current file and moves it to the ready directory.
// The caller must hold the mutex.
func (w *Writer) closeFile() {
	if w.file == nil {
		return
	}

	name := w.file.Name()
	if err := w.file.Close(); err != nil {
		w.logger.Warn("closing capture file", "file", name, "error", err)
	}
	w.file = nil

	if err := saveFile(name, filepath.Join(w.directory, ReadyDirectory)); err != nil {
		w.logger.Error("saving capture file", "file", name, "error", err)
		return
	}
	w.logger.Info("end of day", "file", name)
}

// saveFile moves the file into the ready directory.
func saveFile(name, readyDirectory string) error {
	if err := os.MkdirAll(readyDirectory, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", readyDirectory, err)
	}
	target := filepath.Join(readyDirectory, filepath.Base(name))
	if err := os.Rename(name, target); err != nil {
		return fmt.Errorf("moving %s to %s: %w", name, readyDirectory, err)
	}
	return nil
}

// Filename returns the name of the file for a day, for example
// "data.20250102.rtcm3".
func Filename(yyyymmdd string) string {
	return "data." + yyyymmdd + ".rtcm3"
}

// openFile either creates and opens the file or, if it already exists,
// opens it in append mode.
func openFile(name string) (*os.File, error) {
	file, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening capture file: %w", err)
	}
	return file, nil
}

// DurationToEndOfDay returns the time from start until the end of day job
// runs.
func DurationToEndOfDay(start time.Time) time.Duration {
	startInUTC := start.In(time.UTC)
	endOfDay := time.Date(startInUTC.Year(), startInUTC.Month(), startInUTC.Day(),
		23, 59, 0, 0, time.UTC)
	return endOfDay.Sub(startInUTC)
}
