package common

import (
	"os"

	logging "github.com/op/go-logging"
)

var logFormat = logging.MustStringFormatter(
	`[%{time:2006-01-02 15:04:05.000}] %{level:7s} %{module:9s} %{message}`,
)

// ConfigureLogging configures logging to a given filename at a given level.
// If filename is empty, logging is being redirected to os.Stderr.
// The returned file is nil in that case, otherwise the caller closes it.
func ConfigureLogging(filename string, level logging.Level) (*os.File, error) {
	var backend *logging.LogBackend
	var lf *os.File
	var err error

	if filename != "" {
		lf, err = os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		backend = logging.NewLogBackend(lf, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}

	leveled := logging.AddModuleLevel(logging.NewBackendFormatter(backend, logFormat))
	leveled.SetLevel(level, "")
	logging.SetBackend(leveled)
	return lf, nil
}
