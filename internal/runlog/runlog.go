// Package runlog centralizes logrus setup for mdmpcarve's binaries, the
// way the teacher's binaries print straight to stdout — except here with
// leveled, field-tagged entries instead of bare fmt.Printf.
package runlog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger writing text-formatted entries to stdout.
// verbose raises the level to Debug; logFile, when non-empty, additionally
// appends entries there (mirroring the teacher's dual stdout+file habit).
func New(verbose bool, logFile string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetLevel(logrus.InfoLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if logFile == "" {
		log.SetOutput(os.Stdout)
		return log, nil
	}

	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(io.MultiWriter(os.Stdout, f))
	return log, nil
}
