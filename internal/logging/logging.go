// Package logging provides the controller's structured logging sinks. The
// default sink is the standard library's log.Logger, matching
// cmd/controller's log.SetFlags(log.LstdFlags | log.Lshortfile) posture;
// an optional cloud.google.com/go/logging-backed sink is selected by
// config when running on GCP. Both sinks scrub secrets from every field
// before it leaves the process.
package logging

import (
	"context"
	"fmt"
	"log"
	"os"

	gcplogging "cloud.google.com/go/logging"

	"github.com/agentmesh/controller/internal/security"
)

// Severity is a log level, matching the subset cloud.google.com/go/logging
// and the standard library both need to express.
type Severity int

const (
	Debug Severity = iota
	Info
	Warn
	Error
)

func (s Severity) String() string {
	switch s {
	case Debug:
		return "DEBUG"
	case Warn:
		return "WARNING"
	case Error:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Fields carries structured key/value context alongside a log message.
type Fields map[string]interface{}

// Logger is the sink every package in the controller logs through.
type Logger interface {
	Log(severity Severity, msg string, fields Fields)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	// Close releases any resources the sink holds (network connections,
	// buffered writers). Safe to call on every Logger implementation.
	Close() error
}

// Mode selects which sink New builds.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeCloud    Mode = "cloud"
)

// Config controls sink construction.
type Config struct {
	Mode       Mode
	GCPProject string // required when Mode == ModeCloud
	LogID      string // cloud log id, defaults to "agentmesh-controller"
}

// New builds the Logger named by cfg.Mode. An empty Mode defaults to
// ModeStandard.
func New(ctx context.Context, cfg Config) (Logger, error) {
	switch cfg.Mode {
	case ModeCloud:
		return newCloudLogger(ctx, cfg)
	case ModeStandard, "":
		return newStandardLogger(), nil
	default:
		return nil, fmt.Errorf("unknown logging mode %q", cfg.Mode)
	}
}

type standardLogger struct {
	out      *log.Logger
	scrubber *security.Scrubber
}

func newStandardLogger() *standardLogger {
	l := log.New(os.Stdout, "", log.LstdFlags|log.Lshortfile)
	return &standardLogger{out: l, scrubber: security.NewScrubber()}
}

func (l *standardLogger) Log(severity Severity, msg string, fields Fields) {
	l.out.Printf("%s %s %s", severity, l.scrubber.Scrub(msg), scrubFields(l.scrubber, fields))
}

func (l *standardLogger) Debugf(format string, args ...interface{}) {
	l.Log(Debug, fmt.Sprintf(format, args...), nil)
}
func (l *standardLogger) Infof(format string, args ...interface{}) {
	l.Log(Info, fmt.Sprintf(format, args...), nil)
}
func (l *standardLogger) Warnf(format string, args ...interface{}) {
	l.Log(Warn, fmt.Sprintf(format, args...), nil)
}
func (l *standardLogger) Errorf(format string, args ...interface{}) {
	l.Log(Error, fmt.Sprintf(format, args...), nil)
}
func (l *standardLogger) Close() error { return nil }

type cloudLogger struct {
	client   *gcplogging.Client
	logger   *gcplogging.Logger
	scrubber *security.Scrubber
}

func newCloudLogger(ctx context.Context, cfg Config) (*cloudLogger, error) {
	if cfg.GCPProject == "" {
		return nil, fmt.Errorf("logging: GCPProject is required for cloud mode")
	}
	logID := cfg.LogID
	if logID == "" {
		logID = "agentmesh-controller"
	}

	client, err := gcplogging.NewClient(ctx, fmt.Sprintf("projects/%s", cfg.GCPProject))
	if err != nil {
		return nil, fmt.Errorf("creating cloud logging client: %w", err)
	}

	return &cloudLogger{
		client:   client,
		logger:   client.Logger(logID),
		scrubber: security.NewScrubber(),
	}, nil
}

func (l *cloudLogger) Log(severity Severity, msg string, fields Fields) {
	l.logger.Log(gcplogging.Entry{
		Severity: toGCPSeverity(severity),
		Payload: map[string]interface{}{
			"message": l.scrubber.Scrub(msg),
			"fields":  scrubFieldsMap(l.scrubber, fields),
		},
	})
}

func (l *cloudLogger) Debugf(format string, args ...interface{}) {
	l.Log(Debug, fmt.Sprintf(format, args...), nil)
}
func (l *cloudLogger) Infof(format string, args ...interface{}) {
	l.Log(Info, fmt.Sprintf(format, args...), nil)
}
func (l *cloudLogger) Warnf(format string, args ...interface{}) {
	l.Log(Warn, fmt.Sprintf(format, args...), nil)
}
func (l *cloudLogger) Errorf(format string, args ...interface{}) {
	l.Log(Error, fmt.Sprintf(format, args...), nil)
}

func (l *cloudLogger) Close() error {
	if err := l.logger.Flush(); err != nil {
		return err
	}
	return l.client.Close()
}

func toGCPSeverity(s Severity) gcplogging.Severity {
	switch s {
	case Debug:
		return gcplogging.Debug
	case Warn:
		return gcplogging.Warning
	case Error:
		return gcplogging.Error
	default:
		return gcplogging.Info
	}
}

func scrubFields(scrubber *security.Scrubber, fields Fields) string {
	if len(fields) == 0 {
		return ""
	}
	out := ""
	for k, v := range fields {
		out += fmt.Sprintf("%s=%s ", k, scrubber.Scrub(fmt.Sprintf("%v", v)))
	}
	return out
}

func scrubFieldsMap(scrubber *security.Scrubber, fields Fields) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = scrubber.Scrub(fmt.Sprintf("%v", v))
	}
	return out
}
