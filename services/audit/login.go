package auditsvc

import (
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/pkg/errors"

	"github.com/academia/sims/core"
)

// LoginLog writes one logfmt line per authentication attempt.
type LoginLog struct {
	logger log.Logger
	closer io.Closer
}

var _ core.LoginRecorder = (*LoginLog)(nil)

// NewLoginLog records to w. Writes from concurrent requests are serialized.
func NewLoginLog(w io.Writer) *LoginLog {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "event", "login")
	return &LoginLog{logger: logger}
}

// OpenLoginLog appends to the file at path, or to stderr when path is empty.
func OpenLoginLog(path string) (*LoginLog, error) {
	if path == "" {
		return NewLoginLog(os.Stderr), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, errors.Wrap(err, "opening login log")
	}
	ll := NewLoginLog(f)
	ll.closer = f
	return ll, nil
}

func (ll *LoginLog) RecordLogin(username, ip string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	_ = ll.logger.Log("username", username, "ip", ip, "result", result)
}

func (ll *LoginLog) Close() error {
	if ll.closer == nil {
		return nil
	}
	return ll.closer.Close()
}
