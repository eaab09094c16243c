//go:build !sqlite
// +build !sqlite

package store

import (
	"errors"

	"forgewatch/pkg/logx"
)

func openSQLiteHistory(path string, log logx.Logger) (History, error) {
	_ = path
	_ = log
	return nil, errors.New("sqlite history driver not built in (rebuild with -tags sqlite)")
}
