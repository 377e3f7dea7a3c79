package gateway_test

import (
	"time"

	"github.com/wonny/ibdash/internal/gateway/gatewaytest"
	"github.com/wonny/ibdash/pkg/config"
	"github.com/wonny/ibdash/pkg/httputil"
	"github.com/wonny/ibdash/pkg/logger"
)

func nopLog() *logger.Logger {
	return logger.Nop()
}

func srvHTTP(srv *gatewaytest.Server) *httputil.Client {
	return httputil.New(&config.Config{Gateway: srv.Config()}, nopLog()).WithRetry(1, time.Millisecond)
}
