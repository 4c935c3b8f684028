package pubsub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/okian/sportselo/pkg/logger"
)

const embeddedReadyTimeout = 10 * time.Second

// EmbeddedServer is an in-process NATS server for local runs and tests.
type EmbeddedServer struct {
	srv *server.Server
}

// StartEmbedded starts a server on 127.0.0.1:port. Port -1 picks a free port.
func StartEmbedded(port int) (*EmbeddedServer, error) {
	srv, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   port,
		NoSigs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedded nats: %w", err)
	}
	srv.SetLogger(&natsLogger{l: logger.Get().Named("nats-server")}, false, false)

	go srv.Start()
	if !srv.ReadyForConnections(embeddedReadyTimeout) {
		srv.Shutdown()
		return nil, errors.New("embedded nats did not become ready")
	}
	return &EmbeddedServer{srv: srv}, nil
}

// ClientURL returns the URL clients connect to.
func (e *EmbeddedServer) ClientURL() string { return e.srv.ClientURL() }

// Shutdown stops the server and waits for it to exit.
func (e *EmbeddedServer) Shutdown() {
	e.srv.Shutdown()
	e.srv.WaitForShutdown()
}

// natsLogger adapts logger.Logger to the server's logger interface.
type natsLogger struct {
	l logger.Logger
}

func (n *natsLogger) Noticef(format string, v ...any) {
	n.l.Info(context.Background(), fmt.Sprintf(format, v...))
}

func (n *natsLogger) Warnf(format string, v ...any) {
	n.l.Warn(context.Background(), fmt.Sprintf(format, v...))
}

func (n *natsLogger) Fatalf(format string, v ...any) {
	n.l.Error(context.Background(), fmt.Sprintf(format, v...))
}

func (n *natsLogger) Errorf(format string, v ...any) {
	n.l.Error(context.Background(), fmt.Sprintf(format, v...))
}

func (n *natsLogger) Debugf(format string, v ...any) {
	n.l.Debug(context.Background(), fmt.Sprintf(format, v...))
}

func (n *natsLogger) Tracef(format string, v ...any) {
	n.l.Debug(context.Background(), fmt.Sprintf(format, v...))
}
