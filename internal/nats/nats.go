package nats

import (
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type Nats struct {
	Url   string
	Token string
	Conn  *nats.Conn
}

// Connect dials url, nats://localhost:4222 when empty. The connection keeps
// reconnecting so page notices resume after a broker restart.
func Connect(name, url, token string) (*Nats, error) {
	n := &Nats{
		Url:   url,
		Token: token,
	}

	if n.Url == "" {
		n.Url = "nats://localhost:4222"
	}

	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warnf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Infof("NATS reconnected to %s", c.ConnectedUrl())
		}),
	}

	// if token provided
	if n.Token != "" {
		opts = append(opts, nats.Token(n.Token))
	}

	conn, err := nats.Connect(n.Url, opts...)
	if err != nil {
		return nil, err
	}

	n.Conn = conn

	return n, nil
}

// Close drains pending messages before closing.
func (n *Nats) Close() {
	if err := n.Conn.Drain(); err != nil {
		log.Warnf("NATS drain: %v", err)
		n.Conn.Close()
	}
}
