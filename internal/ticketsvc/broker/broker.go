package broker

import (
	"encoding/json"

	"github.com/avvvet/ticket-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// PageTopicPrefix is followed by the socket id of the page a message is for.
const PageTopicPrefix = "ticket.page."

// Conn is the part of *nats.Conn the broker uses.
type Conn interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Broker relays page messages over NATS so that any instance can address a
// page; the instance holding the socket delivers it.
type Broker struct {
	Conn    Conn
	Deliver func(*comm.WSMessage) bool
}

func NewBroker(conn Conn, deliver func(*comm.WSMessage) bool) *Broker {
	return &Broker{
		Conn:    conn,
		Deliver: deliver,
	}
}

// Subscribe consumes messages for every page.
func (b *Broker) Subscribe() (*nats.Subscription, error) {
	return b.Conn.Subscribe(PageTopicPrefix+"*", b.handleMessages)
}

// Send publishes a message for the page m.SocketId.
func (b *Broker) Send(m *comm.WSMessage) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	topic := PageTopicPrefix + m.SocketId
	if err := b.Conn.Publish(topic, payload); err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}
	return nil
}

// handleMessages delivers a relayed message to the local socket, if this
// instance holds it.
func (b *Broker) handleMessages(msgNats *nats.Msg) {
	message := &comm.WSMessage{}
	if err := json.Unmarshal(msgNats.Data, message); err != nil {
		log.Errorf("Error decoding page message on %s: %s", msgNats.Subject, err)
		return
	}
	if !b.Deliver(message) {
		log.Debugf("page %s not on this instance", message.SocketId)
	}
}
