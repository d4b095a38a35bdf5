package broker

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/avvvet/ticket-services/internal/comm"
	"github.com/nats-io/nats.go"
)

// loopConn hands every published message to the handler subscribed for it.
type loopConn struct {
	mu       sync.Mutex
	subject  string
	handler  nats.MsgHandler
	subjects []string
}

func (c *loopConn) Publish(subj string, data []byte) error {
	c.mu.Lock()
	c.subjects = append(c.subjects, subj)
	h := c.handler
	c.mu.Unlock()
	if h != nil {
		h(&nats.Msg{Subject: subj, Data: data})
	}
	return nil
}

func (c *loopConn) Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subject = subj
	c.handler = cb
	return &nats.Subscription{Subject: subj}, nil
}

func TestSendRelaysToDeliver(t *testing.T) {
	conn := &loopConn{}
	var got []*comm.WSMessage
	b := NewBroker(conn, func(m *comm.WSMessage) bool {
		got = append(got, m)
		return true
	})
	if _, err := b.Subscribe(); err != nil {
		t.Fatal(err)
	}
	if conn.subject != PageTopicPrefix+"*" {
		t.Errorf("subscribed to %q", conn.subject)
	}

	m, err := comm.NewMessage("sock-1", comm.TypeConfirm, comm.ConfirmData{Message: "登録しますか？"})
	if err != nil {
		t.Fatal(err)
	}
	m.Ref = "r1"
	if err := b.Send(m); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(conn.subjects) != 1 || conn.subjects[0] != "ticket.page.sock-1" {
		t.Errorf("published to %v", conn.subjects)
	}
	if len(got) != 1 {
		t.Fatalf("delivered %d messages", len(got))
	}
	var data comm.ConfirmData
	json.Unmarshal(got[0].Data, &data)
	if got[0].SocketId != "sock-1" || got[0].Ref != "r1" || got[0].Type != comm.TypeConfirm || data.Message != "登録しますか？" {
		t.Errorf("delivered %+v (%+v)", got[0], data)
	}
}

func TestHandleMessagesSkipsMalformed(t *testing.T) {
	delivered := 0
	b := NewBroker(&loopConn{}, func(*comm.WSMessage) bool {
		delivered++
		return false
	})

	b.handleMessages(&nats.Msg{Subject: "ticket.page.x", Data: []byte("not json")})
	if delivered != 0 {
		t.Fatal("malformed message delivered")
	}

	b.handleMessages(&nats.Msg{Subject: "ticket.page.x", Data: []byte(`{"type":"state","socketid":"x"}`)})
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}
}
