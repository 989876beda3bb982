package network

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

func TestEncodeDecode(t *testing.T) {
	payload := []byte(`{"earned":true}`)
	raw, err := Encode(MsgTypeBonusGate, payload)
	if err != nil {
		t.Fatalf("Encode returned an error: %v", err)
	}
	if len(raw) != headerSize+len(payload) {
		t.Fatalf("Expected %d bytes, got %d", headerSize+len(payload), len(raw))
	}

	packet, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode returned an error: %v", err)
	}
	if packet.MsgID != MsgTypeBonusGate {
		t.Errorf("Expected msg id %d, got %d", MsgTypeBonusGate, packet.MsgID)
	}
	if int(packet.Length) != len(payload) || !bytes.Equal(packet.Data, payload) {
		t.Errorf("Payload mismatch: %q", packet.Data)
	}
}

func TestDecodeShortFrames(t *testing.T) {
	if _, err := Decode([]byte{0, 1, 0}); !errors.Is(err, io.ErrShortBuffer) {
		t.Errorf("Expected ErrShortBuffer for a truncated header, got %v", err)
	}
	if _, err := Decode([]byte{0, 1, 0, 5, 'a'}); !errors.Is(err, io.ErrShortBuffer) {
		t.Errorf("Expected ErrShortBuffer for a truncated payload, got %v", err)
	}
}

func TestEncodeTooLarge(t *testing.T) {
	if _, err := Encode(MsgTypeGameState, make([]byte, 1<<16)); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestWSConnection_RoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ws := NewWSConnection(conn)
		defer ws.Close()
		packet, err := ws.ReadPacket()
		if err != nil {
			return
		}
		ws.Send(packet.MsgID+100, packet.Data)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	client := NewWSConnection(conn)
	defer client.Close()

	if err := client.Send(MsgTypeRoll, []byte("{}")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	packet, err := client.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket failed: %v", err)
	}
	if packet.MsgID != MsgTypeRoll+100 || string(packet.Data) != "{}" {
		t.Errorf("Unexpected echo: id=%d data=%q", packet.MsgID, packet.Data)
	}
}

type recordingSender struct {
	msgID uint16
	data  []byte
}

func (r *recordingSender) Send(msgID uint16, data []byte) error {
	r.msgID, r.data = msgID, data
	return nil
}

func TestSendJSON(t *testing.T) {
	var out recordingSender
	if err := SendJSON(&out, MsgTypeAttachGame, AttachRequest{GameID: "g1"}); err != nil {
		t.Fatalf("SendJSON returned an error: %v", err)
	}
	if out.msgID != MsgTypeAttachGame || string(out.data) != `{"game_id":"g1"}` {
		t.Errorf("Unexpected packet %d %s", out.msgID, out.data)
	}

	var req AttachRequest
	if err := (&Packet{Data: out.data}).Unmarshal(&req); err != nil || req.GameID != "g1" {
		t.Errorf("Unmarshal gave %+v (%v)", req, err)
	}

	if err := SendJSON(&out, MsgTypeRoll, nil); err != nil || len(out.data) != 0 {
		t.Errorf("Expected an empty payload for nil, got %q (%v)", out.data, err)
	}
}
