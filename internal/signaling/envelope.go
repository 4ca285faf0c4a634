package signaling

import "encoding/json"

// Message types routed by the relay. The request/decline pairs are verb
// aliases: the two ends of the protocol were built independently, so both
// spellings must keep working.
const (
	TypeConnectionSuccess  = "connection-success"
	TypeRequestPeerConn    = "request-peer-connection"
	TypeConnectionRequest  = "connection-request"
	TypePeerFound          = "peer-found"
	TypeDeclineConnection  = "decline-connection"
	TypeConnectionDeclined = "connection-declined"
	TypeOffer              = "offer"
	TypeAnswer             = "answer"
	TypeICECandidate       = "ice-candidate"
	TypePeerDisconnected   = "peer-disconnected"
	TypeError              = "error"
)

// Envelope is one decoded signaling frame. The header fields drive
// dispatch; the raw field map keeps the opaque payload (SDP bodies, ICE
// candidates) intact so a forward reproduces it verbatim.
type Envelope struct {
	Type       string
	Target     string // destination ClientID, normalized from "target" or "peerId"
	Name       string
	AutoAccept bool

	fields map[string]json.RawMessage
}

// ParseEnvelope decodes a text frame into an Envelope. The peerId/target
// alias pair is collapsed into Target here so the router only ever sees
// one name for the destination.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	env := &Envelope{
		Type:   stringField(fields, "type"),
		Target: stringField(fields, "target"),
		Name:   stringField(fields, "name"),
		fields: fields,
	}
	if env.Target == "" {
		env.Target = stringField(fields, "peerId")
	}
	if raw, ok := fields["autoAccept"]; ok {
		json.Unmarshal(raw, &env.AutoAccept)
	}
	return env, nil
}

// Encode marshals the envelope's full field set, including any opaque
// payload fields carried through from the original frame.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e.fields)
}

// StampSource records id as the envelope's origin, overwriting whatever
// the sender claimed.
func (e *Envelope) StampSource(id string) {
	e.fields["source"], _ = json.Marshal(id)
}

// StampSourceIfAbsent records id as the origin only when the frame did
// not carry one.
func (e *Envelope) StampSourceIfAbsent(id string) {
	if _, ok := e.fields["source"]; !ok {
		e.StampSource(id)
	}
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// mustEncode builds a server-originated frame. The inputs are
// server-controlled maps, so a marshal failure cannot happen in practice.
func mustEncode(fields map[string]any) []byte {
	data, _ := json.Marshal(fields)
	return data
}

func errorFrame(message string) []byte {
	return mustEncode(map[string]any{"type": TypeError, "message": message})
}

func peerDisconnectedFrame(id string) []byte {
	return mustEncode(map[string]any{"type": TypePeerDisconnected, "peerId": id})
}
