package signaling

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Router owns one client connection from registration to cleanup. It
// reads frames, classifies them by type, and moves them through the
// Registry. Each connection gets its own Router, so message handling for
// a single client is strictly serial.
type Router struct {
	id       string
	sink     Sink
	registry *Registry
	log      *zap.Logger

	once sync.Once
}

func NewRouter(id string, sink Sink, registry *Registry, log *zap.Logger) *Router {
	return &Router{
		id:       id,
		sink:     sink,
		registry: registry,
		log:      log.With(zap.String("clientId", id)),
	}
}

// Run drives the connection until the peer disconnects or the transport
// errors. It confirms the accepted identity to the client first, then
// read-dispatches. The caller must have registered the client already;
// cleanup runs exactly once regardless of which path exits the loop.
func (rt *Router) Run(client *Client) {
	defer rt.Finalize()
	defer client.Close()

	welcome := mustEncode(map[string]any{"type": TypeConnectionSuccess, "userId": rt.id})
	if err := rt.sink.Send(welcome); err != nil {
		rt.log.Warn("welcome frame rejected", zap.Error(err))
		return
	}

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				rt.log.Warn("read failed", zap.Error(err))
			}
			return
		}
		rt.HandleFrame(data)
	}
}

// HandleFrame decodes and dispatches one inbound frame. Frames that do
// not decode are discarded; the loop keeps going.
func (rt *Router) HandleFrame(data []byte) {
	env, err := ParseEnvelope(data)
	if err != nil {
		rt.log.Debug("discarding malformed frame", zap.Error(err))
		return
	}

	switch env.Type {
	case TypeRequestPeerConn, TypeConnectionRequest:
		rt.handlePeerRequest(env)
	case TypeOffer, TypeAnswer, TypeICECandidate:
		rt.forwardSignal(env)
	case TypeDeclineConnection, TypeConnectionDeclined:
		rt.relayVerdict(env, TypeConnectionDeclined, "decline")
	case TypeConnectionSuccess:
		rt.relayVerdict(env, TypeConnectionSuccess, "accept")
	default:
		rt.forwardOther(env)
	}
}

// Finalize runs the Closed transition: this client's registry entry is
// removed, then the remaining clients are told the peer is gone. Safe
// against racing exit paths; removal and notification happen once.
func (rt *Router) Finalize() {
	rt.once.Do(func() {
		rt.registry.Drop(rt.id)
	})
}

// handlePeerRequest asks another client to open a WebRTC session with the
// sender. The destination gets a connection-request carrying the sender's
// identity and display name; the sender gets peer-found so it can start
// the handshake.
func (rt *Router) handlePeerRequest(env *Envelope) {
	if env.Target == "" {
		rt.replyError("missing peerId")
		return
	}

	name := env.Name
	if name == "" {
		name = rt.id
	}
	request := map[string]any{
		"type":   TypeConnectionRequest,
		"peerId": rt.id,
		"source": rt.id,
		"name":   name,
	}
	if env.AutoAccept {
		request["autoAccept"] = true
	}

	err := rt.registry.SendTo(env.Target, mustEncode(request))
	switch {
	case errors.Is(err, ErrNotFound):
		rt.replyError(fmt.Sprintf("peer %s not found or offline", env.Target))
		return
	case errors.Is(err, ErrSendFailed):
		// The target vanished mid-request; the drop broadcast tells the
		// sender, so no error reply here.
		rt.registry.Drop(env.Target)
		return
	}

	rt.reply(mustEncode(map[string]any{"type": TypePeerFound, "peerId": env.Target}))
}

// forwardSignal relays offer/answer/ice-candidate frames verbatim, with
// source overwritten to the authenticated sender. An offline target is a
// soft miss: the handshake times out on the client side instead of an
// error bouncing back here.
func (rt *Router) forwardSignal(env *Envelope) {
	if env.Target == "" {
		rt.replyError("missing target peerId for signaling message")
		return
	}

	env.StampSource(rt.id)
	frame, err := env.Encode()
	if err != nil {
		rt.log.Warn("encoding signaling frame failed", zap.Error(err))
		return
	}

	switch err := rt.registry.SendTo(env.Target, frame); {
	case errors.Is(err, ErrNotFound):
		rt.log.Debug("signaling target offline",
			zap.String("type", env.Type), zap.String("target", env.Target))
	case errors.Is(err, ErrSendFailed):
		rt.registry.Drop(env.Target)
	}
}

// relayVerdict delivers the accept/decline outcome of a connection
// request back to the client that asked for it.
func (rt *Router) relayVerdict(env *Envelope, outType, verb string) {
	if env.Target == "" {
		rt.replyError("missing target peerId for " + verb + " message")
		return
	}

	frame := mustEncode(map[string]any{
		"type":   outType,
		"peerId": rt.id,
		"source": rt.id,
	})
	switch err := rt.registry.SendTo(env.Target, frame); {
	case errors.Is(err, ErrNotFound):
		rt.log.Debug("verdict target offline",
			zap.String("type", outType), zap.String("target", env.Target))
	case errors.Is(err, ErrSendFailed):
		rt.registry.Drop(env.Target)
	}
}

// forwardOther handles types the relay does not know. Anything with a
// target is forwarded as-is (source stamped if the sender left it out);
// anything without one is dropped. Nothing is ever broadcast implicitly.
func (rt *Router) forwardOther(env *Envelope) {
	if env.Target == "" {
		rt.log.Debug("ignoring untargeted message", zap.String("type", env.Type))
		return
	}

	env.StampSourceIfAbsent(rt.id)
	frame, err := env.Encode()
	if err != nil {
		rt.log.Warn("encoding frame failed", zap.Error(err))
		return
	}

	switch err := rt.registry.SendTo(env.Target, frame); {
	case errors.Is(err, ErrNotFound):
		rt.log.Debug("forward target offline",
			zap.String("type", env.Type), zap.String("target", env.Target))
	case errors.Is(err, ErrSendFailed):
		rt.registry.Drop(env.Target)
	}
}

func (rt *Router) reply(frame []byte) {
	if err := rt.sink.Send(frame); err != nil {
		rt.log.Debug("reply rejected", zap.Error(err))
	}
}

func (rt *Router) replyError(message string) {
	rt.reply(errorFrame(message))
}
