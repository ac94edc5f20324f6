package rooms

import (
	"context"
)

type Msg interface{ isRoomsMsg() }

// Join registers a connection's outbox under a room key, creating the
// room on first join. Re-joining with the same ConnID replaces the outbox.
type Join struct {
	Room   string
	ConnID string
	Outbox chan []byte // where this connection wants to receive payloads
}

func (Join) isRoomsMsg() {}

// Leave removes a connection from its room. The room entry is deleted
// once its last connection leaves. Leaving twice is a no-op.
type Leave struct {
	Room   string
	ConnID string
}

func (Leave) isRoomsMsg() {}

// Broadcast fans a payload out to every connection in the room,
// including the sender. An unknown room means zero recipients.
type Broadcast struct {
	Room    string
	Payload []byte
}

func (Broadcast) isRoomsMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomsMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomsMsg() {}

// View reflects registry internals without data races. Test-only.
type View struct {
	NumRooms int
	Members  map[string]int // room -> connection count
}

// Registry is the single shared index from room key to the connections
// currently joined to it. All mutation happens on its own goroutine; the
// websocket handlers only talk to it through the inbox.
type Registry struct {
	inbox  chan Msg
	rooms  map[string]map[string]chan []byte
	ctx    context.Context
	cancel context.CancelFunc
}

func NewRegistry(parent context.Context) *Registry {
	ctx, cancel := context.WithCancel(parent)
	reg := &Registry{
		inbox:  make(chan Msg, 64),
		rooms:  make(map[string]map[string]chan []byte),
		ctx:    ctx,
		cancel: cancel,
	}
	go reg.loop()
	return reg
}

func (reg *Registry) Inbox() chan<- Msg { return reg.inbox }

func (reg *Registry) loop() {
	for {
		select {
		case <-reg.ctx.Done():
			reg.shutdown()
			return

		case m := <-reg.inbox:
			switch msg := m.(type) {
			case Join:
				conns := reg.rooms[msg.Room]
				if conns == nil {
					conns = make(map[string]chan []byte)
					reg.rooms[msg.Room] = conns
				}
				conns[msg.ConnID] = msg.Outbox

			case Leave:
				reg.leave(msg.Room, msg.ConnID)

			case Broadcast:
				for id, ch := range reg.rooms[msg.Room] {
					select {
					case ch <- msg.Payload:
						// ok
					default:
						// Connection is slow/full - drop it.
						reg.leave(msg.Room, id)
					}
				}

			case GetState:
				members := make(map[string]int, len(reg.rooms))
				for room, conns := range reg.rooms {
					members[room] = len(conns)
				}
				msg.Reply <- View{NumRooms: len(reg.rooms), Members: members}

			case Shutdown:
				reg.shutdown()
				return
			}
		}
	}
}

// leave closes the connection's outbox so its writer goroutine exits.
// Closing here keeps a single closer: leave, slow-drop and shutdown all
// run on the registry goroutine, and a second Leave finds no entry.
func (reg *Registry) leave(room, connID string) {
	conns, ok := reg.rooms[room]
	if !ok {
		return
	}
	ch, ok := conns[connID]
	if !ok {
		return
	}
	close(ch)
	delete(conns, connID)
	if len(conns) == 0 {
		delete(reg.rooms, room)
	}
}

func (reg *Registry) shutdown() {
	for room, conns := range reg.rooms {
		for id, ch := range conns {
			close(ch)
			delete(conns, id)
		}
		delete(reg.rooms, room)
	}
	reg.cancel()
}
