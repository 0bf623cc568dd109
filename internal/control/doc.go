// Package control drives one Yeelight bulb over its persistent TCP control
// connection.
//
// # Architecture
//
// A Channel is a single physical connection to one bulb. Commands are
// multiplexed onto it by correlation id: Send registers a pending entry and
// returns immediately, and a single background goroutine drains incoming
// frames, routing each reply to the pending entry sharing its id. Replies
// are matched strictly by id, never by arrival order, so concurrent
// in-flight commands resolve independently and in any order.
//
// Unsolicited device notifications (frames with no id, such as "props"
// state updates) are delivered on a separate bounded stream and can never
// resolve a pending command.
//
// Each pending entry carries a deadline; if the bulb drops the reply, the
// entry resolves with ErrCommandTimeout and is discarded. A connection
// failure resolves every pending entry with ErrChannelClosed and makes the
// channel permanently closed.
//
// # Usage Example
//
//	light, err := control.Connect(ctx, device)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer light.Close()
//
//	effect, _ := protocol.Smooth(400 * time.Millisecond)
//	if err := light.SetColorTemp(ctx, 3500, effect); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// A Channel is safe for concurrent sends. The pending-correlation map is
// owned by the channel and touched only by the send path (insert) and the
// resolve paths (remove), coordinated by one mutex.
package control
