// Package protocol implements the Yeelight LAN control wire format.
//
// Yeelight bulbs accept commands over a persistent TCP connection as
// single-line JSON objects, one command per line:
//
//	{"id": 1, "method": "set_ct_abx", "params": [3500, "smooth", 400]}
//
// The bulb answers every command with a reply line carrying the same id,
// either a success envelope or an error envelope:
//
//	{"id": 1, "result": ["ok"]}
//	{"id": 1, "error": {"code": -1, "message": "invalid params"}}
//
// It also pushes unsolicited notification lines with no id when its state
// changes (for example after another controller issues a command):
//
//	{"method": "props", "params": {"bright": 50}}
//
// # Commands
//
// Commands are built with the New* constructors, which validate parameters
// against the ranges the firmware accepts before anything touches the
// network. A request that would be rejected by the bulb fails locally with
// ErrInvalidParameter and is never sent.
//
//	req, err := protocol.NewSetBright(75, protocol.Sudden())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	line, _ := req.Encode(nextID)
//
// # Transitions
//
// Effect-bearing commands carry a transition: either Sudden (apply
// immediately) or Smooth over a duration. Smooth durations must be a whole
// number of milliseconds of at least MinEffectDuration; out-of-range
// durations fail with ErrInvalidTransition rather than being rounded.
//
// # Responses
//
// Decode parses one wire line into an Envelope, which classifies it as a
// success reply, an error reply, or a notification. Replies are matched to
// commands by correlation id; notifications carry no id and must never be
// mistaken for a reply.
//
// All functions in this package are pure and safe for concurrent use.
package protocol
