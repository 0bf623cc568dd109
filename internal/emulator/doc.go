// Package emulator implements a software Yeelight bulb.
//
// The emulator speaks the bulb's side of the LAN control protocol: it
// accepts TCP control connections, validates and applies commands against an
// internal lighting state, answers each command with a success or error
// envelope, and pushes "props" notifications listing changed properties to
// every connected client. When multicast is enabled it also joins the
// discovery group and answers wifi_bulb searches with a header block
// advertising its control address and current state.
//
// It backs the yeelight-sim daemon and the test suite. For failure-mode
// testing it can be told to silently drop replies (SetDropReplies) or to
// hard-close all client connections (DropConnections).
package emulator
