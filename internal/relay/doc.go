// Package relay carries MChat envelopes over WebSocket.
//
// The server side (Server) is the chat hub: it holds the username to public
// key registry, issues and verifies login challenges, answers directory
// lookups and forwards encrypted chat envelopes between authenticated
// connections. It never sees private keys or plaintext.
//
// The client side (Dial) returns a Conn implementing domain.Transport.
//
// Every WebSocket text message is one JSON envelope
//
//	{"sender": "...", "recipient": "...", "content": "<frame>", "timestamp": 0}
//
// where content is a protocol frame such as "challenge:<hex>" or an
// encrypted chat payload. Envelopes originating at the server carry an
// empty sender.
package relay
