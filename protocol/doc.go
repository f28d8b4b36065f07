// Package protocol defines the application-level chat records exchanged
// inside encrypted transport payloads: outbound requests and the tagged
// set of inbound responses, both encoded as msgpack maps with short ASCII
// keys.
//
// Decode maps every known response kind to its own concrete type so the
// session client can switch exhaustively; unrecognized kinds come back as
// *Unknown rather than an error.
package protocol
