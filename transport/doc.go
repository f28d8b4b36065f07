// Package transport implements the datagram layer of the chat protocol:
// the byte-exact wire formats for handshake and data messages, a UDP
// endpoint bound to the single fixed server address, and the authenticated
// encryption codec that frames application payloads once a handshake has
// produced transport keys.
//
// Example:
//
//	udp, err := transport.NewUDPTransport("chat.example.com:51820")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	udp.RegisterHandler(transport.MessageTransportData, func(data []byte) {
//	    payload, err := codec.Decode(data)
//	    ...
//	})
//	udp.Start()
package transport
