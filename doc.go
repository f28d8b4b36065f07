// Package wgchat implements a client for an encrypted chat service that
// fronts its protocol with a WireGuard-style Noise IKpsk2 handshake over
// UDP.
//
// A Client owns the connection lifecycle: it runs the handshake, frames
// application records through the authenticated transport codec, dispatches
// server responses and notifications to registered callbacks, and keeps the
// session alive with periodic pings. Presentation is entirely the caller's
// concern; the client surfaces human-readable notices and structured
// snapshots through callbacks and accepts commands as method calls.
//
// Example:
//
//	identity, err := crypto.NewIdentity(privateKeyBase64, serverKeyBase64)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client := wgchat.New(identity, wgchat.NewOptions("chat.example.com:51820"))
//	client.OnChannelMessage(func(channel, from, text string, own bool) {
//	    fmt.Printf("[%s] <%s> %s\n", channel, from, text)
//	})
//
//	if err := client.Connect(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.JoinChannel("general")
//	client.SendChannelMessage("general", "hello")
package wgchat
