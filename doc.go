/*
Package transmission provides a client for the Transmission daemon's JSON-RPC API.

Highlights:
  - Transparent session token handshake (X-Transmission-Session-Id), shared
    between concurrent callers
  - A stale token is renewed and the call retried exactly once
  - Typed errors: TransportError, AuthError, ProtocolError, DuplicateTorrentError
  - Configuration from code, TRANSMISSION_* environment variables or a TOML file

Quick start:

	import (
	    "context"
	    "log"

	    transmission "github.com/jfxdev/go-transmission"
	)

	func main() {
	    client, err := transmission.New(transmission.Config{
	        Host:     "localhost",
	        Username: "admin",
	        Password: "password",
	    })
	    if err != nil {
	        log.Fatal(err)
	    }
	    defer client.Close()

	    ctx := context.Background()
	    added, err := client.Add(ctx, "magnet:?xt=urn:btih:...", nil)
	    if transmission.IsDuplicateTorrent(err) {
	        // already present
	    }
	    _, _ = client.Get(ctx, added.ID, []string{"id", "name", "percentDone"})
	}
*/
package transmission
