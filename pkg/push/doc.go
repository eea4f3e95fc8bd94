// Package push delivers notification payloads to the external push gateway.
//
// Payloads are opaque JSON documents produced by the event hub. The client
// batches them with pkg/batcher: up to 500 bodies are joined with newlines
// and sent as one POST with Content-Type application/json. Each Post returns
// a future that resolves to true when the gateway answered 2xx for the whole
// batch and false otherwise. Redirects are not followed, requests time out
// after 60 seconds and failed batches are not retried.
//
// When no gateway URL is configured the client runs in development mode and
// only logs the number of bodies it would have sent.
package push
