package metrics

import (
	"io"
	"net/http"
	"time"
)

// Client Client metrics interface.
type Client interface {
	// Will observe one dispatched request that got a response.
	ObserveRequest(method, host string, statusCode int, elapsed time.Duration)
	// Will increase counter of transport failures.
	IncTransportErrors(method, host string)
	// Will increase counter of rejected request descriptors.
	IncNormalizeErrors(reason string)
	// Will set the number of queued descriptors.
	SetQueueSize(size int)
	// Will return a handler to expose metrics over a http server.
	GetExposeHandler() http.Handler
	// Will write all metrics in prometheus text format.
	WriteText(w io.Writer) error
}

// NewClient will generate a new client instance with its own registry.
func NewClient() Client {
	client := &prometheusClient{}
	// Call register to create all prometheus instances objects
	client.register()

	return client
}
