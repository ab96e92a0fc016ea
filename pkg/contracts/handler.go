// Package contracts holds the interfaces that service packages implement
// for pkg/app to mount them.
package contracts

import (
	"context"

	"github.com/julienschmidt/httprouter"
)

// Handler mounts a service's HTTP routes on the application router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// Handlers mounts several handlers on one router, in order.
type Handlers []Handler

func (hs Handlers) RegisterRoutes(router *httprouter.Router) {
	for _, h := range hs {
		h.RegisterRoutes(router)
	}
}

// Worker is a background loop that runs until its context is cancelled.
type Worker func(ctx context.Context) error
