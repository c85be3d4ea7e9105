// Package dispatch implements Component C9: it routes a parsed message
// to the handler registered for its interface+method pair and turns
// whatever the handler returns (or fails with) into a {status, entries,
// cursor} reply, per spec.md §4.9.
package dispatch

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Status is the standard {code, detail} pair every handler reply
// carries.
type Status struct {
	Code   int
	Detail string
}

// Request is a parsed, not-yet-authorized message ready to hand to a
// handler.
type Request struct {
	TenantDid string
	SignerDid string
	Interface string
	Method    string
	Raw       []byte
	// Data is the associated data stream for a RecordsWrite-style
	// request, nil when the message carries no payload.
	Data interface{}
}

// Reply is what a handler (and, after wrapping, the Dispatcher) returns.
type Reply struct {
	Status Status
	// Entries holds each matched message's raw bytes, for query/read
	// replies.
	Entries [][]byte
	// Cursor is the opaque pagination token for the next page, empty
	// when the current page was the last.
	Cursor string
	// PaginationMessageCid names the message CID a write/delete reply
	// pertains to.
	PaginationMessageCid string
}

// Handler implements one interface+method pair's {parse, authorize,
// apply} capability set (spec.md §9's "prototype inheritance of handlers
// → interface + registry" design note).
type Handler interface {
	Handle(ctx context.Context, req Request) (Reply, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, req Request) (Reply, error)

func (f HandlerFunc) Handle(ctx context.Context, req Request) (Reply, error) { return f(ctx, req) }

// Dispatcher is Component C9.
type Dispatcher struct {
	handlers map[string]Handler
	log      *logrus.Logger
}

// NewDispatcher builds an empty Dispatcher; callers register handlers
// with Register before calling Dispatch. Every Dispatch call logs through
// log with tenant/interface/method/status fields; a nil log falls back to
// logrus's standard logger.
func NewDispatcher(log *logrus.Logger) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{handlers: map[string]Handler{}, log: log}
}

func key(iface, method string) string { return iface + "." + method }

// Register installs h as the handler for iface+method, overwriting any
// previous registration for the same pair.
func (d *Dispatcher) Register(iface, method string, h Handler) {
	d.handlers[key(iface, method)] = h
}

// Dispatch routes req to its registered handler and maps the outcome to
// a Reply. An unregistered interface+method pair, or a handler error,
// both come back as a Reply with a non-2xx Status together with the
// underlying error (ErrUnknownMethod, or the handler's own error), so
// callers can inspect it with errors.Is.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Reply, error) {
	fields := logrus.Fields{"tenant": req.TenantDid, "interface": req.Interface, "method": req.Method}

	h, ok := d.handlers[key(req.Interface, req.Method)]
	if !ok {
		d.log.WithFields(fields).WithField("status", 400).Warn("dispatch: unknown method")
		return Reply{Status: Status{Code: 400, Detail: fmt.Sprintf("unknown method %s/%s", req.Interface, req.Method)}}, ErrUnknownMethod
	}

	reply, err := h.Handle(ctx, req)
	if err != nil {
		status := statusFor(err)
		d.log.WithFields(fields).WithField("status", status.Code).WithError(err).Warn("dispatch: handler error")
		return Reply{Status: status}, err
	}
	if reply.Status.Code == 0 {
		reply.Status.Code = 200
	}
	d.log.WithFields(fields).WithField("status", reply.Status.Code).Info("dispatch: handled")
	return reply, nil
}
