package actorutil

import (
	"github.com/berfenger/homedash/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
)

// ExtendedRequest answers a request to its embedded reply address, falling
// back to the envelope sender.
type ExtendedRequest struct {
	replyTo *domain.ActorRef
}

func ForRequest(r domain.ActorRequest) ExtendedRequest {
	return ExtendedRequest{replyTo: r.ReplyTo()}
}

// ReplyTo returns nil for fire-and-forget messages.
func (r ExtendedRequest) ReplyTo(ctx actor.Context) *actor.PID {
	if pid := r.replyTo.PID(); pid != nil {
		return pid
	}
	return ctx.Sender()
}

func (r ExtendedRequest) Respond(ctx actor.Context, resp domain.ActorResponse) {
	if pid := r.ReplyTo(ctx); pid != nil {
		ctx.Send(pid, resp)
	}
}

// Reply sends a response to an address resolved earlier.
type Reply func(resp domain.ActorResponse)

// Deferred resolves the reply address now, for answers sent while handling a
// later message, when the envelope sender is no longer the requester.
func (r ExtendedRequest) Deferred(ctx actor.Context) Reply {
	pid := r.ReplyTo(ctx)
	return func(resp domain.ActorResponse) {
		if pid != nil {
			ctx.Send(pid, resp)
		}
	}
}
