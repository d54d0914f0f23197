package domain

import (
	"github.com/asynkron/protoactor-go/actor"
)

// ActorRef is a reply address carried inside a message body. Requests that
// travel through an intermediate actor use it instead of the envelope sender.
type ActorRef actor.PID

// RefOf wraps pid as a reply address. A nil pid yields a nil ref.
func RefOf(pid *actor.PID) *ActorRef {
	return (*ActorRef)(pid)
}

// PID is safe on a nil ref.
func (r *ActorRef) PID() *actor.PID {
	return (*actor.PID)(r)
}

type ActorRequest interface {
	ReplyTo() *ActorRef
}

type ActorRequestMixIn struct {
	ReplyToRef *ActorRef
}

func (r ActorRequestMixIn) ReplyTo() *ActorRef {
	return r.ReplyToRef
}

// ReplyToSelf builds a request mixin answered to pid.
func ReplyToSelf(pid *actor.PID) ActorRequestMixIn {
	return ActorRequestMixIn{ReplyToRef: RefOf(pid)}
}

// DashboardRequest is any request owned by the dashboard actor. The master
// forwards these untouched, keeping the original sender.
type DashboardRequest interface {
	ActorRequest
	dashboardRequest()
}

type DashboardRequestMixIn struct {
	ActorRequestMixIn
}

func (DashboardRequestMixIn) dashboardRequest() {}

type ActorResponse interface {
	GetResponseError() error
	HasResponseError() bool
}

type ActorResponseMixIn struct {
	ResponseError error
}

// ErrorResponse returns a response mixin carrying err. A nil err is a success.
func ErrorResponse(err error) ActorResponseMixIn {
	return ActorResponseMixIn{ResponseError: err}
}

func (r ActorResponseMixIn) GetResponseError() error {
	return r.ResponseError
}

func (r ActorResponseMixIn) HasResponseError() bool {
	return r.ResponseError != nil
}
