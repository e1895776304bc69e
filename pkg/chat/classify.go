package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vyvo/site/backend/pkg/apierr"
)

// Category names a class of failed send.
type Category string

const (
	CategoryTimeout Category = "timeout"
	CategoryNetwork Category = "network"
	CategoryServer  Category = "server"
	CategoryGeneric Category = "generic"
)

// Visitor-facing failure texts.
const (
	TimeoutReply = "The connection timed out. Please check your internet connection and try again."
	NetworkReply = "I can't reach the server right now. Please check your internet connection and try again."
	GenericReply = "I'm having some technical difficulties at the moment. Please try again in a little while."
	serverReply  = "The server ran into a problem (%s). Please try again later."
)

// errTimeout is raised when the reply deadline passes.
var errTimeout = errors.New("request timeout")

type rule struct {
	category Category
	match    func(err error, msg string) bool
	text     func(err error) string
}

var rules = []rule{
	{
		category: CategoryTimeout,
		match: func(err error, msg string) bool {
			return errors.Is(err, errTimeout) || errors.Is(err, context.DeadlineExceeded) ||
				strings.Contains(strings.ToLower(msg), "timeout")
		},
		text: func(error) string { return TimeoutReply },
	},
	{
		category: CategoryNetwork,
		match: func(err error, msg string) bool {
			return apierr.HasCode(err, apierr.CodeNetwork) || strings.Contains(msg, "Failed to fetch")
		},
		text: func(error) string { return NetworkReply },
	},
	{
		category: CategoryServer,
		match: func(err error, msg string) bool {
			if apiErr, ok := apierr.As(err); ok && apiErr.Status > 0 {
				return true
			}
			return strings.Contains(msg, "HTTP error")
		},
		text: func(err error) string { return fmt.Sprintf(serverReply, err.Error()) },
	},
}

// Classify maps a failed send onto a category and the text shown instead
// of a reply.
func Classify(err error) (Category, string) {
	msg := err.Error()
	for _, r := range rules {
		if r.match(err, msg) {
			return r.category, r.text(err)
		}
	}
	return CategoryGeneric, GenericReply
}
