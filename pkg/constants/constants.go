package constants

import (
	"github.com/go-playground/validator/v10"
)

type ContextKey string

const (
	LoggerKey    ContextKey = "logger"
	RequestStart ContextKey = "request_start"
	RequestIDKey ContextKey = "request_id"
	AppKey       ContextKey = "app"
)

// Validate is the process-wide struct validator. Domain packages register their custom tags on it.
var Validate = validator.New(validator.WithRequiredStructEnabled())
