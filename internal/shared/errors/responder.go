package errors

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ContentTypeProblemJSON is the media type for problem responses.
const ContentTypeProblemJSON = "application/problem+json"

const defaultRetryAfter = 5 * time.Second

// ErrorMapper turns an application error into a problem when it recognizes it.
type ErrorMapper func(err error) (ProblemDetail, bool)

// MapSentinel maps any error wrapping target to problem, using the error text as detail.
func MapSentinel(target error, problem ProblemDetail) ErrorMapper {
	return func(err error) (ProblemDetail, bool) {
		if !errors.Is(err, target) {
			return ProblemDetail{}, false
		}
		return problem.WithDetail(err.Error()), true
	}
}

// Responder writes problem responses. Errors no mapper recognizes become a
// 500 whose detail does not echo the error text.
type Responder struct {
	baseURI    string
	retryAfter time.Duration
	mappers    []ErrorMapper
}

type ResponderOption func(*Responder)

// WithBaseURI prefixes relative problem types.
func WithBaseURI(uri string) ResponderOption {
	return func(r *Responder) {
		r.baseURI = uri
	}
}

// WithRetryAfter sets the Retry-After hint sent with 503 problems. Zero disables it.
func WithRetryAfter(d time.Duration) ResponderOption {
	return func(r *Responder) {
		r.retryAfter = d
	}
}

// WithMappers appends mappers, tried in order by RespondError.
func WithMappers(mappers ...ErrorMapper) ResponderOption {
	return func(r *Responder) {
		r.mappers = append(r.mappers, mappers...)
	}
}

func NewResponder(opts ...ResponderOption) *Responder {
	r := &Responder{retryAfter: defaultRetryAfter}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

var defaultResponder = NewResponder()

// Respond writes problem with the default responder.
func Respond(c *gin.Context, problem ProblemDetail) {
	defaultResponder.Respond(c, problem)
}

func (r *Responder) Respond(c *gin.Context, problem ProblemDetail) {
	if r.baseURI != "" && len(problem.Type) > 0 && problem.Type[0] == '/' {
		problem.Type = r.baseURI + problem.Type
	}
	if problem.Instance == "" {
		problem.Instance = c.Request.URL.Path
	}
	if problem.Status == http.StatusServiceUnavailable && r.retryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(r.retryAfter.Round(time.Second)/time.Second)))
	}
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.JSON(problem.Status, problem)
}

func (r *Responder) RespondError(c *gin.Context, err error) {
	for _, mapper := range r.mappers {
		if problem, ok := mapper(err); ok {
			r.Respond(c, problem)
			return
		}
	}
	var problem ProblemDetail
	if errors.As(err, &problem) {
		r.Respond(c, problem)
		return
	}
	r.Respond(c, ErrInternal.WithDetail("unexpected error"))
}

func (r *Responder) NotFound(c *gin.Context, resourceType string, identifier any) {
	r.Respond(c, NewNotFoundProblem(resourceType, identifier))
}

func (r *Responder) BadRequest(c *gin.Context, detail string) {
	r.Respond(c, ErrBadRequest.WithDetail(detail))
}

func (r *Responder) ValidationFailed(c *gin.Context, fieldErrors map[string]string) {
	r.Respond(c, NewValidationProblem(fieldErrors))
}
